package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	batchfile "github.com/custodia-labs/sitrep/internal/adapters/driven/producer/file"
	"github.com/custodia-labs/sitrep/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and ingest batch files as they arrive",
	Long: `Watches a drop directory and runs every new or updated .json batch file
through the ingestion pipeline. Files already present are processed on
startup.

A file may be seen more than once while it is being written; that is
harmless because the pipeline is idempotent, and half-written files are
skipped and retried on the next write event. Stop with Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestPipeline == nil {
		return errors.New("ingest pipeline not configured")
	}

	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	producer := batchfile.NewProducer(dir)

	// Process what is already there before watching, so a backlog left by
	// an earlier producer run is not silently ignored.
	batches, err := producer.Produce(ctx)
	if err != nil {
		return fmt.Errorf("processing existing files: %w", err)
	}
	for _, batch := range batches {
		if _, err := ingestPipeline.ProcessBatch(ctx, batch); err != nil {
			logger.Warn("Batch %s/%s failed: %v", batch.Source, batch.EntityType, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	cmd.Printf("Watching %s for batch files. Press Ctrl-C to stop.\n", dir)

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Stopped.")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			processWatchedFile(ctx, cmd, producer, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// processWatchedFile ingests one dropped file. Decode failures are logged
// and swallowed: a file mid-write decodes as garbage and will be retried
// on the write event that completes it.
func processWatchedFile(ctx context.Context, cmd *cobra.Command, producer *batchfile.Producer, path string) {
	batches, err := producer.ReadBatches(path)
	if err != nil {
		logger.Debug("Skipping %s: %v", path, err)
		return
	}

	for _, batch := range batches {
		result, err := ingestPipeline.ProcessBatch(ctx, batch)
		if err != nil {
			logger.Warn("Batch %s/%s failed: %v", batch.Source, batch.EntityType, err)
			continue
		}
		cmd.Printf("Processed %s/%s: %d change(s), %d alert(s)\n",
			batch.Source, batch.EntityType, result.ChangesDetected, result.AlertsSent)
	}
}
