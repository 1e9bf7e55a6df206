package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	batchfile "github.com/custodia-labs/sitrep/internal/adapters/driven/producer/file"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Process observation batches from a JSON file or directory",
	Long: `Reads observation batches from a JSON file, or from every .json file in
a directory, and runs each batch through the ingestion pipeline: diff
against stored snapshots, score the changes, and alert on the ones that
qualify.

Re-running the same input is safe; unchanged observations produce no
changes and no alerts.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestPipeline == nil {
		return errors.New("ingest pipeline not configured")
	}

	ctx := context.Background()

	batches, err := batchfile.NewProducer(args[0]).Produce(ctx)
	if err != nil {
		return fmt.Errorf("loading batches: %w", err)
	}
	if len(batches) == 0 {
		cmd.Println("No batches found.")
		return nil
	}

	var changes, alerts, skipped int
	for _, batch := range batches {
		result, err := ingestPipeline.ProcessBatch(ctx, batch)
		if err != nil {
			return fmt.Errorf("processing %s/%s: %w", batch.Source, batch.EntityType, err)
		}
		changes += result.ChangesDetected
		alerts += result.AlertsSent
		skipped += result.Skipped

		cmd.Printf("Processed %s/%s: %d change(s), %d alert(s)", batch.Source, batch.EntityType, result.ChangesDetected, result.AlertsSent)
		if result.Skipped > 0 {
			cmd.Printf(", %d skipped", result.Skipped)
		}
		cmd.Println()
	}

	cmd.Printf("Done: %d batch(es), %d change(s) detected, %d alert(s) sent", len(batches), changes, alerts)
	if skipped > 0 {
		cmd.Printf(", %d observation(s) skipped", skipped)
	}
	cmd.Println()
	return nil
}
