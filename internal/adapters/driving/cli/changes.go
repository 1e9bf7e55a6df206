package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// runDurationPrecision keeps run durations readable in the listing.
const runDurationPrecision = time.Millisecond

var (
	changesLimit   int
	changesRuns    bool
	changesDigests bool
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recently detected changes",
	Long: `Lists the most recently detected changes with their significance scores.

Use --runs to show ingestion cycle runs instead, or --digests to show
past digests.`,
	RunE: runChanges,
}

func init() {
	changesCmd.Flags().IntVarP(&changesLimit, "limit", "n", 20, "maximum number of entries")
	changesCmd.Flags().BoolVar(&changesRuns, "runs", false, "show ingestion cycle runs")
	changesCmd.Flags().BoolVar(&changesDigests, "digests", false, "show past digests")
	rootCmd.AddCommand(changesCmd)
}

func runChanges(cmd *cobra.Command, _ []string) error {
	if historyService == nil {
		return errors.New("history service not configured")
	}

	ctx := context.Background()

	switch {
	case changesRuns:
		return outputRuns(ctx, cmd)
	case changesDigests:
		return outputDigests(ctx, cmd)
	default:
		return outputChanges(ctx, cmd)
	}
}

func outputChanges(ctx context.Context, cmd *cobra.Command) error {
	changes, err := historyService.RecentChanges(ctx, changesLimit)
	if err != nil {
		return fmt.Errorf("failed to list changes: %w", err)
	}

	if len(changes) == 0 {
		cmd.Println("No changes recorded.")
		return nil
	}

	cmd.Println("Recent changes:")
	cmd.Println()
	for i, change := range changes {
		alerted := ""
		if change.AlertSent {
			alerted = " [alerted]"
		}
		cmd.Printf("  [%d] %s %s %s (%s, score %d)%s\n",
			i+1, change.EntityType, change.EntityID, change.ChangeType, change.Level, change.Score, alerted)
		cmd.Printf("      %s\n", change.Rationale)
		cmd.Printf("      Detected: %s via %s\n", change.DetectedAt.UTC().Format("2006-01-02 15:04"), change.Source)
		cmd.Println()
	}
	return nil
}

func outputRuns(ctx context.Context, cmd *cobra.Command) error {
	runs, err := historyService.RecentRuns(ctx, changesLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		cmd.Println("No runs recorded.")
		return nil
	}

	cmd.Println("Recent runs:")
	cmd.Println()
	for i, run := range runs {
		cmd.Printf("  [%d] %s %s/%s: %d observation(s), %d change(s), %d alert(s)\n",
			i+1, run.Status, run.Source, run.EntityType, run.Observations, run.ChangesDetected, run.AlertsSent)
		cmd.Printf("      Started: %s (%s)\n",
			run.StartedAt.UTC().Format("2006-01-02 15:04"), run.FinishedAt.Sub(run.StartedAt).Round(runDurationPrecision))
		if run.Status != domain.RunSuccess && run.Error != "" {
			cmd.Printf("      Error: %s\n", run.Error)
		}
		cmd.Println()
	}
	return nil
}

func outputDigests(ctx context.Context, cmd *cobra.Command) error {
	digests, err := historyService.RecentDigests(ctx, changesLimit)
	if err != nil {
		return fmt.Errorf("failed to list digests: %w", err)
	}

	if len(digests) == 0 {
		cmd.Println("No digests recorded.")
		return nil
	}

	cmd.Println("Recent digests:")
	cmd.Println()
	for i, digest := range digests {
		cmd.Printf("  [%d] %s - %s: %s | %s | %d words\n",
			i+1,
			digest.WindowStart.UTC().Format("2006-01-02"),
			digest.WindowEnd.UTC().Format("2006-01-02"),
			digest.Status, digest.Momentum, digest.WordCount)
	}
	return nil
}
