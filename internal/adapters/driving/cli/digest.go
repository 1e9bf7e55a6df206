package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	digestDays   int
	digestDryRun bool
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Build and send the periodic account digest",
	Long: `Aggregates the changes detected over the last N days into a digest with
an overall account status and momentum, and delivers it to the
configured channel.

With --dry-run the digest is rendered to the console instead of being
delivered. The digest is persisted either way.`,
	RunE: runDigest,
}

func init() {
	digestCmd.Flags().IntVar(&digestDays, "days", 7, "aggregation window in days")
	digestCmd.Flags().BoolVar(&digestDryRun, "dry-run", false, "render to the console instead of sending")
	rootCmd.AddCommand(digestCmd)
}

func runDigest(cmd *cobra.Command, _ []string) error {
	service := digestService
	if digestDryRun {
		service = dryRunDigest
	}
	if service == nil {
		return errors.New("digest service not configured")
	}

	ctx := context.Background()
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -digestDays)

	digest, err := service.BuildAndSend(ctx, start, end)
	if err != nil {
		return fmt.Errorf("digest failed: %w", err)
	}

	cmd.Printf("Digest generated: %s | Momentum: %s | %d words\n", digest.Status, digest.Momentum, digest.WordCount)
	return nil
}
