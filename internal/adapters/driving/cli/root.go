// Package cli implements the cobra command tree for the sitrep binary.
//
// Commands call core services through the driving ports. Services are
// injected once from main via SetServices; commands fail with a clear
// error when invoked without them, which keeps the package testable.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sitrep/internal/core/ports/driving"
	"github.com/custodia-labs/sitrep/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0"

var verbose bool

// Injected services. Nil until SetServices runs.
var (
	ingestPipeline driving.IngestPipeline
	digestService  driving.DigestService
	dryRunDigest   driving.DigestService
	historyService driving.History
)

var rootCmd = &cobra.Command{
	Use:   "sitrep",
	Short: "Track an account's operational state and surface what changed",
	Long: `sitrep ingests observation batches about a single account, diffs them
against the last known state, scores what changed, alerts on the
significant changes and rolls everything up into a periodic digest.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Services carries the core services the commands depend on.
type Services struct {
	Pipeline driving.IngestPipeline
	Digest   driving.DigestService

	// DryRunDigest builds digests that render to the console instead of
	// the messaging channel. Used by `digest --dry-run`.
	DryRunDigest driving.DigestService

	History driving.History
}

// SetServices injects the core services the commands call.
func SetServices(services Services) {
	ingestPipeline = services.Pipeline
	digestService = services.Digest
	dryRunDigest = services.DryRunDigest
	historyService = services.History
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
