// sitrep tracks a single account's operational state: it ingests
// observation batches, detects and scores changes, alerts on the
// significant ones and rolls the rest up into periodic digests.
package main

import (
	"fmt"
	"os"
	"strings"

	configfile "github.com/custodia-labs/sitrep/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sitrep/internal/adapters/driven/notify/console"
	"github.com/custodia-labs/sitrep/internal/adapters/driven/notify/mcpslack"
	"github.com/custodia-labs/sitrep/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sitrep/internal/adapters/driving/cli"
	"github.com/custodia-labs/sitrep/internal/core/services"
)

// defaultMCPCommand launches the Slack MCP server over stdio. Override
// with SITREP_MCP_COMMAND to point at a different server or wrapper.
const defaultMCPCommand = "slack-mcp-server"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Settings live in ~/.sitrep/config.toml unless overridden.
	settingsStore, err := configfile.NewSettingsStore(os.Getenv("SITREP_CONFIG_DIR"))
	if err != nil {
		return fmt.Errorf("initialising settings store: %w", err)
	}
	settings, err := settingsStore.Load()
	if err != nil {
		return fmt.Errorf("loading settings from %s: %w", settingsStore.Path(), err)
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings in %s: %w", settingsStore.Path(), err)
	}

	store, err := sqlite.NewStore(os.Getenv("SITREP_DATA_DIR"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	parts := strings.Fields(os.Getenv("SITREP_MCP_COMMAND"))
	if len(parts) == 0 {
		parts = []string{defaultMCPCommand}
	}
	notifier := mcpslack.NewNotifier(parts[0], parts[1:]...)
	defer notifier.Close()

	alerts := services.NewAlertService(store.ChangeStore(), store.AlertStore(), notifier, settings)
	pipeline := services.NewPipeline(store.SnapshotStore(), store.ChangeStore(), store.RunStore(), services.NewDiffEngine(), alerts)
	digests := services.NewDigestBuilder(store.ChangeStore(), store.DigestStore(), notifier, settings)
	dryRunDigests := services.NewDigestBuilder(store.ChangeStore(), store.DigestStore(), console.NewNotifier(), settings)
	history := services.NewHistoryService(store.ChangeStore(), store.RunStore(), store.DigestStore())

	cli.SetServices(cli.Services{
		Pipeline:     pipeline,
		Digest:       digests,
		DryRunDigest: dryRunDigests,
		History:      history,
	})

	return cli.Execute()
}
