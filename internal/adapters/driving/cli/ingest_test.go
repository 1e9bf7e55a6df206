package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitrep/internal/core/domain"
)

// mockPipeline implements driving.IngestPipeline for testing.
type mockPipeline struct {
	batches []domain.Batch
	result  domain.CycleResult
	err     error
}

func (m *mockPipeline) ProcessBatch(_ context.Context, batch domain.Batch) (domain.CycleResult, error) {
	m.batches = append(m.batches, batch)
	if m.err != nil {
		return domain.CycleResult{}, m.err
	}
	return m.result, nil
}

func setupIngestTest(pipeline *mockPipeline) func() {
	oldPipeline := ingestPipeline
	ingestPipeline = pipeline
	return func() {
		ingestPipeline = oldPipeline
	}
}

func writeBatchFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [path]", ingestCmd.Use)
}

func TestIngestCmd_Short(t *testing.T) {
	assert.Equal(t, "Process observation batches from a JSON file or directory", ingestCmd.Short)
}

func TestIngestCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestIngestCmd_ProcessesBatchFile(t *testing.T) {
	pipeline := &mockPipeline{result: domain.CycleResult{Success: true, ChangesDetected: 2, AlertsSent: 1}}
	cleanup := setupIngestTest(pipeline)
	defer cleanup()

	path := writeBatchFile(t, `{
		"source": "slack",
		"entity_type": "stakeholder",
		"observations": [{"entity_id": "s-1", "attributes": {"name": "Jordan Li"}}]
	}`)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	require.Len(t, pipeline.batches, 1)
	assert.Equal(t, "slack", pipeline.batches[0].Source)
	assert.Contains(t, buf.String(), "Processed slack/stakeholder: 2 change(s), 1 alert(s)")
	assert.Contains(t, buf.String(), "Done: 1 batch(es), 2 change(s) detected, 1 alert(s) sent")
}

func TestIngestCmd_ReportsSkippedObservations(t *testing.T) {
	pipeline := &mockPipeline{result: domain.CycleResult{Success: true, Skipped: 3}}
	cleanup := setupIngestTest(pipeline)
	defer cleanup()

	path := writeBatchFile(t, `{"source": "wiki", "entity_type": "risk", "observations": []}`)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "3 skipped")
}

func TestIngestCmd_FailsWithoutPipeline(t *testing.T) {
	oldPipeline := ingestPipeline
	ingestPipeline = nil
	defer func() { ingestPipeline = oldPipeline }()

	path := writeBatchFile(t, `{"source": "slack", "entity_type": "risk", "observations": []}`)

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"ingest", path})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestIngestCmd_FailsOnMissingPath(t *testing.T) {
	pipeline := &mockPipeline{}
	cleanup := setupIngestTest(pipeline)
	defer cleanup()

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"ingest", filepath.Join(t.TempDir(), "nope.json")})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Empty(t, pipeline.batches)
}
