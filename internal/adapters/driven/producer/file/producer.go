// Package file implements an ObservationProducer that reads structured
// observation batches from JSON files.
//
// A batch file holds one batch document or an array of them. This is the
// integration seam for extraction tooling: anything that can write the
// batch format can feed the pipeline, regardless of how it captured the
// observations.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/sitrep/internal/core/domain"
	"github.com/custodia-labs/sitrep/internal/core/ports/driven"
	"github.com/custodia-labs/sitrep/internal/logger"
)

// Ensure Producer implements the interface.
var _ driven.ObservationProducer = (*Producer)(nil)

// Producer reads observation batches from a JSON file or a directory of
// .json files.
type Producer struct {
	path string
	now  func() time.Time
}

// NewProducer creates a producer for the given file or directory path.
func NewProducer(path string) *Producer {
	return &Producer{path: path, now: time.Now}
}

// batchDoc is the wire format of one batch.
type batchDoc struct {
	Source       string           `json:"source"`
	EntityType   string           `json:"entity_type"`
	Complete     bool             `json:"complete"`
	ObservedAt   *time.Time       `json:"observed_at,omitempty"`
	Observations []observationDoc `json:"observations"`
}

// observationDoc is the wire format of one observation.
type observationDoc struct {
	EntityID   string         `json:"entity_id"`
	Attributes map[string]any `json:"attributes"`
	ObservedAt *time.Time     `json:"observed_at,omitempty"`
}

// Produce reads and decodes every batch under the configured path.
// Files are processed in name order so output is deterministic.
func (p *Producer) Produce(ctx context.Context) ([]domain.Batch, error) {
	paths, err := p.resolve()
	if err != nil {
		return nil, err
	}

	var batches []domain.Batch
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileBatches, err := p.readFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		batches = append(batches, fileBatches...)
	}
	return batches, nil
}

// ReadBatches decodes one batch file. Exposed so the watcher can process a
// single dropped file without re-reading the directory.
func (p *Producer) ReadBatches(path string) ([]domain.Batch, error) {
	batches, err := p.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return batches, nil
}

// resolve expands the configured path to the ordered list of batch files.
func (p *Producer) resolve() ([]string, error) {
	info, err := os.Stat(p.path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p.path, err)
	}
	if !info.IsDir() {
		return []string{p.path}, nil
	}

	entries, err := os.ReadDir(p.path)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", p.path, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(p.path, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func (p *Producer) readFile(path string) ([]domain.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// A file holds either a single batch document or an array of them.
	var docs []batchDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		var single batchDoc
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("%w: not a batch document: %w", domain.ErrInvalidInput, err)
		}
		docs = []batchDoc{single}
	}

	batches := make([]domain.Batch, 0, len(docs))
	for _, doc := range docs {
		batches = append(batches, p.toBatch(doc))
	}
	logger.Debug("Loaded %d batch(es) from %s", len(batches), path)
	return batches, nil
}

func (p *Producer) toBatch(doc batchDoc) domain.Batch {
	entityType := domain.EntityType(doc.EntityType)
	defaultObserved := p.now()
	if doc.ObservedAt != nil {
		defaultObserved = *doc.ObservedAt
	}

	batch := domain.Batch{
		Source:     doc.Source,
		EntityType: entityType,
		Complete:   doc.Complete,
	}
	for _, obs := range doc.Observations {
		observedAt := defaultObserved
		if obs.ObservedAt != nil {
			observedAt = *obs.ObservedAt
		}
		batch.Observations = append(batch.Observations, domain.Observation{
			EntityType: entityType,
			EntityID:   obs.EntityID,
			Attributes: obs.Attributes,
			Source:     doc.Source,
			ObservedAt: observedAt,
		})
	}
	return batch
}
