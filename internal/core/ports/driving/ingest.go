package driving

import (
	"context"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// IngestService indexes record units into the vector store.
type IngestService interface {
	// EnsureSchema prepares the vector collection. Safe to call repeatedly.
	EnsureSchema(ctx context.Context) error

	// IngestFile runs one indexing pass over a single unit.
	// An unchanged unit is reported as skipped without any writes.
	IngestFile(ctx context.Context, uri string) domain.IngestResult

	// IngestAll runs IngestFile over every matching unit. Per-unit
	// failures are collected in the summary; only listing errors abort.
	IngestAll(ctx context.Context) (*domain.IngestSummary, error)
}
