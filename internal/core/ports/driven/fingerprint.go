package driven

import (
	"context"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// FingerprintStore remembers, per unit, the state of the last successful
// indexing pass. The watcher consults it to skip unchanged units.
type FingerprintStore interface {
	// Get returns the recorded state for uri.
	// Returns domain.ErrNotFound if the unit has never been indexed.
	Get(ctx context.Context, uri string) (*domain.FileState, error)

	// Save records the state for uri, replacing any previous entry.
	Save(ctx context.Context, uri string, state domain.FileState) error

	// Delete forgets uri.
	Delete(ctx context.Context, uri string) error
}
