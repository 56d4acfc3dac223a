package driven

import (
	"context"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// RecordSource provides access to the units holding patient records.
// The filesystem implementation treats one file as one unit.
type RecordSource interface {
	// List returns the URIs of all matching units in a stable order.
	List(ctx context.Context) ([]string, error)

	// Read returns the raw bytes of a unit.
	Read(ctx context.Context, uri string) (*domain.RawRecord, error)

	// Watch streams change notifications for matching units until ctx is
	// cancelled, then closes the channel. Deletions are reported too;
	// consumers decide whether to act on them.
	Watch(ctx context.Context) (<-chan domain.RecordChange, error)

	// Close releases resources.
	Close() error
}
