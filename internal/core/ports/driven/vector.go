package driven

import (
	"context"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// VectorStore is a vector database holding named collections of points.
// Points are keyed by id; writing an existing id replaces it.
type VectorStore interface {
	// EnsureCollection creates the collection and its keyword payload
	// indexes when absent. It is a no-op when a compatible collection
	// already exists and returns domain.ErrSchema when the existing
	// collection has a different dimensionality.
	EnsureCollection(ctx context.Context, spec domain.CollectionSpec) error

	// Upsert inserts or replaces the given points.
	Upsert(ctx context.Context, collection string, points []domain.IndexedPoint) error

	// Query returns the points most similar to q.Vector that satisfy
	// q.Filter, best first, at most q.Limit.
	Query(ctx context.Context, collection string, q domain.PointQuery) ([]domain.ScoredPoint, error)

	// PointIDs lists the ids of all points matching filter.
	PointIDs(ctx context.Context, collection string, filter domain.PayloadFilter) ([]string, error)

	// Delete removes the points with the given ids. Unknown ids are ignored.
	Delete(ctx context.Context, collection string, ids []string) error

	// Close releases resources.
	Close() error
}
