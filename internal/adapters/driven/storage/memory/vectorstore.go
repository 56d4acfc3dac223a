package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

type collection struct {
	spec   domain.CollectionSpec
	points map[string]domain.IndexedPoint
}

// VectorStore is an in-memory implementation of driven.VectorStore.
// Queries are exact (brute force) and results are ordered by score,
// then by id for equal scores.
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		collections: make(map[string]*collection),
	}
}

// EnsureCollection creates the collection if absent.
func (s *VectorStore) EnsureCollection(_ context.Context, spec domain.CollectionSpec) error {
	if spec.Name == "" || spec.Dimensions <= 0 {
		return fmt.Errorf("%w: collection needs a name and positive dimensions", domain.ErrSchema)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.collections[spec.Name]; ok {
		if existing.spec.Dimensions != spec.Dimensions {
			return fmt.Errorf("%w: collection %s has %d dimensions, want %d",
				domain.ErrSchema, spec.Name, existing.spec.Dimensions, spec.Dimensions)
		}
		return nil
	}

	if !spec.Distance.IsValid() {
		spec.Distance = domain.DistanceCosine
	}
	s.collections[spec.Name] = &collection{
		spec:   spec,
		points: make(map[string]domain.IndexedPoint),
	}
	return nil
}

// Upsert inserts or replaces points.
func (s *VectorStore) Upsert(_ context.Context, name string, points []domain.IndexedPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(name)
	if err != nil {
		return err
	}

	// Validate the whole batch before writing any of it.
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("%w: point without id", domain.ErrIndexWrite)
		}
		if len(p.Vector) != c.spec.Dimensions {
			return fmt.Errorf("%w: point %s has %d dimensions, want %d",
				domain.ErrIndexWrite, p.ID, len(p.Vector), c.spec.Dimensions)
		}
	}

	for _, p := range points {
		c.points[p.ID] = domain.IndexedPoint{
			ID:       p.ID,
			Vector:   append([]float32(nil), p.Vector...),
			Text:     p.Text,
			Metadata: maps.Clone(p.Metadata),
		}
	}
	return nil
}

// Query returns the best-scoring points that match the filter.
func (s *VectorStore) Query(_ context.Context, name string, q domain.PointQuery) ([]domain.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	if len(q.Vector) != c.spec.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d",
			domain.ErrInvalidInput, len(q.Vector), c.spec.Dimensions)
	}

	distance := q.Distance.Resolve(c.spec.Distance)
	var hits []domain.ScoredPoint
	for _, p := range c.points {
		payload := p.Payload()
		if !q.Filter.Matches(payload) {
			continue
		}
		hits = append(hits, domain.ScoredPoint{
			ID:      p.ID,
			Score:   domain.Similarity(distance, q.Vector, p.Vector),
			Payload: payload,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits, nil
}

// PointIDs lists ids of points matching the filter, sorted.
func (s *VectorStore) PointIDs(_ context.Context, name string, filter domain.PayloadFilter) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}

	var ids []string
	for id, p := range c.points {
		if filter.Matches(p.Payload()) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes points by id.
func (s *VectorStore) Delete(_ context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.collection(name)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(c.points, id)
	}
	return nil
}

// Point returns a stored point. Intended for tests and diagnostics.
func (s *VectorStore) Point(name, id string) (domain.IndexedPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return domain.IndexedPoint{}, false
	}
	p, ok := c.points[id]
	return p, ok
}

// Count returns the number of points in a collection.
func (s *VectorStore) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.collections[name]; ok {
		return len(c.points)
	}
	return 0
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}

// collection must be called with mu held.
func (s *VectorStore) collection(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: collection %s", domain.ErrNotFound, name)
	}
	return c, nil
}
