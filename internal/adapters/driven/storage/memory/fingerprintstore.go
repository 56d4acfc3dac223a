package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
)

// Ensure FingerprintStore implements the interface.
var _ driven.FingerprintStore = (*FingerprintStore)(nil)

// FingerprintStore is an in-memory implementation of driven.FingerprintStore.
// Each watcher owns one; state starts empty and is never persisted, so a
// restart re-embeds every unit once.
type FingerprintStore struct {
	mu     sync.RWMutex
	states map[string]domain.FileState
}

// NewFingerprintStore creates a new in-memory fingerprint store.
func NewFingerprintStore() *FingerprintStore {
	return &FingerprintStore{
		states: make(map[string]domain.FileState),
	}
}

// Save stores or replaces the state of a unit.
func (s *FingerprintStore) Save(_ context.Context, uri string, state domain.FileState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[uri] = copyState(state)
	return nil
}

// Get retrieves the state of a unit.
func (s *FingerprintStore) Get(_ context.Context, uri string) (*domain.FileState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[uri]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyState(state)
	return &out, nil
}

// Delete forgets a unit.
func (s *FingerprintStore) Delete(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, uri)
	return nil
}

// Len returns the number of tracked units.
func (s *FingerprintStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

func copyState(state domain.FileState) domain.FileState {
	return domain.FileState{
		Fingerprint:  state.Fingerprint,
		ChunkDigests: maps.Clone(state.ChunkDigests),
		Target:       state.Target,
	}
}
