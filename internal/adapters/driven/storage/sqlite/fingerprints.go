package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
)

// Ensure fingerprintStore implements the interface.
var _ driven.FingerprintStore = (*fingerprintStore)(nil)

type fingerprintStore struct {
	db *sql.DB
}

func (s *fingerprintStore) Get(ctx context.Context, uri string) (*domain.FileState, error) {
	var fingerprint, digests, target string
	err := s.db.QueryRowContext(ctx,
		"SELECT fingerprint, chunk_digests, target FROM file_states WHERE uri = ?", uri).
		Scan(&fingerprint, &digests, &target)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting file state: %w", err)
	}

	state := &domain.FileState{Fingerprint: fingerprint, Target: target}
	if err := json.Unmarshal([]byte(digests), &state.ChunkDigests); err != nil {
		return nil, fmt.Errorf("decoding chunk digests of %s: %w", uri, err)
	}
	return state, nil
}

func (s *fingerprintStore) Save(ctx context.Context, uri string, state domain.FileState) error {
	digests := state.ChunkDigests
	if digests == nil {
		digests = map[string]string{}
	}
	raw, err := json.Marshal(digests)
	if err != nil {
		return fmt.Errorf("encoding chunk digests: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO file_states (uri, fingerprint, chunk_digests, target, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(uri) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			chunk_digests = excluded.chunk_digests,
			target = excluded.target,
			updated_at = CURRENT_TIMESTAMP
	`, uri, state.Fingerprint, string(raw), state.Target)
	if err != nil {
		return fmt.Errorf("saving file state: %w", err)
	}
	return nil
}

func (s *fingerprintStore) Delete(ctx context.Context, uri string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM file_states WHERE uri = ?", uri); err != nil {
		return fmt.Errorf("deleting file state: %w", err)
	}
	return nil
}
