package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

// Ensure vectorStore implements the interface.
var _ driven.VectorStore = (*vectorStore)(nil)

// keywordColumns maps payload keys to their indexed columns.
var keywordColumns = map[string]string{
	domain.MetaPatientID: "patient_id",
	domain.MetaEventType: "event_type",
	domain.MetaTimestamp: "ts",
	domain.PayloadText:   "text",
}

type vectorStore struct {
	db *sql.DB
}

type collectionInfo struct {
	dimensions int
	distance   domain.Distance
}

func (s *vectorStore) EnsureCollection(ctx context.Context, spec domain.CollectionSpec) error {
	if spec.Name == "" || spec.Dimensions <= 0 {
		return fmt.Errorf("%w: collection needs a name and positive dimensions", domain.ErrSchema)
	}
	if !spec.Distance.IsValid() {
		spec.Distance = domain.DistanceCosine
	}

	info, err := s.collection(ctx, spec.Name)
	switch {
	case err == nil:
		if info.dimensions != spec.Dimensions {
			return fmt.Errorf("%w: collection %s has %d dimensions, want %d",
				domain.ErrSchema, spec.Name, info.dimensions, spec.Dimensions)
		}
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("%w: %v", domain.ErrSchema, err)
	}

	for _, field := range spec.KeywordFields {
		if _, ok := keywordColumns[field]; !ok {
			logger.Warn("sqlite: no dedicated column for keyword field %q, filtering on payload", field)
		}
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO collections (name, dimensions, distance) VALUES (?, ?, ?)",
		spec.Name, spec.Dimensions, string(spec.Distance))
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", domain.ErrSchema, spec.Name, err)
	}
	logger.Debug("sqlite: collection %s created (%d dims, %s)", spec.Name, spec.Dimensions, spec.Distance)
	return nil
}

func (s *vectorStore) Upsert(ctx context.Context, name string, points []domain.IndexedPoint) error {
	if len(points) == 0 {
		return nil
	}

	info, err := s.collection(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}

	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("%w: point without id", domain.ErrIndexWrite)
		}
		if len(p.Vector) != info.dimensions {
			return fmt.Errorf("%w: point %s has %d dimensions, want %d",
				domain.ErrIndexWrite, p.ID, len(p.Vector), info.dimensions)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (collection, id, embedding, text, payload, patient_id, event_type, ts, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(collection, id) DO UPDATE SET
			embedding = excluded.embedding,
			text = excluded.text,
			payload = excluded.payload,
			patient_id = excluded.patient_id,
			event_type = excluded.event_type,
			ts = excluded.ts,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	defer stmt.Close()

	for _, p := range points {
		payload, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("%w: encode payload of %s: %v", domain.ErrIndexWrite, p.ID, err)
		}
		if p.Metadata == nil {
			payload = []byte("{}")
		}
		_, err = stmt.ExecContext(ctx,
			name, p.ID, float32SliceToBytes(p.Vector), p.Text, string(payload),
			nullString(p.Metadata[domain.MetaPatientID]),
			nullString(p.Metadata[domain.MetaEventType]),
			nullString(p.Metadata[domain.MetaTimestamp]),
		)
		if err != nil {
			return fmt.Errorf("%w: point %s: %v", domain.ErrIndexWrite, p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

func (s *vectorStore) Query(ctx context.Context, name string, q domain.PointQuery) ([]domain.ScoredPoint, error) {
	info, err := s.collection(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(q.Vector) != info.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, want %d",
			domain.ErrInvalidInput, len(q.Vector), info.dimensions)
	}

	where, args := buildWhere(name, q.Filter)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, embedding, text, payload FROM points"+where, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer rows.Close()

	distance := q.Distance.Resolve(info.distance)
	var hits []domain.ScoredPoint
	for rows.Next() {
		var (
			id, text, payload string
			blob              []byte
		)
		if err := rows.Scan(&id, &blob, &text, &payload); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		decoded, err := decodePayload(payload, text)
		if err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", id, err)
		}
		hits = append(hits, domain.ScoredPoint{
			ID:      id,
			Score:   domain.Similarity(distance, q.Vector, bytesToFloat32Slice(blob)),
			Payload: decoded,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
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

func (s *vectorStore) PointIDs(ctx context.Context, name string, filter domain.PayloadFilter) ([]string, error) {
	if _, err := s.collection(ctx, name); err != nil {
		return nil, err
	}

	where, args := buildWhere(name, filter)
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM points"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *vectorStore) Delete(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, name)
	for _, id := range ids {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM points WHERE collection = ? AND id IN ("+placeholders+")", args...)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// Close is a no-op; the owning Store closes the database.
func (s *vectorStore) Close() error {
	return nil
}

func (s *vectorStore) collection(ctx context.Context, name string) (collectionInfo, error) {
	var (
		info     collectionInfo
		distance string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT dimensions, distance FROM collections WHERE name = ?", name).
		Scan(&info.dimensions, &distance)
	if errors.Is(err, sql.ErrNoRows) {
		return info, fmt.Errorf("%w: collection %s", domain.ErrNotFound, name)
	}
	if err != nil {
		return info, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	info.distance = domain.Distance(distance)
	return info, nil
}

// buildWhere renders the collection scope plus filter as a WHERE clause.
// Keyword fields use their columns, other keys the JSON payload.
func buildWhere(collection string, filter domain.PayloadFilter) (string, []any) {
	conds := []string{"collection = ?"}
	args := []any{collection}
	for _, m := range filter.Must {
		if col, ok := keywordColumns[m.Key]; ok {
			conds = append(conds, col+" = ?")
			args = append(args, m.Value)
			continue
		}
		conds = append(conds, "json_extract(payload, ?) = ?")
		args = append(args, `$."`+m.Key+`"`, m.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func decodePayload(raw, text string) (map[string]string, error) {
	payload := make(map[string]string)
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, err
		}
	}
	payload[domain.PayloadText] = text
	return payload, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
