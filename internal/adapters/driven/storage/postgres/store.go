// Package postgres provides a VectorStore backed by PostgreSQL with the
// pgvector extension. Each collection is one table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// keywordColumns maps payload keys to their dedicated, btree-indexed columns.
var keywordColumns = map[string]string{
	domain.MetaPatientID: "patient_id",
	domain.MetaEventType: "event_type",
	domain.MetaTimestamp: "ts",
	domain.PayloadText:   "text",
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Store implements driven.VectorStore on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool

	mu        sync.RWMutex
	distances map[string]domain.Distance
}

// New connects to dsn and verifies the connection.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	return &Store{
		pool:      pool,
		distances: make(map[string]domain.Distance),
	}, nil
}

// EnsureCollection creates the pgvector extension, the collection table and
// its keyword indexes. An existing table with another vector size is an error.
func (s *Store) EnsureCollection(ctx context.Context, spec domain.CollectionSpec) error {
	if err := validIdent(spec.Name); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchema, err)
	}
	if spec.Dimensions <= 0 {
		return fmt.Errorf("%w: collection %s needs positive dimensions", domain.ErrSchema, spec.Name)
	}
	if !spec.Distance.IsValid() {
		spec.Distance = domain.DistanceCosine
	}

	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("%w: enable pgvector: %v", domain.ErrSchema, err)
	}

	dims, exists, err := s.existingDimensions(ctx, spec.Name)
	if err != nil {
		return fmt.Errorf("%w: inspect %s: %v", domain.ErrSchema, spec.Name, err)
	}
	if exists && dims != spec.Dimensions {
		return fmt.Errorf("%w: collection %s has %d dimensions, want %d",
			domain.ErrSchema, spec.Name, dims, spec.Dimensions)
	}

	table := quote(spec.Name)
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id         uuid PRIMARY KEY,
	embedding  vector(%d) NOT NULL,
	text       text NOT NULL,
	payload    jsonb NOT NULL DEFAULT '{}'::jsonb,
	patient_id text,
	event_type text,
	ts         text
)`, table, spec.Dimensions),
	}
	for _, field := range spec.KeywordFields {
		col, ok := keywordColumns[field]
		if !ok || col == "text" {
			logger.Warn("postgres: no dedicated column for keyword field %q, filtering on payload", field)
			continue
		}
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quote(spec.Name+"_"+col+"_idx"), table, col))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchema, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrSchema, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchema, err)
	}

	s.mu.Lock()
	s.distances[spec.Name] = spec.Distance
	s.mu.Unlock()

	logger.Debug("postgres: collection %s ready (%d dims, %s)", spec.Name, spec.Dimensions, spec.Distance)
	return nil
}

// existingDimensions reads the declared size of the embedding column.
// pgvector stores the dimension count as the column's type modifier.
func (s *Store) existingDimensions(ctx context.Context, table string) (int, bool, error) {
	var typmod int32
	err := s.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = to_regclass($1) AND attname = 'embedding' AND NOT attisdropped`,
		quote(table)).Scan(&typmod)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int(typmod), true, nil
}

// Upsert writes points in one transaction. Existing ids are replaced.
func (s *Store) Upsert(ctx context.Context, collection string, points []domain.IndexedPoint) error {
	if err := validIdent(collection); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	if len(points) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, embedding, text, payload, patient_id, event_type, ts)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	embedding = EXCLUDED.embedding,
	text = EXCLUDED.text,
	payload = EXCLUDED.payload,
	patient_id = EXCLUDED.patient_id,
	event_type = EXCLUDED.event_type,
	ts = EXCLUDED.ts`, quote(collection))

	batch := &pgx.Batch{}
	for _, p := range points {
		id, err := pointUUID(p.ID)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
		}
		payload, err := json.Marshal(metadataOrEmpty(p.Metadata))
		if err != nil {
			return fmt.Errorf("%w: encode payload of %s: %v", domain.ErrIndexWrite, p.ID, err)
		}
		batch.Queue(query,
			id,
			pgvector.NewVector(p.Vector),
			p.Text,
			payload,
			nullable(p.Metadata[domain.MetaPatientID]),
			nullable(p.Metadata[domain.MetaEventType]),
			nullable(p.Metadata[domain.MetaTimestamp]),
		)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// Query runs a filtered nearest-neighbour search ordered by the distance
// operator of q.Distance, or of the metric recorded by EnsureCollection when
// q.Distance is empty. Ties are broken by id.
func (s *Store) Query(ctx context.Context, collection string, q domain.PointQuery) ([]domain.ScoredPoint, error) {
	if err := validIdent(collection); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	sql, args := querySQL(collection, q, q.Distance.Resolve(s.distance(collection)))
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	defer rows.Close()

	var hits []domain.ScoredPoint
	for rows.Next() {
		var (
			hit     domain.ScoredPoint
			text    string
			payload []byte
		)
		if err := rows.Scan(&hit.ID, &hit.Score, &text, &payload); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		hit.Payload, err = decodePayload(payload, text)
		if err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", hit.ID, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	return hits, nil
}

// PointIDs lists ids of points matching the filter, sorted.
func (s *Store) PointIDs(ctx context.Context, collection string, filter domain.PayloadFilter) ([]string, error) {
	if err := validIdent(collection); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	where, args := buildWhere(filter, 1)
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf("SELECT id::text FROM %s%s ORDER BY id::text", quote(collection), where), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVectorStoreUnavailable, err)
	}
	return ids, nil
}

// Delete removes points by id.
func (s *Store) Delete(ctx context.Context, collection string, ids []string) error {
	if err := validIdent(collection); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1::text[]::uuid[])", quote(collection)), ids)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexWrite, err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// distance returns the metric recorded by EnsureCollection, cosine otherwise.
func (s *Store) distance(collection string) domain.Distance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.distances[collection]; ok {
		return d
	}
	return domain.DistanceCosine
}

// querySQL renders the nearest-neighbour query for collection ranked by d.
// The query vector is $1; filter values follow.
func querySQL(collection string, q domain.PointQuery, d domain.Distance) (string, []any) {
	op, score := distanceSQL(d)
	where, args := buildWhere(q.Filter, 2)
	args = append([]any{pgvector.NewVector(q.Vector)}, args...)

	sql := fmt.Sprintf(`SELECT id::text, %s AS score, text, payload
FROM %s%s
ORDER BY embedding %s $1, id`, score, quote(collection), where, op)
	if q.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return sql, args
}

// distanceSQL returns the pgvector operator for d and a score expression
// where higher means more similar.
func distanceSQL(d domain.Distance) (op, score string) {
	switch d {
	case domain.DistanceDot:
		// <#> returns the negative inner product.
		return "<#>", "(embedding <#> $1) * -1"
	case domain.DistanceEuclid:
		return "<->", "(embedding <-> $1) * -1"
	default:
		return "<=>", "1 - (embedding <=> $1)"
	}
}

// buildWhere renders filter as a WHERE clause with placeholders numbered
// from first. Keyword fields use their columns, other keys the jsonb payload.
func buildWhere(filter domain.PayloadFilter, first int) (string, []any) {
	if len(filter.Must) == 0 {
		return "", nil
	}

	conds := make([]string, 0, len(filter.Must))
	args := make([]any, 0, len(filter.Must)*2)
	n := first
	for _, m := range filter.Must {
		if col, ok := keywordColumns[m.Key]; ok {
			conds = append(conds, fmt.Sprintf("%s = $%d", col, n))
			args = append(args, m.Value)
			n++
			continue
		}
		conds = append(conds, fmt.Sprintf("payload->>$%d = $%d", n, n+1))
		args = append(args, m.Key, m.Value)
		n += 2
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func decodePayload(raw []byte, text string) (map[string]string, error) {
	payload := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
	}
	payload[domain.PayloadText] = text
	return payload, nil
}

func pointUUID(id string) (pgtype.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("point id %q is not a uuid: %w", id, err)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func validIdent(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}
