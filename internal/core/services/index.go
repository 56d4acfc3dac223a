package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

// keywordFields are the payload fields indexed for exact-match filtering.
var keywordFields = []string{domain.MetaPatientID, domain.MetaEventType, domain.MetaTimestamp}

// IndexConfig configures an IndexService.
type IndexConfig struct {
	// Collection is the collection name.
	Collection string

	// Dimensions is the vector size of the collection.
	Dimensions int

	// Distance is the similarity metric. Defaults to cosine.
	Distance domain.Distance

	// BatchSize is the number of chunks embedded and written per call.
	BatchSize int

	// RecencyPool multiplies the limit for date-ordered searches.
	RecencyPool int

	// EmbedTimeout bounds each embedding call. Zero means no bound.
	EmbedTimeout time.Duration

	// WriteTimeout bounds each vector store call. Zero means no bound.
	WriteTimeout time.Duration
}

// IndexConfigFromSettings builds an IndexConfig from application settings.
func IndexConfigFromSettings(s *domain.AppSettings) IndexConfig {
	return IndexConfig{
		Collection:   s.Vector.Collection,
		Dimensions:   s.Vector.Dimensions,
		Distance:     s.Vector.Distance,
		BatchSize:    s.Index.BatchSize,
		RecencyPool:  s.Index.RecencyPool,
		EmbedTimeout: s.Embedding.Timeout,
		WriteTimeout: s.Vector.Timeout,
	}
}

// IndexService owns the patient-record collection: it embeds chunks,
// writes them under deterministic ids and answers filtered queries.
type IndexService struct {
	store    driven.VectorStore
	embedder driven.EmbeddingService
	metrics  driven.MetricsRecorder
	cfg      IndexConfig
}

// NewIndexService creates a new index service.
// A nil metrics recorder is replaced by driven.NopMetrics.
func NewIndexService(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	metrics driven.MetricsRecorder,
	cfg IndexConfig,
) *IndexService {
	defaults := domain.DefaultAppSettings()
	if cfg.Distance == "" {
		cfg.Distance = domain.DistanceCosine
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.Index.BatchSize
	}
	if cfg.RecencyPool <= 0 {
		cfg.RecencyPool = defaults.Index.RecencyPool
	}
	if metrics == nil {
		metrics = driven.NopMetrics{}
	}
	return &IndexService{
		store:    store,
		embedder: embedder,
		metrics:  metrics,
		cfg:      cfg,
	}
}

// Target identifies where and how this service writes points:
// "{collection}/{embedding model}".
func (s *IndexService) Target() string {
	return s.cfg.Collection + "/" + s.embedder.ModelName()
}

// Collection returns the spec of the collection this service owns.
func (s *IndexService) Collection() domain.CollectionSpec {
	return domain.CollectionSpec{
		Name:          s.cfg.Collection,
		Dimensions:    s.cfg.Dimensions,
		Distance:      s.cfg.Distance,
		KeywordFields: keywordFields,
	}
}

// EnsureSchema creates the collection and its payload indexes if absent.
// It is idempotent. Any failure wraps domain.ErrSchema.
func (s *IndexService) EnsureSchema(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("%w: %w", domain.ErrSchema, domain.ErrVectorStoreUnavailable)
	}
	spec := s.Collection()
	if s.embedder != nil && s.embedder.Dimensions() > 0 && s.embedder.Dimensions() != spec.Dimensions {
		return fmt.Errorf("%w: model %s produces %d dimensions, collection %q expects %d",
			domain.ErrSchema, s.embedder.ModelName(), s.embedder.Dimensions(), spec.Name, spec.Dimensions)
	}

	callCtx, cancel := withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if err := s.store.EnsureCollection(callCtx, spec); err != nil {
		if errors.Is(err, domain.ErrSchema) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrSchema, err)
	}
	logger.Debug("Collection %s ready (%d dims, %s)", spec.Name, spec.Dimensions, spec.Distance)
	return nil
}

// UpsertChunks embeds and writes chunks in batches and returns the ids of
// the points written.
//
// Processing stops at the first failing batch. Points from earlier batches
// stay written; the returned *domain.UpsertError reports how many.
func (s *IndexService) UpsertChunks(ctx context.Context, chunks []domain.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if s.embedder == nil {
		return nil, &domain.UpsertError{Total: len(chunks), Err: domain.ErrEmbeddingUnavailable}
	}
	if s.store == nil {
		return nil, &domain.UpsertError{Total: len(chunks), Err: domain.ErrVectorStoreUnavailable}
	}

	ids := make([]string, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(chunks))
		batchIDs, err := s.upsertBatch(ctx, chunks[start:end])
		if err != nil {
			return ids, &domain.UpsertError{Written: len(ids), Total: len(chunks), Err: err}
		}
		ids = append(ids, batchIDs...)
	}
	s.metrics.ChunksUpserted(len(ids))
	return ids, nil
}

func (s *IndexService) upsertBatch(ctx context.Context, batch []domain.Chunk) ([]string, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}

	// 1. Embed
	embedCtx, cancel := withTimeout(ctx, s.cfg.EmbedTimeout)
	vectors, err := s.embedder.EmbedBatch(embedCtx, texts)
	cancel()
	s.metrics.EmbeddingRequest(len(texts), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbedding, len(vectors), len(batch))
	}

	// 2. Build points
	points := make([]domain.IndexedPoint, len(batch))
	ids := make([]string, len(batch))
	for i := range batch {
		if len(vectors[i]) != s.cfg.Dimensions {
			return nil, fmt.Errorf("%w: vector has %d dimensions, collection expects %d",
				domain.ErrEmbedding, len(vectors[i]), s.cfg.Dimensions)
		}
		ids[i] = PointID(batch[i].PatientID(), batch[i].InternalID)
		points[i] = domain.IndexedPoint{
			ID:       ids[i],
			Vector:   vectors[i],
			Text:     batch[i].Text,
			Metadata: domain.CleanMetadata(batch[i].Metadata),
		}
	}

	// 3. Write
	writeCtx, cancel := withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	if err := s.store.Upsert(writeCtx, s.cfg.Collection, points); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}
	return ids, nil
}

// Search runs a patient-scoped similarity query.
//
// With OrderByDate, limit×RecencyPool candidates are fetched by similarity
// and then sorted by timestamp, most recent first. Chunks without a
// timestamp sort last; ties keep similarity order.
func (s *IndexService) Search(ctx context.Context, q domain.SearchQuery) ([]domain.RetrievedChunk, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}
	limit := q.Limit
	if limit <= 0 {
		limit = domain.DefaultSearchLimit
	}

	embedCtx, cancel := withTimeout(ctx, s.cfg.EmbedTimeout)
	vector, err := s.embedder.Embed(embedCtx, q.Text)
	cancel()
	s.metrics.EmbeddingRequest(1, err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbedding, err)
	}

	filter := domain.PayloadFilter{Must: []domain.FieldMatch{{Key: domain.MetaPatientID, Value: q.PatientID}}}
	if q.EventType != "" {
		filter.Must = append(filter.Must, domain.FieldMatch{Key: domain.MetaEventType, Value: q.EventType.String()})
	}

	fetch := limit
	if q.OrderByDate {
		fetch = limit * s.cfg.RecencyPool
	}

	queryCtx, cancel := withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()
	hits, err := s.store.Query(queryCtx, s.cfg.Collection, domain.PointQuery{
		Vector:   vector,
		Filter:   filter,
		Limit:    fetch,
		Distance: s.cfg.Distance,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexWrite, err)
	}

	results := make([]domain.RetrievedChunk, len(hits))
	for i := range hits {
		results[i] = toRetrievedChunk(hits[i])
	}

	if q.OrderByDate {
		sortByRecency(results)
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// PruneStale deletes the patient's points whose id is not in keep and
// returns the number deleted.
func (s *IndexService) PruneStale(ctx context.Context, patientID string, keep map[string]struct{}) (int, error) {
	if s.store == nil {
		return 0, domain.ErrVectorStoreUnavailable
	}
	callCtx, cancel := withTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	filter := domain.PayloadFilter{Must: []domain.FieldMatch{{Key: domain.MetaPatientID, Value: patientID}}}
	ids, err := s.store.PointIDs(callCtx, s.cfg.Collection, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: list points: %w", domain.ErrIndexWrite, err)
	}

	var stale []string
	for _, id := range ids {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}
	if err := s.store.Delete(callCtx, s.cfg.Collection, stale); err != nil {
		return 0, fmt.Errorf("%w: delete points: %w", domain.ErrIndexWrite, err)
	}
	s.metrics.PointsPruned(len(stale))
	logger.Debug("Pruned %d stale points of patient %s", len(stale), patientID)
	return len(stale), nil
}

func toRetrievedChunk(hit domain.ScoredPoint) domain.RetrievedChunk {
	meta := make(map[string]string, len(hit.Payload))
	for k, v := range hit.Payload {
		if k == domain.PayloadText {
			continue
		}
		meta[k] = v
	}
	return domain.RetrievedChunk{
		ID:        hit.ID,
		Text:      hit.Payload[domain.PayloadText],
		Timestamp: hit.Payload[domain.MetaTimestamp],
		EventType: domain.EventType(hit.Payload[domain.MetaEventType]),
		Metadata:  meta,
		Score:     hit.Score,
	}
}

// sortByRecency orders results by timestamp descending. ISO dates compare
// correctly as strings.
func sortByRecency(results []domain.RetrievedChunk) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].Timestamp, results[j].Timestamp
		if a == "" || b == "" {
			return a != "" && b == ""
		}
		return a > b
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
