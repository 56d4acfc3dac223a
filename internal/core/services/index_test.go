package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andres10976/huli-project-medical-RAG/internal/adapters/driven/storage/memory"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

const testCollection = "records"

func newTestIndex(t *testing.T, embedder *mockEmbeddingService, cfg IndexConfig) (*IndexService, *memory.VectorStore) {
	t.Helper()
	store := memory.NewVectorStore()
	if cfg.Collection == "" {
		cfg.Collection = testCollection
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 4
	}
	idx := NewIndexService(store, embedder, nil, cfg)
	require.NoError(t, idx.EnsureSchema(context.Background()))
	return idx, store
}

func testChunk(patientID string, eventType domain.EventType, ts, internalID, text string) domain.Chunk {
	return domain.Chunk{
		Text: text,
		Metadata: domain.CleanMetadata(map[string]string{
			domain.MetaPatientID: patientID,
			domain.MetaEventType: eventType.String(),
			domain.MetaTimestamp: ts,
		}),
		InternalID: internalID,
	}
}

func TestIndexService_EnsureSchema_Idempotent(t *testing.T) {
	idx, _ := newTestIndex(t, newMockEmbedder(4), IndexConfig{})

	require.NoError(t, idx.EnsureSchema(context.Background()))

	spec := idx.Collection()
	assert.Equal(t, testCollection, spec.Name)
	assert.Equal(t, domain.DistanceCosine, spec.Distance)
	assert.ElementsMatch(t, []string{"patient_id", "event_type", "timestamp"}, spec.KeywordFields)
}

func TestIndexService_EnsureSchema_DimensionMismatch(t *testing.T) {
	_, store := newTestIndex(t, newMockEmbedder(4), IndexConfig{})

	other := NewIndexService(store, newMockEmbedder(8), nil, IndexConfig{Collection: testCollection, Dimensions: 8})
	err := other.EnsureSchema(context.Background())

	assert.ErrorIs(t, err, domain.ErrSchema)
}

func TestIndexService_EnsureSchema_ModelDimensionsDiffer(t *testing.T) {
	idx := NewIndexService(memory.NewVectorStore(), newMockEmbedder(8), nil,
		IndexConfig{Collection: testCollection, Dimensions: 4})

	err := idx.EnsureSchema(context.Background())

	assert.ErrorIs(t, err, domain.ErrSchema)
}

func TestIndexService_EnsureSchema_StoreFailureIsSchemaError(t *testing.T) {
	store := &mockVectorStore{ensureErr: errors.New("connection refused")}
	idx := NewIndexService(store, newMockEmbedder(4), nil, IndexConfig{Collection: testCollection, Dimensions: 4})

	err := idx.EnsureSchema(context.Background())

	assert.ErrorIs(t, err, domain.ErrSchema)
	assert.False(t, domain.IsRetryable(err))
}

func TestIndexService_UpsertChunks(t *testing.T) {
	embedder := newMockEmbedder(4)
	idx, store := newTestIndex(t, embedder, IndexConfig{})

	chunks := []domain.Chunk{
		testChunk("p1", domain.EventVisit, "2024-01-02", "v1", "visit text"),
		testChunk("p1", domain.EventLab, "2024-01-03", "l1", "lab text"),
	}

	ids, err := idx.UpsertChunks(context.Background(), chunks)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "2b1a4156-8f7b-57a8-993a-ace282d6ec55", ids[0])
	assert.Equal(t, 2, store.Count(testCollection))

	point, ok := store.Point(testCollection, ids[0])
	require.True(t, ok)
	assert.Equal(t, "visit text", point.Text)
	assert.Equal(t, "p1", point.Metadata["patient_id"])
	assert.Equal(t, "visit", point.Metadata["event_type"])
	for k, v := range point.Metadata {
		assert.NotEqual(t, "v1", v, "natural key leaked into payload field %s", k)
	}
}

func TestIndexService_UpsertChunks_ReplayDoesNotDuplicate(t *testing.T) {
	idx, store := newTestIndex(t, newMockEmbedder(4), IndexConfig{})
	chunks := []domain.Chunk{
		testChunk("p1", domain.EventVisit, "2024-01-02", "v1", "visit text"),
		testChunk("p1", domain.EventLab, "2024-01-03", "l1", "lab text"),
	}

	_, err := idx.UpsertChunks(context.Background(), chunks)
	require.NoError(t, err)
	_, err = idx.UpsertChunks(context.Background(), chunks)
	require.NoError(t, err)

	assert.Equal(t, 2, store.Count(testCollection))
}

func TestIndexService_UpsertChunks_Batches(t *testing.T) {
	embedder := newMockEmbedder(4)
	idx, store := newTestIndex(t, embedder, IndexConfig{BatchSize: 2})

	chunks := make([]domain.Chunk, 5)
	for i := range chunks {
		chunks[i] = testChunk("p1", domain.EventDoctorNote, "", string(rune('a'+i)), "note")
	}

	ids, err := idx.UpsertChunks(context.Background(), chunks)
	require.NoError(t, err)
	assert.Len(t, ids, 5)
	assert.Equal(t, 3, embedder.callCount())
	assert.Equal(t, 5, store.Count(testCollection))
}

func TestIndexService_UpsertChunks_AbortsAtFailingBatch(t *testing.T) {
	embedder := newMockEmbedder(4)
	embedder.failAfter = 1
	idx, store := newTestIndex(t, embedder, IndexConfig{BatchSize: 2})

	chunks := make([]domain.Chunk, 5)
	for i := range chunks {
		chunks[i] = testChunk("p1", domain.EventDoctorNote, "", string(rune('a'+i)), "note")
	}

	ids, err := idx.UpsertChunks(context.Background(), chunks)
	require.Error(t, err)

	var upsertErr *domain.UpsertError
	require.ErrorAs(t, err, &upsertErr)
	assert.Equal(t, 2, upsertErr.Written)
	assert.Equal(t, 5, upsertErr.Total)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.True(t, domain.IsRetryable(err))
	assert.Len(t, ids, 2)
	assert.Equal(t, 2, store.Count(testCollection))
}

func TestIndexService_UpsertChunks_WrongVectorLength(t *testing.T) {
	embedder := newMockEmbedder(4)
	idx, store := newTestIndex(t, embedder, IndexConfig{})
	embedder.batchLen = 3

	_, err := idx.UpsertChunks(context.Background(), []domain.Chunk{
		testChunk("p1", domain.EventVisit, "2024-01-02", "v1", "visit text"),
	})

	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Equal(t, 0, store.Count(testCollection))
}

func TestIndexService_UpsertChunks_WriteFailure(t *testing.T) {
	store := &mockVectorStore{upsertErr: errors.New("disk full")}
	idx := NewIndexService(store, newMockEmbedder(4), nil, IndexConfig{Collection: testCollection, Dimensions: 4})

	_, err := idx.UpsertChunks(context.Background(), []domain.Chunk{
		testChunk("p1", domain.EventVisit, "2024-01-02", "v1", "visit text"),
	})

	assert.ErrorIs(t, err, domain.ErrIndexWrite)
}

func TestIndexService_UpsertChunks_Empty(t *testing.T) {
	embedder := newMockEmbedder(4)
	idx, _ := newTestIndex(t, embedder, IndexConfig{})

	ids, err := idx.UpsertChunks(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 0, embedder.callCount())
}

// seedRecency indexes four p1 chunks whose similarity to "query" and
// dates disagree, plus one chunk of another patient.
func seedRecency(t *testing.T, embedder *mockEmbeddingService, idx *IndexService) {
	t.Helper()
	embedder.vectors["query"] = []float32{1, 0, 0, 0}
	embedder.vectors["undated"] = []float32{1, 0.1, 0, 0}
	embedder.vectors["jan"] = []float32{1, 0.5, 0, 0}
	embedder.vectors["old"] = []float32{1, 1, 0, 0}
	embedder.vectors["june"] = []float32{0.1, 1, 0, 0}
	embedder.vectors["other"] = []float32{1, 0, 0, 0}

	_, err := idx.UpsertChunks(context.Background(), []domain.Chunk{
		testChunk("p1", domain.EventDoctorNote, "", "d1", "undated"),
		testChunk("p1", domain.EventVisit, "2024-01-01", "v1", "jan"),
		testChunk("p1", domain.EventLab, "2023-01-01", "l1", "old"),
		testChunk("p1", domain.EventVisit, "2024-06-01", "v2", "june"),
		testChunk("p2", domain.EventVisit, "2025-01-01", "v1", "other"),
	})
	require.NoError(t, err)
}

func texts(results []domain.RetrievedChunk) []string {
	out := make([]string, len(results))
	for i := range results {
		out[i] = results[i].Text
	}
	return out
}

func TestIndexService_Search_SimilarityOrder(t *testing.T) {
	embedder := newMockEmbedder(4)
	idx, _ := newTestIndex(t, embedder, IndexConfig{})
	seedRecency(t, embedder, idx)

	results, err := idx.Search(context.Background(), domain.SearchQuery{
		Text:          "query",
		SearchOptions: domain.SearchOptions{PatientID: "p1", Limit: 2},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"undated", "jan"}, texts(results))
	assert.Equal(t, domain.EventDoctorNote, results[0].EventType)
	assert.NotContains(t, results[0].Metadata, "text")
}

func TestIndexService_Search_OrderByDate(t *testing.T) {
	embedder := newMockEmbedder(4)
	idx, _ := newTestIndex(t, embedder, IndexConfig{})
	seedRecency(t, embedder, idx)

	results, err := idx.Search(context.Background(), domain.SearchQuery{
		Text:          "query",
		SearchOptions: domain.SearchOptions{PatientID: "p1", Limit: 4, OrderByDate: true},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"june", "jan", "old", "undated"}, texts(results))
}

func TestIndexService_Search_OrderByDateUsesCandidatePool(t *testing.T) {
	embedder := newMockEmbedder(4)
	idx, _ := newTestIndex(t, embedder, IndexConfig{RecencyPool: 1})
	seedRecency(t, embedder, idx)

	results, err := idx.Search(context.Background(), domain.SearchQuery{
		Text:          "query",
		SearchOptions: domain.SearchOptions{PatientID: "p1", Limit: 2, OrderByDate: true},
	})

	require.NoError(t, err)
	// Only the two most similar candidates are considered, then dated first.
	assert.Equal(t, []string{"jan", "undated"}, texts(results))
}

func TestIndexService_Search_EventTypeFilter(t *testing.T) {
	embedder := newMockEmbedder(4)
	idx, _ := newTestIndex(t, embedder, IndexConfig{})
	seedRecency(t, embedder, idx)

	results, err := idx.Search(context.Background(), domain.SearchQuery{
		Text:          "query",
		SearchOptions: domain.SearchOptions{PatientID: "p1", EventType: domain.EventVisit, Limit: 5},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"jan", "june"}, texts(results))
	for _, r := range results {
		assert.Equal(t, "p1", r.Metadata["patient_id"])
	}
}

func TestIndexService_Search_UnknownPatient(t *testing.T) {
	embedder := newMockEmbedder(4)
	idx, _ := newTestIndex(t, embedder, IndexConfig{})
	seedRecency(t, embedder, idx)

	results, err := idx.Search(context.Background(), domain.SearchQuery{
		Text:          "query",
		SearchOptions: domain.SearchOptions{PatientID: "p9"},
	})

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndexService_Search_FetchesPool(t *testing.T) {
	store := &mockVectorStore{}
	idx := NewIndexService(store, newMockEmbedder(4), nil, IndexConfig{Collection: testCollection, Dimensions: 4})

	_, err := idx.Search(context.Background(), domain.SearchQuery{
		Text:          "query",
		SearchOptions: domain.SearchOptions{PatientID: "p1", EventType: domain.EventLab, Limit: 4, OrderByDate: true},
	})

	require.NoError(t, err)
	assert.Equal(t, 12, store.lastQuery.Limit)
	assert.Equal(t, []domain.FieldMatch{
		{Key: "patient_id", Value: "p1"},
		{Key: "event_type", Value: "lab"},
	}, store.lastQuery.Filter.Must)
}

func TestIndexService_Search_PassesDistance(t *testing.T) {
	tests := []struct {
		name     string
		distance domain.Distance
		want     domain.Distance
	}{
		{"dot", domain.DistanceDot, domain.DistanceDot},
		{"euclid", domain.DistanceEuclid, domain.DistanceEuclid},
		{"default cosine", "", domain.DistanceCosine},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockVectorStore{}
			idx := NewIndexService(store, newMockEmbedder(4), nil,
				IndexConfig{Collection: testCollection, Dimensions: 4, Distance: tt.distance})

			// No EnsureSchema: search-only processes never create the collection.
			_, err := idx.Search(context.Background(), domain.SearchQuery{
				Text:          "query",
				SearchOptions: domain.SearchOptions{PatientID: "p1", Limit: 3},
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want, store.lastQuery.Distance)
		})
	}
}

func TestIndexService_Search_Errors(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		embedder := newMockEmbedder(4)
		embedder.embedErr = errors.New("timeout")
		idx := NewIndexService(&mockVectorStore{}, embedder, nil, IndexConfig{Collection: testCollection, Dimensions: 4})

		_, err := idx.Search(context.Background(), domain.SearchQuery{
			Text: "query", SearchOptions: domain.SearchOptions{PatientID: "p1"},
		})
		assert.ErrorIs(t, err, domain.ErrEmbedding)
	})

	t.Run("query failure", func(t *testing.T) {
		store := &mockVectorStore{queryErr: errors.New("connection reset")}
		idx := NewIndexService(store, newMockEmbedder(4), nil, IndexConfig{Collection: testCollection, Dimensions: 4})

		_, err := idx.Search(context.Background(), domain.SearchQuery{
			Text: "query", SearchOptions: domain.SearchOptions{PatientID: "p1"},
		})
		assert.ErrorIs(t, err, domain.ErrIndexWrite)
	})

	t.Run("no embedder", func(t *testing.T) {
		idx := NewIndexService(&mockVectorStore{}, nil, nil, IndexConfig{Collection: testCollection, Dimensions: 4})

		_, err := idx.Search(context.Background(), domain.SearchQuery{
			Text: "query", SearchOptions: domain.SearchOptions{PatientID: "p1"},
		})
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	})
}

func TestIndexService_PruneStale(t *testing.T) {
	idx, store := newTestIndex(t, newMockEmbedder(4), IndexConfig{})
	_, err := idx.UpsertChunks(context.Background(), []domain.Chunk{
		testChunk("p1", domain.EventVisit, "2024-01-02", "v1", "visit"),
		testChunk("p1", domain.EventLab, "2024-01-03", "l1", "lab"),
		testChunk("p2", domain.EventVisit, "2024-01-02", "v1", "other"),
	})
	require.NoError(t, err)

	keep := map[string]struct{}{PointID("p1", "v1"): {}}
	pruned, err := idx.PruneStale(context.Background(), "p1", keep)

	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
	assert.Equal(t, 2, store.Count(testCollection))
	_, ok := store.Point(testCollection, PointID("p1", "l1"))
	assert.False(t, ok)
	_, ok = store.Point(testCollection, PointID("p2", "v1"))
	assert.True(t, ok)
}

func TestSortByRecency_StableForEqualDates(t *testing.T) {
	results := []domain.RetrievedChunk{
		{Text: "a", Timestamp: "2024-01-01"},
		{Text: "b"},
		{Text: "c", Timestamp: "2024-01-01"},
		{Text: "d", Timestamp: "2024-02-01"},
		{Text: "e"},
	}

	sortByRecency(results)

	assert.Equal(t, []string{"d", "a", "c", "b", "e"}, texts(results))
}
