package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// setupTestStore creates a SQLite store in a temporary directory.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "index.db"))
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { assert.NoError(t, store.Close()) })

	return store
}

func testSpec(dims int) domain.CollectionSpec {
	return domain.CollectionSpec{
		Name:          "medical_records",
		Dimensions:    dims,
		Distance:      domain.DistanceCosine,
		KeywordFields: []string{domain.MetaPatientID, domain.MetaEventType, domain.MetaTimestamp},
	}
}

func testPoint(id, patient string, event domain.EventType, ts string, vec ...float32) domain.IndexedPoint {
	return domain.IndexedPoint{
		ID:     id,
		Vector: vec,
		Text:   string(event) + " on " + ts,
		Metadata: map[string]string{
			domain.MetaPatientID: patient,
			domain.MetaEventType: string(event),
			domain.MetaTimestamp: ts,
		},
	}
}

// ==================== Store Creation Tests ====================

func TestNewStore_CreatesDirectoryAndMigrates(t *testing.T) {
	store := setupTestStore(t)

	assert.FileExists(t, store.Path())

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 2, version)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	store, err := NewStore(path)
	require.NoError(t, err)
	vs := store.VectorStore()
	require.NoError(t, vs.EnsureCollection(ctx, testSpec(2)))
	require.NoError(t, vs.Upsert(ctx, "medical_records", []domain.IndexedPoint{
		testPoint("a", "p1", domain.EventVisit, "2024-01-01", 1, 0),
	}))
	require.NoError(t, store.Close())

	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	ids, err := store.VectorStore().PointIDs(ctx, "medical_records", domain.PayloadFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

// ==================== Vector Store Tests ====================

func TestVectorStore_EnsureCollection(t *testing.T) {
	vs := setupTestStore(t).VectorStore()
	ctx := context.Background()

	require.NoError(t, vs.EnsureCollection(ctx, testSpec(3)))
	require.NoError(t, vs.EnsureCollection(ctx, testSpec(3)))

	err := vs.EnsureCollection(ctx, testSpec(4))
	assert.ErrorIs(t, err, domain.ErrSchema)

	err = vs.EnsureCollection(ctx, domain.CollectionSpec{Name: "x"})
	assert.ErrorIs(t, err, domain.ErrSchema)
}

func TestVectorStore_UpsertReplaces(t *testing.T) {
	vs := setupTestStore(t).VectorStore()
	ctx := context.Background()
	require.NoError(t, vs.EnsureCollection(ctx, testSpec(2)))

	p := testPoint("a", "p1", domain.EventVisit, "2024-01-01", 1, 0)
	require.NoError(t, vs.Upsert(ctx, "medical_records", []domain.IndexedPoint{p}))

	p.Text = "updated"
	p.Vector = []float32{0, 1}
	require.NoError(t, vs.Upsert(ctx, "medical_records", []domain.IndexedPoint{p}))

	hits, err := vs.Query(ctx, "medical_records", domain.PointQuery{Vector: []float32{0, 1}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "updated", hits[0].Payload[domain.PayloadText])
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestVectorStore_UpsertRejectsBadBatch(t *testing.T) {
	vs := setupTestStore(t).VectorStore()
	ctx := context.Background()
	require.NoError(t, vs.EnsureCollection(ctx, testSpec(2)))

	err := vs.Upsert(ctx, "medical_records", []domain.IndexedPoint{
		testPoint("a", "p1", domain.EventVisit, "2024-01-01", 1, 0),
		testPoint("b", "p1", domain.EventVisit, "2024-01-02", 1, 0, 0),
	})
	assert.ErrorIs(t, err, domain.ErrIndexWrite)

	ids, err := vs.PointIDs(ctx, "medical_records", domain.PayloadFilter{})
	require.NoError(t, err)
	assert.Empty(t, ids, "no point of a rejected batch is written")

	err = vs.Upsert(ctx, "missing", []domain.IndexedPoint{testPoint("a", "p1", domain.EventVisit, "", 1, 0)})
	assert.ErrorIs(t, err, domain.ErrIndexWrite)
}

func TestVectorStore_QueryFiltersAndOrders(t *testing.T) {
	vs := setupTestStore(t).VectorStore()
	ctx := context.Background()
	require.NoError(t, vs.EnsureCollection(ctx, testSpec(2)))

	lab := testPoint("c", "p1", domain.EventLab, "2024-03-01", 0.6, 0.8)
	lab.Metadata[domain.MetaTestName] = "HbA1c"
	require.NoError(t, vs.Upsert(ctx, "medical_records", []domain.IndexedPoint{
		testPoint("a", "p1", domain.EventVisit, "2024-01-01", 1, 0),
		testPoint("b", "p1", domain.EventVisit, "2024-02-01", 0, 1),
		lab,
		testPoint("d", "p2", domain.EventVisit, "2024-01-01", 1, 0),
	}))

	patient := domain.FieldMatch{Key: domain.MetaPatientID, Value: "p1"}

	hits, err := vs.Query(ctx, "medical_records", domain.PointQuery{
		Vector: []float32{1, 0},
		Filter: domain.PayloadFilter{Must: []domain.FieldMatch{patient}},
		Limit:  2,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "c", hits[1].ID)

	hits, err = vs.Query(ctx, "medical_records", domain.PointQuery{
		Vector: []float32{1, 0},
		Filter: domain.PayloadFilter{Must: []domain.FieldMatch{
			patient, {Key: domain.MetaEventType, Value: "lab"},
		}},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "HbA1c", hits[0].Payload[domain.MetaTestName])
	assert.Equal(t, "2024-03-01", hits[0].Payload[domain.MetaTimestamp])

	hits, err = vs.Query(ctx, "medical_records", domain.PointQuery{
		Vector: []float32{1, 0},
		Filter: domain.PayloadFilter{Must: []domain.FieldMatch{{Key: domain.MetaTestName, Value: "HbA1c"}}},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c", hits[0].ID)

	_, err = vs.Query(ctx, "medical_records", domain.PointQuery{Vector: []float32{1}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = vs.Query(ctx, "missing", domain.PointQuery{Vector: []float32{1, 0}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVectorStore_PointIDsAndDelete(t *testing.T) {
	vs := setupTestStore(t).VectorStore()
	ctx := context.Background()
	require.NoError(t, vs.EnsureCollection(ctx, testSpec(2)))
	require.NoError(t, vs.Upsert(ctx, "medical_records", []domain.IndexedPoint{
		testPoint("b", "p1", domain.EventVisit, "2024-01-01", 1, 0),
		testPoint("a", "p1", domain.EventLab, "2024-01-01", 1, 0),
		testPoint("c", "p2", domain.EventVisit, "2024-01-01", 1, 0),
	}))

	filter := domain.PayloadFilter{Must: []domain.FieldMatch{{Key: domain.MetaPatientID, Value: "p1"}}}
	ids, err := vs.PointIDs(ctx, "medical_records", filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, vs.Delete(ctx, "medical_records", []string{"a", "unknown"}))
	require.NoError(t, vs.Delete(ctx, "medical_records", nil))

	ids, err = vs.PointIDs(ctx, "medical_records", filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

// ==================== Fingerprint Store Tests ====================

func TestFingerprintStore_SaveGetDelete(t *testing.T) {
	fs := setupTestStore(t).FingerprintStore()
	ctx := context.Background()

	_, err := fs.Get(ctx, "p1.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	state := domain.FileState{
		Fingerprint:  "abc",
		ChunkDigests: map[string]string{"id-1": "d1", "id-2": "d2"},
		Target:       "medical_records/voyage-3.5",
	}
	require.NoError(t, fs.Save(ctx, "p1.json", state))

	got, err := fs.Get(ctx, "p1.json")
	require.NoError(t, err)
	assert.Equal(t, state, *got)

	state.Fingerprint = "def"
	state.ChunkDigests = nil
	require.NoError(t, fs.Save(ctx, "p1.json", state))
	got, err = fs.Get(ctx, "p1.json")
	require.NoError(t, err)
	assert.Equal(t, "def", got.Fingerprint)
	assert.Empty(t, got.ChunkDigests)

	require.NoError(t, fs.Delete(ctx, "p1.json"))
	_, err = fs.Get(ctx, "p1.json")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFingerprintStore_TargetSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.FingerprintStore().Save(ctx, "p1.json", domain.FileState{
		Fingerprint: "abc",
		Target:      "records_a/voyage-3.5",
	}))
	require.NoError(t, store.Close())

	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.FingerprintStore().Get(ctx, "p1.json")
	require.NoError(t, err)
	assert.Equal(t, "records_a/voyage-3.5", got.Target)
}

// ==================== Helper Tests ====================

func TestFloat32Roundtrip(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4e10}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Len(t, float32SliceToBytes(in), 16)
}

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere("c", domain.PayloadFilter{Must: []domain.FieldMatch{
		{Key: domain.MetaPatientID, Value: "p1"},
		{Key: domain.MetaDoctor, Value: "Dr. Who"},
	}})
	assert.Equal(t, " WHERE collection = ? AND patient_id = ? AND json_extract(payload, ?) = ?", where)
	assert.Equal(t, []any{"c", "p1", `$."doctor"`, "Dr. Who"}, args)
}
