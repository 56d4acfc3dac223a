package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Texts listed in vectors get that vector; everything else gets the first
// unit vector.
type mockEmbeddingService struct {
	mu        sync.Mutex
	dims      int
	vectors   map[string][]float32
	embedErr  error
	failAfter int // fail every call after this many batch calls; 0 disables
	batchLen  int // override the returned vector length when > 0
	model     string
	calls     int
	texts     int
}

func newMockEmbedder(dims int) *mockEmbeddingService {
	return &mockEmbeddingService{dims: dims, vectors: make(map[string][]float32)}
}

func (m *mockEmbeddingService) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	n := m.dims
	if m.batchLen > 0 {
		n = m.batchLen
	}
	v := make([]float32, n)
	v[0] = 1
	return v
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.texts++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failAfter > 0 && m.calls > m.failAfter {
		return nil, errors.New("provider unavailable")
	}
	m.texts += len(texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int { return m.dims }

func (m *mockEmbeddingService) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error { return m.embedErr }

func (m *mockEmbeddingService) Close() error { return nil }

func (m *mockEmbeddingService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbeddingService) textCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texts
}

// mockRecordSource implements driven.RecordSource for testing.
type mockRecordSource struct {
	mu       sync.Mutex
	files    map[string]string
	listErr  error
	readErr  error
	changes  chan domain.RecordChange
	watchErr error
}

func newMockSource(files map[string]string) *mockRecordSource {
	if files == nil {
		files = make(map[string]string)
	}
	return &mockRecordSource{files: files, changes: make(chan domain.RecordChange, 16)}
}

func (m *mockRecordSource) put(uri, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[uri] = content
}

func (m *mockRecordSource) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	uris := make([]string, 0, len(m.files))
	for uri := range m.files {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris, nil
}

func (m *mockRecordSource) Read(_ context.Context, uri string) (*domain.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	content, ok := m.files[uri]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &domain.RawRecord{URI: uri, Content: []byte(content)}, nil
}

func (m *mockRecordSource) Watch(_ context.Context) (<-chan domain.RecordChange, error) {
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	return m.changes, nil
}

func (m *mockRecordSource) Close() error { return nil }

// mockVectorStore wraps failures around a recording of calls.
type mockVectorStore struct {
	ensureErr error
	upsertErr error
	queryErr  error
	hits      []domain.ScoredPoint
	lastQuery domain.PointQuery
}

func (m *mockVectorStore) EnsureCollection(_ context.Context, _ domain.CollectionSpec) error {
	return m.ensureErr
}

func (m *mockVectorStore) Upsert(_ context.Context, _ string, _ []domain.IndexedPoint) error {
	return m.upsertErr
}

func (m *mockVectorStore) Query(_ context.Context, _ string, q domain.PointQuery) ([]domain.ScoredPoint, error) {
	m.lastQuery = q
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if q.Limit < len(m.hits) {
		return m.hits[:q.Limit], nil
	}
	return m.hits, nil
}

func (m *mockVectorStore) PointIDs(_ context.Context, _ string, _ domain.PayloadFilter) ([]string, error) {
	return nil, nil
}

func (m *mockVectorStore) Delete(_ context.Context, _ string, _ []string) error { return nil }

func (m *mockVectorStore) Close() error { return nil }

// mockIngestService implements driving.IngestService for testing.
type mockIngestService struct {
	mu        sync.Mutex
	schemaErr error
	allErr    error
	outcomes  map[string]domain.IngestOutcome
	scanned   []string
	processed []string
}

func (m *mockIngestService) EnsureSchema(_ context.Context) error { return m.schemaErr }

func (m *mockIngestService) IngestFile(_ context.Context, uri string) domain.IngestResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed = append(m.processed, uri)
	return domain.IngestResult{URI: uri, Outcome: m.outcomes[uri]}
}

func (m *mockIngestService) IngestAll(_ context.Context) (*domain.IngestSummary, error) {
	if m.allErr != nil {
		return nil, m.allErr
	}
	summary := &domain.IngestSummary{}
	for _, uri := range m.scanned {
		summary.Results = append(summary.Results, domain.IngestResult{URI: uri, Outcome: m.outcomes[uri]})
	}
	return summary, nil
}

func (m *mockIngestService) processedURIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.processed...)
}

// --- Fixtures ---

const recordP1 = `{
  "patient_id": "p1",
  "demographics": {"name": "Ana Lopez", "age": 54, "gender": "F"},
  "medical_history": {
    "chronic_conditions": ["Type 2 diabetes"],
    "allergies": ["penicillin"],
    "current_medications": ["metformin"]
  },
  "recent_visits": [
    {"visit_id": "v1", "date": "2024-01-02", "doctor": "Dr. Ruiz", "reason": "checkup", "diagnosis": "stable"}
  ],
  "lab_results": [
    {"lab_id": "l1", "date": "2024-01-03", "test_name": "HbA1c", "result": "7.1%"}
  ]
}`

const recordP1ModifiedLab = `{
  "patient_id": "p1",
  "demographics": {"name": "Ana Lopez", "age": 54, "gender": "F"},
  "medical_history": {
    "chronic_conditions": ["Type 2 diabetes"],
    "allergies": ["penicillin"],
    "current_medications": ["metformin"]
  },
  "recent_visits": [
    {"visit_id": "v1", "date": "2024-01-02", "doctor": "Dr. Ruiz", "reason": "checkup", "diagnosis": "stable"}
  ],
  "lab_results": [
    {"lab_id": "l1", "date": "2024-01-03", "test_name": "HbA1c", "result": "6.4%"}
  ]
}`

const recordP1VisitOnly = `{
  "patient_id": "p1",
  "demographics": {"name": "Ana Lopez"},
  "recent_visits": [
    {"visit_id": "v1", "date": "2024-01-02", "doctor": "Dr. Ruiz", "reason": "checkup", "diagnosis": "stable"}
  ]
}`

const recordP2 = `{
  "patient_id": "p2",
  "demographics": {"name": "Bruno Diaz"},
  "recent_visits": [
    {"visit_id": "v1", "date": "2023-11-20", "reason": "flu"}
  ]
}`
