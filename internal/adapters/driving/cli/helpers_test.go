package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driving"
)

type mockSearchService struct {
	results  []domain.RetrievedChunk
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, _ string, opts domain.SearchOptions) ([]domain.RetrievedChunk, error) {
	m.lastOpts = opts
	return m.results, m.err
}

type mockPatientService struct {
	patients []domain.PatientSummary
	profile  *domain.PatientProfile
	err      error
}

func (m *mockPatientService) List(_ context.Context) ([]domain.PatientSummary, error) {
	return m.patients, m.err
}

func (m *mockPatientService) Profile(_ context.Context, id string) (*domain.PatientProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.profile == nil || m.profile.PatientID != id {
		return nil, domain.ErrNotFound
	}
	return m.profile, nil
}

type mockIngestService struct {
	schemaErr error
	summary   *domain.IngestSummary
	err       error
}

func (m *mockIngestService) EnsureSchema(_ context.Context) error { return m.schemaErr }

func (m *mockIngestService) IngestFile(_ context.Context, uri string) domain.IngestResult {
	return domain.IngestResult{URI: uri, Outcome: domain.OutcomeSkipped}
}

func (m *mockIngestService) IngestAll(_ context.Context) (*domain.IngestSummary, error) {
	return m.summary, m.err
}

type mockWatchService struct {
	mu     sync.Mutex
	status driving.WatchStatus
	runErr error
}

func (m *mockWatchService) Run(_ context.Context) error {
	m.mu.Lock()
	m.status = driving.WatchStatus{UnitsIndexed: 2, UnitsSkipped: 1}
	m.mu.Unlock()
	return m.runErr
}

func (m *mockWatchService) Status() driving.WatchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	pingErr     error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}
func (m *mockSettingsService) Save(*domain.AppSettings) error    { return nil }
func (m *mockSettingsService) GetDefaults() domain.AppSettings   { return domain.DefaultAppSettings() }
func (m *mockSettingsService) Validate() error                   { return m.validateErr }
func (m *mockSettingsService) ValidateEmbeddingConfig(context.Context) error {
	return m.pingErr
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	search   *mockSearchService
	patient  *mockPatientService
	ingest   *mockIngestService
	watch    *mockWatchService
	settings *mockSettingsService
}

// setupTestServices installs mocks for every command and returns them with
// a cleanup function restoring the package state.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		search: &mockSearchService{results: []domain.RetrievedChunk{{
			ID:        "id-1",
			Text:      "Visit on 2024-01-10 with Dr. Vega. Reason: cough.",
			Timestamp: "2024-01-10",
			EventType: domain.EventVisit,
			Score:     0.87,
		}}},
		patient: &mockPatientService{
			patients: []domain.PatientSummary{{PatientID: "p1", Name: "Ana Mora"}},
			profile: &domain.PatientProfile{
				PatientID:    "p1",
				Demographics: domain.Demographics{Name: "Ana Mora", Age: "54"},
				MedicalHistory: domain.MedicalHistory{
					Allergies: []string{"Penicillin"},
				},
			},
		},
		ingest: &mockIngestService{summary: &domain.IngestSummary{Results: []domain.IngestResult{
			{URI: "data/p1.json", Outcome: domain.OutcomeIndexed, Chunks: 4, Upserted: 4},
			{URI: "data/p2.json", Outcome: domain.OutcomeSkipped},
		}}},
		watch:    &mockWatchService{},
		settings: &mockSettingsService{settings: domain.DefaultAppSettings()},
	}

	searchService = ts.search
	patientService = ts.patient
	ingestService = ts.ingest
	watchService = ts.watch
	settingsService = ts.settings
	dataDir = "data"
	servicesReady = true

	cleanup := func() {
		searchService = nil
		patientService = nil
		ingestService = nil
		watchService = nil
		settingsService = nil
		metrics = nil
		dataDir = ""
		servicesReady = false
		resetFlags()
	}
	return ts, cleanup
}

// resetFlags restores flag variables between executions of rootCmd.
func resetFlags() {
	searchPatient = ""
	searchType = ""
	searchRecent = false
	searchLimit = domain.DefaultSearchLimit
	searchJSON = false
	patientJSON = false
}

// execute runs rootCmd with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

var errBoom = errors.New("boom")
