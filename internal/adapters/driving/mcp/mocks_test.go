package mcp

import (
	"context"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results   []domain.RetrievedChunk
	err       error
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.RetrievedChunk, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

// mockPatientService is a mock implementation of driving.PatientService.
type mockPatientService struct {
	patients []domain.PatientSummary
	profiles map[string]*domain.PatientProfile
	err      error
}

func (m *mockPatientService) List(_ context.Context) ([]domain.PatientSummary, error) {
	return m.patients, m.err
}

func (m *mockPatientService) Profile(_ context.Context, patientID string) (*domain.PatientProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[patientID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func newTestServer(search *mockSearchService, patient *mockPatientService) (*Server, error) {
	if search == nil {
		search = &mockSearchService{}
	}
	if patient == nil {
		patient = &mockPatientService{}
	}
	return NewServer(&Ports{Search: search, Patient: patient})
}

func testProfile() *domain.PatientProfile {
	return &domain.PatientProfile{
		PatientID: "p1",
		Demographics: domain.Demographics{
			Name:   "Ana Mora",
			Age:    "54",
			Gender: "F",
		},
		MedicalHistory: domain.MedicalHistory{
			ChronicConditions: []string{"Type 2 diabetes"},
			Allergies:         []string{"Penicillin"},
		},
	}
}
