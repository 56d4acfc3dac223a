package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driving"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

// Ensure PatientService implements the interface.
var _ driving.PatientService = (*PatientService)(nil)

// PatientService reads patient identities straight from the record source.
type PatientService struct {
	source driven.RecordSource
	parser driven.RecordParser
}

// NewPatientService creates a new patient service.
func NewPatientService(source driven.RecordSource, parser driven.RecordParser) *PatientService {
	return &PatientService{source: source, parser: parser}
}

// List returns every readable patient record sorted by display label.
// Unreadable units are skipped with a warning.
func (s *PatientService) List(ctx context.Context) ([]domain.PatientSummary, error) {
	var summaries []domain.PatientSummary
	err := s.each(ctx, func(uri string, record *domain.PatientRecord) bool {
		summaries = append(summaries, domain.PatientSummary{
			PatientID: record.PatientID,
			Name:      record.Demographics.Name,
			URI:       uri,
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return strings.ToLower(summaries[i].Display()) < strings.ToLower(summaries[j].Display())
	})
	return summaries, nil
}

// Profile returns the demographics and medical history of a patient.
func (s *PatientService) Profile(ctx context.Context, patientID string) (*domain.PatientProfile, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient id is required", domain.ErrInvalidInput)
	}

	var profile *domain.PatientProfile
	err := s.each(ctx, func(uri string, record *domain.PatientRecord) bool {
		if record.PatientID != patientID {
			return true
		}
		profile = &domain.PatientProfile{
			PatientID:      record.PatientID,
			Demographics:   record.Demographics,
			MedicalHistory: record.MedicalHistory,
			URI:            uri,
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: patient %s", domain.ErrNotFound, patientID)
	}
	return profile, nil
}

// each decodes every unit and calls fn until it returns false.
func (s *PatientService) each(ctx context.Context, fn func(uri string, record *domain.PatientRecord) bool) error {
	uris, err := s.source.List(ctx)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	for _, uri := range uris {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !s.parser.Supports(uri) {
			continue
		}
		raw, err := s.source.Read(ctx, uri)
		if err != nil {
			logger.Warn("Skipping %s: %v", uri, err)
			continue
		}
		record, err := s.parser.Parse(raw)
		if err != nil {
			logger.Warn("Skipping %s: %v", uri, err)
			continue
		}
		if !fn(uri, record) {
			return nil
		}
	}
	return nil
}
