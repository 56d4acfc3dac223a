package driving

import (
	"context"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// PatientService exposes read-only views of the patient records.
type PatientService interface {
	// List returns every known patient, sorted by display name.
	List(ctx context.Context) ([]domain.PatientSummary, error)

	// Profile returns demographics and medical history for a patient.
	// Returns domain.ErrNotFound for an unknown id.
	Profile(ctx context.Context, patientID string) (*domain.PatientProfile, error)
}
