package extractor

import (
	"fmt"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// Placeholders used when an event field is absent.
const (
	unknownDate       = "Unknown date"
	defaultProvider   = "a healthcare provider"
	defaultReason     = "a consultation"
	defaultVisitNotes = "No specific notes recorded."
	defaultDiagnosis  = "No formal diagnosis mentioned."
	unknownTest       = "Unknown test"
	noResult          = "No result"
	notAvailable      = "N/A"
	unknownAuthor     = "Unknown Author"
	defaultPharmacy   = "the pharmacy"
)

// render dispatches on the event kind. Every renderer is total.
func render(ev domain.Event, patientName string) string {
	switch v := ev.(type) {
	case domain.Visit:
		return RenderVisit(v, patientName)
	case domain.LabResult:
		return RenderLab(v, patientName)
	case domain.DoctorNote:
		return RenderDoctorNote(v)
	case domain.PharmacyNote:
		return RenderPharmacyNote(v, patientName)
	default:
		return ""
	}
}

// RenderVisit renders a visit as narrative prose.
func RenderVisit(v domain.Visit, patientName string) string {
	return fmt.Sprintf(
		"On %s, the patient %s had a %s with %s. Clinical notes: %s. Diagnosis/Outcome: %s.",
		or(v.Date, unknownDate),
		patientName,
		or(v.Reason, defaultReason),
		or(v.Doctor, defaultProvider),
		or(v.Notes, defaultVisitNotes),
		or(v.Diagnosis, defaultDiagnosis),
	)
}

// RenderLab renders a lab result as narrative prose.
func RenderLab(l domain.LabResult, patientName string) string {
	return fmt.Sprintf(
		"On %s, lab results for %s showed %s: %s. The reference range is %s, and the interpretation is %s.",
		or(l.Date, unknownDate),
		patientName,
		or(l.TestName, unknownTest),
		or(l.Result, noResult),
		or(l.ReferenceRange, notAvailable),
		or(l.Interpretation, notAvailable),
	)
}

// RenderDoctorNote renders a note as structured text with its content verbatim.
func RenderDoctorNote(n domain.DoctorNote) string {
	return fmt.Sprintf("DATE: %s | AUTHOR: %s | CONTENT: %s",
		or(n.Date, unknownDate), or(n.Author, unknownAuthor), n.Content)
}

// RenderPharmacyNote renders a pharmacy record.
func RenderPharmacyNote(p domain.PharmacyNote, patientName string) string {
	return fmt.Sprintf("Pharmacy Record (%s) at %s for %s: %s",
		or(p.Date, unknownDate), or(p.Pharmacy, defaultPharmacy), patientName, p.Content)
}

func or(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
