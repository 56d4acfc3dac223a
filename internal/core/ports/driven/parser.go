package driven

import "github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"

// RecordParser decodes raw unit content into a patient record.
type RecordParser interface {
	// Supports reports whether the parser handles the unit at uri.
	Supports(uri string) bool

	// Parse decodes a raw record. Malformed content is reported as an
	// error wrapping domain.ErrSourceRead.
	Parse(raw *domain.RawRecord) (*domain.PatientRecord, error)
}
