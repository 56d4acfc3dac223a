// Package extractor turns a patient record into retrievable chunks.
//
// Extraction is pure: no I/O, no clock, no randomness. The same record
// always yields the same chunks in the same order.
package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// fallbackHashLen is the number of hex characters kept from the content hash.
const fallbackHashLen = 16

// Extractor renders events and builds chunk metadata.
type Extractor struct {
	fallback domain.FallbackPolicy
}

// Option configures the extractor.
type Option func(*Extractor)

// WithFallbackPolicy selects how events without a natural key are identified.
// Unknown policies are ignored.
func WithFallbackPolicy(policy domain.FallbackPolicy) Option {
	return func(e *Extractor) {
		if policy.IsValid() {
			e.fallback = policy
		}
	}
}

// New creates an extractor with the given options.
func New(opts ...Option) *Extractor {
	e := &Extractor{fallback: domain.FallbackContent}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract renders a record with the default options.
func Extract(record *domain.PatientRecord) []domain.Chunk {
	return New().Extract(record)
}

// Extract renders every event of the record into one chunk.
// Order: visits, labs, doctor notes, pharmacy notes, each in source order.
// A nil record yields no chunks.
func (e *Extractor) Extract(record *domain.PatientRecord) []domain.Chunk {
	if record == nil {
		return nil
	}

	name := record.DisplayName()
	events := record.Events()
	chunks := make([]domain.Chunk, 0, len(events))
	positions := make(map[domain.EventType]int, len(domain.EventTypes()))

	for _, ev := range events {
		text := render(ev, name)

		meta := map[string]string{
			domain.MetaPatientID: record.PatientID,
			domain.MetaTimestamp: ev.When(),
			domain.MetaEventType: ev.Type().String(),
		}
		if key, value := detailField(ev); key != "" {
			meta[key] = value
		}

		pos := positions[ev.Type()]
		positions[ev.Type()]++

		chunks = append(chunks, domain.Chunk{
			Text:       text,
			Metadata:   domain.CleanMetadata(meta),
			InternalID: e.internalID(ev, pos),
		})
	}

	return chunks
}

// internalID returns the natural key, or a fallback per the configured policy.
// The content fallback hashes the event rendered without the patient name,
// so editing demographics does not re-key events.
func (e *Extractor) internalID(ev domain.Event, pos int) string {
	if key := ev.Key(); key != "" {
		return key
	}
	prefix := idPrefix(ev.Type())
	if e.fallback == domain.FallbackPosition {
		// Not stable: reordering or trimming the source collection
		// reassigns these ids to different events.
		return fmt.Sprintf("%s%d", prefix, pos)
	}
	sum := sha256.Sum256([]byte(ev.Type().String() + "|" + ev.When() + "|" + render(ev, "")))
	return prefix + "-" + hex.EncodeToString(sum[:])[:fallbackHashLen]
}

func idPrefix(t domain.EventType) string {
	switch t {
	case domain.EventVisit:
		return "v"
	case domain.EventLab:
		return "l"
	case domain.EventDoctorNote:
		return "d"
	case domain.EventPharmacyNote:
		return "p"
	default:
		return "e"
	}
}

// detailField returns the type-specific metadata entry of an event.
func detailField(ev domain.Event) (string, string) {
	switch v := ev.(type) {
	case domain.Visit:
		return domain.MetaDoctor, v.Doctor
	case domain.LabResult:
		return domain.MetaTestName, v.TestName
	case domain.DoctorNote:
		return domain.MetaAuthor, v.Author
	case domain.PharmacyNote:
		return domain.MetaPharmacy, v.Pharmacy
	default:
		return "", ""
	}
}
