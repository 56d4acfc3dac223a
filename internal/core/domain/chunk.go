package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Metadata keys written on every chunk.
const (
	MetaPatientID = "patient_id"
	MetaTimestamp = "timestamp"
	MetaEventType = "event_type"

	// Type-specific keys.
	MetaDoctor   = "doctor"
	MetaTestName = "test_name"
	MetaAuthor   = "author"
	MetaPharmacy = "pharmacy"

	// PayloadText is the payload key holding the chunk text.
	PayloadText = "text"
)

// Chunk is one atomic, independently retrievable unit of clinical text
// derived from a single source event.
//
// A chunk belongs to exactly one patient and one event type. Chunk order
// within a patient follows the source collections, not chronology.
type Chunk struct {
	// Text is the rendered representation of the event.
	Text string

	// Metadata holds patient_id, timestamp, event_type and type-specific
	// fields. Keys with empty values are never present.
	Metadata map[string]string

	// InternalID is the event's natural key or a synthetic fallback.
	// It is identity material only and is never stored in the payload.
	InternalID string
}

// PatientID returns the chunk's patient_id metadata.
func (c Chunk) PatientID() string {
	return c.Metadata[MetaPatientID]
}

// EventType returns the chunk's event_type metadata.
func (c Chunk) EventType() EventType {
	return EventType(c.Metadata[MetaEventType])
}

// Timestamp returns the chunk's timestamp metadata.
func (c Chunk) Timestamp() string {
	return c.Metadata[MetaTimestamp]
}

// Digest returns a content hash over the text and sorted metadata.
// Two chunks with equal digests produce identical payloads.
func (c Chunk) Digest() string {
	h := sha256.New()
	h.Write([]byte(c.Text))
	keys := make([]string, 0, len(c.Metadata))
	for k := range c.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(c.Metadata[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CleanMetadata returns a copy of m without empty values.
// "Missing" and "empty string" are indistinguishable downstream.
func CleanMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
