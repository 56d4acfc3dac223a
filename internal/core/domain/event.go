package domain

import (
	"fmt"
	"strings"
)

// EventType tags every chunk with the kind of event it came from.
// It is used as a hard filter at query time.
type EventType string

// Known event types.
const (
	EventVisit        EventType = "visit"
	EventLab          EventType = "lab"
	EventDoctorNote   EventType = "doctor_note"
	EventPharmacyNote EventType = "pharmacy_note"
)

// EventTypes returns the known event types in traversal order.
func EventTypes() []EventType {
	return []EventType{EventVisit, EventLab, EventDoctorNote, EventPharmacyNote}
}

// IsValid returns true if the event type is recognised.
func (t EventType) IsValid() bool {
	switch t {
	case EventVisit, EventLab, EventDoctorNote, EventPharmacyNote:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t EventType) String() string {
	return string(t)
}

// ParseEventType validates s as an event type. An empty string yields
// the zero EventType, meaning "no filter".
func ParseEventType(s string) (EventType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	t := EventType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, s)
	}
	return t, nil
}

// Event is one clinical event of a patient record. It is a closed set:
// Visit, LabResult, DoctorNote and PharmacyNote.
type Event interface {
	// Type returns the event's kind.
	Type() EventType

	// Key returns the natural key, or "" when the source omitted it.
	Key() string

	// When returns the event date as written in the source, or "".
	When() string

	isEvent()
}

// Visit is a clinical encounter.
type Visit struct {
	VisitID   string
	Date      string
	Doctor    string
	Reason    string
	Notes     string
	Diagnosis string
}

// LabResult is a single lab test outcome.
type LabResult struct {
	LabID          string
	Date           string
	TestName       string
	Result         string
	ReferenceRange string
	Interpretation string
}

// DoctorNote is a free-text clinician note.
type DoctorNote struct {
	NoteID  string
	Date    string
	Author  string
	Content string
}

// PharmacyNote is a dispensing or pharmacy counselling record.
type PharmacyNote struct {
	EntryID  string
	Date     string
	Pharmacy string
	Content  string
}

func (Visit) Type() EventType        { return EventVisit }
func (v Visit) Key() string          { return v.VisitID }
func (v Visit) When() string         { return v.Date }
func (Visit) isEvent()               {}
func (LabResult) Type() EventType    { return EventLab }
func (l LabResult) Key() string      { return l.LabID }
func (l LabResult) When() string     { return l.Date }
func (LabResult) isEvent()           {}
func (DoctorNote) Type() EventType   { return EventDoctorNote }
func (n DoctorNote) Key() string     { return n.NoteID }
func (n DoctorNote) When() string    { return n.Date }
func (DoctorNote) isEvent()          {}
func (PharmacyNote) Type() EventType { return EventPharmacyNote }
func (p PharmacyNote) Key() string   { return p.EntryID }
func (p PharmacyNote) When() string  { return p.Date }
func (PharmacyNote) isEvent()        {}
