package domain

import "fmt"

// unknownName is shown when a record carries no demographic name.
const unknownName = "Unknown"

// PatientRecord is one patient's file as read from the record source.
// It is externally owned and treated as read-only input.
type PatientRecord struct {
	// PatientID uniquely identifies the patient.
	PatientID string

	// Demographics holds identity attributes.
	Demographics Demographics

	// MedicalHistory holds the static clinical context.
	MedicalHistory MedicalHistory

	// Visits are encounters in source order.
	Visits []Visit

	// Labs are lab results in source order.
	Labs []LabResult

	// DoctorNotes are free-text clinician notes in source order.
	DoctorNotes []DoctorNote

	// PharmacyNotes are dispensing records in source order.
	PharmacyNotes []PharmacyNote
}

// DisplayName returns the patient's name, or "Unknown" when absent.
func (r *PatientRecord) DisplayName() string {
	if r.Demographics.Name == "" {
		return unknownName
	}
	return r.Demographics.Name
}

// Events returns every event in traversal order: visits, labs,
// doctor notes, then pharmacy notes, each in source order.
func (r *PatientRecord) Events() []Event {
	events := make([]Event, 0, len(r.Visits)+len(r.Labs)+len(r.DoctorNotes)+len(r.PharmacyNotes))
	for i := range r.Visits {
		events = append(events, r.Visits[i])
	}
	for i := range r.Labs {
		events = append(events, r.Labs[i])
	}
	for i := range r.DoctorNotes {
		events = append(events, r.DoctorNotes[i])
	}
	for i := range r.PharmacyNotes {
		events = append(events, r.PharmacyNotes[i])
	}
	return events
}

// Demographics holds identity attributes of a patient.
// Empty strings mean the attribute was absent.
type Demographics struct {
	Name   string `json:"name,omitempty"`
	Age    string `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`

	// Extra holds any further scalar attributes found in the record.
	Extra map[string]string `json:"extra,omitempty"`
}

// MedicalHistory is the static context shown alongside search results.
type MedicalHistory struct {
	ChronicConditions  []string `json:"chronic_conditions"`
	Allergies          []string `json:"allergies"`
	CurrentMedications []string `json:"current_medications"`
}

// PatientProfile is the read-only identity projection of a record.
type PatientProfile struct {
	PatientID      string         `json:"patient_id"`
	Demographics   Demographics   `json:"demographics"`
	MedicalHistory MedicalHistory `json:"medical_history"`

	// URI is the record file the profile was read from.
	URI string `json:"uri"`
}

// PatientSummary is a listing entry for a patient file.
type PatientSummary struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	URI       string `json:"uri"`
}

// Display returns the "{name} - {id}" label used for listings.
func (s PatientSummary) Display() string {
	name := s.Name
	if name == "" {
		name = unknownName
	}
	id := s.PatientID
	if id == "" {
		id = "No ID"
	}
	return fmt.Sprintf("%s - %s", name, id)
}
