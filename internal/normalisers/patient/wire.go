package patient

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

// flexString accepts any scalar where a string is expected.
// Numbers and booleans keep their literal text; null becomes "".
// Nested objects and arrays are kept as compact JSON so a single odd
// field never rejects a whole record.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case data[0] == '{' || data[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*f = flexString(buf.String())
	default:
		*f = flexString(data)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *flexString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		if node.Tag == "!!null" {
			*f = ""
			return nil
		}
		*f = flexString(node.Value)
		return nil
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	b, err := json.Marshal(normaliseYAML(v))
	if err != nil {
		return err
	}
	*f = flexString(b)
	return nil
}

// normaliseYAML converts map[string]any trees from yaml.v3 into values
// encoding/json can marshal.
func normaliseYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normaliseYAML(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = normaliseYAML(t[i])
		}
		return t
	default:
		return v
	}
}

func (f flexString) String() string {
	return strings.TrimSpace(string(f))
}

// flexList accepts either a list of scalars or a single comma-separated string.
type flexList []flexString

// UnmarshalJSON implements json.Unmarshaler.
func (l *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var one flexString
	if err := one.UnmarshalJSON(data); err != nil {
		return err
	}
	*l = splitList(one.String())
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *flexList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var items []flexString
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var one flexString
	if err := one.UnmarshalYAML(node); err != nil {
		return err
	}
	*l = splitList(one.String())
	return nil
}

func splitList(s string) flexList {
	if s == "" {
		return nil
	}
	var out flexList
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, flexString(p))
		}
	}
	return out
}

func (l flexList) strings() []string {
	if len(l) == 0 {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, v := range l {
		if s := v.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// recordWire mirrors the on-disk patient file.
type recordWire struct {
	PatientID      flexString                  `json:"patient_id" yaml:"patient_id"`
	Demographics   map[string]flexString       `json:"demographics" yaml:"demographics"`
	MedicalHistory historyWire                 `json:"medical_history" yaml:"medical_history"`
	Visits         eventList[visitWire]        `json:"recent_visits" yaml:"recent_visits"`
	Labs           eventList[labWire]          `json:"lab_results" yaml:"lab_results"`
	DoctorNotes    eventList[doctorNoteWire]   `json:"doctor_notes" yaml:"doctor_notes"`
	PharmacyNotes  eventList[pharmacyNoteWire] `json:"pharmacy_notes" yaml:"pharmacy_notes"`
}

// eventList decodes an event collection one element at a time. An element
// that fails to decode keeps whatever fields did decode and leaves the
// rest empty, so the renderers fill in placeholders. A collection that is
// not a list at all is treated as empty.
type eventList[T any] []T

// UnmarshalJSON implements json.Unmarshaler.
func (l *eventList[T]) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		logger.Warn("Ignoring event collection that is not a list: %v", err)
		*l = nil
		return nil
	}
	out := make(eventList[T], 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			logger.Warn("Malformed event %d kept with placeholders: %v", i, err)
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *eventList[T]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		if node.Tag != "!!null" {
			logger.Warn("Ignoring event collection that is not a list (line %d)", node.Line)
		}
		*l = nil
		return nil
	}
	out := make(eventList[T], 0, len(node.Content))
	for i, item := range node.Content {
		var v T
		if err := item.Decode(&v); err != nil {
			logger.Warn("Malformed event %d kept with placeholders: %v", i, err)
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

type historyWire struct {
	ChronicConditions  flexList `json:"chronic_conditions" yaml:"chronic_conditions"`
	Allergies          flexList `json:"allergies" yaml:"allergies"`
	CurrentMedications flexList `json:"current_medications" yaml:"current_medications"`
}

type visitWire struct {
	VisitID   flexString `json:"visit_id" yaml:"visit_id"`
	Date      flexString `json:"date" yaml:"date"`
	Doctor    flexString `json:"doctor" yaml:"doctor"`
	Reason    flexString `json:"reason" yaml:"reason"`
	Notes     flexString `json:"notes" yaml:"notes"`
	Diagnosis flexString `json:"diagnosis" yaml:"diagnosis"`
}

type labWire struct {
	LabID          flexString `json:"lab_id" yaml:"lab_id"`
	Date           flexString `json:"date" yaml:"date"`
	TestName       flexString `json:"test_name" yaml:"test_name"`
	Result         flexString `json:"result" yaml:"result"`
	ReferenceRange flexString `json:"reference_range" yaml:"reference_range"`
	Interpretation flexString `json:"interpretation" yaml:"interpretation"`
}

type doctorNoteWire struct {
	NoteID  flexString `json:"note_id" yaml:"note_id"`
	Date    flexString `json:"date" yaml:"date"`
	Author  flexString `json:"author" yaml:"author"`
	Content flexString `json:"content" yaml:"content"`
}

type pharmacyNoteWire struct {
	EntryID  flexString `json:"entry_id" yaml:"entry_id"`
	Date     flexString `json:"date" yaml:"date"`
	Pharmacy flexString `json:"pharmacy" yaml:"pharmacy"`
	Content  flexString `json:"content" yaml:"content"`
}

// toDomain maps the wire form onto the domain record.
func (w *recordWire) toDomain() *domain.PatientRecord {
	rec := &domain.PatientRecord{
		PatientID:    w.PatientID.String(),
		Demographics: demographics(w.Demographics),
		MedicalHistory: domain.MedicalHistory{
			ChronicConditions:  w.MedicalHistory.ChronicConditions.strings(),
			Allergies:          w.MedicalHistory.Allergies.strings(),
			CurrentMedications: w.MedicalHistory.CurrentMedications.strings(),
		},
	}

	for _, v := range w.Visits {
		rec.Visits = append(rec.Visits, domain.Visit{
			VisitID:   v.VisitID.String(),
			Date:      v.Date.String(),
			Doctor:    v.Doctor.String(),
			Reason:    v.Reason.String(),
			Notes:     v.Notes.String(),
			Diagnosis: v.Diagnosis.String(),
		})
	}
	for _, l := range w.Labs {
		rec.Labs = append(rec.Labs, domain.LabResult{
			LabID:          l.LabID.String(),
			Date:           l.Date.String(),
			TestName:       l.TestName.String(),
			Result:         l.Result.String(),
			ReferenceRange: l.ReferenceRange.String(),
			Interpretation: l.Interpretation.String(),
		})
	}
	for _, n := range w.DoctorNotes {
		rec.DoctorNotes = append(rec.DoctorNotes, domain.DoctorNote{
			NoteID:  n.NoteID.String(),
			Date:    n.Date.String(),
			Author:  n.Author.String(),
			Content: string(n.Content),
		})
	}
	for _, p := range w.PharmacyNotes {
		rec.PharmacyNotes = append(rec.PharmacyNotes, domain.PharmacyNote{
			EntryID:  p.EntryID.String(),
			Date:     p.Date.String(),
			Pharmacy: p.Pharmacy.String(),
			Content:  string(p.Content),
		})
	}

	return rec
}

func demographics(m map[string]flexString) domain.Demographics {
	d := domain.Demographics{
		Name:   m["name"].String(),
		Age:    m["age"].String(),
		Gender: m["gender"].String(),
	}
	for k, v := range m {
		switch k {
		case "name", "age", "gender":
			continue
		}
		if s := v.String(); s != "" {
			if d.Extra == nil {
				d.Extra = make(map[string]string)
			}
			d.Extra[k] = s
		}
	}
	return d
}
