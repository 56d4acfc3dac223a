package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatResults_Empty(t *testing.T) {
	assert.Equal(t, "No relevant records found for this query.", FormatResults(nil))
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]RetrievedChunk{
		{Text: "visit text", Timestamp: "2024-01-01", EventType: EventVisit},
		{Text: "note text", EventType: EventDoctorNote},
	})

	assert.Equal(t,
		"Source: Visit\nDate: 2024-01-01\nContent: visit text"+
			"\n\n---\n\n"+
			"Source: Doctor_note\nDate: Unknown date\nContent: note text",
		out)
}

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in      string
		want    EventType
		wantErr bool
	}{
		{"", "", false},
		{"  ", "", false},
		{"visit", EventVisit, false},
		{"lab", EventLab, false},
		{"doctor_note", EventDoctorNote, false},
		{"pharmacy_note", EventPharmacyNote, false},
		{"radiology", "", true},
		{"Visit", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEventType(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventTypes_Order(t *testing.T) {
	assert.Equal(t, []EventType{EventVisit, EventLab, EventDoctorNote, EventPharmacyNote}, EventTypes())
}
