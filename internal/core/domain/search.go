package domain

import (
	"fmt"
	"strings"
)

// DefaultSearchLimit is the number of results returned when no limit is set.
const DefaultSearchLimit = 5

// SearchOptions configures a patient-scoped retrieval.
type SearchOptions struct {
	// PatientID scopes the search. Required.
	PatientID string

	// EventType restricts results to one event type when set.
	EventType EventType

	// OrderByDate sorts the result set by timestamp, most recent first,
	// instead of by similarity.
	OrderByDate bool

	// Limit is the maximum number of results.
	Limit int
}

// SearchQuery is the fully resolved query handed to the index.
type SearchQuery struct {
	Text string
	SearchOptions
}

// RetrievedChunk is a search hit as seen by the reasoning layer.
type RetrievedChunk struct {
	// ID is the point identity.
	ID string `json:"id"`

	// Text is the chunk text.
	Text string `json:"text"`

	// Timestamp is the event date, or "" when unknown.
	Timestamp string `json:"timestamp,omitempty"`

	// EventType is the event kind.
	EventType EventType `json:"event_type"`

	// Metadata holds the remaining payload fields.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Score is the similarity score.
	Score float64 `json:"score"`
}

// FormatResults renders hits as "Source / Date / Content" blocks for
// inclusion in a model prompt.
func FormatResults(results []RetrievedChunk) string {
	if len(results) == 0 {
		return "No relevant records found for this query."
	}

	blocks := make([]string, len(results))
	for i, r := range results {
		source := string(r.EventType)
		if source == "" {
			source = "record"
		}
		date := r.Timestamp
		if date == "" {
			date = "Unknown date"
		}
		blocks[i] = fmt.Sprintf("Source: %s\nDate: %s\nContent: %s", capitalise(source), date, r.Text)
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
