package domain

import "time"

// IngestOutcome is the result of processing one source unit.
type IngestOutcome int

const (
	// OutcomeIndexed means changed chunks were written.
	OutcomeIndexed IngestOutcome = iota

	// OutcomeSkipped means the fingerprint was unchanged; nothing was called.
	OutcomeSkipped

	// OutcomeFailed means the unit failed and its fingerprint was kept.
	OutcomeFailed
)

// String returns the string representation.
func (o IngestOutcome) String() string {
	switch o {
	case OutcomeIndexed:
		return "indexed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IngestResult describes one processed source unit.
type IngestResult struct {
	// URI identifies the unit.
	URI string

	// PatientID is the record's patient, when it could be decoded.
	PatientID string

	// Outcome is what happened.
	Outcome IngestOutcome

	// Chunks is the number of chunks extracted.
	Chunks int

	// Upserted is the number of chunks written to the index.
	Upserted int

	// Pruned is the number of stale points deleted.
	Pruned int

	// Fingerprint is the content hash of the processed bytes.
	Fingerprint string

	// Duration is the wall time spent on the unit.
	Duration time.Duration

	// Err is set when Outcome is OutcomeFailed.
	Err error
}

// IngestSummary aggregates a full scan.
type IngestSummary struct {
	Results []IngestResult
}

// Count returns the number of results with the given outcome.
func (s IngestSummary) Count(outcome IngestOutcome) int {
	n := 0
	for i := range s.Results {
		if s.Results[i].Outcome == outcome {
			n++
		}
	}
	return n
}

// Failures returns the failed results.
func (s IngestSummary) Failures() []IngestResult {
	var failed []IngestResult
	for i := range s.Results {
		if s.Results[i].Outcome == OutcomeFailed {
			failed = append(failed, s.Results[i])
		}
	}
	return failed
}

// FileState is the watch state recorded for one source unit after a
// successful pass.
type FileState struct {
	// Fingerprint is the sha256 of the raw bytes.
	Fingerprint string

	// ChunkDigests maps point identity to chunk digest.
	ChunkDigests map[string]string

	// Target names the collection and embedding model the points were
	// written with, as "{collection}/{model}". State recorded for another
	// target does not describe the current index.
	Target string
}
