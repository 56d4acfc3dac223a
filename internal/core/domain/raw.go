package domain

// RawRecord is the opaque bytes of one record file.
// It is the record source's output before decoding.
type RawRecord struct {
	// URI is the record's location (a file path for filesystem sources).
	URI string

	// Content is the raw bytes.
	Content []byte
}

// ChangeType represents the type of record change.
type ChangeType int

const (
	// ChangeCreated indicates a new record file.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified record file.
	ChangeUpdated

	// ChangeDeleted indicates a removed record file.
	// Watchers report it for completeness; ingestion ignores it.
	ChangeDeleted
)

// String returns the string representation.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// IsActionable reports whether the change should trigger ingestion.
func (c ChangeType) IsActionable() bool {
	return c == ChangeCreated || c == ChangeUpdated
}

// RecordChange represents a change notification from a record source.
type RecordChange struct {
	// Type is the kind of change.
	Type ChangeType

	// URI identifies the affected record file.
	URI string
}
