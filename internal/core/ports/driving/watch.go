package driving

import "context"

// WatchService keeps the vector index in step with the record source.
type WatchService interface {
	// Run performs an initial full scan, then processes change
	// notifications until ctx is cancelled.
	Run(ctx context.Context) error

	// Status returns a snapshot of the watcher's progress.
	Status() WatchStatus
}

// WatchStatus represents the current state of the watcher.
type WatchStatus struct {
	// Running indicates if the watcher is active.
	Running bool

	// UnitsIndexed is the count of passes that wrote points.
	UnitsIndexed int

	// UnitsSkipped is the count of passes short-circuited by fingerprint.
	UnitsSkipped int

	// ErrorCount is the number of failed passes.
	ErrorCount int
}
