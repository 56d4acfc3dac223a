// Package sqlite provides a single-file local index backed by SQLite.
//
// One database holds the vector collections and the per-unit file states
// of the watcher, so both are always consistent with each other. Vectors
// are stored as little-endian float32 blobs; filtering happens in SQL and
// scoring in process.
package sqlite
