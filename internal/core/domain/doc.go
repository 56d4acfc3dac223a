// Package domain defines the core business entities for huli.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - PatientRecord: A patient's file with its clinical event collections
//   - Event: One visit, lab result, doctor note or pharmacy entry
//   - Chunk: An atomic, independently retrievable unit derived from one event
//   - IndexedPoint: The persisted (identity, vector, payload) triple
//   - SearchQuery / RetrievedChunk: The retrieval contract
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
