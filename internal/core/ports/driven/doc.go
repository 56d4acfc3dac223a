// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - RecordSource: Lists, reads and watches record units
//   - RecordParser: Decodes a unit into a domain.PatientRecord
//   - EmbeddingService: Turns chunk text into vectors
//   - VectorStore: Vector database with payload filtering
//   - FingerprintStore: Per-unit state of the last successful pass
//   - ConfigStore: Application configuration
//   - MetricsRecorder: Pipeline counters (NopMetrics when disabled)
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
