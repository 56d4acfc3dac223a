package driven

import (
	"time"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// MetricsRecorder receives pipeline counters. A nil recorder is not allowed;
// use NopMetrics when metrics are disabled.
type MetricsRecorder interface {
	// UnitProcessed records the outcome of one ingestion pass of a unit.
	UnitProcessed(outcome domain.IngestOutcome, elapsed time.Duration)

	// ChunksUpserted adds n written points.
	ChunksUpserted(n int)

	// EmbeddingRequest records one call to the embedding gateway.
	EmbeddingRequest(texts int, err error)

	// PointsPruned adds n deleted points.
	PointsPruned(n int)
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) UnitProcessed(domain.IngestOutcome, time.Duration) {}
func (NopMetrics) ChunksUpserted(int)                                 {}
func (NopMetrics) EmbeddingRequest(int, error)                        {}
func (NopMetrics) PointsPruned(int)                                   {}
