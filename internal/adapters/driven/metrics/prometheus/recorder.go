// Package prometheus exposes pipeline counters in the Prometheus format.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

const namespace = "huli"

// Ensure Recorder implements the interface.
var _ driven.MetricsRecorder = (*Recorder)(nil)

// Recorder implements driven.MetricsRecorder on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	units       *prometheus.CounterVec
	unitSeconds *prometheus.HistogramVec
	upserted    prometheus.Counter
	embedCalls  *prometheus.CounterVec
	embedTexts  prometheus.Counter
	pruned      prometheus.Counter
}

// NewRecorder creates a recorder with its own registry, including Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Source units processed, by outcome.",
		}, []string{"outcome"}),
		unitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Wall time spent processing one source unit.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"outcome"}),
		upserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_upserted_total",
			Help:      "Points written to the vector index.",
		}),
		embedCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_requests_total",
			Help:      "Calls to the embedding gateway, by result.",
		}, []string{"result"}),
		embedTexts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_texts_total",
			Help:      "Texts sent to the embedding gateway.",
		}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_pruned_total",
			Help:      "Stale points deleted from the vector index.",
		}),
	}

	r.registry.MustRegister(
		r.units, r.unitSeconds, r.upserted, r.embedCalls, r.embedTexts, r.pruned,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// UnitProcessed records the outcome and duration of one unit.
func (r *Recorder) UnitProcessed(outcome domain.IngestOutcome, elapsed time.Duration) {
	r.units.WithLabelValues(outcome.String()).Inc()
	r.unitSeconds.WithLabelValues(outcome.String()).Observe(elapsed.Seconds())
}

// ChunksUpserted adds n written points.
func (r *Recorder) ChunksUpserted(n int) {
	if n > 0 {
		r.upserted.Add(float64(n))
	}
}

// EmbeddingRequest records one gateway call.
func (r *Recorder) EmbeddingRequest(texts int, err error) {
	result := "ok"
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		result = "rate_limited"
	case err != nil:
		result = "error"
	}
	r.embedCalls.WithLabelValues(result).Inc()
	if texts > 0 {
		r.embedTexts.Add(float64(texts))
	}
}

// PointsPruned adds n deleted points.
func (r *Recorder) PointsPruned(n int) {
	if n > 0 {
		r.pruned.Add(float64(n))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Serve exposes /metrics on port until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics: serving on :%d/metrics", port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
