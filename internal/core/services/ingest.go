package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driving"
	"github.com/Andres10976/huli-project-medical-RAG/internal/extractor"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs indexing passes over record units.
//
// A pass reads the unit, compares its fingerprint with the last successful
// pass and, when changed, writes only the chunks whose content differs.
// State is recorded only after every write succeeded, so a failed unit is
// retried in full on its next change.
type IngestService struct {
	source       driven.RecordSource
	parser       driven.RecordParser
	extractor    *extractor.Extractor
	index        *IndexService
	fingerprints driven.FingerprintStore
	metrics      driven.MetricsRecorder
	pruneStale   bool
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithPruneStale enables deletion of points whose event no longer exists.
func WithPruneStale(enabled bool) IngestOption {
	return func(s *IngestService) {
		s.pruneStale = enabled
	}
}

// WithExtractor replaces the default chunk extractor.
func WithExtractor(e *extractor.Extractor) IngestOption {
	return func(s *IngestService) {
		s.extractor = e
	}
}

// WithIngestMetrics sets the metrics recorder.
func WithIngestMetrics(m driven.MetricsRecorder) IngestOption {
	return func(s *IngestService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	source driven.RecordSource,
	parser driven.RecordParser,
	index *IndexService,
	fingerprints driven.FingerprintStore,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		source:       source,
		parser:       parser,
		extractor:    extractor.New(),
		index:        index,
		fingerprints: fingerprints,
		metrics:      driven.NopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema prepares the vector collection.
func (s *IngestService) EnsureSchema(ctx context.Context) error {
	return s.index.EnsureSchema(ctx)
}

// IngestFile runs one indexing pass over the unit at uri.
func (s *IngestService) IngestFile(ctx context.Context, uri string) domain.IngestResult {
	start := time.Now()
	result := s.ingest(ctx, uri)
	result.Duration = time.Since(start)
	s.metrics.UnitProcessed(result.Outcome, result.Duration)

	switch result.Outcome {
	case domain.OutcomeSkipped:
		logger.Debug("Unchanged: %s", uri)
	case domain.OutcomeIndexed:
		logger.Info("Indexed %s: %d chunks, %d upserted, %d pruned",
			uri, result.Chunks, result.Upserted, result.Pruned)
	case domain.OutcomeFailed:
		logger.Warn("Failed to index %s: %v", uri, result.Err)
	}
	return result
}

//nolint:gocyclo // Sequential pipeline steps
func (s *IngestService) ingest(ctx context.Context, uri string) domain.IngestResult {
	result := domain.IngestResult{URI: uri}
	fail := func(err error) domain.IngestResult {
		result.Outcome = domain.OutcomeFailed
		result.Err = err
		return result
	}

	// 1. Read and fingerprint
	raw, err := s.source.Read(ctx, uri)
	if err != nil {
		if errors.Is(err, domain.ErrSourceRead) {
			return fail(err)
		}
		return fail(fmt.Errorf("%w: %w", domain.ErrSourceRead, err))
	}
	result.Fingerprint = Fingerprint(raw.Content)

	// 2. Skip unchanged units
	prev, err := s.fingerprints.Get(ctx, uri)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fail(fmt.Errorf("get fingerprint: %w", err))
	}
	target := s.index.Target()
	if prev != nil && prev.Target != target {
		logger.Debug("State of %s was recorded for %s, re-indexing into %s", uri, prev.Target, target)
		prev = nil
	}
	if prev != nil && prev.Fingerprint == result.Fingerprint {
		result.Outcome = domain.OutcomeSkipped
		return result
	}

	// 3. Decode and extract
	if !s.parser.Supports(uri) {
		return fail(fmt.Errorf("%w: unsupported record format: %s", domain.ErrSourceRead, uri))
	}
	record, err := s.parser.Parse(raw)
	if err != nil {
		return fail(err)
	}
	result.PatientID = record.PatientID
	chunks := s.extractor.Extract(record)
	result.Chunks = len(chunks)

	// 4. Diff against the previous pass
	digests := make(map[string]string, len(chunks))
	changed := make([]domain.Chunk, 0, len(chunks))
	for i := range chunks {
		if chunks[i].InternalID == "" {
			changed = append(changed, chunks[i])
			continue
		}
		id := PointID(chunks[i].PatientID(), chunks[i].InternalID)
		digest := chunks[i].Digest()
		digests[id] = digest
		if prev != nil && prev.ChunkDigests[id] == digest {
			continue
		}
		changed = append(changed, chunks[i])
	}

	// 5. Write changed chunks
	written, err := s.index.UpsertChunks(ctx, changed)
	result.Upserted = len(written)
	if err != nil {
		return fail(err)
	}

	// 6. Optionally drop points of vanished events
	if s.pruneStale {
		keep := make(map[string]struct{}, len(digests)+len(written))
		for id := range digests {
			keep[id] = struct{}{}
		}
		for _, id := range written {
			keep[id] = struct{}{}
		}
		pruned, err := s.index.PruneStale(ctx, record.PatientID, keep)
		if err != nil {
			return fail(err)
		}
		result.Pruned = pruned
	}

	// 7. Record state
	if err := s.fingerprints.Save(ctx, uri, domain.FileState{
		Fingerprint:  result.Fingerprint,
		ChunkDigests: digests,
		Target:       target,
	}); err != nil {
		return fail(fmt.Errorf("save fingerprint: %w", err))
	}

	result.Outcome = domain.OutcomeIndexed
	return result
}

// IngestAll runs a pass over every unit of the record source.
// Per-unit failures are collected; only listing errors and cancellation
// end the scan early.
func (s *IngestService) IngestAll(ctx context.Context) (*domain.IngestSummary, error) {
	uris, err := s.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	logger.Section(fmt.Sprintf("Scanning %d record files", len(uris)))
	summary := &domain.IngestSummary{Results: make([]domain.IngestResult, 0, len(uris))}
	for _, uri := range uris {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Results = append(summary.Results, s.IngestFile(ctx, uri))
	}

	logger.Info("Scan complete: %d indexed, %d unchanged, %d failed",
		summary.Count(domain.OutcomeIndexed),
		summary.Count(domain.OutcomeSkipped),
		summary.Count(domain.OutcomeFailed))
	return summary, nil
}

// Fingerprint returns the hex sha256 of content.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
