package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driving"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

// Ensure WatchService implements the interface.
var _ driving.WatchService = (*WatchService)(nil)

// shardBuffer is the per-worker queue length.
const shardBuffer = 64

// WatchService keeps the index in step with a record source.
type WatchService struct {
	source  driven.RecordSource
	ingest  driving.IngestService
	workers int

	// Status tracking
	mu     sync.RWMutex
	status driving.WatchStatus
}

// NewWatchService creates a new watch service.
// Workers below one are treated as one.
func NewWatchService(source driven.RecordSource, ingest driving.IngestService, workers int) *WatchService {
	if workers < 1 {
		workers = 1
	}
	return &WatchService{
		source:  source,
		ingest:  ingest,
		workers: workers,
	}
}

// Run ensures the schema, scans every unit once, then processes change
// notifications until ctx is cancelled. Only a schema or listing failure
// is returned; per-unit failures are logged and counted.
func (w *WatchService) Run(ctx context.Context) error {
	// 1. Schema first: nothing is watched against a broken collection
	if err := w.ingest.EnsureSchema(ctx); err != nil {
		return err
	}

	// 2. Subscribe before scanning so no change is lost in between
	changes, err := w.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch records: %w", err)
	}

	w.setRunning(true)
	defer w.setRunning(false)

	// 3. Initial scan
	summary, err := w.ingest.IngestAll(ctx)
	if summary != nil {
		for i := range summary.Results {
			w.record(summary.Results[i])
		}
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	// 4. Process changes, one unit always on the same worker
	queues := make([]chan string, w.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan string, shardBuffer)
		wg.Add(1)
		go func(queue <-chan string) {
			defer wg.Done()
			for uri := range queue {
				w.record(w.ingest.IngestFile(ctx, uri))
			}
		}(queues[i])
	}

	logger.Info("Watching for record changes")
	w.dispatch(ctx, changes, queues)

	for _, q := range queues {
		close(q)
	}
	wg.Wait()
	logger.Info("Watcher stopped")
	return nil
}

func (w *WatchService) dispatch(ctx context.Context, changes <-chan domain.RecordChange, queues []chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if !change.Type.IsActionable() {
				logger.Debug("Ignoring %s: %s", change.Type, change.URI)
				continue
			}
			select {
			case queues[shardFor(change.URI, len(queues))] <- change.URI:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Status returns a snapshot of the watcher's progress.
func (w *WatchService) Status() driving.WatchStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

func (w *WatchService) setRunning(running bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status.Running = running
}

func (w *WatchService) record(result domain.IngestResult) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch result.Outcome {
	case domain.OutcomeIndexed:
		w.status.UnitsIndexed++
	case domain.OutcomeSkipped:
		w.status.UnitsSkipped++
	case domain.OutcomeFailed:
		w.status.ErrorCount++
	}
}

func shardFor(uri string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(uri))
	return int(h.Sum32() % uint32(n)) //nolint:gosec // n is a small positive worker count
}
