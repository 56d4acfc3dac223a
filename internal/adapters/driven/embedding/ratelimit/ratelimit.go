// Package ratelimit wraps an embedding service with a token bucket and
// backoff on provider rate-limit responses.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driven"
	"github.com/Andres10976/huli-project-medical-RAG/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultMaxRetries = 3
	DefaultBackoff    = 5 * time.Second
)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate. Zero or less means unlimited.
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 1).
	Burst int

	// MaxRetries is how often a rate-limited call is retried (default: 3).
	// Negative disables retries.
	MaxRetries int

	// Backoff is the wait used when the provider gives no Retry-After (default: 5s).
	Backoff time.Duration
}

// EmbeddingService is a rate-limited embedding service.
type EmbeddingService struct {
	next       driven.EmbeddingService
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

// New wraps next with rate limiting.
func New(next driven.EmbeddingService, cfg Config) *EmbeddingService {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &EmbeddingService{
		next:       next,
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
	}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := s.do(ctx, func() error {
		var err error
		out, err = s.next.Embed(ctx, text)
		return err
	})
	return out, err
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var out [][]float32
	err := s.do(ctx, func() error {
		var err error
		out, err = s.next.EmbedBatch(ctx, texts)
		return err
	})
	return out, err
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping validates the wrapped service without consuming a token.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return s.next.Close()
}

func (s *EmbeddingService) do(ctx context.Context, call func() error) error {
	for attempt := 0; ; attempt++ {
		if err := s.wait(ctx); err != nil {
			return err
		}

		err := call()
		var rl *domain.RateLimitError
		if err == nil || !errors.As(err, &rl) || attempt >= s.maxRetries {
			return err
		}

		wait := rl.RetryAfter
		if wait <= 0 {
			wait = s.backoff
		}
		logger.Debug("Embedding provider rate limited, retrying in %s", wait)
		s.recordRateLimit(wait)
	}
}

// wait blocks until the backoff window has passed and a token is available.
func (s *EmbeddingService) wait(ctx context.Context) error {
	s.mu.Lock()
	retryAt := s.retryAt
	s.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return s.limiter.Wait(ctx)
}

func (s *EmbeddingService) recordRateLimit(wait time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if until := time.Now().Add(wait); until.After(s.retryAt) {
		s.retryAt = until
	}
}
