package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Pipeline Errors.

	// ErrSourceRead indicates a record file could not be read or decoded.
	// The unit's fingerprint is not advanced, so the next change retries it.
	ErrSourceRead = errors.New("source read failed")

	// ErrEmbedding indicates the embedding gateway was unreachable or rejected input.
	// Chunks of the failing batch are not upserted.
	ErrEmbedding = errors.New("embedding failed")

	// ErrIndexWrite indicates the vector database rejected or failed a write or query.
	ErrIndexWrite = errors.New("index write failed")

	// ErrSchema indicates the collection could not be ensured.
	// This is fatal at startup: nothing may be watched or served.
	ErrSchema = errors.New("schema error")

	// ErrRateLimited indicates a provider rejected a request for exceeding its quota.
	ErrRateLimited = errors.New("rate limited")

	// Availability Errors.

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
)

// IsRetryable reports whether a failure may succeed on a later attempt.
// Schema and input errors need operator action; everything else, timeouts
// included, is retried at the next change notification or restart.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSchema) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	return true
}

// IsTimeout reports whether err was caused by a deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// UpsertError reports a partially applied UpsertChunks call.
// Points written before the failing batch stay written; re-running the
// same chunks overwrites them in place.
type UpsertError struct {
	// Written is the number of chunks stored before the failure.
	Written int

	// Total is the number of chunks in the call.
	Total int

	// Err is the underlying failure, wrapping ErrEmbedding or ErrIndexWrite.
	Err error
}

// Error implements error.
func (e *UpsertError) Error() string {
	return fmt.Sprintf("upserted %d/%d chunks: %v", e.Written, e.Total, e.Err)
}

// Unwrap returns the underlying failure.
func (e *UpsertError) Unwrap() error {
	return e.Err
}

// RateLimitError is a rate-limit rejection carrying the provider's
// requested backoff. It matches both ErrRateLimited and Err.
type RateLimitError struct {
	// RetryAfter is the requested wait, or zero when unknown.
	RetryAfter time.Duration

	// Err is the provider error.
	Err error
}

// Error implements error.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

// Unwrap returns ErrRateLimited and the provider error.
func (e *RateLimitError) Unwrap() []error {
	return []error{ErrRateLimited, e.Err}
}
