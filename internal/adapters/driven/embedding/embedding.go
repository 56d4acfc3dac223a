// Package embedding holds helpers shared by the embedding provider adapters.
// Each provider lives in its own subpackage.
package embedding

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// maxErrorBody caps how much of an error response is echoed back.
const maxErrorBody = 2048

// ResponseError converts a non-2xx provider response into an error.
// 429 responses become *domain.RateLimitError honouring Retry-After.
func ResponseError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := fmt.Errorf("%s: API returned status %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusTooManyRequests {
		return &domain.RateLimitError{RetryAfter: RetryAfter(resp.Header.Get("Retry-After")), Err: err}
	}
	return err
}

// RetryAfter parses a Retry-After header given in seconds or as an HTTP date.
// Unparseable or past values yield zero.
func RetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

// ToFloat32 narrows a float64 vector.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
