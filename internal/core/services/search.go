package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
	"github.com/Andres10976/huli-project-medical-RAG/internal/core/ports/driving"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService validates retrieval requests and runs them on the index.
type SearchService struct {
	index *IndexService
}

// NewSearchService creates a new search service.
func NewSearchService(index *IndexService) *SearchService {
	return &SearchService{index: index}
}

// Search returns the chunks of one patient most relevant to query.
// A blank query returns no results.
func (s *SearchService) Search(
	ctx context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.RetrievedChunk, error) {
	opts.PatientID = strings.TrimSpace(opts.PatientID)
	if opts.PatientID == "" {
		return nil, fmt.Errorf("%w: patient id is required", domain.ErrInvalidInput)
	}
	if opts.EventType != "" && !opts.EventType.IsValid() {
		return nil, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, opts.EventType)
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}
	if opts.Limit == 0 {
		opts.Limit = domain.DefaultSearchLimit
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievedChunk{}, nil
	}
	if s.index == nil {
		return nil, domain.ErrVectorStoreUnavailable
	}

	return s.index.Search(ctx, domain.SearchQuery{Text: query, SearchOptions: opts})
}
