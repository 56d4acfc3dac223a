package driving

import (
	"context"

	"github.com/Andres10976/huli-project-medical-RAG/internal/core/domain"
)

// SearchService provides patient-scoped retrieval to external actors.
type SearchService interface {
	// Search returns the chunks of one patient most relevant to query.
	// opts.PatientID is required.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.RetrievedChunk, error)
}
