package port

import (
	"context"

	"docagent/internal/domain"
)

// Retriever returns the chunks most relevant to a query, best first.
// An empty result means no chunk cleared the relevance threshold; it is
// the orchestrator's signal that there is no useful document context.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, minScore float64) ([]domain.ScoredChunk, error)
}
