package usecase

import (
	"context"
	"fmt"

	"docagent/internal/adapter/store"
	"docagent/internal/domain"
	"docagent/internal/port"
)

// RetrieveUseCase answers similarity queries over the indexed chunks. It
// implements port.Retriever; wrap it in cache.NewCachedRetriever to add
// the query cache.
type RetrieveUseCase struct {
	store    *store.BoltStore
	vectors  port.VectorStore
	embedder port.Embedder
}

func NewRetrieveUseCase(st *store.BoltStore, vectors port.VectorStore, embedder port.Embedder) *RetrieveUseCase {
	return &RetrieveUseCase{
		store:    st,
		vectors:  vectors,
		embedder: embedder,
	}
}

// Retrieve embeds the query, searches the index, and returns the hydrated
// chunks scoring at or above minScore, best first. An empty result means
// nothing relevant is indexed.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, query string, k int, minScore float64) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := u.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := u.vectors.Search(vectors[0], k)
	if err != nil {
		return nil, err
	}

	var results []domain.ScoredChunk
	for _, hit := range hits {
		if hit.Score < minScore {
			// Hits come back best first; everything after this
			// one is below the threshold too.
			break
		}
		chunk, err := u.store.GetChunk(hit.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load chunk %s: %w", hit.ID, err)
		}
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: hit.Score})
	}

	return results, nil
}
