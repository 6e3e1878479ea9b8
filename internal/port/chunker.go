package port

import "docagent/internal/domain"

// Chunker splits document text into overlapping passages. Implementations
// must be deterministic: the same text under the same configuration always
// yields the same ordered chunks.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Chunk, error)

	// Config returns the configuration the chunker was built with, used
	// as part of cache keys.
	Config() domain.ChunkConfig
}
