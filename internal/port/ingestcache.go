package port

import "docagent/internal/domain"

// IngestCache is the content-addressed store that lets ingestion skip
// re-chunking and re-embedding of previously seen documents. It is an
// optimization only: a cold cache must produce the same end state as a
// warm one.
type IngestCache interface {
	// Lookup returns the cached (chunk, vector) pairs for the key, or
	// false on a miss.
	Lookup(key string) ([]domain.EmbeddedChunk, bool, error)

	// Store records the pairs under the key. Called only after a fully
	// successful ingestion.
	Store(key string, pairs []domain.EmbeddedChunk) error
}
