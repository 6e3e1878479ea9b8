package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts, one vector per
	// input text, order preserved. A failure anywhere fails the whole
	// call; callers must not assume partial success.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the embedding model identity. Vectors from
	// different identities are never comparable.
	ModelName() string
}
