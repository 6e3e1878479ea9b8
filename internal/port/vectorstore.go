package port

// VectorStore stores chunk vectors and supports k-nearest-neighbor search
// under cosine similarity. The store is scoped to a single embedding model
// identity; see Identity. Writers must not overlap with each other
// (single-writer discipline); reads during a write are safe.
type VectorStore interface {
	// Insert adds entries to the store and persists them.
	Insert(items []VectorItem) error

	// Search returns up to k entries nearest to query, best first.
	// k is clamped to the number of stored entries; an empty store
	// yields an empty result, not an error.
	Search(query []float32, k int) ([]VectorResult, error)

	// DeleteByDocument removes every entry owned by the given document
	// fingerprint.
	DeleteByDocument(fingerprint string) error

	// Count returns the number of stored entries.
	Count() (int, error)

	// Identity returns the embedding model identity and dimension the
	// store is tagged with.
	Identity() (model string, dimension int)

	// Generation increments on every write; retrieval caches use it to
	// detect staleness.
	Generation() uint64
}

// VectorItem is one entry to be stored.
type VectorItem struct {
	ID             string
	DocFingerprint string
	Seq            int
	Vector         []float32
}

// VectorResult is one search hit.
type VectorResult struct {
	ID             string
	DocFingerprint string
	Seq            int
	Score          float64
}
