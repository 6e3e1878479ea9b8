package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"docagent/internal/domain"
	"docagent/internal/port"
)

// BoltVectorStore is the durable vector index: bbolt for persistence, an
// in-memory copy for brute-force cosine search. Reopening the database
// reloads the same entries, so search results survive a restart
// bit-for-bit. Similarity metric: cosine, at build and query time alike.
//
// Writers must not overlap (single-writer discipline, serialized by the
// ingestion pipeline); the RWMutex makes reads during a write safe.
type BoltVectorStore struct {
	store     *BoltStore
	model     string
	dimension int

	mu      sync.RWMutex
	vectors map[string]vectorEntry
	gen     uint64
}

type vectorEntry struct {
	vector         []float32
	docFingerprint string
	seq            int
}

type storedVector struct {
	Vector         []float32 `json:"v"`
	DocFingerprint string    `json:"d"`
	Seq            int       `json:"s"`
}

// NewBoltVectorStore opens the vector index scoped to one embedding model
// identity. It fails if the persisted index was built by a different model
// or dimension; the caller decides whether to rebuild.
func NewBoltVectorStore(store *BoltStore, model string, dimension int) (*BoltVectorStore, error) {
	ok, reason, err := store.CheckIdentity(model, dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to check index identity: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s (rebuild the index to switch models)",
			domain.ErrDimensionMismatch, reason)
	}

	vs := &BoltVectorStore{
		store:     store,
		model:     model,
		dimension: dimension,
		vectors:   make(map[string]vectorEntry),
	}

	if err := vs.loadVectors(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	return vs, nil
}

func (s *BoltVectorStore) loadVectors() error {
	return s.store.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketVectors).ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt vector entry %s: %w", k, err)
			}
			s.vectors[string(k)] = vectorEntry{
				vector:         stored.Vector,
				docFingerprint: stored.DocFingerprint,
				seq:            stored.Seq,
			}
			return nil
		})
	})
}

// Insert adds entries and persists them in one transaction. Dimension is
// validated defensively even though the embedder checks it too.
func (s *BoltVectorStore) Insert(items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, item := range items {
			if len(item.Vector) != s.dimension {
				return fmt.Errorf("%w: expected %d, got %d",
					domain.ErrDimensionMismatch, s.dimension, len(item.Vector))
			}
			data, err := json.Marshal(storedVector{
				Vector:         item.Vector,
				DocFingerprint: item.DocFingerprint,
				Seq:            item.Seq,
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, item := range items {
		s.vectors[item.ID] = vectorEntry{
			vector:         item.Vector,
			docFingerprint: item.DocFingerprint,
			seq:            item.Seq,
		}
	}
	s.gen++
	return nil
}

// Search returns the k nearest entries by cosine similarity, best first.
// k is clamped; an empty index yields an empty result.
func (s *BoltVectorStore) Search(query []float32, k int) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d",
			domain.ErrDimensionMismatch, len(query), s.dimension)
	}
	if len(s.vectors) == 0 || k <= 0 {
		return nil, nil
	}

	results := make([]port.VectorResult, 0, len(s.vectors))
	for id, entry := range s.vectors {
		results = append(results, port.VectorResult{
			ID:             id,
			DocFingerprint: entry.docFingerprint,
			Seq:            entry.seq,
			Score:          cosineSimilarity(query, entry.vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// DeleteByDocument removes every entry owned by the fingerprint.
func (s *BoltVectorStore) DeleteByDocument(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, entry := range s.vectors {
		if entry.docFingerprint == fingerprint {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	err := s.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		delete(s.vectors, id)
	}
	s.gen++
	return nil
}

func (s *BoltVectorStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors), nil
}

func (s *BoltVectorStore) Identity() (string, int) {
	return s.model, s.dimension
}

func (s *BoltVectorStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// cosineSimilarity calculates the cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
