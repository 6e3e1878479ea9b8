package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docagent/internal/domain"
)

// BoltIngestCache is the content-addressed ingestion cache: the key binds
// document fingerprint, chunking configuration, and embedding model
// identity, so any change to those misses rather than invalidating state.
type BoltIngestCache struct {
	store *BoltStore
}

func NewBoltIngestCache(store *BoltStore) *BoltIngestCache {
	return &BoltIngestCache{store: store}
}

// CacheKey derives the content-addressed key for one ingestion.
func CacheKey(fingerprint string, cfg domain.ChunkConfig, embeddingModel string) string {
	data := fmt.Sprintf("%s|%d|%d|%s", fingerprint, cfg.MaxSize, cfg.Overlap, embeddingModel)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

type cachedPair struct {
	Chunk  domain.Chunk `json:"chunk"`
	Vector []float32    `json:"vector"`
}

func (c *BoltIngestCache) Lookup(key string) ([]domain.EmbeddedChunk, bool, error) {
	var pairs []domain.EmbeddedChunk
	found := false
	err := c.store.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCache).Get([]byte(key))
		if data == nil {
			return nil
		}
		var stored []cachedPair
		if err := json.Unmarshal(data, &stored); err != nil {
			// A corrupt entry behaves as a miss; ingestion rewrites it.
			return nil
		}
		pairs = make([]domain.EmbeddedChunk, len(stored))
		for i, p := range stored {
			pairs[i] = domain.EmbeddedChunk{Chunk: p.Chunk, Vector: p.Vector}
		}
		found = true
		return nil
	})
	return pairs, found, err
}

func (c *BoltIngestCache) Store(key string, pairs []domain.EmbeddedChunk) error {
	stored := make([]cachedPair, len(pairs))
	for i, p := range pairs {
		stored[i] = cachedPair{Chunk: p.Chunk, Vector: p.Vector}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return c.store.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).Put([]byte(key), data)
	})
}
