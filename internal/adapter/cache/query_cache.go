package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sync"
	"time"

	"docagent/internal/domain"
	"docagent/internal/port"
)

// QueryCache memoizes retrieval results. Entries carry the vector index
// generation they were computed against; any index write invalidates them,
// so a stale hit can never surface chunks from a superseded document.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	results   []domain.ScoredChunk
	timestamp time.Time
	indexGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(query string, k int, minScore float64) string {
	data := []byte(query)
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(k))
	binary.BigEndian.PutUint64(buf[8:], math.Float64bits(minScore))
	data = append(data, buf[:]...)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(query string, k int, minScore float64, indexGen uint64) ([]domain.ScoredChunk, bool) {
	key := cacheKey(query, k, minScore)

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if time.Since(entry.timestamp) > c.ttl || entry.indexGen != indexGen {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.moveToEnd(key)
	c.mu.Unlock()

	return entry.results, true
}

func (c *QueryCache) Put(query string, k int, minScore float64, indexGen uint64, results []domain.ScoredChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, k, minScore)

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
		c.order = append(c.order, key)
	} else {
		c.moveToEnd(key)
	}

	c.entries[key] = &cacheEntry{
		results:   results,
		timestamp: time.Now(),
		indexGen:  indexGen,
	}
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedRetriever fronts a retriever with the query cache, keyed to the
// vector store's generation counter.
type CachedRetriever struct {
	retriever port.Retriever
	vectors   port.VectorStore
	cache     *QueryCache
}

func NewCachedRetriever(retriever port.Retriever, vectors port.VectorStore, cache *QueryCache) *CachedRetriever {
	return &CachedRetriever{
		retriever: retriever,
		vectors:   vectors,
		cache:     cache,
	}
}

func (r *CachedRetriever) Retrieve(ctx context.Context, query string, k int, minScore float64) ([]domain.ScoredChunk, error) {
	gen := r.vectors.Generation()

	if results, hit := r.cache.Get(query, k, minScore, gen); hit {
		return results, nil
	}

	results, err := r.retriever.Retrieve(ctx, query, k, minScore)
	if err != nil {
		return nil, err
	}

	r.cache.Put(query, k, minScore, gen, results)
	return results, nil
}
