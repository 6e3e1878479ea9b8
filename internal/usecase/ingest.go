// Package usecase wires the adapters into the agent's operations:
// ingestion, retrieval, prompt assembly, and the answer orchestrator.
package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"docagent/internal/adapter/extract"
	"docagent/internal/adapter/fs"
	"docagent/internal/adapter/store"
	"docagent/internal/domain"
	"docagent/internal/logger"
	"docagent/internal/port"
)

// IngestUseCase turns raw documents into indexed, searchable chunks.
type IngestUseCase struct {
	store     *store.BoltStore
	vectors   port.VectorStore
	chunker   port.Chunker
	embedder  port.Embedder
	extractor port.Extractor
	cache     port.IngestCache

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewIngestUseCase(
	st *store.BoltStore,
	vectors port.VectorStore,
	chunker port.Chunker,
	embedder port.Embedder,
	extractor port.Extractor,
	cache port.IngestCache,
) *IngestUseCase {
	return &IngestUseCase{
		store:     st,
		vectors:   vectors,
		chunker:   chunker,
		embedder:  embedder,
		extractor: extractor,
		cache:     cache,
		locks:     make(map[string]*sync.Mutex),
	}
}

// fingerprintLock serializes concurrent ingestions of the same content so
// the second arrival observes the first one's completed state.
func (u *IngestUseCase) fingerprintLock(fingerprint string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	l, ok := u.locks[fingerprint]
	if !ok {
		l = &sync.Mutex{}
		u.locks[fingerprint] = l
	}
	return l
}

// Fingerprint is the content identity of a document: the hex SHA-256 of
// its raw bytes.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// IngestBytes ingests one document from raw bytes. Re-ingesting identical
// content is a no-op; re-ingesting a changed document under the same
// source replaces the old version atomically from the reader's view.
func (u *IngestUseCase) IngestBytes(ctx context.Context, raw []byte, source, format string) (domain.IngestResult, error) {
	fingerprint := Fingerprint(raw)
	result := domain.IngestResult{Fingerprint: fingerprint, Source: source}

	l := u.fingerprintLock(fingerprint)
	l.Lock()
	defer l.Unlock()

	if info, ok, err := u.store.GetDocument(fingerprint); err != nil {
		return result, err
	} else if ok {
		result.Chunks = info.Chunks
		result.FromCache = true
		return result, nil
	}

	// Same source, different content: the old version is superseded.
	if oldFp, ok, err := u.store.FindBySource(source); err != nil {
		return result, err
	} else if ok && oldFp != fingerprint {
		if err := u.removeDocument(oldFp); err != nil {
			return result, fmt.Errorf("failed to supersede %s: %w", source, err)
		}
		result.Superseded = true
		logger.Infof("superseded previous version of %s", source)
	}

	key := store.CacheKey(fingerprint, u.chunker.Config(), u.embedder.ModelName())

	pairs, hit, err := u.cache.Lookup(key)
	if err != nil {
		return result, err
	}
	if hit {
		result.FromCache = true
		logger.Debugf("ingest cache hit for %s", source)
	} else {
		pairs, err = u.chunkAndEmbed(ctx, raw, source, format, fingerprint)
		if err != nil {
			return result, err
		}
	}

	chunks := make([]domain.Chunk, len(pairs))
	items := make([]port.VectorItem, len(pairs))
	for i, p := range pairs {
		chunks[i] = p.Chunk
		items[i] = port.VectorItem{
			ID:             p.Chunk.ID,
			DocFingerprint: p.Chunk.DocFingerprint,
			Seq:            p.Chunk.Seq,
			Vector:         p.Vector,
		}
	}

	if err := u.store.PutChunks(chunks); err != nil {
		return result, err
	}
	if err := u.vectors.Insert(items); err != nil {
		return result, err
	}
	if err := u.store.PutDocument(fingerprint, source, len(chunks)); err != nil {
		return result, err
	}

	// Cache only a fully landed ingestion, so a crash mid-way leaves a
	// clean miss rather than a lie.
	if !hit {
		if err := u.cache.Store(key, pairs); err != nil {
			logger.Warnf("failed to store ingest cache entry: %v", err)
		}
	}

	result.Chunks = len(chunks)
	return result, nil
}

func (u *IngestUseCase) chunkAndEmbed(ctx context.Context, raw []byte, source, format, fingerprint string) ([]domain.EmbeddedChunk, error) {
	text, err := u.extractor.Extract(raw, format)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s: %w", source, err)
	}

	chunks, err := u.chunker.Chunk(domain.Document{
		Fingerprint: fingerprint,
		Source:      source,
		Text:        text,
	})
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %s: %w", source, err)
	}

	pairs := make([]domain.EmbeddedChunk, len(chunks))
	for i := range chunks {
		pairs[i] = domain.EmbeddedChunk{Chunk: chunks[i], Vector: vectors[i]}
	}
	return pairs, nil
}

func (u *IngestUseCase) removeDocument(fingerprint string) error {
	if err := u.vectors.DeleteByDocument(fingerprint); err != nil {
		return err
	}
	if err := u.store.DeleteChunksByDocument(fingerprint); err != nil {
		return err
	}
	return u.store.DeleteDocument(fingerprint)
}

// IngestFile reads and ingests a single file, inferring the format from
// its extension.
func (u *IngestUseCase) IngestFile(ctx context.Context, path string) (domain.IngestResult, error) {
	raw, err := fs.ReadFile(path)
	if err != nil {
		return domain.IngestResult{Source: path}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return u.IngestBytes(ctx, raw, path, extract.FormatForPath(path))
}

// DirResult summarizes a directory ingestion.
type DirResult struct {
	Files      int
	FromCache  int
	Superseded int
	Chunks     int
	Errors     []string
}

// IngestDir walks root and ingests every matching file. onFile, if
// non-nil, is called after each file for progress reporting. Per-file
// failures are collected, not fatal.
func (u *IngestUseCase) IngestDir(ctx context.Context, root string, walker port.FileWalker, onFile func(path string)) (*DirResult, error) {
	files, err := walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	result := &DirResult{}
	for _, f := range files {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		r, err := u.IngestFile(ctx, f.Path)
		if err != nil {
			logger.Warnf("skipping %s: %v", f.Path, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Path, err))
		} else {
			result.Files++
			result.Chunks += r.Chunks
			if r.FromCache {
				result.FromCache++
			}
			if r.Superseded {
				result.Superseded++
			}
		}
		if onFile != nil {
			onFile(f.Path)
		}
	}
	return result, nil
}
