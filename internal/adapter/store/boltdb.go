package store

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"docagent/internal/domain"
)

var (
	bucketDocs      = []byte("docs")
	bucketChunks    = []byte("chunks")
	bucketDocChunks = []byte("doc_chunks")
	bucketVectors   = []byte("vectors")
	bucketCache     = []byte("ingest_cache")
	bucketHistory   = []byte("history")
	bucketSchema    = []byte("schema")
)

// BoltStore owns the single bbolt database holding documents, chunks,
// vectors, the ingestion cache, and the conversation log.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocs, bucketChunks, bucketDocChunks, bucketVectors, bucketCache, bucketHistory, bucketSchema}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

type docMeta struct {
	Source     string `json:"source"`
	Chunks     int    `json:"chunks"`
	IngestedAt int64  `json:"ingested_at"`
}

type chunkMeta struct {
	DocFingerprint string `json:"doc"`
	Seq            int    `json:"seq"`
	Text           string `json:"text"`
	Start          int    `json:"start"`
	End            int    `json:"end"`
}

// PutDocument records document metadata keyed by fingerprint.
func (s *BoltStore) PutDocument(fingerprint, source string, chunks int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		meta := docMeta{
			Source:     source,
			Chunks:     chunks,
			IngestedAt: time.Now().Unix(),
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketDocs).Put([]byte(fingerprint), data)
	})
}

// DocumentInfo is the stored view of one ingested document.
type DocumentInfo struct {
	Fingerprint string
	Source      string
	Chunks      int
	IngestedAt  time.Time
}

func (s *BoltStore) GetDocument(fingerprint string) (DocumentInfo, bool, error) {
	var info DocumentInfo
	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(fingerprint))
		if data == nil {
			return nil
		}
		var meta docMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		info = DocumentInfo{
			Fingerprint: fingerprint,
			Source:      meta.Source,
			Chunks:      meta.Chunks,
			IngestedAt:  time.Unix(meta.IngestedAt, 0),
		}
		found = true
		return nil
	})
	return info, found, err
}

func (s *BoltStore) DeleteDocument(fingerprint string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).Delete([]byte(fingerprint))
	})
}

func (s *BoltStore) ListDocuments() ([]DocumentInfo, error) {
	var docs []DocumentInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			docs = append(docs, DocumentInfo{
				Fingerprint: string(k),
				Source:      meta.Source,
				Chunks:      meta.Chunks,
				IngestedAt:  time.Unix(meta.IngestedAt, 0),
			})
			return nil
		})
	})
	return docs, err
}

// FindBySource returns the fingerprint currently indexed under a source
// name, if any. Used to supersede re-uploads.
func (s *BoltStore) FindBySource(source string) (string, bool, error) {
	var fingerprint string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var meta docMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return err
			}
			if meta.Source == source {
				fingerprint = string(k)
			}
			return nil
		})
	})
	return fingerprint, fingerprint != "", err
}

// PutChunks stores chunk payloads and the document→chunk index.
func (s *BoltStore) PutChunks(chunks []domain.Chunk) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketChunks)
		dcb := tx.Bucket(bucketDocChunks)

		for _, chunk := range chunks {
			meta := chunkMeta{
				DocFingerprint: chunk.DocFingerprint,
				Seq:            chunk.Seq,
				Text:           chunk.Text,
				Start:          chunk.Start,
				End:            chunk.End,
			}
			data, err := json.Marshal(meta)
			if err != nil {
				return err
			}
			if err := cb.Put([]byte(chunk.ID), data); err != nil {
				return err
			}
			key := fmt.Sprintf("%s/%s", chunk.DocFingerprint, chunk.ID)
			if err := dcb.Put([]byte(key), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) GetChunk(id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("chunk not found: %s", id)
		}
		var meta chunkMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return err
		}
		chunk = domain.Chunk{
			ID:             id,
			DocFingerprint: meta.DocFingerprint,
			Seq:            meta.Seq,
			Text:           meta.Text,
			Start:          meta.Start,
			End:            meta.End,
		}
		return nil
	})
	return chunk, err
}

// DeleteChunksByDocument removes a document's chunk payloads and index
// entries.
func (s *BoltStore) DeleteChunksByDocument(fingerprint string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		cb := tx.Bucket(bucketChunks)
		dcb := tx.Bucket(bucketDocChunks)

		prefix := []byte(fingerprint + "/")
		var keys [][]byte
		c := dcb.Cursor()
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := cb.Delete(k[len(prefix):]); err != nil {
				return err
			}
			if err := dcb.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Stats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.TotalDocs = tx.Bucket(bucketDocs).Stats().KeyN
		stats.TotalChunks = tx.Bucket(bucketChunks).Stats().KeyN
		return nil
	})
	return stats, err
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
