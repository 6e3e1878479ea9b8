package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is bumped on breaking storage-format changes.
const CurrentSchemaVersion = 1

var keyIndexIdentity = []byte("index_identity")

// IndexIdentity tags the persisted vector index with the embedding model
// that produced its vectors. Vectors from different models are never
// comparable, so a mismatch requires a rebuild, never a silent mix.
type IndexIdentity struct {
	SchemaVersion int    `json:"schema_version"`
	Model         string `json:"model"`
	Dimension     int    `json:"dimension"`
}

func (s *BoltStore) GetIndexIdentity() (*IndexIdentity, error) {
	var identity *IndexIdentity
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSchema).Get(keyIndexIdentity)
		if data == nil {
			return nil
		}
		identity = &IndexIdentity{}
		return json.Unmarshal(data, identity)
	})
	return identity, err
}

func (s *BoltStore) SetIndexIdentity(identity IndexIdentity) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(identity)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSchema).Put(keyIndexIdentity, data)
	})
}

// CheckIdentity reports whether the stored index can serve the given
// embedding model. An untagged (empty) index is claimed by tagging it.
func (s *BoltStore) CheckIdentity(model string, dimension int) (ok bool, reason string, err error) {
	stored, err := s.GetIndexIdentity()
	if err != nil {
		return false, "", err
	}

	if stored == nil {
		err = s.SetIndexIdentity(IndexIdentity{
			SchemaVersion: CurrentSchemaVersion,
			Model:         model,
			Dimension:     dimension,
		})
		return err == nil, "", err
	}

	if reason := stored.Mismatch(model, dimension); reason != "" {
		return false, reason, nil
	}
	return true, "", nil
}

// Mismatch reports why the identity cannot serve the given embedding
// model, or "" when it can. It never writes to the store.
func (id IndexIdentity) Mismatch(model string, dimension int) string {
	if id.SchemaVersion != CurrentSchemaVersion {
		return fmt.Sprintf("schema version %d, expected %d", id.SchemaVersion, CurrentSchemaVersion)
	}
	if id.Model != model {
		return fmt.Sprintf("index built with embedding model %q, configured %q", id.Model, model)
	}
	if id.Dimension != dimension {
		return fmt.Sprintf("index dimension %d, configured %d", id.Dimension, dimension)
	}
	return ""
}

// Rebuild wipes everything derived from embeddings (vectors, chunks,
// documents, ingestion cache) and re-tags the index. Conversation history
// is untouched.
func (s *BoltStore) Rebuild(model string, dimension int) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDocs, bucketChunks, bucketDocChunks, bucketVectors, bucketCache} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.SetIndexIdentity(IndexIdentity{
		SchemaVersion: CurrentSchemaVersion,
		Model:         model,
		Dimension:     dimension,
	})
}
