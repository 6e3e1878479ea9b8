package store

import (
	"encoding/binary"
	"encoding/json"

	"go.etcd.io/bbolt"

	"docagent/internal/domain"
)

// BoltHistory is the append-only conversation log. Keys are the bucket
// sequence number, so iteration order is chronological. Turns are never
// edited in place.
type BoltHistory struct {
	store *BoltStore
}

func NewBoltHistory(store *BoltStore) *BoltHistory {
	return &BoltHistory{store: store}
}

func (h *BoltHistory) Append(turn domain.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	return h.store.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketHistory)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// Recent returns up to n most recent turns in chronological order.
func (h *BoltHistory) Recent(n int) ([]domain.Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	var turns []domain.Turn
	err := h.store.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketHistory).Cursor()
		for k, v := c.Last(); k != nil && len(turns) < n; k, v = c.Prev() {
			var turn domain.Turn
			if err := json.Unmarshal(v, &turn); err != nil {
				return err
			}
			turns = append(turns, turn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (h *BoltHistory) Export() ([]domain.Turn, error) {
	var turns []domain.Turn
	err := h.store.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHistory).ForEach(func(_, v []byte) error {
			var turn domain.Turn
			if err := json.Unmarshal(v, &turn); err != nil {
				return err
			}
			turns = append(turns, turn)
			return nil
		})
	})
	return turns, err
}

func (h *BoltHistory) Clear() error {
	return h.store.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketHistory); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketHistory)
		return err
	})
}
