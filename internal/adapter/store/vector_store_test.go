package store

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"docagent/internal/domain"
	"docagent/internal/port"
)

func openTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	st, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st, path
}

func testItems() []port.VectorItem {
	return []port.VectorItem{
		{ID: "c1", DocFingerprint: "docA", Seq: 0, Vector: []float32{1, 0, 0}},
		{ID: "c2", DocFingerprint: "docA", Seq: 1, Vector: []float32{0.9, 0.1, 0}},
		{ID: "c3", DocFingerprint: "docB", Seq: 0, Vector: []float32{0, 1, 0}},
		{ID: "c4", DocFingerprint: "docB", Seq: 1, Vector: []float32{0, 0, 1}},
	}
}

func TestVectorStoreSearchOrdering(t *testing.T) {
	st, _ := openTestStore(t)
	vs, err := NewBoltVectorStore(st, "test-model", 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := vs.Insert(testItems()); err != nil {
		t.Fatal(err)
	}

	results, err := vs.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "c1" {
		t.Errorf("best result should be c1, got %s", results[0].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("results are not in descending score order")
	}
	if math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("identical vector should score 1.0, got %f", results[0].Score)
	}
}

func TestVectorStoreEmptySearch(t *testing.T) {
	st, _ := openTestStore(t)
	vs, err := NewBoltVectorStore(st, "test-model", 3)
	if err != nil {
		t.Fatal(err)
	}

	results, err := vs.Search([]float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("empty index should return empty results, got %d", len(results))
	}
}

func TestVectorStoreClampsK(t *testing.T) {
	st, _ := openTestStore(t)
	vs, err := NewBoltVectorStore(st, "test-model", 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := vs.Insert(testItems()); err != nil {
		t.Fatal(err)
	}

	results, err := vs.Search([]float32{1, 0, 0}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Errorf("k should clamp to stored entries (4), got %d", len(results))
	}
}

func TestVectorStorePersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	st, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	vs, err := NewBoltVectorStore(st, "test-model", 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := vs.Insert(testItems()); err != nil {
		t.Fatal(err)
	}

	query := []float32{0.5, 0.5, 0}
	before, err := vs.Search(query, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: load(persist()) must return identical ordered results.
	st2, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()
	vs2, err := NewBoltVectorStore(st2, "test-model", 3)
	if err != nil {
		t.Fatal(err)
	}

	after, err := vs2.Search(query, 4)
	if err != nil {
		t.Fatal(err)
	}

	if len(before) != len(after) {
		t.Fatalf("result counts differ: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Errorf("result %d: ID %s vs %s", i, before[i].ID, after[i].ID)
		}
		if math.Abs(before[i].Score-after[i].Score) > 1e-9 {
			t.Errorf("result %d: score %f vs %f", i, before[i].Score, after[i].Score)
		}
	}
}

func TestVectorStoreModelIdentityMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	st, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewBoltVectorStore(st, "model-a", 3); err != nil {
		t.Fatal(err)
	}
	st.Close()

	st2, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()

	if _, err := NewBoltVectorStore(st2, "model-b", 3); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected identity mismatch to fail open, got %v", err)
	}

	// Rebuild re-tags the index for the new model.
	if err := st2.Rebuild("model-b", 3); err != nil {
		t.Fatal(err)
	}
	if _, err := NewBoltVectorStore(st2, "model-b", 3); err != nil {
		t.Errorf("open after rebuild failed: %v", err)
	}
}

func TestVectorStoreInsertDimensionMismatch(t *testing.T) {
	st, _ := openTestStore(t)
	vs, err := NewBoltVectorStore(st, "test-model", 3)
	if err != nil {
		t.Fatal(err)
	}

	err = vs.Insert([]port.VectorItem{{ID: "bad", Vector: []float32{1, 2}}})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if n, _ := vs.Count(); n != 0 {
		t.Errorf("failed insert must not leave entries, got %d", n)
	}
}

func TestVectorStoreDeleteByDocument(t *testing.T) {
	st, _ := openTestStore(t)
	vs, err := NewBoltVectorStore(st, "test-model", 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := vs.Insert(testItems()); err != nil {
		t.Fatal(err)
	}
	gen := vs.Generation()

	if err := vs.DeleteByDocument("docA"); err != nil {
		t.Fatal(err)
	}
	if n, _ := vs.Count(); n != 2 {
		t.Errorf("expected 2 entries after delete, got %d", n)
	}
	if vs.Generation() == gen {
		t.Error("delete should bump the generation")
	}

	results, err := vs.Search([]float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range results {
		if r.DocFingerprint == "docA" {
			t.Errorf("entry %s from deleted document still present", r.ID)
		}
	}
}
