package usecase

import (
	"context"
	"testing"

	"docagent/internal/adapter/extract"
)

func newRetrieveEnv(t *testing.T) (*ingestEnv, *RetrieveUseCase) {
	t.Helper()
	env := newIngestEnv(t)
	return env, NewRetrieveUseCase(env.store, env.vectors, env.embedder)
}

func TestRetrieveFindsExactMatch(t *testing.T) {
	env, retrieve := newRetrieveEnv(t)
	ctx := context.Background()

	// Short texts stay single-chunk, so a query identical to a
	// document embeds to the same vector.
	docs := map[string]string{
		"a.txt": "How to configure the embedding backend.",
		"b.txt": "Steps for rotating the API credentials.",
		"c.txt": "Notes from the quarterly planning meeting.",
	}
	for source, text := range docs {
		if _, err := env.ingest.IngestBytes(ctx, []byte(text), source, extract.FormatText); err != nil {
			t.Fatalf("ingest %s: %v", source, err)
		}
	}

	results, err := retrieve.Retrieve(ctx, "How to configure the embedding backend.", 3, 0.99)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want exactly the identical chunk", len(results))
	}
	if results[0].Chunk.Text != docs["a.txt"] {
		t.Errorf("top chunk = %q, want the matching document", results[0].Chunk.Text)
	}
	if results[0].Score < 0.99 {
		t.Errorf("top score = %f, want ~1.0", results[0].Score)
	}
}

func TestRetrieveThreshold(t *testing.T) {
	env, retrieve := newRetrieveEnv(t)
	ctx := context.Background()

	if _, err := env.ingest.IngestBytes(ctx, []byte("Completely unrelated text."), "a.txt", extract.FormatText); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// An impossible threshold yields an empty result, not an error.
	results, err := retrieve.Retrieve(ctx, "something else entirely", 3, 1.01)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results above impossible threshold: %d", len(results))
	}

	// Threshold zero admits everything up to k.
	results, err = retrieve.Retrieve(ctx, "something else entirely", 3, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	_, retrieve := newRetrieveEnv(t)

	results, err := retrieve.Retrieve(context.Background(), "anything", 3, 0.5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("empty index returned %d results", len(results))
	}
}

func TestRetrieveOrdering(t *testing.T) {
	env, retrieve := newRetrieveEnv(t)
	ctx := context.Background()

	texts := []string{
		"alpha beta gamma",
		"alpha beta delta",
		"zeta eta theta",
	}
	for i, text := range texts {
		source := string(rune('a'+i)) + ".txt"
		if _, err := env.ingest.IngestBytes(ctx, []byte(text), source, extract.FormatText); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}

	results, err := retrieve.Retrieve(ctx, "alpha beta gamma", 3, 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not in descending score order at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
	if results[0].Chunk.Text != texts[0] {
		t.Errorf("top chunk = %q, want the exact match", results[0].Chunk.Text)
	}
}
