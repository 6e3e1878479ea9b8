package domain

import "errors"

// Failure taxonomy. Callers match with errors.Is; adapters wrap these with
// context using fmt.Errorf("...: %w", ...).
var (
	// ErrInvalidConfiguration is a caller error (bad chunk sizes, missing
	// model entry). Never retried.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedFormat rejects a document whose declared format has no
	// extractor. Local to that ingestion.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmbeddingUnavailable means the embedding backend could not be
	// reached or returned a failure. The whole batch fails; nothing is
	// partially indexed.
	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")

	// ErrDimensionMismatch means a backend returned vectors whose length
	// disagrees with its declared dimension. Fatal to that ingestion.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrGenerationUnavailable means the generation backend failed.
	ErrGenerationUnavailable = errors.New("generation backend unavailable")

	// ErrGenerationTimeout means the configured generation time budget
	// elapsed. Retry policy belongs to the caller.
	ErrGenerationTimeout = errors.New("generation timed out")

	// Tool failures are never fatal to a turn; the orchestrator records
	// them and continues.
	ErrToolInputInvalid = errors.New("tool input invalid")
	ErrToolUnavailable  = errors.New("tool unavailable")
	ErrToolTimeout      = errors.New("tool timed out")
)
