package port

import (
	"context"

	"docagent/internal/domain"
)

// GenerateRequest carries everything one synthesis call needs. ModelID
// selects the backend; switching it between calls is always legal and has
// no effect on the index or cache.
type GenerateRequest struct {
	ModelID      string
	SystemPrompt string
	Prompt       string
	History      []domain.Turn
}

// LLM generates text. Implementations do not retry: a prompt may embed
// side-effecting tool output, and retry policy belongs to the caller.
type LLM interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}
