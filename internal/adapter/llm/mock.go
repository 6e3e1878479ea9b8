package llm

import (
	"context"

	"docagent/internal/port"
)

// Mock is a scriptable LLM for tests. Respond is called per request; when
// nil, the mock echoes the model id.
type Mock struct {
	Respond func(req port.GenerateRequest) (string, error)
	Calls   []port.GenerateRequest
}

func (m *Mock) Generate(ctx context.Context, req port.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.Calls = append(m.Calls, req)
	if m.Respond != nil {
		return m.Respond(req)
	}
	return "response from " + req.ModelID, nil
}
