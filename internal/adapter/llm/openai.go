package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"docagent/internal/domain"
	"docagent/internal/port"
)

// Provider defaults for OpenAI-compatible chat endpoints.
var providerDefaults = map[string]struct {
	baseURL   string
	keyEnvVar string
}{
	"ollama":   {"http://localhost:11434/v1", ""},
	"openai":   {"https://api.openai.com/v1", "OPENAI_API_KEY"},
	"deepseek": {"https://api.deepseek.com/v1", "DEEPSEEK_API_KEY"},
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// backend is one configured OpenAI-compatible chat endpoint.
type backend struct {
	baseURL string
	apiKey  string
	model   string
}

// Registry maps model ids to chat backends. Switching ids between calls is
// always legal; the registry holds no mutable state beyond its table.
type Registry struct {
	backends    map[string]backend
	client      *http.Client
	maxTokens   int
	temperature float64
}

// BackendSpec describes one registry entry.
type BackendSpec struct {
	ID        string
	Provider  string
	Model     string
	BaseURL   string
	APIKeyEnv string
}

// NewRegistry builds a registry from the configured model list. Hosted
// providers require their API key environment variable to be set.
func NewRegistry(specs []BackendSpec, maxTokens int, temperature float64) (*Registry, error) {
	r := &Registry{
		backends:    make(map[string]backend, len(specs)),
		client:      &http.Client{},
		maxTokens:   maxTokens,
		temperature: temperature,
	}

	for _, spec := range specs {
		defaults, known := providerDefaults[spec.Provider]
		if !known && spec.BaseURL == "" {
			return nil, fmt.Errorf("%w: unknown provider %q for model %q (set base_url for custom endpoints)",
				domain.ErrInvalidConfiguration, spec.Provider, spec.ID)
		}

		baseURL := spec.BaseURL
		if baseURL == "" {
			baseURL = defaults.baseURL
		}

		keyEnv := spec.APIKeyEnv
		if keyEnv == "" && known {
			keyEnv = defaults.keyEnvVar
		}
		apiKey := "ollama"
		if keyEnv != "" {
			apiKey = os.Getenv(keyEnv)
			if apiKey == "" {
				return nil, fmt.Errorf("%w: API key for model %q not found in environment variable %s",
					domain.ErrInvalidConfiguration, spec.ID, keyEnv)
			}
		}

		r.backends[spec.ID] = backend{
			baseURL: baseURL,
			apiKey:  apiKey,
			model:   spec.Model,
		}
	}

	return r, nil
}

// ModelIDs returns the registered model identities.
func (r *Registry) ModelIDs() []string {
	ids := make([]string, 0, len(r.backends))
	for id := range r.backends {
		ids = append(ids, id)
	}
	return ids
}

// Generate runs one chat completion against the backend selected by
// req.ModelID. It never retries; retry policy belongs to the caller.
func (r *Registry) Generate(ctx context.Context, req port.GenerateRequest) (string, error) {
	be, ok := r.backends[req.ModelID]
	if !ok {
		return "", fmt.Errorf("%w: unknown model id %q", domain.ErrInvalidConfiguration, req.ModelID)
	}

	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: domain.RoleSystem, Content: req.SystemPrompt})
	}
	for _, turn := range req.History {
		if turn.Role != domain.RoleUser && turn.Role != domain.RoleAssistant {
			continue
		}
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Text})
	}
	messages = append(messages, chatMessage{Role: domain.RoleUser, Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       be.model,
		Messages:    messages,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, be.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+be.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", domain.ErrGenerationTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", domain.ErrGenerationTimeout, err)
		}
		return "", fmt.Errorf("%w: failed to read response: %v", domain.ErrGenerationUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrGenerationUnavailable,
			resp.StatusCode, truncate(string(respBody), 200))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("%w: failed to parse response: %v", domain.ErrGenerationUnavailable, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrGenerationUnavailable, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", domain.ErrGenerationUnavailable)
	}

	return chatResp.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
