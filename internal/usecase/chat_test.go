package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"docagent/internal/adapter/classify"
	"docagent/internal/adapter/llm"
	"docagent/internal/domain"
	"docagent/internal/port"
)

type fakeRetriever struct {
	mu      sync.Mutex
	chunks  []domain.ScoredChunk
	err     error
	delay   time.Duration
	queries []string
}

func (r *fakeRetriever) Retrieve(ctx context.Context, query string, k int, minScore float64) ([]domain.ScoredChunk, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.chunks, r.err
}

func (r *fakeRetriever) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

type memHistory struct {
	mu    sync.Mutex
	turns []domain.Turn
}

func (h *memHistory) Append(turn domain.Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	return nil
}

func (h *memHistory) Recent(n int) ([]domain.Turn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.turns) {
		n = len(h.turns)
	}
	out := make([]domain.Turn, n)
	copy(out, h.turns[len(h.turns)-n:])
	return out, nil
}

func (h *memHistory) Export() ([]domain.Turn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Turn, len(h.turns))
	copy(out, h.turns)
	return out, nil
}

func (h *memHistory) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
	return nil
}

type fakeTool struct {
	result string
	err    error
	inputs []string
}

func (t *fakeTool) Name() string        { return "query_weather" }
func (t *fakeTool) Description() string { return "weather lookup" }
func (t *fakeTool) Invoke(_ context.Context, input string) (string, error) {
	t.inputs = append(t.inputs, input)
	if t.err != nil {
		return "", t.err
	}
	return t.result, nil
}

type chatEnv struct {
	retriever *fakeRetriever
	llm       *llm.Mock
	history   *memHistory
	tool      *fakeTool
	chat      *ChatUseCase
}

func newChatEnv(t *testing.T) *chatEnv {
	t.Helper()
	env := &chatEnv{
		retriever: &fakeRetriever{},
		llm:       &llm.Mock{},
		history:   &memHistory{},
		tool:      &fakeTool{result: "Weather in Beijing: Sunny, 25°C"},
	}
	env.chat = NewChatUseCase(
		env.retriever,
		env.llm,
		classify.NewRuleClassifier(),
		env.history,
		NewPromptBuilder(4000),
		ChatConfig{
			DefaultModel:    "qwen3:8b",
			TopK:            3,
			MinScore:        0.7,
			RetrieveTimeout: time.Second,
			GenTimeout:      time.Second,
			MaxHistoryTurns: 5,
		},
	)
	env.chat.RegisterTool(env.tool)
	return env
}

func TestAskDocumentQuestion(t *testing.T) {
	env := newChatEnv(t)
	env.retriever.chunks = []domain.ScoredChunk{
		scored("aaaaaaaaaaaa", "Deployments use the blue-green strategy.", 0.88),
	}

	answer, err := env.chat.Ask(context.Background(), "How do we deploy?", AskOptions{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.State != StateDelivered {
		t.Errorf("state = %s, want DELIVERED", answer.State)
	}
	if answer.Intent != domain.IntentDocument {
		t.Errorf("intent = %s, want document", answer.Intent)
	}
	if len(answer.ToolCalls) != 0 {
		t.Errorf("document question invoked tools: %v", answer.ToolCalls)
	}
	if len(env.tool.inputs) != 0 {
		t.Error("weather tool invoked for a document question")
	}
	if len(env.llm.Calls) != 1 {
		t.Fatalf("generate calls = %d, want 1", len(env.llm.Calls))
	}
	if !strings.Contains(env.llm.Calls[0].Prompt, "blue-green strategy") {
		t.Error("prompt missing retrieved context")
	}
}

func TestAskWeatherQuestion(t *testing.T) {
	env := newChatEnv(t)

	answer, err := env.chat.Ask(context.Background(), "What's the weather in Beijing?", AskOptions{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Intent != domain.IntentTool {
		t.Errorf("intent = %s, want tool", answer.Intent)
	}
	if len(answer.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(answer.ToolCalls))
	}
	if answer.ToolCalls[0].Input != "Beijing" {
		t.Errorf("tool input = %q, want Beijing", answer.ToolCalls[0].Input)
	}
	if env.retriever.callCount() != 0 {
		t.Error("retrieval ran for a pure tool question")
	}
	if !strings.Contains(env.llm.Calls[0].Prompt, "Sunny, 25°C") {
		t.Error("prompt missing tool result")
	}
	if answer.State != StateDelivered {
		t.Errorf("state = %s, want DELIVERED", answer.State)
	}
}

func TestAskToolFailureStillAnswers(t *testing.T) {
	env := newChatEnv(t)
	env.tool.err = fmt.Errorf("%w: connection refused", domain.ErrToolUnavailable)

	answer, err := env.chat.Ask(context.Background(), "What's the weather in Beijing?", AskOptions{})
	if err != nil {
		t.Fatalf("tool failure aborted the turn: %v", err)
	}
	if answer.State != StateDelivered {
		t.Errorf("state = %s, want DELIVERED", answer.State)
	}
	if len(answer.ToolCalls) != 1 || answer.ToolCalls[0].Err == "" {
		t.Fatalf("tool failure not recorded: %+v", answer.ToolCalls)
	}
	if !strings.Contains(env.llm.Calls[0].Prompt, "failed") {
		t.Error("prompt does not mention the tool failure")
	}
}

func TestAskGenerationFailure(t *testing.T) {
	env := newChatEnv(t)
	env.llm.Respond = func(_ port.GenerateRequest) (string, error) {
		return "", fmt.Errorf("%w: backend down", domain.ErrGenerationUnavailable)
	}

	answer, err := env.chat.Ask(context.Background(), "How do we deploy?", AskOptions{})
	if !errors.Is(err, domain.ErrGenerationUnavailable) {
		t.Fatalf("err = %v, want ErrGenerationUnavailable", err)
	}
	if answer.State != StateFailed {
		t.Errorf("state = %s, want FAILED", answer.State)
	}

	turns, _ := env.history.Export()
	last := turns[len(turns)-1]
	if !last.Failed || last.Role != domain.RoleAssistant {
		t.Errorf("failed turn not recorded: %+v", last)
	}
}

func TestAskModelSwitch(t *testing.T) {
	env := newChatEnv(t)

	if _, err := env.chat.Ask(context.Background(), "first question", AskOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.chat.Ask(context.Background(), "second question", AskOptions{ModelID: "deepseek-r1:1.5b"}); err != nil {
		t.Fatal(err)
	}

	if got := env.llm.Calls[0].ModelID; got != "qwen3:8b" {
		t.Errorf("first model = %q, want default", got)
	}
	if got := env.llm.Calls[1].ModelID; got != "deepseek-r1:1.5b" {
		t.Errorf("second model = %q, want deepseek-r1:1.5b", got)
	}
}

func TestAskHistoryExcludesCurrentQuestion(t *testing.T) {
	env := newChatEnv(t)

	if _, err := env.chat.Ask(context.Background(), "first question", AskOptions{}); err != nil {
		t.Fatal(err)
	}
	if len(env.llm.Calls[0].History) != 0 {
		t.Errorf("first call saw history of %d turns", len(env.llm.Calls[0].History))
	}

	if _, err := env.chat.Ask(context.Background(), "second question", AskOptions{}); err != nil {
		t.Fatal(err)
	}
	hist := env.llm.Calls[1].History
	if len(hist) != 2 {
		t.Fatalf("second call history = %d turns, want 2", len(hist))
	}
	if hist[0].Text != "first question" {
		t.Errorf("history[0] = %q", hist[0].Text)
	}
	for _, turn := range hist {
		if turn.Text == "second question" {
			t.Error("current question leaked into its own history")
		}
	}
}

func TestAskDisableRetrieval(t *testing.T) {
	env := newChatEnv(t)
	env.retriever.chunks = []domain.ScoredChunk{scored("aaaaaaaaaaaa", "context", 0.9)}

	answer, err := env.chat.Ask(context.Background(), "How do we deploy?", AskOptions{DisableRetrieval: true})
	if err != nil {
		t.Fatal(err)
	}
	if env.retriever.callCount() != 0 {
		t.Error("retrieval ran despite being disabled")
	}
	if len(answer.Retrieved) != 0 {
		t.Error("answer carries retrieved chunks with retrieval disabled")
	}
	if strings.Contains(env.llm.Calls[0].Prompt, "Reference documents") {
		t.Error("prompt has a context section with retrieval disabled")
	}
}

func TestAskBothPathsRunConcurrently(t *testing.T) {
	env := newChatEnv(t)
	env.retriever.delay = 100 * time.Millisecond
	env.retriever.chunks = []domain.ScoredChunk{
		scored("aaaaaaaaaaaa", "Historical storm patterns in the region.", 0.8),
	}

	// A weather cue without an extractable location routes to both paths.
	start := time.Now()
	answer, err := env.chat.Ask(context.Background(), "Does the report mention anything about weather patterns?", AskOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if answer.Intent != domain.IntentBoth {
		t.Fatalf("intent = %s, want both", answer.Intent)
	}
	if env.retriever.callCount() != 1 {
		t.Error("retrieval did not run")
	}
	if len(answer.ToolCalls) != 1 {
		t.Error("tool did not run")
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("both paths took %v, expected them overlapped", elapsed)
	}
	prompt := env.llm.Calls[0].Prompt
	if !strings.Contains(prompt, "Historical storm patterns") {
		t.Error("prompt missing retrieved context")
	}
}

func TestAskEmptyRetrievalGetsNoContextMarker(t *testing.T) {
	env := newChatEnv(t)

	answer, err := env.chat.Ask(context.Background(), "What does the report conclude?", AskOptions{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.State != StateDelivered {
		t.Errorf("state = %s, want DELIVERED", answer.State)
	}
	if len(answer.Retrieved) != 0 {
		t.Errorf("retrieved = %d chunks from an empty index", len(answer.Retrieved))
	}
	if !strings.Contains(env.llm.Calls[0].Prompt, noContextMarker) {
		t.Error("prompt missing the no-context marker")
	}
}

func TestAskRetrievalFailureDegrades(t *testing.T) {
	env := newChatEnv(t)
	env.retriever.err = errors.New("index offline")

	answer, err := env.chat.Ask(context.Background(), "How do we deploy?", AskOptions{})
	if err != nil {
		t.Fatalf("retrieval failure aborted the turn: %v", err)
	}
	if answer.State != StateDelivered {
		t.Errorf("state = %s, want DELIVERED", answer.State)
	}
	if !strings.Contains(env.llm.Calls[0].Prompt, noContextMarker) {
		t.Error("prompt should fall back to the no-context marker")
	}
}

func TestSplitThinking(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		text     string
		thinking string
	}{
		{"no tags", "plain answer", "plain answer", ""},
		{"single block", "<think>step by step</think>The answer.", "The answer.", "step by step"},
		{"block in middle", "Part one <think>hmm</think>part two", "Part one part two", "hmm"},
		{"unterminated", "Answer<think>trailing thoughts", "Answer", "trailing thoughts"},
		{"empty block", "<think></think>Answer", "Answer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, thinking := SplitThinking(tt.raw)
			if text != tt.text {
				t.Errorf("text = %q, want %q", text, tt.text)
			}
			if thinking != tt.thinking {
				t.Errorf("thinking = %q, want %q", thinking, tt.thinking)
			}
		})
	}
}
