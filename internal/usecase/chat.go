package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"docagent/internal/domain"
	"docagent/internal/logger"
	"docagent/internal/port"
)

// State tracks where a question is in its lifecycle. Every question ends
// in StateDelivered or StateFailed.
type State string

const (
	StateReceived     State = "RECEIVED"
	StateClassified   State = "CLASSIFIED"
	StateRetrieving   State = "RETRIEVING"
	StateToolInvoking State = "TOOL_INVOKING"
	StateBoth         State = "BOTH"
	StateSynthesizing State = "SYNTHESIZING"
	StateDelivered    State = "DELIVERED"
	StateFailed       State = "FAILED"
)

// AskOptions tunes a single question. Zero values fall back to the
// configured defaults.
type AskOptions struct {
	ModelID  string
	TopK     int
	MinScore float64

	// DisableRetrieval answers from the model alone, skipping the index
	// entirely. Tool routing still applies.
	DisableRetrieval bool
}

// Answer is the full outcome of one question.
type Answer struct {
	Text      string
	Thinking  string
	Intent    domain.Intent
	ModelID   string
	State     State
	Retrieved []domain.ScoredChunk
	ToolCalls []domain.ToolInvocation
	Elapsed   time.Duration
}

// ChatConfig carries the orchestrator's tunables.
type ChatConfig struct {
	DefaultModel    string
	TopK            int
	MinScore        float64
	RetrieveTimeout time.Duration
	GenTimeout      time.Duration
	MaxHistoryTurns int
}

// ChatUseCase routes each question through classification, the retrieval
// and tool paths, and synthesis. Retrieval and tool invocation run
// concurrently when a question needs both.
type ChatUseCase struct {
	retriever  port.Retriever
	llm        port.LLM
	classifier port.Classifier
	history    port.HistoryStore
	prompts    *PromptBuilder
	tools      map[string]port.Tool
	cfg        ChatConfig
}

func NewChatUseCase(
	retriever port.Retriever,
	llm port.LLM,
	classifier port.Classifier,
	history port.HistoryStore,
	prompts *PromptBuilder,
	cfg ChatConfig,
) *ChatUseCase {
	return &ChatUseCase{
		retriever:  retriever,
		llm:        llm,
		classifier: classifier,
		history:    history,
		prompts:    prompts,
		tools:      make(map[string]port.Tool),
		cfg:        cfg,
	}
}

// RegisterTool makes a tool available for routing. Unregistered tools are
// simply never invoked; the question still gets an answer.
func (u *ChatUseCase) RegisterTool(t port.Tool) {
	u.tools[t.Name()] = t
}

// Ask answers one question end to end. The returned Answer is populated
// even on failure; err is non-nil only when no answer could be produced.
func (u *ChatUseCase) Ask(ctx context.Context, query string, opts AskOptions) (Answer, error) {
	start := time.Now()
	answer := Answer{State: StateReceived, ModelID: opts.ModelID}
	if answer.ModelID == "" {
		answer.ModelID = u.cfg.DefaultModel
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = u.cfg.TopK
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = u.cfg.MinScore
	}

	// History is captured before the current question is logged so the
	// prompt does not see the question twice.
	past, err := u.history.Recent(u.cfg.MaxHistoryTurns * 2)
	if err != nil {
		logger.Warnf("failed to load history: %v", err)
	}
	if err := u.history.Append(domain.Turn{
		Role:      domain.RoleUser,
		Text:      query,
		Timestamp: time.Now(),
	}); err != nil {
		logger.Warnf("failed to record question: %v", err)
	}

	intent, toolInput := u.classifier.Classify(query)
	answer.Intent = intent
	answer.State = StateClassified
	logger.Debugf("classified query as %s", intent)

	wantRetrieval := !opts.DisableRetrieval &&
		(intent == domain.IntentDocument || intent == domain.IntentBoth)
	weather, haveTool := u.tools["query_weather"]
	wantTool := haveTool &&
		(intent == domain.IntentTool || intent == domain.IntentBoth)

	switch {
	case wantRetrieval && wantTool:
		answer.State = StateBoth
	case wantTool:
		answer.State = StateToolInvoking
	case wantRetrieval:
		answer.State = StateRetrieving
	}

	var wg sync.WaitGroup

	if wantRetrieval {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rctx, cancel := context.WithTimeout(ctx, u.cfg.RetrieveTimeout)
			defer cancel()
			retrieved, err := u.retriever.Retrieve(rctx, query, topK, minScore)
			if err != nil {
				// A dead retrieval path degrades to answering
				// without document context.
				logger.Warnf("retrieval failed: %v", err)
				return
			}
			answer.Retrieved = retrieved
		}()
	}

	if wantTool {
		// Ambiguous queries carry no extracted location; let the
		// provider judge the raw question instead of failing early.
		if toolInput == "" {
			toolInput = query
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv := domain.ToolInvocation{
				Tool:      weather.Name(),
				Input:     toolInput,
				Timestamp: time.Now(),
			}
			result, err := weather.Invoke(ctx, toolInput)
			if err != nil {
				logger.Warnf("tool %s failed: %v", weather.Name(), err)
				inv.Err = err.Error()
			} else {
				inv.Result = result
			}
			answer.ToolCalls = append(answer.ToolCalls, inv)
		}()
	}

	wg.Wait()

	answer.State = StateSynthesizing

	var prompt string
	if wantRetrieval || len(answer.ToolCalls) > 0 {
		prompt = u.prompts.Build(query, wantRetrieval, answer.Retrieved, answer.ToolCalls)
	} else {
		prompt = u.prompts.BuildBare(query)
	}

	gctx, cancel := context.WithTimeout(ctx, u.cfg.GenTimeout)
	defer cancel()

	raw, err := u.llm.Generate(gctx, port.GenerateRequest{
		ModelID:      answer.ModelID,
		SystemPrompt: u.prompts.SystemPrompt(),
		Prompt:       prompt,
		History:      past,
	})
	if err != nil {
		answer.State = StateFailed
		answer.Elapsed = time.Since(start)
		if histErr := u.history.Append(domain.Turn{
			Role:      domain.RoleAssistant,
			Text:      fmt.Sprintf("generation failed: %v", err),
			Failed:    true,
			Timestamp: time.Now(),
			ToolCalls: answer.ToolCalls,
		}); histErr != nil {
			logger.Warnf("failed to record failed turn: %v", histErr)
		}
		return answer, err
	}

	answer.Text, answer.Thinking = SplitThinking(raw)
	answer.State = StateDelivered
	answer.Elapsed = time.Since(start)

	if err := u.history.Append(domain.Turn{
		Role:      domain.RoleAssistant,
		Text:      answer.Text,
		Thinking:  answer.Thinking,
		Timestamp: time.Now(),
		ToolCalls: answer.ToolCalls,
	}); err != nil {
		logger.Warnf("failed to record answer: %v", err)
	}

	return answer, nil
}

// ClearHistory wipes the conversation log. The index is untouched.
func (u *ChatUseCase) ClearHistory() error {
	return u.history.Clear()
}

// SplitThinking separates a reasoning model's <think> blocks from the
// visible answer. Models without such blocks pass through unchanged.
func SplitThinking(raw string) (text, thinking string) {
	const openTag, closeTag = "<think>", "</think>"

	var thoughts []string
	rest := raw
	for {
		i := strings.Index(rest, openTag)
		if i < 0 {
			break
		}
		j := strings.Index(rest[i+len(openTag):], closeTag)
		if j < 0 {
			// Unterminated block: treat the tail as thinking.
			thoughts = append(thoughts, strings.TrimSpace(rest[i+len(openTag):]))
			rest = rest[:i]
			break
		}
		thoughts = append(thoughts, strings.TrimSpace(rest[i+len(openTag):i+len(openTag)+j]))
		rest = rest[:i] + rest[i+len(openTag)+j+len(closeTag):]
	}

	return strings.TrimSpace(rest), strings.Join(thoughts, "\n\n")
}
