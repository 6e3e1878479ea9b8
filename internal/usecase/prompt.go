package usecase

import (
	"fmt"
	"strings"

	"docagent/internal/domain"
)

// systemPrompt frames the assistant's role for every synthesis call.
const systemPrompt = `You are a helpful assistant that answers questions using the provided context.
Base your answer on the reference documents and tool results when they are given.
If the context does not contain the answer, say so honestly instead of guessing.
Answer in the same language as the question.`

const noContextMarker = "No relevant documents were found for this question."

// PromptBuilder assembles the synthesis prompt from retrieved chunks and
// tool results under a rune budget. Chunks come in best first; packing is
// greedy in that order so the budget cuts the tail, not the head.
type PromptBuilder struct {
	budget int
}

func NewPromptBuilder(budget int) *PromptBuilder {
	if budget <= 0 {
		budget = 4000
	}
	return &PromptBuilder{budget: budget}
}

func (b *PromptBuilder) SystemPrompt() string {
	return systemPrompt
}

// Build renders the user-side prompt. retrievalAttempted distinguishes an
// empty retrieval result (the prompt then tells the model there was no
// document context) from a turn that never consulted the index.
func (b *PromptBuilder) Build(query string, retrievalAttempted bool, retrieved []domain.ScoredChunk, toolResults []domain.ToolInvocation) string {
	var sb strings.Builder

	if len(retrieved) > 0 {
		sb.WriteString("Reference documents:\n")
		used := 0
		for i, sc := range retrieved {
			text := sc.Chunk.Text
			cost := len([]rune(text))
			if used+cost > b.budget {
				remaining := b.budget - used
				if remaining < 50 {
					break
				}
				runes := []rune(text)
				text = string(runes[:remaining])
				cost = remaining
			}
			fmt.Fprintf(&sb, "[%d] (source: %s, relevance: %.2f)\n%s\n\n", i+1, shortFingerprint(sc.Chunk.DocFingerprint), sc.Score, text)
			used += cost
			if used >= b.budget {
				break
			}
		}
	} else if retrievalAttempted {
		sb.WriteString(noContextMarker)
		sb.WriteString("\n\n")
	}

	for _, inv := range toolResults {
		if inv.Err != "" {
			fmt.Fprintf(&sb, "Tool %s failed: %s\n\n", inv.Tool, inv.Err)
		} else {
			fmt.Fprintf(&sb, "Tool result from %s:\n%s\n\n", inv.Tool, inv.Result)
		}
	}

	fmt.Fprintf(&sb, "Question: %s", query)
	return sb.String()
}

func shortFingerprint(fp string) string {
	if len(fp) > 8 {
		return fp[:8]
	}
	return fp
}

// BuildBare renders the prompt for generation without retrieval or tools.
func (b *PromptBuilder) BuildBare(query string) string {
	return query
}
