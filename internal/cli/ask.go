package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docagent/internal/usecase"
)

var (
	askQuery    string
	askModel    string
	askTopK     int
	askMinScore float64
	askNoRAG    bool
	askJSON     bool
	askThinking bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask a single question",
	Long: `Ask one question and print the answer. Document questions are
answered from the index; weather questions call the weather service.

Examples:
  docagent ask -q "What does the report say about Q3?"
  docagent ask -q "Summarize the contract" --model qwen3:1.7b
  docagent ask -q "What's the weather in Beijing?"
  docagent ask -q "Explain transformers" --no-rag`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question to ask (required)")
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "generation model id (default from config)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().Float64Var(&askMinScore, "min-score", 0, "relevance threshold (default from config)")
	askCmd.Flags().BoolVar(&askNoRAG, "no-rag", false, "answer without consulting the index")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.Flags().BoolVar(&askThinking, "show-thinking", false, "print the model's reasoning if present")
	askCmd.MarkFlagRequired("query")
}

// askOutput is the JSON shape of one answered question.
type askOutput struct {
	Answer    string   `json:"answer"`
	Thinking  string   `json:"thinking,omitempty"`
	Model     string   `json:"model"`
	Intent    string   `json:"intent"`
	Sources   []source `json:"sources,omitempty"`
	ToolCalls []string `json:"tool_calls,omitempty"`
	ElapsedMS int64    `json:"elapsed_ms"`
}

type source struct {
	Fingerprint string  `json:"fingerprint"`
	Seq         int     `json:"seq"`
	Score       float64 `json:"score"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.chat.Ask(cmd.Context(), askQuery, usecase.AskOptions{
		ModelID:          askModel,
		TopK:             askTopK,
		MinScore:         askMinScore,
		DisableRetrieval: askNoRAG,
	})
	if err != nil {
		return err
	}

	if askJSON {
		return printAnswerJSON(answer)
	}
	printAnswer(answer)
	return nil
}

func printAnswer(answer usecase.Answer) {
	if askThinking && answer.Thinking != "" {
		fmt.Printf("--- thinking ---\n%s\n--- answer ---\n", answer.Thinking)
	}
	fmt.Println(answer.Text)

	if len(answer.Retrieved) > 0 {
		fmt.Printf("\nSources:\n")
		for i, sc := range answer.Retrieved {
			fmt.Printf("  [%d] %s#%d (%.2f)\n", i+1, sc.Chunk.DocFingerprint[:12], sc.Chunk.Seq, sc.Score)
		}
	}
	for _, inv := range answer.ToolCalls {
		if inv.Err != "" {
			fmt.Fprintf(os.Stderr, "tool %s(%s) failed: %s\n", inv.Tool, inv.Input, inv.Err)
		}
	}
}

func printAnswerJSON(answer usecase.Answer) error {
	out := askOutput{
		Answer:    answer.Text,
		Model:     answer.ModelID,
		Intent:    answer.Intent.String(),
		ElapsedMS: answer.Elapsed.Milliseconds(),
	}
	if askThinking {
		out.Thinking = answer.Thinking
	}
	for _, sc := range answer.Retrieved {
		out.Sources = append(out.Sources, source{
			Fingerprint: sc.Chunk.DocFingerprint,
			Seq:         sc.Chunk.Seq,
			Score:       sc.Score,
		})
	}
	for _, inv := range answer.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, fmt.Sprintf("%s(%s)", inv.Tool, inv.Input))
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
