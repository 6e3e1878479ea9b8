package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docagent/internal/usecase"
)

var chatModel string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive conversation",
	Long: `Start an interactive session. Each question sees the recent
conversation, so follow-ups work. Type /model <id> to switch models,
/clear to reset the conversation, /quit to exit.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "generation model id (default from config)")
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	model := chatModel
	if model == "" {
		model = cfg.Generation.DefaultModel
	}
	fmt.Printf("docagent chat (model: %s). Type /quit to exit.\n", model)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := handleChatCommand(a, line, &model)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			if done {
				break
			}
			continue
		}

		answer, err := a.chat.Ask(cmd.Context(), line, usecase.AskOptions{ModelID: model})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		for _, inv := range answer.ToolCalls {
			if inv.Err == "" {
				fmt.Printf("[%s: %s]\n", inv.Tool, inv.Input)
			}
		}
		fmt.Println(answer.Text)
	}
	return scanner.Err()
}

func handleChatCommand(a *app, line string, model *string) (done bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/model":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /model <id>")
		}
		*model = fields[1]
		fmt.Printf("Switched to %s.\n", *model)
		return false, nil
	case "/clear":
		if err := a.chat.ClearHistory(); err != nil {
			return false, err
		}
		fmt.Println("Conversation cleared.")
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}
