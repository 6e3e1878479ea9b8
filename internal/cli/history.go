package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docagent/config"
	"docagent/internal/adapter/store"
	"docagent/internal/domain"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the conversation log",
	RunE:  runHistoryShow,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the conversation log to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryExport,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the conversation log",
	RunE:  runHistoryClear,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}

// errNoDatabase marks a fresh install with nothing recorded yet.
var errNoDatabase = errors.New("no database")

func openHistory() (*store.BoltStore, *store.BoltHistory, error) {
	dbPath := config.IndexDBPath(dataDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil, errNoDatabase
	}
	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, store.NewBoltHistory(st), nil
}

// loadTurns reads the full conversation log. A missing database reads
// as an empty log.
func loadTurns() ([]domain.Turn, error) {
	st, history, err := openHistory()
	if errors.Is(err, errNoDatabase) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return history.Export()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	turns, err := loadTurns()
	if err != nil {
		return err
	}

	if historyJSON {
		data, err := json.MarshalIndent(turns, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(turns) == 0 {
		fmt.Println("No conversation recorded.")
		return nil
	}
	for _, turn := range turns {
		marker := ""
		if turn.Failed {
			marker = " [failed]"
		}
		fmt.Printf("[%s] %s%s: %s\n", turn.Timestamp.Format("2006-01-02 15:04"), turn.Role, marker, turn.Text)
		for _, inv := range turn.ToolCalls {
			if inv.Err != "" {
				fmt.Printf("    tool %s(%s): %s\n", inv.Tool, inv.Input, inv.Err)
			} else {
				fmt.Printf("    tool %s(%s)\n", inv.Tool, inv.Input)
			}
		}
	}
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	turns, err := loadTurns()
	if err != nil {
		return err
	}
	if turns == nil {
		turns = []domain.Turn{}
	}

	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return err
	}
	fmt.Printf("Exported %d turns to %s\n", len(turns), args[0])
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	st, history, err := openHistory()
	if errors.Is(err, errNoDatabase) {
		fmt.Println("Conversation cleared.")
		return nil
	}
	if err != nil {
		return err
	}
	defer st.Close()

	if err := history.Clear(); err != nil {
		return err
	}
	fmt.Println("Conversation cleared.")
	return nil
}
