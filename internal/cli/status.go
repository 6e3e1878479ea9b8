package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docagent/config"
	"docagent/internal/adapter/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	dbPath := config.IndexDBPath(dataDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No index found. Run 'docagent ingest' first.")
		return nil
	}

	st, err := store.NewBoltStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return err
	}
	identity, err := st.GetIndexIdentity()
	if err != nil {
		return err
	}

	fmt.Printf("Data directory:  %s\n", dataDir)
	fmt.Printf("Documents:       %d\n", stats.TotalDocs)
	fmt.Printf("Chunks:          %d\n", stats.TotalChunks)
	if identity != nil {
		fmt.Printf("Embedding model: %s (%d dimensions)\n", identity.Model, identity.Dimension)
	} else {
		fmt.Println("Embedding model: (index empty, not yet tagged)")
	}

	if identity != nil {
		if reason := identity.Mismatch(cfg.Embedding.Model, cfg.Embedding.Dimension); reason != "" {
			fmt.Printf("\nWarning: %s\nRun 'docagent ingest --rebuild' to re-index.\n", reason)
		}
	}

	docs, err := st.ListDocuments()
	if err != nil {
		return err
	}
	if len(docs) > 0 {
		fmt.Println("\nDocuments:")
		for _, d := range docs {
			fmt.Printf("  %s  %s (%d chunks)\n", d.Fingerprint[:12], d.Source, d.Chunks)
		}
	}
	return nil
}
