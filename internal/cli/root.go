// Package cli wires the agent's commands together.
package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docagent/config"
	"docagent/internal/logger"
)

var (
	cfgFile string
	dataDir string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "docagent",
	Short: "Local document QA agent with retrieval and tools",
	Long: `docagent answers questions about your documents. It ingests text,
markdown, and PDF files into a local vector index, retrieves the relevant
passages for each question, and synthesizes an answer with a local or
hosted language model. Weather questions are routed to a live weather
lookup instead of the index.

Example usage:
  docagent ingest ./docs            # Index a directory of documents
  docagent ask -q "What is ...?"    # Ask a one-off question
  docagent chat                     # Interactive conversation`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if dataDir == "" {
			home, herr := os.UserHomeDir()
			if herr != nil {
				home = "."
			}
			dataDir = filepath.Join(home, ".docagent")
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(dataDir)
		}
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <data-dir>/docagent.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default is ~/.docagent)")
}
