package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docagent/internal/adapter/fs"
)

var (
	ingestIncludes []string
	ingestExcludes []string
	ingestRebuild  bool
	ingestMaxSize  int
	ingestOverlap  int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingest documents into the index",
	Long: `Ingest a file or directory of documents. Text, markdown, and PDF
files are supported; already-ingested content is skipped.

Examples:
  docagent ingest ./docs
  docagent ingest report.pdf
  docagent ingest ./docs --exclude "drafts/**"
  docagent ingest ./docs --rebuild   # wipe the index first`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringSliceVar(&ingestIncludes, "include", nil, "glob patterns to include (default: supported formats)")
	ingestCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "glob patterns to exclude")
	ingestCmd.Flags().BoolVar(&ingestRebuild, "rebuild", false, "clear the index before ingesting")
	ingestCmd.Flags().IntVar(&ingestMaxSize, "max-size", 0, "chunk size in characters (default from config)")
	ingestCmd.Flags().IntVar(&ingestOverlap, "overlap", 0, "chunk overlap in characters (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	// Chunking overrides change cache keys, so they apply before the
	// pipeline is assembled.
	if ingestMaxSize > 0 {
		cfg.Chunking.MaxSize = ingestMaxSize
	}
	if ingestOverlap > 0 {
		cfg.Chunking.Overlap = ingestOverlap
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := newApp(ingestRebuild)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	if !info.IsDir() {
		result, err := a.ingest.IngestFile(ctx, path)
		if err != nil {
			return err
		}
		describeIngest(result.Source, result.Chunks, result.FromCache, result.Superseded)
		return nil
	}

	walker := fs.NewWalker(ingestIncludes, ingestExcludes)
	files, err := walker.Walk(path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No matching documents found.")
		return nil
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	result, err := a.ingest.IngestDir(ctx, path, walker, func(string) {
		bar.Add(1)
	})
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d documents (%d chunks, %d from cache, %d replaced)\n",
		result.Files, result.Chunks, result.FromCache, result.Superseded)
	for _, msg := range result.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
	}
	return nil
}

func describeIngest(source string, chunks int, fromCache, superseded bool) {
	switch {
	case superseded:
		fmt.Printf("Replaced %s (%d chunks)\n", source, chunks)
	case fromCache:
		fmt.Printf("Already ingested %s (%d chunks)\n", source, chunks)
	default:
		fmt.Printf("Ingested %s (%d chunks)\n", source, chunks)
	}
}
