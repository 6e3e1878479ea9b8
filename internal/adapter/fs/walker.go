// Package fs discovers ingestable documents on disk.
package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"docagent/internal/port"
)

// defaultIncludes covers the document formats the extractors understand.
var defaultIncludes = []string{"**/*.txt", "**/*.md", "**/*.markdown", "**/*.pdf"}

type Walker struct {
	includes []string
	excludes []string
}

// NewWalker builds a walker with doublestar include/exclude patterns
// matched against root-relative paths. Empty includes fall back to the
// supported document formats.
func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = defaultIncludes
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Walk returns the matching files under root. Hidden directories are
// skipped without needing an explicit exclude.
func (w *Walker) Walk(root string) ([]port.FileInfo, error) {
	var files []port.FileInfo

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if info.IsDir() {
			if relPath != "." && strings.HasPrefix(filepath.Base(relPath), ".") {
				return filepath.SkipDir
			}
			if w.shouldExclude(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			files = append(files, port.FileInfo{
				Path:    path,
				ModTime: info.ModTime().Unix(),
				Size:    info.Size(),
			})
		}

		return nil
	})

	return files, err
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// ReadFile loads a document's raw bytes for fingerprinting and extraction.
func ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
