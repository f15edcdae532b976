// Package source loads knowledge documents produced by the external
// generators from a knowledge-base directory.
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmsbridge/kbindex/internal/knowledge"
)

// Loader reads markdown knowledge documents from a base directory. It is
// deliberately thin: classification heuristics and report generation live
// with the producers, not here.
type Loader struct {
	baseDir string
}

// NewLoader creates a loader rooted at baseDir.
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// Load walks the knowledge base and returns one Document per markdown
// file, in deterministic path order. The document ID is the relative path;
// system/category/subcategory metadata derive from the directory layout.
func (l *Loader) Load() ([]knowledge.Document, error) {
	var docs []knowledge.Document

	err := filepath.WalkDir(l.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		rel, err := filepath.Rel(l.baseDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		text, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}

		metadata := map[string]string{
			knowledge.MetaSourcePath: path,
		}
		parts := strings.Split(rel, "/")
		if len(parts) > 1 {
			metadata[knowledge.MetaSystem] = parts[0]
		}
		if len(parts) > 2 {
			metadata[knowledge.MetaCategory] = parts[1]
		}
		if len(parts) > 3 {
			metadata[knowledge.MetaSubcategory] = parts[2]
		}
		if info, err := d.Info(); err == nil {
			metadata[knowledge.MetaUpdatedAt] = info.ModTime().UTC().Format(time.RFC3339)
		}

		docs = append(docs, knowledge.Document{
			ID:       rel,
			Text:     string(text),
			Metadata: metadata,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk knowledge base: %w", err)
	}

	return docs, nil
}
