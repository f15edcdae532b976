package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmsbridge/kbindex/internal/knowledge"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "canvas/guides/quizzes/creating.md", "# Creating Quizzes\n")
	writeFile(t, dir, "discourse/faq.md", "# FAQ\n")
	writeFile(t, dir, "README.txt", "not markdown")

	docs, err := NewLoader(dir).Load()
	require.NoError(t, err)
	require.Len(t, docs, 2, "only markdown files are loaded")

	byID := make(map[string]knowledge.Document)
	for _, d := range docs {
		byID[d.ID] = d
	}

	deep, ok := byID["canvas/guides/quizzes/creating.md"]
	require.True(t, ok, "document ID is the slash-separated relative path")
	assert.Equal(t, "# Creating Quizzes\n", deep.Text)
	assert.Equal(t, "canvas", deep.Metadata[knowledge.MetaSystem])
	assert.Equal(t, "guides", deep.Metadata[knowledge.MetaCategory])
	assert.Equal(t, "quizzes", deep.Metadata[knowledge.MetaSubcategory])
	assert.NotEmpty(t, deep.Metadata[knowledge.MetaSourcePath])

	updated, err := time.Parse(time.RFC3339, deep.Metadata[knowledge.MetaUpdatedAt])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), updated, time.Minute)

	shallow := byID["discourse/faq.md"]
	assert.Equal(t, "discourse", shallow.Metadata[knowledge.MetaSystem])
	assert.Empty(t, shallow.Metadata[knowledge.MetaCategory], "top-level files carry no category")
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "absent")).Load()
	assert.Error(t, err)
}
