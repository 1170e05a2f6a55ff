package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeChunkFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunks.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadChunkFileGroupsByFilename(t *testing.T) {
	path := writeChunkFile(t, `
{"filename": "a.md", "page_content": "first"}
{"filename": "b.md", "page_content": "second"}
{"filename": "a.md", "page_content": "third"}
`)

	docs, order, err := readChunkFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.md", "b.md"}, order)
	require.Len(t, docs["a.md"], 2)
	assert.Equal(t, "first", docs["a.md"][0].PageContent)
	assert.Equal(t, "third", docs["a.md"][1].PageContent)
	require.Len(t, docs["b.md"], 1)
}

func TestReadChunkFileSkipsBlankLines(t *testing.T) {
	path := writeChunkFile(t, "\n\n{\"filename\": \"a.md\", \"page_content\": \"x\"}\n\n")

	docs, order, err := readChunkFile(path)
	require.NoError(t, err)
	assert.Len(t, order, 1)
	assert.Len(t, docs["a.md"], 1)
}

func TestReadChunkFileRejectsMalformedLine(t *testing.T) {
	path := writeChunkFile(t, "{broken\n")

	_, _, err := readChunkFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestReadChunkFileRejectsMissingFilename(t *testing.T) {
	path := writeChunkFile(t, `{"page_content": "orphan"}`)

	_, _, err := readChunkFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no filename")
}

func TestDocIDForSanitizesPaths(t *testing.T) {
	assert.Equal(t, "docs_guide.md", docIDFor("docs/guide.md"))
	assert.Equal(t, "c__docs_a_b.pdf", docIDFor(`c:\docs\a b.pdf`))
	assert.Equal(t, "plain.txt", docIDFor("plain.txt"))
}
