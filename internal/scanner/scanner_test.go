package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestScan_FindsSnapshotsRecursively(t *testing.T) {
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "a.mht"))
	writeFile(t, filepath.Join(tempDir, "sub", "b.mhtml"))
	writeFile(t, filepath.Join(tempDir, "sub", "c.MHT"))
	writeFile(t, filepath.Join(tempDir, "ignored.html"))
	writeFile(t, filepath.Join(tempDir, "notes.txt"))

	s := NewScanner(tempDir)
	files, err := s.Scan()
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.mht", "sub/b.mhtml", "sub/c.MHT"}, files,
		"Only .mht/.mhtml files (any case) should be found, as relative slash paths")
}

func TestScan_EmptyDirectory(t *testing.T) {
	s := NewScanner(t.TempDir())
	files, err := s.Scan()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestCount(t *testing.T) {
	tempDir := t.TempDir()
	writeFile(t, filepath.Join(tempDir, "a.mht"))
	writeFile(t, filepath.Join(tempDir, "deep", "nested", "b.mhtml"))

	s := NewScanner(tempDir)
	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
