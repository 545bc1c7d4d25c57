package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTarball(t *testing.T, entryName string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.tar.gz")
	require.NoError(t, os.WriteFile(path, engineTarball(t, entryName), 0o644))
	return path
}

func TestExtractBinary_TopLevelEntry(t *testing.T) {
	archive := writeTarball(t, testBinary)
	dest := t.TempDir()

	got, err := extractBinary(archive, testBinary, dest)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, testBinary), got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Contains(t, string(data), "engine ok")
}

func TestExtractBinary_NestedEntry(t *testing.T) {
	archive := writeTarball(t, "dyad-engine_v1/bin/"+testBinary)
	dest := t.TempDir()

	_, err := extractBinary(archive, testBinary, dest)
	assert.NoError(t, err)
}

func TestExtractBinary_MissingEntry(t *testing.T) {
	archive := writeTarball(t, "README.md")

	_, err := extractBinary(archive, testBinary, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no \"dyad-engine\" entry")
}

func TestExtractBinary_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-an-archive")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	_, err := extractBinary(path, testBinary, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a gzip archive")
}
