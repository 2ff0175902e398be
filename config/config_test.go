package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1000, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 200, cfg.Retrieval.ChunkOverlap)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tutormesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  chunk_size: 400\n  chunk_overlap: 50\nmemory:\n  window_capacity: 6\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Retrieval.ChunkSize)
	assert.Equal(t, 50, cfg.Retrieval.ChunkOverlap)
	assert.Equal(t, 6, cfg.Memory.WindowCapacity)
	// Untouched sections keep defaults.
	assert.Equal(t, 2, cfg.Model.MaxRetries)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  chunk_size: 100\n  chunk_overlap: 100\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "chunk_overlap")
}

func TestFromEnv(t *testing.T) {
	t.Setenv("TUTORMESH_WINDOW_CAPACITY", "6")
	t.Setenv("TUTORMESH_MODEL_TIMEOUT", "5s")
	t.Setenv("TUTORMESH_MAX_RETRIES", "notanumber")

	cfg := FromEnv(Default())
	assert.Equal(t, 6, cfg.Memory.WindowCapacity)
	assert.Equal(t, 5*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 2, cfg.Model.MaxRetries, "malformed env value keeps default")
}
