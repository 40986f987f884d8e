package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "agentwire", cfg.Name)
	assert.Equal(t, "http://localhost:8787", cfg.Backend.BaseURL)
	assert.Equal(t, ".", cfg.Project.Root)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, ".agentwire/turns.db", cfg.Archive.DatabasePath)
	assert.Equal(t, 2*time.Minute, cfg.BackendTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.WatcherDebounce())
}

func TestLoad_FromFile(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".agentwire"), 0755))

	content := `
name: myproject
backend:
  base_url: https://api.example.com
  timeout: 30s
project:
  id: proj-1
  root: ./src
watcher:
  debounce: 1s
`
	require.NoError(t, os.WriteFile(Path(ws), []byte(content), 0644))

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, "myproject", cfg.Name)
	assert.Equal(t, "https://api.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.BackendTimeout())
	assert.Equal(t, "proj-1", cfg.Project.ID)
	assert.Equal(t, "./src", cfg.Project.Root)
	assert.Equal(t, time.Second, cfg.WatcherDebounce())

	// Unset sections keep their defaults.
	assert.True(t, cfg.Archive.Enabled)
}

func TestLoad_MalformedFile(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".agentwire"), 0755))
	require.NoError(t, os.WriteFile(Path(ws), []byte("backend: [not a mapping"), 0644))

	_, err := Load(ws)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AGENTWIRE_BACKEND_URL", "https://override.example.com")
	t.Setenv("AGENTWIRE_API_KEY", "sk-test")
	t.Setenv("AGENTWIRE_PROJECT_ROOT", "/tmp/elsewhere")
	t.Setenv("AGENTWIRE_DEBUG", "true")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://override.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "sk-test", cfg.Backend.APIKey)
	assert.Equal(t, "/tmp/elsewhere", cfg.Project.Root)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestSaveRoundTrip(t *testing.T) {
	ws := t.TempDir()

	cfg := Default()
	cfg.Name = "saved"
	cfg.Backend.Timeout = "45s"
	require.NoError(t, cfg.Save(ws))

	loaded, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Name)
	assert.Equal(t, 45*time.Second, loaded.BackendTimeout())
}

func TestDurationFallbacks(t *testing.T) {
	cfg := Default()

	cfg.Backend.Timeout = "not-a-duration"
	assert.Equal(t, 2*time.Minute, cfg.BackendTimeout())

	cfg.Backend.Timeout = "-5s"
	assert.Equal(t, 2*time.Minute, cfg.BackendTimeout())

	cfg.Watcher.Debounce = ""
	assert.Equal(t, 250*time.Millisecond, cfg.WatcherDebounce())
}
