// ABOUTME: Tests for configuration loading, env expansion, and duration parsing.
// ABOUTME: Validates defaults, required fields, and error paths.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Complete(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:9090"
database:
  path: "/tmp/forge.db"
cache:
  ttl: "2m"
  max_entries: 500
extractor:
  model: "gemini-2.5-pro"
  timeout: "45s"
workflow:
  work_dir: "/tmp/work"
  max_turns: 5
  summary_timeout: "90s"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:9090", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/forge.db", cfg.Database.Path)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, "gemini-2.5-pro", cfg.Extractor.Model)
	assert.Equal(t, 45*time.Second, cfg.Extractor.Timeout)
	assert.Equal(t, "/tmp/work", cfg.Workflow.WorkDir)
	assert.Equal(t, 5, cfg.Workflow.MaxTurns)
	assert.Equal(t, 90*time.Second, cfg.Workflow.SummaryTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8081"
database:
  path: "forge.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 10_000, cfg.Cache.MaxEntries)
	assert.Equal(t, "gemini-2.5-flash", cfg.Extractor.Model)
	assert.Equal(t, 30*time.Second, cfg.Extractor.Timeout)
	assert.Equal(t, "work_dir", cfg.Workflow.WorkDir)
	assert.Equal(t, 10, cfg.Workflow.MaxTurns)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("FORGE_TEST_DB_PATH", "/data/expanded.db")

	path := writeConfig(t, `
server:
  http_addr: "localhost:8081"
database:
  path: "${FORGE_TEST_DB_PATH}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/expanded.db", cfg.Database.Path)
}

func TestLoad_EnvExpansion_Unset(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8081"
database:
  path: "${FORGE_TEST_DEFINITELY_UNSET_VAR}"
`)

	// Unset variable expands to empty, which fails validation
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.path is required")
}

func TestLoad_MissingHTTPAddr(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "forge.db"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.http_addr is required")
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "localhost:8081"
database:
  path: "forge.db"
cache:
  ttl: "five minutes"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.ttl")
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8081", cfg.Server.HTTPAddr)
	assert.Equal(t, "forge.db", cfg.Database.Path)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
}
