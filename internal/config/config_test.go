package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ".wayfind.db", cfg.DB)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Zero(t, cfg.Workers)
}

func TestLoad_AllFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
db = "index.db"
exclude = ["target/**", "**/generated/*.rs"]
workers = 4
log_level = "DEBUG"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "index.db", cfg.DB)
	assert.Equal(t, []string{"target/**", "**/generated/*.rs"}, cfg.Exclude)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidLevel(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, `log_level = "loud"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoad_NegativeWorkers(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, `workers = -1`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestLoad_EmptyExclude(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, `exclude = [""]`))
	assert.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, `db = `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode config")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	lvl, err := ParseLevel("info")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	lvl, err = ParseLevel(" Warning ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
}
