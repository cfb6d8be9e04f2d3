package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/syssam/sortable/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG", "LOG_LEVEL", "DIALECT", "DSN", "SCHEMA", "STATS", "DEBUG", "SLOW_THRESHOLD"} {
		t.Setenv(config.EnvPrefix+k, "")
		require.NoError(t, os.Unsetenv(config.EnvPrefix+k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.New(), cfg)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SORTABLE_DIALECT", "postgres")
	t.Setenv("SORTABLE_DSN", "postgres://localhost/app")
	t.Setenv("SORTABLE_LOG_LEVEL", "debug")
	t.Setenv("SORTABLE_STATS", "true")
	t.Setenv("SORTABLE_SLOW_THRESHOLD", "250ms")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Dialect)
	assert.Equal(t, "postgres://localhost/app", cfg.DSN)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.True(t, cfg.Stats)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowThreshold)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dialect: mysql\ndsn: root@/app\nschema: tasks.yaml\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Dialect)
	assert.Equal(t, "root@/app", cfg.DSN)
	assert.Equal(t, "tasks.yaml", cfg.Schema)

	// Env wins over the file, and SORTABLE_CONFIG names the file.
	t.Setenv("SORTABLE_CONFIG", path)
	t.Setenv("SORTABLE_DSN", "other@/app")
	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Dialect)
	assert.Equal(t, "other@/app", cfg.DSN)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, config.ErrLoadConfig)

	t.Setenv("SORTABLE_DIALECT", "oracle")
	_, err = config.Load("")
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	cfg := config.New()
	require.NoError(t, cfg.Validate())

	cfg.DSN = " "
	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)

	cfg = config.New()
	cfg.LogLevel = "loud"
	require.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}
