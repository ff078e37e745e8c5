package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromMap(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, ">", cfg.Prefix)
	assert.Equal(t, "./database/", cfg.StorageDir)
	assert.Equal(t, "~", cfg.BackupPrefix)
	assert.Equal(t, 60*time.Second, cfg.AutosaveInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 60*time.Second, cfg.ContextTTL)
	assert.Equal(t, "cancel", cfg.ContextCancelWord)
	assert.True(t, cfg.LogPretty)
	assert.Empty(t, cfg.MetricsAddr)

	assert.ErrorIs(t, cfg.RequireToken(), ErrMissingToken)
}

func TestOverrides(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"DISCORD_TOKEN":     "tok",
		"COMMAND_PREFIX":    "!",
		"AUTOSAVE_INTERVAL": "5s",
		"LOG_PRETTY":        "false",
	})
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.Prefix)
	assert.Equal(t, 5*time.Second, cfg.AutosaveInterval)
	assert.False(t, cfg.LogPretty)
	assert.NoError(t, cfg.RequireToken())
}

func TestInvalidValues(t *testing.T) {
	_, err := FromMap(map[string]string{"TICK_INTERVAL": "soon"})
	assert.Error(t, err)

	_, err = FromMap(map[string]string{"CONTEXT_TTL": "0s"})
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WARDEN_TEST_ONLY=1\n"), 0o644))
	t.Setenv("WARDEN_TEST_ONLY", "")
	require.NoError(t, os.Unsetenv("WARDEN_TEST_ONLY"))

	_, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "1", os.Getenv("WARDEN_TEST_ONLY"))
}
