package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ONYX_SERVER_URL", "ONYX_API_KEY", "ONYX_CLIENT_TIMEOUT", "ONYX_POLL_INTERVAL",
		"ONYX_CACHE_SIZE", "ONYX_LOG_FILE", "ONYX_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ONYX_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, DefaultClientTimeout, cfg.ClientTimeout)
	assert.Equal(t, DefaultCacheSize, cfg.CacheSize)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.ProfilePath)
}

func TestLoadProfileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	profile := []byte(`server_url: https://search.example.com/
api_key: from-file
poll_interval: 2s
cache_size: 32
log_level: debug
`)
	require.NoError(t, os.WriteFile(path, profile, 0o600))
	t.Setenv("ONYX_CONFIG", path)
	t.Setenv("ONYX_API_KEY", "from-env")
	t.Setenv("ONYX_POLL_INTERVAL", "7000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://search.example.com", cfg.ServerURL, "trailing slash trimmed")
	assert.Equal(t, "from-env", cfg.APIKey, "env overrides profile")
	assert.Equal(t, 7*time.Second, cfg.PollInterval, "bare number is milliseconds")
	assert.Equal(t, 32, cfg.CacheSize)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, path, cfg.ProfilePath)
}

func TestLoadMalformedProfile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: [unclosed"), 0o600))
	t.Setenv("ONYX_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse profile")
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Duration
	}{
		{"empty uses default", "", time.Minute},
		{"go duration", "3s", 3 * time.Second},
		{"milliseconds", "250", 250 * time.Millisecond},
		{"garbage uses default", "soon", time.Minute},
		{"negative uses default", "-5s", time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDuration(tt.in, time.Minute))
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("provider saved", "id", 3)
	logger.Warn("default reassignment failed")

	assert.NotContains(t, stderr.String(), "provider saved", "info stays off the console")
	assert.Contains(t, stderr.String(), "default reassignment failed")
	assert.Contains(t, file.String(), `"msg":"provider saved"`)
	assert.Contains(t, file.String(), `"msg":"default reassignment failed"`)
}
