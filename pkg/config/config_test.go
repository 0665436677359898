package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, DefaultHost, config.Kidsnote.Host)
	assert.Equal(t, DefaultClientID, config.Kidsnote.ClientID)
	assert.Equal(t, 30*time.Second, config.Kidsnote.RequestTimeout)

	assert.Equal(t, "./output", config.Download.OutputDir)
	assert.Equal(t, 5*time.Second, config.Download.ImageTimeout)
	assert.Equal(t, 3, config.Download.RetryAttempts)
	assert.Equal(t, time.Second, config.Download.PageDelay)
	assert.Equal(t, time.Millisecond, config.Download.ImageDelay)
	assert.Equal(t, 10000, config.Download.MaxPages)
	assert.Equal(t, "Asia/Seoul", config.Download.Timezone)
	assert.Equal(t, "UTC", config.Download.PathTimezone)
	assert.Equal(t, time.UTC, config.Download.PathLocation())

	assert.Equal(t, "~/.knbackup/config.toml", config.Profile.Path)
	assert.Equal(t, "file", config.Profile.Backend)

	require.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KNB_CLIENT_ID", "env-client")
	t.Setenv("KNB_USER_ID", "parent01")
	t.Setenv("KNB_USER_PASS", "secret")
	t.Setenv("KNB_REFRESH_TOKEN", "refresh-abc")
	t.Setenv("KNB_OUTPUT_DIR", "/tmp/kn-out")
	t.Setenv("KNB_IMAGE_TIMEOUT", "7s")
	t.Setenv("KNB_RETRY_ATTEMPTS", "5")
	t.Setenv("KNB_NOTIFICATIONS_ENABLED", "TRUE")
	t.Setenv("KNB_LOG_LEVEL", "debug")
	t.Setenv("KNB_PATH_TIMEZONE", "Asia/Seoul")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "env-client", config.Kidsnote.ClientID)
	assert.Equal(t, "parent01", config.Kidsnote.UserID)
	assert.Equal(t, "secret", config.Kidsnote.Password)
	assert.Equal(t, "refresh-abc", config.Kidsnote.RefreshToken)
	assert.Equal(t, "/tmp/kn-out", config.Download.OutputDir)
	assert.Equal(t, 7*time.Second, config.Download.ImageTimeout)
	assert.Equal(t, 5, config.Download.RetryAttempts)
	assert.True(t, config.Notifications.Enabled)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "Asia/Seoul", config.Download.PathTimezone)
	assert.Equal(t, "Asia/Seoul", config.Download.PathLocation().String())
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("KNB_RETRY_ATTEMPTS", "three")
	t.Setenv("KNB_IMAGE_TIMEOUT", "soon")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KNB_RETRY_ATTEMPTS")
	assert.Contains(t, err.Error(), "KNB_IMAGE_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"missing client id", func(c *Config) { c.Kidsnote.ClientID = "" }, true},
		{"relative host", func(c *Config) { c.Kidsnote.Host = "kapi.kidsnote.com" }, true},
		{"zero image timeout", func(c *Config) { c.Download.ImageTimeout = 0 }, true},
		{"zero attempts", func(c *Config) { c.Download.RetryAttempts = 0 }, true},
		{"negative delay", func(c *Config) { c.Download.PageDelay = -time.Second }, true},
		{"zero max pages", func(c *Config) { c.Download.MaxPages = 0 }, true},
		{"bad timezone", func(c *Config) { c.Download.Timezone = "Mars/Olympus" }, true},
		{"bad backend", func(c *Config) { c.Profile.Backend = "postgres" }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"utc timezone", func(c *Config) { c.Download.Timezone = "UTC" }, false},
		{"bad path timezone", func(c *Config) { c.Download.PathTimezone = "Mars/Olympus" }, true},
		{"seoul path timezone", func(c *Config) { c.Download.PathTimezone = "Asia/Seoul" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	config.MergeCommandLineFlags(map[string]interface{}{
		"client-id":     "flag-client",
		"user":          "flag-user",
		"refresh-token": "",
		"output":        "/flag/output",
		"date-start":    "2024-03-01",
		"test":          true,
		"no-render":     true,
		"log-level":     "error",
	})

	assert.Equal(t, "flag-client", config.Kidsnote.ClientID)
	assert.Equal(t, "flag-user", config.Kidsnote.UserID)
	assert.Empty(t, config.Kidsnote.RefreshToken)
	assert.Equal(t, "/flag/output", config.Download.OutputDir)
	assert.Equal(t, "2024-03-01", config.Download.DateStart)
	assert.True(t, config.Download.DryRun)
	assert.False(t, config.Render.Enabled)
	assert.Equal(t, "error", config.Logging.Level)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "settings.yaml")

	config := DefaultConfig()
	config.Kidsnote.UserID = "saved-user"
	config.Kidsnote.Password = "must-not-persist"
	config.Download.ImageTimeout = 9 * time.Second
	config.Download.Timezone = "UTC"

	require.NoError(t, config.Save(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "must-not-persist")

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))

	assert.Equal(t, "saved-user", loaded.Kidsnote.UserID)
	assert.Empty(t, loaded.Kidsnote.Password)
	assert.Equal(t, 9*time.Second, loaded.Download.ImageTimeout)
	assert.Equal(t, "UTC", loaded.Download.Timezone)
}

func TestLoadPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "settings.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("download:\n  output_dir: /from/file\n  timezone: UTC\n"), 0644))

	t.Setenv("KNB_OUTPUT_DIR", "/from/env")

	config, err := Load(configPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", config.Download.OutputDir)
	assert.Equal(t, "UTC", config.Download.Timezone)

	config, err = Load(configPath, map[string]interface{}{"output": "/from/flag"})
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", config.Download.OutputDir)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".knbackup", "config.toml"), ExpandHome("~/.knbackup/config.toml"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/etc/knbackup.toml", ExpandHome("/etc/knbackup.toml"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestMasked(t *testing.T) {
	config := DefaultConfig()
	config.Kidsnote.RefreshToken = "abcdefghijklmnop"
	config.Kidsnote.Password = "pw"

	masked := config.Masked()
	assert.Equal(t, "abcd****mnop", masked.Kidsnote.RefreshToken)
	assert.Equal(t, "****", masked.Kidsnote.Password)
	assert.Equal(t, "abcdefghijklmnop", config.Kidsnote.RefreshToken)
}
