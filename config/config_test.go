package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HACKMATE_CONFIG_DIR", filepath.Join(root, "config"))
	t.Setenv("HACKMATE_DATA_DIR", filepath.Join(root, "data"))
	for _, k := range []string{"HACKMATE_LISTEN", "HACKMATE_PROVIDER", "HACKMATE_MODEL", "HACKMATE_SERVER_URL", "HACKMATE_DEBUG"} {
		t.Setenv(k, "")
	}
	return root
}

func TestLoadWritesTemplatesAndDefaults(t *testing.T) {
	root := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "config", "settings.toml"))
	assert.FileExists(t, filepath.Join(root, "data", "config.toml"))
	assert.Equal(t, 20, cfg.Server.HistoryLimit)
	assert.Equal(t, 100, cfg.Server.TranscriptLimit)
	assert.Equal(t, "ollama", cfg.Provider.Type)
	assert.Equal(t, 750*time.Millisecond, cfg.StepDelay())
	assert.Equal(t, filepath.Join(root, "data", "hackmate.db"), cfg.DatabasePath())

	info, err := os.Stat(filepath.Join(root, "data"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestLoadTemplateRoundTrip(t *testing.T) {
	isolate(t)

	// The generated template must decode to the same values as the defaults.
	_, err := Load()
	require.NoError(t, err)
	cfg, err := Load()
	require.NoError(t, err)

	def := DefaultUserConfig()
	assert.Equal(t, def.Server, cfg.Server)
	assert.Equal(t, def.Provider, cfg.Provider)
	assert.Equal(t, def.Client, cfg.Client)
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HACKMATE_PROVIDER", "anthropic")
	t.Setenv("HACKMATE_MODEL", "claude-sonnet-4-5")
	t.Setenv("HACKMATE_LISTEN", ":9999")
	t.Setenv("HACKMATE_DEBUG", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider.Type)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Provider.Model)
	assert.Equal(t, ":9999", cfg.Server.Listen)
	assert.True(t, cfg.Debug)
}

func TestUserConfigOverridesDefaults(t *testing.T) {
	root := isolate(t)
	dataDir := filepath.Join(root, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0700))

	u := DefaultUserConfig()
	u.Server.HistoryLimit = 8
	u.Client.StepDelay = "2s"
	u.Server.Database = "/var/lib/hackmate/app.db"
	require.NoError(t, SaveUserConfig(u, dataDir))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Server.HistoryLimit)
	assert.Equal(t, 2*time.Second, cfg.StepDelay())
	assert.Equal(t, "/var/lib/hackmate/app.db", cfg.DatabasePath())
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", time.Second},
		{"250ms", 250 * time.Millisecond},
		{"garbage", time.Second},
		{"-1s", time.Second},
		{"0s", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDuration(tt.in, time.Second))
		})
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/alex")
	t.Setenv("HACKMATE_TEST_DIR", "/srv")

	assert.Equal(t, "/home/alex/data", ExpandPath("~/data"))
	assert.Equal(t, "/srv/x", ExpandPath("$HACKMATE_TEST_DIR/x"))
	assert.Equal(t, "", ExpandPath(""))
}

func TestInitLoggerWritesToDataDir(t *testing.T) {
	dir := t.TempDir()
	prev := Log
	t.Cleanup(func() { Log = prev })

	logger, err := InitLogger(dir, true)
	require.NoError(t, err)
	logger.Debug("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "hackmate.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Same(t, logger, Log)
}
