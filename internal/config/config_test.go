package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexmascot/internal/color"
	"github.com/normanking/cortexmascot/internal/store"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.70, cfg.Avatar.EmotionThrottle)
	assert.Equal(t, 2*time.Second, cfg.Avatar.MessageDebounce)
	assert.Equal(t, 500*time.Millisecond, cfg.Avatar.ToolPollInterval)
	assert.Equal(t, 15*time.Second, cfg.Avatar.ToolMaxDuration)

	p, err := cfg.Palette()
	require.NoError(t, err)
	assert.Equal(t, color.DefaultPalette(), p)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
store:
  backend: memory
avatar:
  message_debounce: 3s
color:
  mode: deterministic
  palette:
    - "#000000,#111111"
    - "#ffffff,#eeeeee"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, store.BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 3*time.Second, cfg.Avatar.MessageDebounce)
	assert.Equal(t, "deterministic", cfg.Color.Mode)

	// untouched keys keep their defaults
	assert.Equal(t, 500*time.Millisecond, cfg.Avatar.ToolPollInterval)
	assert.True(t, cfg.Sync.Enabled)

	p, err := cfg.Palette()
	require.NoError(t, err)
	assert.Len(t, p, 2)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: memory\n"), 0o644))

	t.Setenv("CORTEXMASCOT_SERVER_ADDR", "0.0.0.0:1234")
	t.Setenv("CORTEXMASCOT_AVATAR_EMOTION_THROTTLE", "0.25")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:1234", cfg.Server.Addr)
	assert.Equal(t, 0.25, cfg.Avatar.EmotionThrottle)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: etcd\ncolor:\n  mode: rainbow\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
	assert.Contains(t, err.Error(), "rainbow")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "config.yaml")
	cfg := DefaultConfig()
	cfg.Store.Backend = store.BackendRedis
	cfg.Color.Palette = []string{"#000000,#111111", "#222222,#333333"}
	cfg.Sync.Timeout = 750 * time.Millisecond

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate_RejectsNonPositiveTimings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Avatar.ToolMaxDuration = 0
	cfg.Avatar.ToolPollInterval = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool_max_duration")
	assert.Contains(t, err.Error(), "tool_poll_interval")
	assert.NotContains(t, err.Error(), "message_debounce")
}
