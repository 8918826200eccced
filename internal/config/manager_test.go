package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParse(t *testing.T) {
	input := `# display switcher
idle_threshold=5000
  # indented comment=ignored
primary_monitor_name = Acme 23"
no separator here
unknown_key=whatever
monitor_mode=1920x1080@60.000
monitor_mode=2560x1440@59.951
`
	values, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{
		KeyIdleThreshold:      "5000",
		KeyPrimaryMonitorName: `Acme 23"`,
		KeyMonitorMode:        "2560x1440@59.951",
	}, values)
}

func TestParseKeepsEqualsInValue(t *testing.T) {
	values, err := Parse(strings.NewReader("primary_monitor_name=Dell a=b\n"))
	require.NoError(t, err)
	assert.Equal(t, "Dell a=b", values[KeyPrimaryMonitorName])
}

func TestNewManager(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "absent.conf")
		m, err := NewManager(path, viper.New())
		require.NoError(t, err)

		assert.False(t, m.Loaded())
		assert.Equal(t, path, m.GetConfigPath())
		assert.Equal(t, Default(), m.Get())
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfig(t, "idle_threshold=5000\nprimary_monitor_name=Acme 23\"\nmonitor_mode=1920x1080@60.000\n")
		m, err := NewManager(path, viper.New())
		require.NoError(t, err)

		cfg := m.Get()
		assert.True(t, m.Loaded())
		assert.Equal(t, uint64(5000), cfg.IdleThreshold)
		assert.Equal(t, `Acme 23"`, cfg.PrimaryMonitorName)
		assert.Equal(t, "1920x1080@60.000", cfg.MonitorMode)
		assert.Equal(t, LockBackendLoginctl, cfg.LockBackend)
	})

	t.Run("unparseable threshold keeps default", func(t *testing.T) {
		for _, raw := range []string{"fifteen minutes", "-5", "12.5ms", "5e3x", "0x10", "0b11"} {
			path := writeConfig(t, "idle_threshold="+raw+"\nmonitor_mode=800x600@60.000\n")
			m, err := NewManager(path, viper.New())
			require.NoError(t, err, raw)

			cfg := m.Get()
			assert.Equal(t, DefaultIdleThreshold, cfg.IdleThreshold, raw)
			assert.Equal(t, "800x600@60.000", cfg.MonitorMode, raw)
		}
	})

	t.Run("threshold is decimal", func(t *testing.T) {
		for raw, want := range map[string]uint64{"060000": 60000, " 5000 ": 5000, "900000": 900000} {
			path := writeConfig(t, "idle_threshold="+raw+"\n")
			m, err := NewManager(path, viper.New())
			require.NoError(t, err, raw)
			assert.Equal(t, want, m.Get().IdleThreshold, raw)
		}
	})

	t.Run("log sizes are decimal", func(t *testing.T) {
		path := writeConfig(t, "log_max_size_mb=010\nlog_max_backups=0x2\n")
		m, err := NewManager(path, viper.New())
		require.NoError(t, err)
		assert.Equal(t, 10, m.Get().LogMaxSizeMB)
		assert.Equal(t, DefaultLogMaxBackups, m.Get().LogMaxBackups)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("DISPLAY_SWITCHER_IDLE_THRESHOLD", "60000")
		path := writeConfig(t, "idle_threshold=5000\n")
		m, err := NewManager(path, viper.New())
		require.NoError(t, err)
		assert.Equal(t, uint64(60000), m.Get().IdleThreshold)
	})

	t.Run("explicit values override everything", func(t *testing.T) {
		v := viper.New()
		v.Set(KeyMonitorMode, "3840x2160@30.000")
		path := writeConfig(t, "monitor_mode=1920x1080@60.000\n")
		m, err := NewManager(path, v)
		require.NoError(t, err)
		assert.Equal(t, "3840x2160@30.000", m.Get().MonitorMode)
	})

	t.Run("unreadable path falls back", func(t *testing.T) {
		// A directory cannot be read as a config file
		m, err := NewManager(t.TempDir(), viper.New())
		require.NoError(t, err)
		assert.False(t, m.Loaded())
		assert.Equal(t, DefaultIdleThreshold, m.Get().IdleThreshold)
	})
}

func TestGetReturnsCopy(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "absent.conf"), viper.New())
	require.NoError(t, err)

	cfg := m.Get()
	cfg.MonitorMode = "mutated"
	assert.Equal(t, DefaultMonitorMode, m.Get().MonitorMode)
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", "/home/testuser")
	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, "/home/testuser/.config/display_switcher.conf", path)
}
