package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/logger"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	configFileName = "display_switcher.conf"
	envPrefix      = "DISPLAY_SWITCHER"
)

// Manager loads the configuration once and hands out copies of it
type Manager struct {
	configPath string
	config     *Config
	loaded     bool
	v          *viper.Viper
}

// DefaultPath returns ~/.config/display_switcher.conf
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configFileName), nil
}

// NewManager loads configuration from configFile, or from DefaultPath when
// configFile is empty. A missing or unreadable file is logged and the
// defaults are used. Precedence, highest first: values set on v (flags
// bound by the caller), DISPLAY_SWITCHER_* environment, the file, defaults.
func NewManager(configFile string, v *viper.Viper) (*Manager, error) {
	path := configFile
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}
	if v == nil {
		v = viper.New()
	}

	m := &Manager{
		configPath: path,
		v:          v,
	}

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	log := logger.WithComponent("config")
	values, err := readFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info().Str("path", path).Msg("No config file found, using defaults")
	case err != nil:
		log.Error().Err(err).Str("path", path).Msg("Failed to load config, using defaults")
	default:
		if err := v.MergeConfigMap(values); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to merge config, using defaults")
		} else {
			m.loaded = true
			log.Info().Str("path", path).Int("keys", len(values)).Msg("Loaded configuration")
		}
	}

	m.config = m.decode()
	return m, nil
}

// Get returns a copy of the loaded configuration
func (m *Manager) Get() *Config {
	cfg := *m.config
	return &cfg
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Loaded reports whether the config file was read
func (m *Manager) Loaded() bool {
	return m.loaded
}

func setDefaults(v *viper.Viper) {
	for key, value := range Default().Values() {
		v.SetDefault(key, value)
	}
}

func (m *Manager) decode() *Config {
	def := Default()
	return &Config{
		IdleThreshold:        m.uint64Value(KeyIdleThreshold, def.IdleThreshold),
		PrimaryMonitorName:   m.stringValue(KeyPrimaryMonitorName, def.PrimaryMonitorName),
		MonitorMode:          m.stringValue(KeyMonitorMode, def.MonitorMode),
		LogLevel:             m.stringValue(KeyLogLevel, def.LogLevel),
		LogDir:               m.stringValue(KeyLogDir, def.LogDir),
		LogMaxSizeMB:         m.intValue(KeyLogMaxSizeMB, def.LogMaxSizeMB),
		LogMaxBackups:        m.intValue(KeyLogMaxBackups, def.LogMaxBackups),
		LockBackend:          strings.ToLower(m.stringValue(KeyLockBackend, def.LockBackend)),
		MonitorConfigCommand: m.stringValue(KeyMonitorConfigCommand, def.MonitorConfigCommand),
		LockCommand:          m.stringValue(KeyLockCommand, def.LockCommand),
		APIEnabled:           m.boolValue(KeyAPIEnabled, def.APIEnabled),
		APIListen:            m.stringValue(KeyAPIListen, def.APIListen),
		RearmActiveWatch:     m.boolValue(KeyRearmActiveWatch, def.RearmActiveWatch),
	}
}

// Malformed values never abort loading: they are logged and the default kept.

// Strings from the file and environment are decimal only. cast would
// accept 0x and leading-zero octal forms.

func (m *Manager) uint64Value(key string, fallback uint64) uint64 {
	var (
		n   uint64
		err error
	)
	if s, ok := m.v.Get(key).(string); ok {
		n, err = strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	} else {
		n, err = cast.ToUint64E(m.v.Get(key))
	}
	if err != nil {
		m.invalid(key, err, fallback)
		return fallback
	}
	return n
}

func (m *Manager) intValue(key string, fallback int) int {
	var (
		n   int
		err error
	)
	if s, ok := m.v.Get(key).(string); ok {
		n, err = strconv.Atoi(strings.TrimSpace(s))
	} else {
		n, err = cast.ToIntE(m.v.Get(key))
	}
	if err != nil {
		m.invalid(key, err, fallback)
		return fallback
	}
	return n
}

func (m *Manager) boolValue(key string, fallback bool) bool {
	b, err := cast.ToBoolE(m.v.Get(key))
	if err != nil {
		m.invalid(key, err, fallback)
		return fallback
	}
	return b
}

func (m *Manager) stringValue(key string, fallback string) string {
	s, err := cast.ToStringE(m.v.Get(key))
	if err != nil {
		m.invalid(key, err, fallback)
		return fallback
	}
	return strings.TrimSpace(s)
}

func (m *Manager) invalid(key string, err error, fallback interface{}) {
	logger.WithComponent("config").Warn().
		Err(err).
		Str("key", key).
		Interface("default", fallback).
		Msg("Invalid config value, using default")
}

func readFile(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads key=value lines. Comment lines (# after trimming), lines
// without '=' and unrecognized keys are skipped. Later lines win.
func Parse(r io.Reader) (map[string]interface{}, error) {
	values := make(map[string]interface{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, known := knownKeys[key]; !known {
			continue
		}
		values[key] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return values, nil
}
