package config

import (
	"fmt"
	"sort"
)

// Recognized keys of the key=value config file
const (
	KeyIdleThreshold        = "idle_threshold"
	KeyPrimaryMonitorName   = "primary_monitor_name"
	KeyMonitorMode          = "monitor_mode"
	KeyLogLevel             = "log_level"
	KeyLogDir               = "log_dir"
	KeyLogMaxSizeMB         = "log_max_size_mb"
	KeyLogMaxBackups        = "log_max_backups"
	KeyLockBackend          = "lock_backend"
	KeyMonitorConfigCommand = "monitor_config_command"
	KeyLockCommand          = "lock_command"
	KeyAPIEnabled           = "api_enabled"
	KeyAPIListen            = "api_listen"
	KeyRearmActiveWatch     = "rearm_active_watch"
)

// Lock backends
const (
	LockBackendLoginctl = "loginctl"
	LockBackendDBus     = "dbus"
)

// Default values
const (
	DefaultIdleThreshold        uint64 = 900000 // 15 minutes
	DefaultPrimaryMonitorName          = `Telecom Technology Centre Co. Ltd. 23"`
	DefaultMonitorMode                 = "1280x720@60.000"
	DefaultLogLevel                    = "info"
	DefaultLogMaxSizeMB                = 1
	DefaultLogMaxBackups               = 3
	DefaultMonitorConfigCommand        = "gnome-monitor-config"
	DefaultLockCommand                 = "loginctl"
	DefaultAPIListen                   = "127.0.0.1:7710"
)

// Config is the immutable daemon configuration. It is loaded once at
// startup and only ever handed out by value.
type Config struct {
	IdleThreshold      uint64 `json:"idle_threshold" yaml:"idle_threshold"` // milliseconds
	PrimaryMonitorName string `json:"primary_monitor_name" yaml:"primary_monitor_name"`
	MonitorMode        string `json:"monitor_mode" yaml:"monitor_mode"`

	LogLevel      string `json:"log_level" yaml:"log_level"`
	LogDir        string `json:"log_dir" yaml:"log_dir"` // empty means ~/.local/share/display_switcher
	LogMaxSizeMB  int    `json:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups" yaml:"log_max_backups"`

	LockBackend          string `json:"lock_backend" yaml:"lock_backend"`
	MonitorConfigCommand string `json:"monitor_config_command" yaml:"monitor_config_command"`
	LockCommand          string `json:"lock_command" yaml:"lock_command"`

	APIEnabled bool   `json:"api_enabled" yaml:"api_enabled"`
	APIListen  string `json:"api_listen" yaml:"api_listen"`

	RearmActiveWatch bool `json:"rearm_active_watch" yaml:"rearm_active_watch"`
}

// Default returns a Config holding the built-in defaults
func Default() *Config {
	return &Config{
		IdleThreshold:        DefaultIdleThreshold,
		PrimaryMonitorName:   DefaultPrimaryMonitorName,
		MonitorMode:          DefaultMonitorMode,
		LogLevel:             DefaultLogLevel,
		LogMaxSizeMB:         DefaultLogMaxSizeMB,
		LogMaxBackups:        DefaultLogMaxBackups,
		LockBackend:          LockBackendLoginctl,
		MonitorConfigCommand: DefaultMonitorConfigCommand,
		LockCommand:          DefaultLockCommand,
		APIEnabled:           false,
		APIListen:            DefaultAPIListen,
		RearmActiveWatch:     true,
	}
}

// Validate checks the settings whose values select behavior
func (c *Config) Validate() error {
	switch c.LockBackend {
	case LockBackendLoginctl, LockBackendDBus:
	default:
		return fmt.Errorf("unknown lock backend %q (want %s or %s)", c.LockBackend, LockBackendLoginctl, LockBackendDBus)
	}

	if c.PrimaryMonitorName == "" {
		return fmt.Errorf("primary monitor name cannot be empty")
	}

	if c.MonitorMode == "" {
		return fmt.Errorf("monitor mode cannot be empty")
	}

	if c.MonitorConfigCommand == "" {
		return fmt.Errorf("monitor config command cannot be empty")
	}

	if c.LockBackend == LockBackendLoginctl && c.LockCommand == "" {
		return fmt.Errorf("lock command cannot be empty")
	}

	if c.APIEnabled && c.APIListen == "" {
		return fmt.Errorf("api listen address cannot be empty when the api is enabled")
	}

	return nil
}

// Values returns the settings keyed by their config file name
func (c *Config) Values() map[string]interface{} {
	return map[string]interface{}{
		KeyIdleThreshold:        c.IdleThreshold,
		KeyPrimaryMonitorName:   c.PrimaryMonitorName,
		KeyMonitorMode:          c.MonitorMode,
		KeyLogLevel:             c.LogLevel,
		KeyLogDir:               c.LogDir,
		KeyLogMaxSizeMB:         c.LogMaxSizeMB,
		KeyLogMaxBackups:        c.LogMaxBackups,
		KeyLockBackend:          c.LockBackend,
		KeyMonitorConfigCommand: c.MonitorConfigCommand,
		KeyLockCommand:          c.LockCommand,
		KeyAPIEnabled:           c.APIEnabled,
		KeyAPIListen:            c.APIListen,
		KeyRearmActiveWatch:     c.RearmActiveWatch,
	}
}

// Keys returns every recognized key in sorted order
func Keys() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var knownKeys = map[string]struct{}{
	KeyIdleThreshold:        {},
	KeyPrimaryMonitorName:   {},
	KeyMonitorMode:          {},
	KeyLogLevel:             {},
	KeyLogDir:               {},
	KeyLogMaxSizeMB:         {},
	KeyLogMaxBackups:        {},
	KeyLockBackend:          {},
	KeyMonitorConfigCommand: {},
	KeyLockCommand:          {},
	KeyAPIEnabled:           {},
	KeyAPIListen:            {},
	KeyRearmActiveWatch:     {},
}
