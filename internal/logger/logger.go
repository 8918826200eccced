package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "display_switcher.log"

var (
	// Logger is the global logger instance
	Logger zerolog.Logger

	mu         sync.Mutex
	fileWriter *lumberjack.Logger
)

func init() {
	// Console only until Init is called with a log directory
	Logger = zerolog.New(consoleWriter(os.Stderr)).
		With().
		Timestamp().
		Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = Logger
}

// Options configures the global logger
type Options struct {
	Level string
	// Dir holds the rotating log file. Empty disables file output.
	Dir        string
	MaxSizeMB  int
	MaxBackups int
	// Console is the human-readable sink, stderr when nil
	Console io.Writer
}

// DefaultDir returns ~/.local/share/display_switcher
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "display_switcher"), nil
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Init initializes the global logger with a console writer and, when
// opts.Dir is set, a size and count bounded rotating file.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	zerolog.SetGlobalLevel(ParseLevel(opts.Level))

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{consoleWriter(console)}

	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}

	var initErr error
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			initErr = fmt.Errorf("failed to create log directory: %w", err)
		} else {
			fileWriter = &lumberjack.Logger{
				Filename:   filepath.Join(opts.Dir, logFileName),
				MaxSize:    positiveOr(opts.MaxSizeMB, 1),
				MaxBackups: positiveOr(opts.MaxBackups, 3),
			}
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        fileWriter,
				TimeFormat: time.RFC3339,
				NoColor:    true,
			})
		}
	}

	Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger()
	log.Logger = Logger

	return initErr
}

// Close flushes and closes the rotating file, if any
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

// Get returns the global logger instance
func Get() *zerolog.Logger {
	return &Logger
}

// WithComponent returns a logger with a component field set
func WithComponent(component string) *zerolog.Logger {
	l := Logger.With().Str("component", component).Logger()
	return &l
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
