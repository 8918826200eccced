package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/api"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/command"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/config"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/coordinator"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/display"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/event"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/lock"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/logger"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/session"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the idle display switcher",
	Long: `Run the DisplaySwitcher daemon in the current GNOME session.

The daemon registers an idle watch and a user-active watch with the Mutter
idle monitor. When the idle watch fires the configured monitor becomes the
only primary display and the screen is locked. Activity or unlocking resets
the state. Every time the screensaver locks, the display configuration is
applied again.`,
	Example: `  # Run with settings from ~/.config/display_switcher.conf
  displayswitcher run

  # Switch after 5 minutes of idle time
  displayswitcher run --idle-threshold 300000

  # Override the target monitor and mode
  displayswitcher run --monitor 'Acme 23"' --mode 1920x1080@60.000

  # Start with debug logging
  displayswitcher run --log-level debug`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Uint64("idle-threshold", 0, "idle time in milliseconds before switching")
	runCmd.Flags().String("monitor", "", "display name of the monitor to switch to")
	runCmd.Flags().String("mode", "", "mode to set on the monitor (e.g. 1280x720@60.000)")

	flags.BindPFlag(config.KeyIdleThreshold, runCmd.Flags().Lookup("idle-threshold"))
	flags.BindPFlag(config.KeyPrimaryMonitorName, runCmd.Flags().Lookup("monitor"))
	flags.BindPFlag(config.KeyMonitorMode, runCmd.Flags().Lookup("mode"))
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	logDir := cfg.LogDir
	if logDir == "" {
		if logDir, err = logger.DefaultDir(); err != nil {
			return err
		}
	}
	if err := logger.Init(logger.Options{
		Level:      cfg.LogLevel,
		Dir:        logDir,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	}); err != nil {
		// File logging is optional; console output still works
		logger.WithComponent("main").Warn().Err(err).Msg("File logging disabled")
	}
	defer logger.Close()

	log := logger.WithComponent("main")
	log.Info().
		Str("version", Version).
		Str("config", configMgr.GetConfigPath()).
		Bool("config_loaded", configMgr.Loaded()).
		Msg("Starting DisplaySwitcher")

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Info().
		Uint64("idle_threshold_ms", cfg.IdleThreshold).
		Str("monitor", cfg.PrimaryMonitorName).
		Str("mode", cfg.MonitorMode).
		Str("lock_backend", cfg.LockBackend).
		Msg("Configuration")

	for _, tool := range []string{cfg.MonitorConfigCommand, cfg.LockCommand} {
		if tool != "" && !command.Exists(tool) {
			log.Warn().Str("command", tool).Msg("Command not found in PATH")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info().Msg("Connecting to session bus...")
	sess, err := session.Connect()
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to session bus")
		return err
	}
	defer sess.Close()

	// Subscribe before registering watches
	events := make(chan event.Event, 16)
	if err := sess.Listen(ctx, events); err != nil {
		log.Error().Err(err).Msg("Failed to subscribe to session signals")
		return err
	}

	runner := command.NewExecRunner()
	locker, err := lock.ForBackend(cfg.LockBackend,
		lock.NewCommandLocker(runner, cfg.LockCommand),
		sess.ScreenSaver(),
	)
	if err != nil {
		return err
	}

	coord := coordinator.New(coordinator.Options{
		IdleThreshold:    cfg.IdleThreshold,
		MonitorName:      cfg.PrimaryMonitorName,
		MonitorMode:      cfg.MonitorMode,
		RearmActiveWatch: cfg.RearmActiveWatch,
	},
		sess.IdleMonitor(),
		display.NewSwitcher(runner, cfg.MonitorConfigCommand),
		locker,
	)

	if err := coord.Setup(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to register idle monitor watches")
		return err
	}
	// ctx is already cancelled by the time this runs
	defer coord.Shutdown(context.Background())

	if cfg.APIEnabled {
		server := api.NewServer(coord, configMgr, Version)
		go func() {
			if err := server.Start(cfg.APIListen); err != nil {
				log.Error().Err(err).Str("addr", cfg.APIListen).Msg("Server error")
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Server shutdown error")
			}
		}()
	}

	log.Info().Msg("✅ DisplaySwitcher is running! Press Ctrl+C to stop")

	if err := coord.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
