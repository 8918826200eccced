package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/config"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set at build time with -ldflags "-X .../commands.Version=..."
var Version = "dev"

var (
	cfgFile string
	// flags holds command-line overrides bound to config keys
	flags   = viper.New()
	rootCmd = &cobra.Command{
		Use:   "displayswitcher",
		Short: "DisplaySwitcher - switch to a single monitor when the session goes idle",
		Long: `DisplaySwitcher watches GNOME session idle time. Once the user has been idle
for the configured threshold it makes one named monitor the sole primary
display at a fixed mode and locks the screen.

Features:
  • Idle and activity watches through the Mutter IdleMonitor
  • Display re-assertion whenever the screensaver locks
  • gnome-monitor-config driven display switching
  • loginctl or org.gnome.ScreenSaver screen locking
  • Optional localhost REST API with a websocket transition stream`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Console only; run adds the rotating file once config is loaded
			return logger.Init(logger.Options{Level: flags.GetString(config.KeyLogLevel)})
		},
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/display_switcher.conf)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	flags.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig loads the config file with flag overrides applied
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile(), flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return configMgr, nil
}
