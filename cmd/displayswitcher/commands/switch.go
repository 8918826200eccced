package commands

import (
	"context"
	"fmt"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/command"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/display"
	"github.com/spf13/cobra"
)

var switchCmd = &cobra.Command{
	Use:   "switch",
	Short: "Switch to the configured monitor now",
	Long: `Make the configured monitor the only, primary logical monitor at the
configured mode, without waiting for the session to go idle.`,
	Example: `  # Switch using the configured monitor and mode
  displayswitcher switch

  # Switch to another monitor
  displayswitcher switch --monitor "Built-in display" --mode 1920x1080@60.020`,
	Args: cobra.NoArgs,
	RunE: runSwitch,
}

var (
	switchMonitor string
	switchMode    string
)

func init() {
	rootCmd.AddCommand(switchCmd)

	switchCmd.Flags().StringVar(&switchMonitor, "monitor", "", "display name of the monitor (default from config)")
	switchCmd.Flags().StringVar(&switchMode, "mode", "", "mode to set (default from config)")
}

func runSwitch(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	name := cfg.PrimaryMonitorName
	if switchMonitor != "" {
		name = switchMonitor
	}
	mode := cfg.MonitorMode
	if switchMode != "" {
		mode = switchMode
	}

	switcher := display.NewSwitcher(command.NewExecRunner(), cfg.MonitorConfigCommand)
	if err := switcher.Switch(context.Background(), name, mode); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✅ Switched to %s at %s\n", name, mode)
	return nil
}
