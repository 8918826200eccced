package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect DisplaySwitcher configuration",
	Long: `View the effective DisplaySwitcher configuration.

The config file holds one key=value pair per line. Lines starting with #
are comments. Values can also be set with DISPLAY_SWITCHER_<KEY>
environment variables.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after defaults, file and environment are applied.`,
	Example: `  # Show configuration as YAML (default)
  displayswitcher config show

  # Show configuration as JSON
  displayswitcher config show --format json`,
	RunE: runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Get a configuration value",
	Long:  `Get a specific configuration value.`,
	Example: `  # Get the idle threshold
  displayswitcher config get idle_threshold

  # Get the monitor name
  displayswitcher config get primary_monitor_name`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

var formatFlag string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configPathCmd)

	configShowCmd.Flags().StringVarP(&formatFlag, "format", "f", "yaml", "output format (yaml or json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	return writeFormatted(os.Stdout, formatFlag, configMgr.Get(), nil)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := strings.ToLower(args[0])

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	value, ok := configMgr.Get().Values()[key]
	if !ok {
		return fmt.Errorf("configuration key not found: %s (known keys: %s)", key, strings.Join(config.Keys(), ", "))
	}

	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), configMgr.GetConfigPath())
	return nil
}
