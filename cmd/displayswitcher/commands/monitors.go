package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/command"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/display"
	"github.com/spf13/cobra"
)

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List connected monitors",
	Long: `List the monitors reported by the monitor configuration tool.

The DISPLAY NAME column is what primary_monitor_name is matched against.`,
	Example: `  # List monitors in table format (default)
  displayswitcher monitors

  # List monitors in JSON format
  displayswitcher monitors --format json`,
	RunE: runMonitors,
}

var monitorsFormat string

func init() {
	rootCmd.AddCommand(monitorsCmd)

	monitorsCmd.Flags().StringVarP(&monitorsFormat, "format", "f", "table", "output format (table, json or yaml)")
}

func runMonitors(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	switcher := display.NewSwitcher(command.NewExecRunner(), cfg.MonitorConfigCommand)
	monitors, err := switcher.ListMonitors(context.Background())
	if err != nil {
		return err
	}

	return writeFormatted(os.Stdout, monitorsFormat, monitors, func(w io.Writer) error {
		return printMonitorsTable(w, monitors, cfg.PrimaryMonitorName)
	})
}

func printMonitorsTable(out io.Writer, monitors []display.Monitor, target string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "PORT\tDISPLAY NAME\tCURRENT MODE\tMODES\tTARGET")
	fmt.Fprintln(w, "----\t------------\t------------\t-----\t------")

	for _, m := range monitors {
		isTarget := "No"
		if target != "" && strings.Contains(m.DisplayName, target) {
			isTarget = "Yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", m.Port, m.DisplayName, m.CurrentMode, len(m.Modes), isTarget)
	}

	return nil
}
