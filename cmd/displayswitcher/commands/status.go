package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/coordinator"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/session"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and daemon status",
	Long: `Show the current session idle time and lock state from the session bus.

When the daemon runs with api_enabled=true its state is fetched from the
local API as well.`,
	Example: `  # Show status as a table (default)
  displayswitcher status

  # Show status as JSON
  displayswitcher status --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var statusFormat string

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", "table", "output format (table, json or yaml)")
}

// Status is what the status command reports
type Status struct {
	IdleTimeMS uint64                `json:"idle_time_ms" yaml:"idle_time_ms"`
	Locked     bool                  `json:"locked" yaml:"locked"`
	Daemon     *coordinator.Snapshot `json:"daemon,omitempty" yaml:"daemon,omitempty"`
	DaemonErr  string                `json:"daemon_error,omitempty" yaml:"daemon_error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := session.Connect()
	if err != nil {
		return err
	}
	defer sess.Close()

	idle, err := sess.IdleMonitor().GetIdletime(ctx)
	if err != nil {
		return err
	}
	locked, err := sess.ScreenSaver().GetActive(ctx)
	if err != nil {
		return err
	}

	status := Status{
		IdleTimeMS: uint64(idle.Milliseconds()),
		Locked:     locked,
	}
	if cfg.APIEnabled {
		snap, err := fetchDaemonState(ctx, cfg.APIListen)
		if err != nil {
			status.DaemonErr = err.Error()
		} else {
			status.Daemon = snap
		}
	}

	return writeFormatted(os.Stdout, statusFormat, status, func(w io.Writer) error {
		return printStatusTable(w, status)
	})
}

// fetchDaemonState reads /api/state from a running daemon
func fetchDaemonState(ctx context.Context, addr string) (*coordinator.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/api/state", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned %s", resp.Status)
	}

	var snap coordinator.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode daemon state: %w", err)
	}
	return &snap, nil
}

func printStatusTable(out io.Writer, s Status) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	locked := "No"
	if s.Locked {
		locked = "Yes"
	}
	fmt.Fprintf(w, "Idle time:\t%s\n", time.Duration(s.IdleTimeMS)*time.Millisecond)
	fmt.Fprintf(w, "Locked:\t%s\n", locked)

	switch {
	case s.Daemon != nil:
		fmt.Fprintf(w, "Daemon state:\t%s\n", s.Daemon.State)
		fmt.Fprintf(w, "Monitor:\t%s @ %s\n", s.Daemon.MonitorName, s.Daemon.MonitorMode)
		if t := s.Daemon.LastTransition; t != nil {
			fmt.Fprintf(w, "Last transition:\t%s -> %s (%s) at %s\n", t.From, t.To, t.Reason, t.Time.Format(time.RFC3339))
		}
	case s.DaemonErr != "":
		fmt.Fprintf(w, "Daemon:\t%s\n", s.DaemonErr)
	default:
		fmt.Fprintf(w, "Daemon:\tapi disabled\n")
	}

	return nil
}
