package commands

import (
	"context"
	"fmt"

	"github.com/bryanchriswhite/DisplaySwitcher/internal/command"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/config"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/lock"
	"github.com/bryanchriswhite/DisplaySwitcher/internal/session"
	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the screen now",
	Long: `Lock the session using the configured lock backend: "loginctl" runs
"<lock_command> lock-session", "dbus" calls org.gnome.ScreenSaver.Lock.`,
	Args: cobra.NoArgs,
	RunE: runLock,
}

func init() {
	rootCmd.AddCommand(lockCmd)
}

func runLock(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var busLocker lock.Locker
	if cfg.LockBackend == config.LockBackendDBus {
		sess, err := session.Connect()
		if err != nil {
			return err
		}
		defer sess.Close()
		busLocker = sess.ScreenSaver()
	}

	locker, err := lock.ForBackend(cfg.LockBackend,
		lock.NewCommandLocker(command.NewExecRunner(), cfg.LockCommand),
		busLocker,
	)
	if err != nil {
		return err
	}

	return locker.Lock(context.Background())
}
