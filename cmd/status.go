package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/limitedwip/internal/limbo"
	"github.com/fakeyudi/limitedwip/internal/session"
	"github.com/fakeyudi/limitedwip/internal/watchdog"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the change size, the commit gate and the watcher session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c := GetConfig()

		store, err := session.NewSessionStore(repo.WorkDir)
		if err != nil {
			return err
		}
		s, err := store.Load()
		switch {
		case errors.Is(err, session.ErrNoSession):
			cmd.Println("Watcher: not running")
		case err != nil:
			return err
		default:
			cmd.Printf("Watcher: running since %s (pid %d, %s)\n",
				s.StartTime.Format(time.RFC3339), s.PID, time.Since(s.StartTime).Round(time.Second))
		}

		settings := c.WatchdogSettings()
		if !settings.Enabled {
			cmd.Println("Watchdog: disabled")
		} else {
			size, err := repo.ChangeSize(ctx)
			if err != nil {
				return err
			}
			cmd.Printf("Change size: %d/%d lines\n", size, settings.MaxLinesInChange)

			staged, err := repo.StagedChangeSize(ctx)
			if err != nil {
				return err
			}
			verdict := "allowed"
			if !watchdog.Allow(settings, staged) {
				verdict = "blocked"
			}
			cmd.Printf("Staged: %d lines (commit %s)\n", staged, verdict)
		}

		if !c.AutoRevert.Enabled {
			cmd.Println("Auto-revert: disabled")
		} else {
			cmd.Printf("Auto-revert: enabled, %d min, mode %s\n", c.AutoRevert.MinutesTillRevert, c.AutoRevert.Mode)
		}

		if !c.Limbo.Enabled {
			cmd.Println("Limbo: disabled")
			return nil
		}
		return printLimbo(cmd)
	},
}

func printLimbo(cmd *cobra.Command) error {
	store, err := session.NewLimboStore(repo.WorkDir)
	if err != nil {
		return err
	}
	state, err := store.Load()
	if err != nil {
		return err
	}
	head, err := repo.Head(cmd.Context())
	if err != nil {
		return err
	}
	eng := limbo.New(nil, nil, GetConfig().LimboSettings(), state)
	eng.OnHead(head)

	verdict := "blocked"
	if eng.IsCommitAllowed() {
		verdict = "allowed"
	}
	cmd.Printf("Limbo: %d passing test runs since last commit (commit %s)\n", eng.State().TestsRun, verdict)
	return nil
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
