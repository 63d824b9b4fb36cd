package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/limitedwip/internal/config"
	"github.com/fakeyudi/limitedwip/internal/event"
	"github.com/fakeyudi/limitedwip/internal/limbo"
	"github.com/fakeyudi/limitedwip/internal/notify"
	"github.com/fakeyudi/limitedwip/internal/session"
	"github.com/fakeyudi/limitedwip/internal/watchdog"
)

// ErrCommitBlocked is returned by gate when a check vetoes the commit. It is
// the only error gate returns; faults inside limitedwip let the commit through.
var ErrCommitBlocked = errors.New("commit blocked")

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Check the staged change before a commit (run by the pre-commit hook)",
	// Loading happens in RunE so that a broken config or repository
	// lookup warns instead of failing the hook.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadWorkspace(cmd.Context()); err != nil {
			return allowOnFault(cmd, err)
		}
		c := GetConfig()
		if err := c.Validate(); err != nil {
			return allowOnFault(cmd, fmt.Errorf("invalid config: %w", err))
		}

		if err := checkStagedSize(cmd, c); err != nil {
			return err
		}
		if c.Limbo.Enabled {
			return checkTestsRun(cmd, c)
		}
		return nil
	},
}

func checkStagedSize(cmd *cobra.Command, c config.Config) error {
	settings := c.WatchdogSettings()
	if !settings.Enabled || !settings.DisableCommitsAboveThreshold {
		return nil
	}
	size, err := repo.StagedChangeSize(cmd.Context())
	if err != nil {
		return allowOnFault(cmd, fmt.Errorf("measuring staged change: %w", err))
	}
	if watchdog.Allow(settings, size) {
		return nil
	}
	cmd.PrintErrf("commit blocked — change exceeds size limit (%d > %d lines)\n", size, settings.MaxLinesInChange)
	cmd.PrintErrln("Split the change, or set watchdog.disable_commits_above_threshold to false.")
	return ErrCommitBlocked
}

func checkTestsRun(cmd *cobra.Command, c config.Config) error {
	store, err := session.NewLimboStore(repo.WorkDir)
	if err != nil {
		return allowOnFault(cmd, err)
	}
	state, err := store.Load()
	if err != nil {
		return allowOnFault(cmd, err)
	}
	head, err := repo.Head(cmd.Context())
	if err != nil {
		return allowOnFault(cmd, fmt.Errorf("reading HEAD: %w", err))
	}

	eng := limbo.New(stderrSink(cmd), nil, c.LimboSettings(), state)
	eng.OnHead(head)
	allowed := eng.IsCommitAllowed()
	if err := store.Save(eng.State()); err != nil {
		cmd.PrintErrf("limitedwip: %v\n", err)
	}
	if allowed {
		return nil
	}
	cmd.PrintErrln("Run the tests with `limitedwip test -- <command>`, or `limitedwip allow-commit` to skip the check once.")
	return ErrCommitBlocked
}

// allowOnFault reports err and lets the commit proceed.
func allowOnFault(cmd *cobra.Command, err error) error {
	cmd.PrintErrf("limitedwip: %v; commit allowed\n", err)
	return nil
}

// stderrSink prints each event as a sentence on the command's stderr.
func stderrSink(cmd *cobra.Command) event.Sink {
	return event.SinkFunc(func(e event.Event) {
		cmd.PrintErrln(notify.Describe(e))
	})
}

func init() {
	rootCmd.AddCommand(gateCmd)
}
