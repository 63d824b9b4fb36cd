package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/limitedwip/internal/config"
	"github.com/fakeyudi/limitedwip/internal/event"
	"github.com/fakeyudi/limitedwip/internal/logging"
	"github.com/fakeyudi/limitedwip/internal/notify"
	"github.com/fakeyudi/limitedwip/internal/session"
	"github.com/fakeyudi/limitedwip/internal/tui"
	"github.com/fakeyudi/limitedwip/internal/vcs"
)

// resampleInterval bounds how often a burst of file events re-runs git.
const resampleInterval = 500 * time.Millisecond

var (
	watchForce      bool
	watchAutoRevert bool
	watchPlain      bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the working copy and remind, block or revert when changes grow",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetConfig()
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		store, err := session.NewSessionStore(repo.WorkDir)
		if err != nil {
			return err
		}
		existing, err := store.Load()
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			return err
		}
		if existing != nil && !watchForce {
			return fmt.Errorf("%w (started at %s, pid %d); use --force if that watcher is gone",
				session.ErrSessionActive, existing.StartTime.Format(time.RFC3339), existing.PID)
		}

		s := &session.Session{
			ID:        uuid.New().String(),
			StartTime: time.Now(),
			WorkDir:   repo.WorkDir,
			PID:       os.Getpid(),
		}
		if err := store.Save(s); err != nil {
			return err
		}
		defer store.Delete()

		interactive := !watchPlain && term.IsTerminal(os.Stdout.Fd())
		log, closeLog, err := watchLogger(cmd, c, interactive)
		if err != nil {
			return err
		}
		defer closeLog()
		log = log.With().Str("session", s.ID).Logger()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		bus := event.NewBus()
		var events <-chan event.Event
		unsubscribe := func() {}
		if interactive {
			events, unsubscribe = bus.Subscribe(64)
		}

		sampler := vcs.NewSampler(repo, log, resampleInterval)
		updates := make(chan config.Config, 1)
		runner := session.NewRunner(session.Options{
			Config:  c,
			Sampler: sampler,
			Executor: &session.RepoExecutor{
				Repo:    repo,
				Mode:    c.AutoRevert.Mode,
				Sampler: sampler,
				Log:     log,
			},
			Sink:    event.Fanout(notify.NewLogSink(log, 0), bus),
			Log:     log,
			Updates: updates,
		})

		go func() {
			if err := sampler.Watch(ctx); err != nil {
				log.Warn().Err(err).Msg("file watching unavailable; polling git every tick")
			}
		}()
		go func() {
			err := config.Watch(ctx, repo.WorkDir, c, log, func(next config.Config) {
				select {
				case updates <- next:
				case <-ctx.Done():
				}
			})
			if err != nil {
				log.Warn().Err(err).Msg("config hot reload unavailable")
			}
		}()

		if watchAutoRevert && !runner.StartAutoRevert() {
			cmd.PrintErrln("auto-revert is disabled; set auto_revert.enabled to true to use --auto-revert")
		}
		log.Info().Str("root", repo.WorkDir).Msg("watching working copy")

		if !interactive {
			return runner.Run(ctx)
		}

		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			done <- runner.Run(runCtx)
			unsubscribe()
		}()

		err = tui.Run(runCtx, events, runner, initialStatus(runner))
		cancel()
		if runErr := <-done; err == nil {
			err = runErr
		}
		return err
	},
}

// watchLogger logs to stderr in plain mode and to a file under the data
// directory while the TUI owns the screen.
func watchLogger(cmd *cobra.Command, c config.Config, interactive bool) (zerolog.Logger, func(), error) {
	if !interactive {
		return logging.New(logging.Options{Level: c.LogLevel, Console: true, Writer: cmd.ErrOrStderr()}), func() {}, nil
	}
	dir, err := logging.DataDir()
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	f, err := logging.OpenFile(filepath.Join(dir, "watch.log"))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
	}
	return logging.New(logging.Options{Level: c.LogLevel, Writer: f}), func() { f.Close() }, nil
}

func initialStatus(r *session.Runner) tui.Status {
	w := r.WatchdogSnapshot()
	a := r.AutoRevertSnapshot()
	return tui.Status{
		WorkDir:           repo.WorkDir,
		WatchdogEnabled:   w.Settings.Enabled,
		ChangeSize:        w.ChangeSize,
		MaxLines:          w.Settings.MaxLinesInChange,
		Skip:              w.State.SkipNotificationsUntilCommit,
		AutoRevertEnabled: a.Settings.Enabled,
		Running:           a.State.Running,
		SecondsRemaining:  a.SecondsRemaining,
		ShowTimer:         a.Settings.ShowTimerInToolbar,
	}
}

func init() {
	watchCmd.Flags().BoolVar(&watchForce, "force", false, "start even if a session record exists for this repository")
	watchCmd.Flags().BoolVar(&watchAutoRevert, "auto-revert", false, "start the auto-revert countdown immediately")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "log notifications instead of showing the terminal UI")
	rootCmd.AddCommand(watchCmd)
}
