package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fakeyudi/limitedwip/internal/autorevert"
	"github.com/fakeyudi/limitedwip/internal/clock"
	"github.com/fakeyudi/limitedwip/internal/config"
	"github.com/fakeyudi/limitedwip/internal/event"
	"github.com/fakeyudi/limitedwip/internal/vcs"
	"github.com/fakeyudi/limitedwip/internal/watchdog"
)

// Sampler reports the working-copy state once per tick.
type Sampler interface {
	Sample(ctx context.Context) (vcs.Sample, error)
}

// Options configures a Runner.
type Options struct {
	Config   config.Config
	Sampler  Sampler
	Executor autorevert.Executor
	Sink     event.Sink
	Clock    clock.Clock // defaults to a one-second clock.Ticker
	Log      zerolog.Logger

	// Updates delivers reloaded settings; nil means settings never change.
	Updates <-chan config.Config
}

// Runner owns the watchdog and auto-revert engines for one working copy and
// feeds them from a single goroutine: every tick samples the working copy,
// turns HEAD movement into commit notifications, then advances both engines.
type Runner struct {
	watchdog *watchdog.Watchdog
	revert   *autorevert.Engine
	sampler  Sampler
	clock    clock.Clock
	updates  <-chan config.Config
	log      zerolog.Logger

	primed   bool
	lastHead string
	lastSize int
	failing  bool
}

// NewRunner wires both engines to opts.Sink.
func NewRunner(opts Options) *Runner {
	c := opts.Clock
	if c == nil {
		c = clock.Ticker{}
	}
	return &Runner{
		watchdog: watchdog.New(opts.Sink, opts.Config.WatchdogSettings()),
		revert:   autorevert.New(opts.Sink, opts.Executor, opts.Config.AutoRevertSettings()),
		sampler:  opts.Sampler,
		clock:    c,
		updates:  opts.Updates,
		log:      opts.Log,
	}
}

// Run processes ticks and settings updates until ctx is cancelled or the
// clock stops.
func (r *Runner) Run(ctx context.Context) error {
	defer r.revert.Stop()

	ticks := r.clock.Start(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case seconds, ok := <-ticks:
			if !ok {
				return nil
			}
			r.Step(ctx, seconds)
		case cfg, ok := <-r.updates:
			if !ok {
				r.updates = nil
				continue
			}
			r.ApplyConfig(cfg)
			r.log.Info().Msg("settings reloaded")
		}
	}
}

// Step handles a single tick. Run calls it; tests may call it directly.
func (r *Runner) Step(ctx context.Context, seconds int) {
	sample, err := r.sampler.Sample(ctx)
	switch {
	case err != nil && !r.failing:
		r.failing = true
		r.log.Warn().Err(err).Msg("cannot sample working copy; reusing last known size")
	case err == nil && r.failing:
		r.failing = false
		r.log.Info().Msg("working copy sampling recovered")
	}

	if err == nil {
		if r.primed {
			switch {
			case sample.Head != r.lastHead:
				r.log.Info().Str("head", sample.Head).Msg("commit detected")
				r.watchdog.OnCommit()
				r.revert.OnCommit()
			case r.lastSize > 0 && sample.ChangeSize == 0:
				r.log.Debug().Msg("all changes rolled back")
				r.revert.OnRollback()
			}
		}
		r.primed = true
		r.lastHead = sample.Head
		r.lastSize = sample.ChangeSize
	}

	r.watchdog.OnTick(seconds, r.lastSize)
	r.revert.OnTick()
}

// ApplyConfig hands a new settings snapshot to both engines. Safe to call
// from any goroutine.
func (r *Runner) ApplyConfig(cfg config.Config) {
	r.watchdog.OnSettingsChanged(cfg.WatchdogSettings())
	r.revert.OnSettingsChanged(cfg.AutoRevertSettings())
}

// AllowCommit answers the commit gate for the running watchdog.
func (r *Runner) AllowCommit(changeSize int) bool {
	return r.watchdog.AllowCommit(changeSize)
}

// ToggleSkipNotificationsUntilCommit flips the watchdog's skip flag.
func (r *Runner) ToggleSkipNotificationsUntilCommit() bool {
	return r.watchdog.ToggleSkipNotificationsUntilCommit()
}

// ToggleAutoRevert starts or stops the countdown and reports whether it runs.
func (r *Runner) ToggleAutoRevert() bool {
	return r.revert.Toggle()
}

// StartAutoRevert starts the countdown if auto-revert is enabled.
func (r *Runner) StartAutoRevert() bool {
	return r.revert.Start()
}

// StopAutoRevert stops the countdown.
func (r *Runner) StopAutoRevert() {
	r.revert.Stop()
}

// WatchdogSnapshot returns the watchdog's current state.
func (r *Runner) WatchdogSnapshot() watchdog.Snapshot {
	return r.watchdog.Snapshot()
}

// AutoRevertSnapshot returns the countdown's current state.
func (r *Runner) AutoRevertSnapshot() autorevert.Snapshot {
	return r.revert.Snapshot()
}
