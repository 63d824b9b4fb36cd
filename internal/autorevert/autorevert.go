// Package autorevert runs the countdown that discards uncommitted changes
// when the developer has not committed for a configured period.
package autorevert

import (
	"sync"

	"github.com/fakeyudi/limitedwip/internal/event"
)

// Settings is an immutable configuration snapshot.
type Settings struct {
	Enabled            bool
	MinutesTillRevert  int
	NotifyOnRevert     bool
	ShowTimerInToolbar bool
}

// SecondsTillRevert is the countdown length in seconds.
func (s Settings) SecondsTillRevert() int { return s.MinutesTillRevert * 60 }

// Executor discards all uncommitted changes. A non-nil error means the
// revert did not complete; the engine reports it and does not retry.
type Executor interface {
	RevertAllChanges() error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func() error

func (f ExecutorFunc) RevertAllChanges() error { return f() }

// State is the countdown state: Stopped, or Running with SecondsElapsed.
type State struct {
	Running        bool
	SecondsElapsed int
}

// Snapshot is a copy of everything a status display needs.
type Snapshot struct {
	Settings         Settings
	State            State
	SecondsRemaining int
}

// Engine is safe for concurrent use. Events are published while the lock is
// held, so the Sink must not call back into the Engine.
type Engine struct {
	mu       sync.Mutex
	sink     event.Sink
	executor Executor
	settings Settings
	state    State

	gen            int // bumped on every start and stop
	reverting      bool
	absorbRollback bool
}

// New returns a stopped engine.
func New(sink event.Sink, executor Executor, settings Settings) *Engine {
	if sink == nil {
		sink = event.Discard
	}
	return &Engine{sink: sink, executor: executor, settings: settings}
}

// Start begins the countdown. It is a no-op when already running or when the
// feature is disabled. It reports whether the countdown is running afterwards.
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Running || !e.settings.Enabled {
		return e.state.Running
	}
	e.state = State{Running: true}
	e.gen++
	e.publish(event.AutoRevertStarted)
	return true
}

// Stop halts the countdown. Calling it when stopped does nothing.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stop()
}

func (e *Engine) stop() {
	if !e.state.Running {
		return
	}
	e.state = State{}
	e.gen++
	e.absorbRollback = false
	e.sink.Publish(event.Event{Kind: event.AutoRevertStopped})
}

// Toggle starts a stopped countdown or stops a running one and reports
// whether it is running afterwards.
func (e *Engine) Toggle() bool {
	e.mu.Lock()
	running := e.state.Running
	e.mu.Unlock()

	if running {
		e.Stop()
		return false
	}
	return e.Start()
}

// OnTick advances a running countdown by one second. When the countdown
// expires the executor is asked to revert and the countdown restarts from zero.
// The executor runs without the lock held, so Stop, Toggle and Snapshot stay
// responsive; a Stop or restart issued meanwhile discards the outcome.
func (e *Engine) OnTick() {
	e.mu.Lock()
	if !e.state.Running || e.reverting {
		e.mu.Unlock()
		return
	}
	e.state.SecondsElapsed++

	e.publish(event.TimeTillRevert)
	if e.state.SecondsElapsed < e.settings.SecondsTillRevert() {
		e.mu.Unlock()
		return
	}

	e.sink.Publish(event.Event{Kind: event.RevertRequested})
	e.state.SecondsElapsed = 0
	executor, gen := e.executor, e.gen
	e.reverting = true
	e.mu.Unlock()

	var err error
	if executor != nil {
		err = executor.RevertAllChanges()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.reverting = false
	if gen != e.gen || !e.state.Running {
		return
	}
	total := e.settings.SecondsTillRevert()
	switch {
	case err != nil:
		e.sink.Publish(event.Event{Kind: event.RevertFailed, Err: err, SecondsRemaining: total})
		return
	case e.settings.NotifyOnRevert:
		e.sink.Publish(event.Event{Kind: event.Reverted, SecondsRemaining: total})
	}
	// The next empty sample comes from this revert.
	e.absorbRollback = true
}

// OnCommit restarts a running countdown without stopping it.
func (e *Engine) OnCommit() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.absorbRollback = false
	if !e.state.Running {
		return
	}
	e.state.SecondsElapsed = 0
	e.publish(event.Committed)
}

// OnRollback is called when every uncommitted change was discarded. It
// restarts the countdown like a commit does. The first rollback after a
// successful auto-revert is the revert itself and is not reported.
func (e *Engine) OnRollback() {
	e.mu.Lock()
	defer e.mu.Unlock()

	absorbed := e.absorbRollback
	e.absorbRollback = false
	if !e.state.Running {
		return
	}
	e.state.SecondsElapsed = 0
	if !absorbed {
		e.publish(event.RolledBack)
	}
}

// OnSettingsChanged replaces the configuration. Disabling stops the countdown;
// enabling never starts it.
func (e *Engine) OnSettingsChanged(settings Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.settings = settings
	if !settings.Enabled {
		e.stop()
	}
	e.sink.Publish(event.Event{
		Kind:             event.AutoRevertSettingsChanged,
		Enabled:          settings.Enabled,
		ShowTimer:        settings.ShowTimerInToolbar,
		SecondsRemaining: e.remaining(),
	})
}

// Snapshot returns a copy of the current settings and state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Settings:         e.settings,
		State:            e.state,
		SecondsRemaining: e.remaining(),
	}
}

func (e *Engine) remaining() int {
	r := e.settings.SecondsTillRevert() - e.state.SecondsElapsed
	if r < 0 {
		return 0
	}
	return r
}

func (e *Engine) publish(kind event.Kind) {
	e.sink.Publish(event.Event{
		Kind:             kind,
		SecondsRemaining: e.remaining(),
		ShowTimer:        e.settings.ShowTimerInToolbar,
	})
}
