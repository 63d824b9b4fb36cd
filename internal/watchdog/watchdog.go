// Package watchdog tracks the size of the uncommitted change set, reminds the
// developer at a fixed interval, and answers whether a commit may proceed.
package watchdog

import (
	"sync"

	"github.com/fakeyudi/limitedwip/internal/event"
)

// Settings is an immutable configuration snapshot. Ranges are validated by
// the settings source; the watchdog only honours Enabled.
type Settings struct {
	Enabled                      bool
	MaxLinesInChange             int
	NotificationIntervalSeconds  int
	DisableCommitsAboveThreshold bool
}

// State is the mutable part of the watchdog.
type State struct {
	SecondsSinceLastNotification int
	SkipNotificationsUntilCommit bool
}

// Snapshot is a copy of everything a status display needs.
type Snapshot struct {
	Settings       Settings
	State          State
	ChangeSize     int
	AboveThreshold bool
	LastTick       int
}

// Watchdog is safe for concurrent use. Events are published while the lock
// is held, so a Sink must not call back into the same Watchdog.
type Watchdog struct {
	mu       sync.Mutex
	sink     event.Sink
	settings Settings
	state    State

	changeSize int
	lastTick   int
	// exceeded is set once ThresholdExceeded fired for the current crossing
	// and cleared when the size drops back to the threshold or below.
	exceeded bool
}

// New returns a watchdog configured with settings.
func New(sink event.Sink, settings Settings) *Watchdog {
	if sink == nil {
		sink = event.Discard
	}
	return &Watchdog{sink: sink, settings: settings}
}

// OnSettingsChanged replaces the configuration.
func (w *Watchdog) OnSettingsChanged(settings Settings) {
	w.mu.Lock()
	defer w.mu.Unlock()

	old := w.settings
	w.settings = settings

	if old.Enabled && !settings.Enabled {
		w.state.SkipNotificationsUntilCommit = false
	}
	if old.MaxLinesInChange != settings.MaxLinesInChange || !settings.Enabled {
		w.exceeded = false
	}

	w.sink.Publish(event.Event{
		Kind:     event.WatchdogSettingsChanged,
		Enabled:  settings.Enabled,
		MaxLines: settings.MaxLinesInChange,
	})
}

// OnTick is called once per clock second with the current change size.
// Negative inputs are treated as zero.
func (w *Watchdog) OnTick(elapsedSeconds, changeSize int) {
	changeSize = clamp(changeSize)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.settings.Enabled {
		return
	}
	w.lastTick = clamp(elapsedSeconds)
	w.changeSize = changeSize
	limit := w.settings.MaxLinesInChange

	w.sink.Publish(event.Event{
		Kind:       event.ChangeSizeUpdated,
		ChangeSize: changeSize,
		MaxLines:   limit,
		Skip:       w.state.SkipNotificationsUntilCommit,
	})

	w.state.SecondsSinceLastNotification++
	if w.state.SecondsSinceLastNotification >= w.settings.NotificationIntervalSeconds {
		if !w.state.SkipNotificationsUntilCommit && changeSize > 0 {
			w.sink.Publish(event.Event{Kind: event.Remind, ChangeSize: changeSize, MaxLines: limit})
		}
		w.state.SecondsSinceLastNotification = 0
	}

	switch {
	case changeSize > limit && !w.exceeded:
		w.exceeded = true
		w.sink.Publish(event.Event{Kind: event.ThresholdExceeded, ChangeSize: changeSize, MaxLines: limit})
	case changeSize <= limit && w.exceeded:
		w.exceeded = false
		w.sink.Publish(event.Event{Kind: event.WithinLimit, ChangeSize: changeSize, MaxLines: limit})
	}
}

// OnCommit restarts the reminder interval and lifts skip-until-commit.
func (w *Watchdog) OnCommit() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state = State{}
	if !w.settings.Enabled {
		return
	}
	w.sink.Publish(event.Event{Kind: event.WatchdogRestarted, MaxLines: w.settings.MaxLinesInChange})
}

// AllowCommit reports whether a commit of changeSize lines may proceed.
// It has no side effects.
func (w *Watchdog) AllowCommit(changeSize int) bool {
	w.mu.Lock()
	s := w.settings
	w.mu.Unlock()
	return Allow(s, changeSize)
}

// Allow is the commit gate predicate for a settings snapshot.
func Allow(s Settings, changeSize int) bool {
	return !(s.Enabled && s.DisableCommitsAboveThreshold && clamp(changeSize) > s.MaxLinesInChange)
}

// ToggleSkipNotificationsUntilCommit flips the skip flag and returns the new value.
func (w *Watchdog) ToggleSkipNotificationsUntilCommit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.setSkip(!w.state.SkipNotificationsUntilCommit)
}

// SetSkipNotificationsUntilCommit sets the skip flag and returns it.
func (w *Watchdog) SetSkipNotificationsUntilCommit(skip bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.setSkip(skip)
}

func (w *Watchdog) setSkip(skip bool) bool {
	w.state.SkipNotificationsUntilCommit = skip
	if w.settings.Enabled {
		w.sink.Publish(event.Event{Kind: event.SkipToggled, Skip: skip})
	}
	return skip
}

// Snapshot returns a copy of the current settings and state.
func (w *Watchdog) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		Settings:       w.settings,
		State:          w.state,
		ChangeSize:     w.changeSize,
		AboveThreshold: w.exceeded,
		LastTick:       w.lastTick,
	}
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
