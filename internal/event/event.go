// Package event defines the notifications emitted by the watchdog and
// auto-revert engines and the plumbing used to deliver them.
//
// Engines publish to a Sink and never wait on it. Presentation (terminal UI,
// logs) subscribes to those events instead of reaching into engine state.
package event

import "time"

// Kind identifies what happened.
type Kind string

const (
	// Change-size watchdog.
	ChangeSizeUpdated       Kind = "change_size_updated"
	Remind                  Kind = "remind"
	ThresholdExceeded       Kind = "threshold_exceeded"
	WithinLimit             Kind = "within_limit"
	SkipToggled             Kind = "skip_toggled"
	WatchdogRestarted       Kind = "watchdog_restarted"
	WatchdogSettingsChanged Kind = "watchdog_settings_changed"

	// Auto-revert countdown.
	AutoRevertStarted         Kind = "auto_revert_started"
	AutoRevertStopped         Kind = "auto_revert_stopped"
	Committed                 Kind = "committed"
	RolledBack                Kind = "rolled_back"
	TimeTillRevert            Kind = "time_till_revert"
	RevertRequested           Kind = "revert_requested"
	Reverted                  Kind = "reverted"
	RevertFailed              Kind = "revert_failed"
	AutoRevertSettingsChanged Kind = "auto_revert_settings_changed"

	// Test-before-commit (limbo).
	TestPassed       Kind = "test_passed"
	TestFailed       Kind = "test_failed"
	CommitVetoed     Kind = "commit_vetoed"
	OneCommitAllowed Kind = "one_commit_allowed"
)

// Event is a single notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind
	Time time.Time

	ChangeSize int // lines in the current change
	MaxLines   int // configured threshold

	SecondsRemaining int // seconds until the next auto-revert
	TestsRun         int // passing test runs since the last commit

	Skip      bool // skip-notifications-until-commit flag
	Enabled   bool // feature enabled after a settings change
	ShowTimer bool // show the countdown rather than a static label

	Err error // set on RevertFailed
}

// Sink receives events. Implementations must not block and must not call
// back into the engine that published the event.
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

func (f SinkFunc) Publish(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

type fanout []Sink

func (f fanout) Publish(e Event) {
	for _, s := range f {
		s.Publish(e)
	}
}

// Fanout delivers each event to every non-nil sink in order.
func Fanout(sinks ...Sink) Sink {
	out := make(fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
