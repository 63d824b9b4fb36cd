// Package notify presents engine events through the structured logger.
// It is the Notification Sink used when no terminal UI is attached.
package notify

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/fakeyudi/limitedwip/internal/event"
)

// LogSink writes events to a zerolog logger. Per-second progress events
// (change size, countdown) are throttled per kind; everything else is logged
// as it arrives.
type LogSink struct {
	log      zerolog.Logger
	progress map[event.Kind]*rate.Limiter
}

// NewLogSink returns a sink that logs at most one line per progress kind per
// every.
func NewLogSink(log zerolog.Logger, every time.Duration) *LogSink {
	if every <= 0 {
		every = 30 * time.Second
	}
	return &LogSink{
		log:      log,
		progress: map[event.Kind]*rate.Limiter{
			event.ChangeSizeUpdated: rate.NewLimiter(rate.Every(every), 1),
			event.TimeTillRevert:    rate.NewLimiter(rate.Every(every), 1),
		},
	}
}

// Publish implements event.Sink.
func (s *LogSink) Publish(e event.Event) {
	if limiter, ok := s.progress[e.Kind]; ok {
		if limiter.Allow() {
			s.log.Debug().Str("event", string(e.Kind)).Msg(Describe(e))
		}
		return
	}

	switch e.Kind {
	case event.Remind, event.ThresholdExceeded:
		s.log.Warn().
			Str("event", string(e.Kind)).
			Int("change_size", e.ChangeSize).
			Int("max_lines", e.MaxLines).
			Msg(Describe(e))
	case event.RevertFailed:
		s.log.Error().Err(e.Err).Str("event", string(e.Kind)).Msg(Describe(e))
	case event.Reverted, event.RevertRequested, event.TestFailed, event.CommitVetoed:
		s.log.Warn().Str("event", string(e.Kind)).Msg(Describe(e))
	default:
		s.log.Info().Str("event", string(e.Kind)).Msg(Describe(e))
	}
}

// Describe renders an event as a short human-readable sentence.
func Describe(e event.Event) string {
	switch e.Kind {
	case event.ChangeSizeUpdated:
		return fmt.Sprintf("Change size: %d/%d", e.ChangeSize, e.MaxLines)
	case event.Remind:
		return fmt.Sprintf("Uncommitted change is %d lines (limit %d); consider committing", e.ChangeSize, e.MaxLines)
	case event.ThresholdExceeded:
		return fmt.Sprintf("Change size exceeded limit: %d > %d lines", e.ChangeSize, e.MaxLines)
	case event.WithinLimit:
		return fmt.Sprintf("Change size back within limit: %d/%d", e.ChangeSize, e.MaxLines)
	case event.SkipToggled:
		if e.Skip {
			return "Change size notifications skipped until next commit"
		}
		return "Change size notifications resumed"
	case event.WatchdogRestarted:
		return "Commit detected; change size reminders restarted"
	case event.WatchdogSettingsChanged:
		if !e.Enabled {
			return "Change size watchdog disabled"
		}
		return fmt.Sprintf("Change size watchdog enabled (limit %d lines)", e.MaxLines)
	case event.AutoRevertStarted:
		return "Auto-revert started; reverting in " + FormatSeconds(e.SecondsRemaining)
	case event.AutoRevertStopped:
		return "Auto-revert stopped"
	case event.Committed:
		return "Countdown restarted; auto-revert in " + FormatSeconds(e.SecondsRemaining)
	case event.RolledBack:
		return "All changes rolled back; auto-revert in " + FormatSeconds(e.SecondsRemaining)
	case event.TimeTillRevert:
		return "Auto-revert in " + FormatSeconds(e.SecondsRemaining)
	case event.RevertRequested:
		return "Auto-revert timer expired; reverting uncommitted changes"
	case event.Reverted:
		return "Uncommitted changes were reverted"
	case event.RevertFailed:
		if e.SecondsRemaining == 0 {
			return "Revert could not complete"
		}
		return "Auto-revert could not complete; retrying in " + FormatSeconds(e.SecondsRemaining)
	case event.AutoRevertSettingsChanged:
		if !e.Enabled {
			return "Auto-revert disabled"
		}
		return "Auto-revert enabled"
	case event.TestPassed:
		return fmt.Sprintf("Tests passed (%d passing runs since last commit)", e.TestsRun)
	case event.TestFailed:
		return "Tests failed; reverting uncommitted changes"
	case event.CommitVetoed:
		return "Commit cancelled: no passing test run since the last commit"
	case event.OneCommitAllowed:
		return "Next commit allowed without a passing test run"
	}
	return string(e.Kind)
}

// FormatSeconds renders seconds as mm:ss.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
