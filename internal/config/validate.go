package config

import (
	"fmt"

	"github.com/fakeyudi/limitedwip/internal/vcs"
)

// Allowed ranges, inclusive.
const (
	MinLinesInChange   = 1
	MaxLinesInChange   = 999
	MinMinutesTillRev  = 1
	MaxMinutesTillRev  = 99
	MinIntervalMinutes = 1
)

// ValidationError reports a setting outside its allowed range.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Validate checks every range. The engines assume validated settings.
func (c Config) Validate() error {
	w, a := c.Watchdog, c.AutoRevert
	switch {
	case w.MaxLinesInChange < MinLinesInChange || w.MaxLinesInChange > MaxLinesInChange:
		return &ValidationError{"watchdog.max_lines_in_change", w.MaxLinesInChange,
			fmt.Sprintf("must be between %d and %d", MinLinesInChange, MaxLinesInChange)}
	case w.NotificationIntervalMinutes < MinIntervalMinutes:
		return &ValidationError{"watchdog.notification_interval_minutes", w.NotificationIntervalMinutes,
			fmt.Sprintf("must be at least %d", MinIntervalMinutes)}
	case a.MinutesTillRevert < MinMinutesTillRev || a.MinutesTillRevert > MaxMinutesTillRev:
		return &ValidationError{"auto_revert.minutes_till_revert", a.MinutesTillRevert,
			fmt.Sprintf("must be between %d and %d", MinMinutesTillRev, MaxMinutesTillRev)}
	case a.Mode != vcs.RevertStash && a.Mode != vcs.RevertDiscard:
		return &ValidationError{"auto_revert.mode", a.Mode,
			fmt.Sprintf("must be %q or %q", vcs.RevertStash, vcs.RevertDiscard)}
	}
	return nil
}
