package watchdog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/limitedwip/internal/event"
)

type recorder struct {
	events []event.Event
}

func (r *recorder) Publish(e event.Event) { r.events = append(r.events, e) }

func (r *recorder) count(k event.Kind) int {
	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

func (r *recorder) reset() { r.events = nil }

const (
	maxLines = 100
	interval = 2
)

func defaultSettings() Settings {
	return Settings{
		Enabled:                      true,
		MaxLinesInChange:             maxLines,
		NotificationIntervalSeconds:  interval,
		DisableCommitsAboveThreshold: true,
	}
}

func newWatchdog(t *testing.T) (*Watchdog, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(rec, defaultSettings()), rec
}

func TestNoThresholdNotificationBelowLimit(t *testing.T) {
	w, rec := newWatchdog(t)

	w.OnTick(1, 10)

	assert.Zero(t, rec.count(event.ThresholdExceeded))
}

func TestThresholdNotificationIsEdgeTriggered(t *testing.T) {
	w := New(nil, Settings{
		Enabled:                      true,
		MaxLinesInChange:             50,
		NotificationIntervalSeconds:  600,
		DisableCommitsAboveThreshold: true,
	})
	rec := &recorder{}
	w.sink = rec

	w.OnTick(1, 60)
	assert.Equal(t, 1, rec.count(event.ThresholdExceeded))
	for i := 2; i < 50; i++ {
		w.OnTick(i, 60)
	}
	assert.Equal(t, 1, rec.count(event.ThresholdExceeded), "oversized change must not re-notify every tick")
	assert.False(t, w.AllowCommit(60))

	w.OnTick(50, 40)
	assert.Equal(t, 1, rec.count(event.WithinLimit))
	w.OnTick(51, 60)
	assert.Equal(t, 2, rec.count(event.ThresholdExceeded))
}

func TestRemindEveryInterval(t *testing.T) {
	w, rec := newWatchdog(t)

	for i := 1; i <= 4; i++ {
		w.OnTick(i, 10)
	}

	assert.Equal(t, 2, rec.count(event.Remind))
	assert.Equal(t, 0, w.Snapshot().State.SecondsSinceLastNotification)
}

func TestNoRemindForEmptyChange(t *testing.T) {
	w, rec := newWatchdog(t)

	for i := 1; i <= 6; i++ {
		w.OnTick(i, 0)
	}

	assert.Zero(t, rec.count(event.Remind))
	assert.LessOrEqual(t, w.Snapshot().State.SecondsSinceLastNotification, interval)
}

func TestSkipNotificationsUntilCommit(t *testing.T) {
	w, rec := newWatchdog(t)

	assert.True(t, w.SetSkipNotificationsUntilCommit(true))
	w.OnTick(1, 20)
	w.OnTick(2, 20)
	assert.Zero(t, rec.count(event.Remind))

	w.OnCommit()
	assert.False(t, w.Snapshot().State.SkipNotificationsUntilCommit)
	w.OnTick(3, 20)
	w.OnTick(4, 20)
	assert.Equal(t, 1, rec.count(event.Remind))
	assert.Equal(t, 1, rec.count(event.WatchdogRestarted))
}

func TestToggleSkipReturnsNewValue(t *testing.T) {
	w, rec := newWatchdog(t)

	assert.True(t, w.ToggleSkipNotificationsUntilCommit())
	assert.False(t, w.ToggleSkipNotificationsUntilCommit())
	assert.Equal(t, 2, rec.count(event.SkipToggled))
}

func TestChangeSizeUpdateSentWhileSkipping(t *testing.T) {
	w, rec := newWatchdog(t)
	w.SetSkipNotificationsUntilCommit(true)
	rec.reset()

	w.OnTick(1, 200)

	require.Equal(t, 1, rec.count(event.ChangeSizeUpdated))
	assert.Equal(t, 200, rec.events[0].ChangeSize)
	assert.Equal(t, maxLines, rec.events[0].MaxLines)
	assert.True(t, rec.events[0].Skip)
}

func TestDisabledWatchdogIsSilent(t *testing.T) {
	w, rec := newWatchdog(t)
	w.SetSkipNotificationsUntilCommit(true)

	disabled := defaultSettings()
	disabled.Enabled = false
	w.OnSettingsChanged(disabled)
	rec.reset()

	w.OnTick(1, 200)
	w.OnTick(2, 200)
	w.OnCommit()
	w.SetSkipNotificationsUntilCommit(false)

	assert.Empty(t, rec.events)
	assert.True(t, w.AllowCommit(200))
}

func TestDisablingClearsSkipButKeepsCounter(t *testing.T) {
	w, _ := newWatchdog(t)
	w.SetSkipNotificationsUntilCommit(true)
	w.OnTick(1, 10)

	disabled := defaultSettings()
	disabled.Enabled = false
	w.OnSettingsChanged(disabled)

	snap := w.Snapshot()
	assert.False(t, snap.State.SkipNotificationsUntilCommit)
	assert.Equal(t, 1, snap.State.SecondsSinceLastNotification)
}

func TestNewThresholdIsReevaluated(t *testing.T) {
	w, rec := newWatchdog(t)

	w.OnTick(1, 200)
	require.Equal(t, 1, rec.count(event.ThresholdExceeded))

	lower := defaultSettings()
	lower.MaxLinesInChange = 150
	w.OnSettingsChanged(lower)
	w.OnTick(2, 200)

	require.Equal(t, 2, rec.count(event.ThresholdExceeded))
	assert.Equal(t, 150, rec.events[len(rec.events)-1].MaxLines)
}

func TestNegativeChangeSizeIsClamped(t *testing.T) {
	w, rec := newWatchdog(t)

	w.OnTick(-5, -40)

	require.NotEmpty(t, rec.events)
	assert.Equal(t, 0, rec.events[0].ChangeSize)
	assert.Equal(t, 0, w.Snapshot().LastTick)
	assert.True(t, w.AllowCommit(-1000))
}

func TestAllowCommitBoundary(t *testing.T) {
	w, _ := newWatchdog(t)

	assert.True(t, w.AllowCommit(maxLines))
	assert.False(t, w.AllowCommit(maxLines+1))
}

// Property 1: a change held at or below the threshold never triggers a threshold notification.
func TestPropertyNoThresholdBelowLimit(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		max := rapid.IntRange(1, 999).Draw(rt, "max")
		rec := &recorder{}
		w := New(rec, Settings{
			Enabled:                     true,
			MaxLinesInChange:            max,
			NotificationIntervalSeconds: rapid.IntRange(1, 10).Draw(rt, "interval"),
		})

		sizes := rapid.SliceOf(rapid.IntRange(0, max)).Draw(rt, "sizes")
		for i, size := range sizes {
			w.OnTick(i+1, size)
		}
		if n := rec.count(event.ThresholdExceeded); n != 0 {
			rt.Fatalf("threshold exceeded fired %d times for sizes <= %d", n, max)
		}
	})
}

// Property 2: reminders are at least one interval apart and never fire while skipping.
func TestPropertyRemindSpacing(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		iv := rapid.IntRange(1, 8).Draw(rt, "interval")
		w := New(nil, Settings{Enabled: true, MaxLinesInChange: 50, NotificationIntervalSeconds: iv})

		ticksSinceRemind := 0
		w.sink = event.SinkFunc(func(e event.Event) {
			if e.Kind != event.Remind {
				return
			}
			if ticksSinceRemind < iv {
				rt.Fatalf("remind after %d ticks, interval is %d", ticksSinceRemind, iv)
			}
			// The lock is held while publishing, so read the state directly.
			if w.state.SkipNotificationsUntilCommit {
				rt.Fatalf("remind fired while skipping notifications")
			}
			ticksSinceRemind = 0
		})

		steps := rapid.IntRange(1, 200).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 9).Draw(rt, "op") {
			case 0:
				w.ToggleSkipNotificationsUntilCommit()
			case 1:
				w.OnCommit()
			default:
				ticksSinceRemind++
				w.OnTick(i, rapid.IntRange(0, 100).Draw(rt, "size"))
			}
			if c := w.Snapshot().State.SecondsSinceLastNotification; c >= iv {
				rt.Fatalf("counter %d reached interval %d without resetting", c, iv)
			}
		}
	})
}

// Property 3: AllowCommit vetoes exactly when blocking is on, enabled, and size exceeds the limit.
func TestPropertyAllowCommit(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := Settings{
			Enabled:                      rapid.Bool().Draw(rt, "enabled"),
			MaxLinesInChange:             rapid.IntRange(1, 999).Draw(rt, "max"),
			NotificationIntervalSeconds:  60,
			DisableCommitsAboveThreshold: rapid.Bool().Draw(rt, "block"),
		}
		size := rapid.IntRange(0, 2000).Draw(rt, "size")
		w := New(nil, s)

		want := !(s.DisableCommitsAboveThreshold && s.Enabled && size > s.MaxLinesInChange)
		if got := w.AllowCommit(size); got != want {
			rt.Fatalf("AllowCommit(%d) with %+v = %v, want %v", size, s, got, want)
		}
		if !w.AllowCommit(s.MaxLinesInChange) {
			rt.Fatalf("size equal to the limit must be allowed")
		}
	})
}
