package limbo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/limitedwip/internal/autorevert"
	"github.com/fakeyudi/limitedwip/internal/event"
)

type recorder struct {
	events []event.Event
}

func (r *recorder) Publish(e event.Event) { r.events = append(r.events, e) }

func (r *recorder) kinds() []event.Kind {
	out := make([]event.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func newEngine(enabled bool) (*Engine, *recorder, *int) {
	rec := &recorder{}
	reverts := new(int)
	exec := autorevert.ExecutorFunc(func() error {
		*reverts++
		return nil
	})
	return New(rec, exec, Settings{Enabled: enabled, NotifyOnRevert: true}, State{Head: "c1"}), rec, reverts
}

func TestRevertOnFailedTest(t *testing.T) {
	e, rec, reverts := newEngine(true)

	require.NoError(t, e.OnTestFailed())
	assert.Equal(t, 1, *reverts)
	assert.Equal(t, []event.Kind{event.TestFailed, event.Reverted}, rec.kinds())
}

func TestNoRevertWhenDisabled(t *testing.T) {
	e, rec, reverts := newEngine(false)

	require.NoError(t, e.OnTestFailed())
	assert.Zero(t, *reverts)
	assert.Empty(t, rec.events)
}

func TestRevertWithoutNotification(t *testing.T) {
	e, rec, reverts := newEngine(true)
	e.OnSettingsChanged(Settings{Enabled: true, NotifyOnRevert: false})

	require.NoError(t, e.OnTestFailed())
	assert.Equal(t, 1, *reverts)
	assert.Equal(t, []event.Kind{event.TestFailed}, rec.kinds())
}

func TestCommitVetoedWithoutPassingRun(t *testing.T) {
	e, rec, _ := newEngine(true)

	assert.False(t, e.IsCommitAllowed())
	assert.Equal(t, []event.Kind{event.CommitVetoed}, rec.kinds())
}

func TestCommitAllowedAfterPassingRun(t *testing.T) {
	e, _, _ := newEngine(true)

	e.OnTestSucceeded()
	assert.True(t, e.IsCommitAllowed())
	assert.Equal(t, 1, e.State().TestsRun)
}

func TestCommitAllowedWhenDisabled(t *testing.T) {
	e, rec, _ := newEngine(false)

	e.OnTestSucceeded()
	assert.True(t, e.IsCommitAllowed())
	assert.Zero(t, e.State().TestsRun)
	assert.Empty(t, rec.events)
}

func TestFailedRunResetsCount(t *testing.T) {
	e, _, _ := newEngine(true)

	e.OnTestSucceeded()
	e.OnTestSucceeded()
	require.NoError(t, e.OnTestFailed())
	assert.Zero(t, e.State().TestsRun)
	assert.False(t, e.IsCommitAllowed())
}

func TestAllowOneCommitWithoutChecks(t *testing.T) {
	e, rec, _ := newEngine(true)

	e.AllowOneCommitWithoutChecks()
	assert.True(t, e.IsCommitAllowed())
	assert.Equal(t, []event.Kind{event.OneCommitAllowed}, rec.kinds())

	e.OnCommit()
	assert.False(t, e.IsCommitAllowed(), "allowance covers a single commit")
}

func TestNewHeadStartsFreshCount(t *testing.T) {
	e, _, _ := newEngine(true)
	e.OnTestSucceeded()
	e.AllowOneCommitWithoutChecks()

	e.OnHead("c1")
	assert.Equal(t, 1, e.State().TestsRun, "same commit keeps the count")

	e.OnHead("c2")
	assert.Equal(t, State{Head: "c2"}, e.State())
	assert.False(t, e.IsCommitAllowed())
}

func TestRevertFailureIsReported(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("index.lock exists")
	e := New(rec, autorevert.ExecutorFunc(func() error { return boom }), Settings{Enabled: true, NotifyOnRevert: true}, State{TestsRun: 2})

	err := e.OnTestFailed()
	require.ErrorIs(t, err, boom)
	assert.Zero(t, e.State().TestsRun)
	assert.Equal(t, []event.Kind{event.TestFailed, event.RevertFailed}, rec.kinds())
	assert.ErrorIs(t, rec.events[1].Err, boom)
}

func TestDisablingClearsCount(t *testing.T) {
	e, _, _ := newEngine(true)
	e.OnTestSucceeded()

	e.OnSettingsChanged(Settings{Enabled: false})
	e.OnSettingsChanged(Settings{Enabled: true})
	assert.False(t, e.IsCommitAllowed())
}

// A commit is allowed exactly when the feature is off, the one-off allowance
// is set, or the last run since the previous commit passed.
func TestCommitAllowedMatchesRunHistory(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		enabled := rapid.Bool().Draw(t, "enabled")
		e := New(nil, autorevert.ExecutorFunc(func() error { return nil }), Settings{Enabled: enabled}, State{})

		passedSinceFailure := false
		allowOne := false
		steps := rapid.SliceOf(rapid.IntRange(0, 3)).Draw(t, "steps")
		for _, step := range steps {
			switch step {
			case 0:
				e.OnTestSucceeded()
				passedSinceFailure = true
			case 1:
				_ = e.OnTestFailed()
				passedSinceFailure = false
			case 2:
				e.AllowOneCommitWithoutChecks()
				allowOne = true
			case 3:
				e.OnCommit()
				passedSinceFailure, allowOne = false, false
			}
		}

		want := !enabled || allowOne || passedSinceFailure
		if got := e.IsCommitAllowed(); got != want {
			t.Fatalf("steps %v: want allowed=%v, got %v", steps, want, got)
		}
	})
}
