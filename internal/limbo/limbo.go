// Package limbo keeps a change in limbo until tests have passed: a failing
// test run reverts the working copy, and a commit is vetoed unless at least
// one test run passed since the previous commit.
package limbo

import (
	"github.com/fakeyudi/limitedwip/internal/autorevert"
	"github.com/fakeyudi/limitedwip/internal/event"
)

// Settings is an immutable configuration snapshot.
type Settings struct {
	Enabled        bool
	NotifyOnRevert bool
}

// State is what survives between commands for one working copy.
type State struct {
	Head                        string `json:"head"`
	TestsRun                    int    `json:"tests_run"`
	AllowOneCommitWithoutChecks bool   `json:"allow_one_commit_without_checks"`
}

// Engine applies test outcomes and commit checks to a State. Each limitedwip
// command owns its Engine for one invocation, so it is not safe for
// concurrent use.
type Engine struct {
	sink     event.Sink
	executor autorevert.Executor
	settings Settings
	state    State
}

// New returns an engine resuming from state.
func New(sink event.Sink, executor autorevert.Executor, settings Settings, state State) *Engine {
	if sink == nil {
		sink = event.Discard
	}
	return &Engine{sink: sink, executor: executor, settings: settings, state: state}
}

// State returns a copy of the current state for persisting.
func (e *Engine) State() State { return e.state }

// OnHead records the current commit. A HEAD that differs from the recorded
// one means a commit happened, so the run count and the one-off allowance
// are reset.
func (e *Engine) OnHead(head string) {
	if head == e.state.Head {
		return
	}
	e.state = State{Head: head}
}

// OnCommit clears the counters after a successful commit.
func (e *Engine) OnCommit() {
	e.state.TestsRun = 0
	e.state.AllowOneCommitWithoutChecks = false
}

// OnTestSucceeded counts a passing run.
func (e *Engine) OnTestSucceeded() {
	if !e.settings.Enabled {
		return
	}
	e.state.TestsRun++
	e.publish(event.TestPassed)
}

// OnTestFailed reverts the working copy. The run count restarts even when
// the revert fails; the returned error is the executor's.
func (e *Engine) OnTestFailed() error {
	if !e.settings.Enabled {
		return nil
	}
	e.state.TestsRun = 0
	e.publish(event.TestFailed)

	if err := e.executor.RevertAllChanges(); err != nil {
		e.sink.Publish(event.Event{Kind: event.RevertFailed, Err: err})
		return err
	}
	if e.settings.NotifyOnRevert {
		e.publish(event.Reverted)
	}
	return nil
}

// AllowOneCommitWithoutChecks lets the next commit through regardless of the
// run count.
func (e *Engine) AllowOneCommitWithoutChecks() {
	e.state.AllowOneCommitWithoutChecks = true
	e.publish(event.OneCommitAllowed)
}

// IsCommitAllowed reports whether a commit may proceed, publishing
// CommitVetoed when it may not.
func (e *Engine) IsCommitAllowed() bool {
	if e.state.AllowOneCommitWithoutChecks || !e.settings.Enabled {
		return true
	}
	if e.state.TestsRun == 0 {
		e.publish(event.CommitVetoed)
		return false
	}
	return true
}

// OnSettingsChanged replaces the settings. Disabling clears the run count.
func (e *Engine) OnSettingsChanged(settings Settings) {
	if !settings.Enabled {
		e.state.TestsRun = 0
	}
	e.settings = settings
}

func (e *Engine) publish(kind event.Kind) {
	e.sink.Publish(event.Event{Kind: kind, TestsRun: e.state.TestsRun, Enabled: e.settings.Enabled})
}
