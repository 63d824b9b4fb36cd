// Package tui renders the live limitedwip status in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/limitedwip/internal/event"
	"github.com/fakeyudi/limitedwip/internal/notify"
)

// maxNotices is how many recent notifications stay on screen.
const maxNotices = 6

// Controller receives the user's toggles.
type Controller interface {
	ToggleSkipNotificationsUntilCommit() bool
	ToggleAutoRevert() bool
}

// Status is the state shown before the first event arrives.
type Status struct {
	WorkDir           string
	WatchdogEnabled   bool
	ChangeSize        int
	MaxLines          int
	Skip              bool
	AutoRevertEnabled bool
	Running           bool
	SecondsRemaining  int
	ShowTimer         bool
}

type eventMsg event.Event

type closedMsg struct{}

type notice struct {
	at   time.Time
	kind event.Kind
	text string
}

// Model is the root Bubble Tea model.
type Model struct {
	events  <-chan event.Event
	ctrl    Controller
	status  Status
	notices []notice
	keys    keyMap
	help    help.Model
	width   int
}

// New returns a model fed by events and acting on ctrl.
func New(events <-chan event.Event, ctrl Controller, status Status) Model {
	return Model{
		events: events,
		ctrl:   ctrl,
		status: status,
		keys:   defaultKeys,
		help:   help.New(),
	}
}

func waitForEvent(ch <-chan event.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return eventMsg(e)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Skip):
			if m.ctrl != nil && m.status.WatchdogEnabled {
				m.status.Skip = m.ctrl.ToggleSkipNotificationsUntilCommit()
			}
		case key.Matches(msg, m.keys.AutoRevert):
			if m.ctrl != nil && m.status.AutoRevertEnabled {
				m.status.Running = m.ctrl.ToggleAutoRevert()
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case eventMsg:
		m.apply(event.Event(msg))
		return m, waitForEvent(m.events)

	case closedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(e event.Event) {
	s := &m.status
	switch e.Kind {
	case event.ChangeSizeUpdated:
		s.ChangeSize = e.ChangeSize
		s.MaxLines = e.MaxLines
		s.Skip = e.Skip
		return
	case event.TimeTillRevert:
		s.Running = true
		s.SecondsRemaining = e.SecondsRemaining
		s.ShowTimer = e.ShowTimer
		return
	case event.SkipToggled:
		s.Skip = e.Skip
	case event.WatchdogRestarted:
		s.Skip = false
		s.ChangeSize = 0
	case event.WatchdogSettingsChanged:
		s.WatchdogEnabled = e.Enabled
		s.MaxLines = e.MaxLines
		if !e.Enabled {
			s.Skip = false
		}
	case event.AutoRevertStarted, event.Committed, event.RolledBack:
		s.Running = true
		s.SecondsRemaining = e.SecondsRemaining
		s.ShowTimer = e.ShowTimer
	case event.AutoRevertStopped:
		s.Running = false
	case event.AutoRevertSettingsChanged:
		s.AutoRevertEnabled = e.Enabled
		s.ShowTimer = e.ShowTimer
		if !e.Enabled {
			s.Running = false
		}
		if !s.Running {
			s.SecondsRemaining = e.SecondsRemaining
		}
	case event.Reverted, event.RevertFailed:
		s.SecondsRemaining = e.SecondsRemaining
	}
	m.push(e)
}

func (m *Model) push(e event.Event) {
	at := e.Time
	if at.IsZero() {
		at = time.Now()
	}
	m.notices = append(m.notices, notice{at: at, kind: e.Kind, text: notify.Describe(e)})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m Model) View() string {
	var sb strings.Builder

	title := "  limitedwip  "
	if m.status.WorkDir != "" {
		title += m.status.WorkDir
	}
	if m.width > 0 {
		sb.WriteString(titleStyle.Width(m.width).Render(title))
	} else {
		sb.WriteString(titleStyle.Render(title))
	}
	sb.WriteString("\n\n")

	sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", "Change size:")) + "  " + m.changeSizeLine() + "\n")
	sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", "Auto-revert:")) + "  " + m.autoRevertLine() + "\n")

	sb.WriteString("\n" + sectionHeader.Render("  Notifications") + "\n\n")
	if len(m.notices) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
	}
	for i := len(m.notices) - 1; i >= 0; i-- {
		n := m.notices[i]
		text := n.text
		switch n.kind {
		case event.ThresholdExceeded, event.RevertFailed:
			text = overStyle.Render(text)
		case event.Remind, event.RevertRequested, event.Reverted:
			text = warnStyle.Render(text)
		}
		sb.WriteString("  " + timeStyle.Render(n.at.Format("15:04:05")) + "  " + text + "\n")
	}

	sb.WriteString("\n" + statusBarStyle.Render(m.help.View(m.keys)))
	return sb.String()
}

func (m Model) changeSizeLine() string {
	s := m.status
	if !s.WatchdogEnabled {
		return dimStyle.Render("watchdog disabled")
	}
	size := fmt.Sprintf("%d/%d", s.ChangeSize, s.MaxLines)
	if s.ChangeSize > s.MaxLines {
		size = overStyle.Render(size)
	} else {
		size = okStyle.Render(size)
	}
	if s.Skip {
		size += dimStyle.Render("  (reminders skipped until commit)")
	}
	return size
}

func (m Model) autoRevertLine() string {
	s := m.status
	switch {
	case !s.AutoRevertEnabled:
		return dimStyle.Render("disabled")
	case !s.Running:
		return dimStyle.Render("stopped")
	case !s.ShowTimer:
		return warnStyle.Render("running")
	}
	return warnStyle.Render("in " + notify.FormatSeconds(s.SecondsRemaining))
}

// Run shows the status view until the user quits, ctx is cancelled or the
// event channel is closed.
func Run(ctx context.Context, events <-chan event.Event, ctrl Controller, status Status) error {
	p := tea.NewProgram(New(events, ctrl, status), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
