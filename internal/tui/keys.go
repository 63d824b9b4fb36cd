package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Skip       key.Binding
	AutoRevert key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Skip, k.AutoRevert, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Skip, k.AutoRevert}, {k.Help, k.Quit}}
}

var defaultKeys = keyMap{
	Skip: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "skip reminders until commit"),
	),
	AutoRevert: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "start/stop auto-revert"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "more help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
