package panel

import "github.com/charmbracelet/bubbles/key"

// keyMap defines key bindings for the control panel
type keyMap struct {
	Query   key.Binding
	On      key.Binding
	Off     key.Binding
	Cycle   key.Binding
	Confirm key.Binding // only while a change is pending
	Cancel  key.Binding // only while a change is pending
	Help    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Query, k.On, k.Off, k.Cycle, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Query, k.On, k.Off, k.Cycle},
		{k.Help, k.Quit},
	}
}

// confirmKeyMap is shown while a power change awaits confirmation
type confirmKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k confirmKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k confirmKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

func newKeyMap() keyMap {
	return keyMap{
		Query: key.NewBinding(
			key.WithKeys("s", "r"),
			key.WithHelp("s", "status"),
		),
		On: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "on"),
		),
		Off: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "off"),
		),
		Cycle: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cycle"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "n"),
			key.WithHelp("esc", "cancel"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
