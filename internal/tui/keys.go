package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Run            key.Binding
	Save           key.Binding
	Quit           key.Binding
	ReplyDone      key.Binding
	ReplyNoStation key.Binding
	LogUp          key.Binding
	LogDown        key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Run:            key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "start/stop order")),
		Save:           key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Quit:           key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"), key.WithHelp("ctrl+q", "quit")),
		ReplyDone:      key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "Done")),
		ReplyNoStation: key.NewBinding(key.WithKeys("f2"), key.WithHelp("f2", "NoStationLeft")),
		LogUp:          key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "log up")),
		LogDown:        key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "log down")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.Save, k.LogUp, k.LogDown, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.ReplyDone, k.ReplyNoStation}}
}
