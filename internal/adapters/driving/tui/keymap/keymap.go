// Package keymap holds the TUI key bindings.
package keymap

import "github.com/charmbracelet/bubbles/key"

// KeyMap is every binding the app reacts to. Accept, Reject, Reask and
// NewQuestion only apply while an answer is on screen and the question
// input is not focused.
type KeyMap struct {
	Quit, Help, Back, Stats key.Binding
	Ask, NewQuestion        key.Binding
	Up, Down                key.Binding
	Accept, Reject, Reask   key.Binding
}

func bind(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit:        bind("q", "quit", "q", "ctrl+c"),
		Help:        bind("?", "help", "?"),
		Back:        bind("esc", "back", "esc"),
		Stats:       bind("s", "stats", "s"),
		Ask:         bind("enter", "ask", "enter"),
		NewQuestion: bind("n", "new question", "n"),
		Up:          bind("↑/k", "up", "up", "k"),
		Down:        bind("↓/j", "down", "down", "j"),
		Accept:      bind("a", "accept", "a"),
		Reject:      bind("r", "reject", "r"),
		Reask:       bind("x", "re-ask without sources", "x"),
	}
}

// ShortHelp is shown in the status bar before an answer arrives.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Ask, k.Stats, k.Help, k.Quit}
}

// AnswerHelp is shown in the status bar once an answer is on screen.
func (k *KeyMap) AnswerHelp() []key.Binding {
	return []key.Binding{k.Accept, k.Reject, k.Reask, k.NewQuestion}
}

// FullHelp groups bindings into columns for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Ask, k.NewQuestion, k.Back},
		{k.Accept, k.Reject, k.Reask},
		{k.Up, k.Down},
		{k.Stats, k.Help, k.Quit},
	}
}
