package preview

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap holds the preview's key bindings. It implements help.KeyMap.
type KeyMap struct {
	Quit    key.Binding
	Talk    key.Binding
	Think   key.Binding
	Search  key.Binding
	Message key.Binding
	Poke    key.Binding
	Double  key.Binding
	Bounce  key.Binding

	// Expression picks an expression by digit
	Expression key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Talk: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "talk"),
		),
		Think: key.NewBinding(
			key.WithKeys("k"),
			key.WithHelp("k", "think"),
		),
		Search: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "search"),
		),
		Message: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "message"),
		),
		Poke: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "poke"),
		),
		Double: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "double"),
		),
		Bounce: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "bounce"),
		),
		Expression: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "expression"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Expression, k.Talk, k.Think, k.Search, k.Message,
		k.Poke, k.Double, k.Bounce, k.Quit,
	}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Expression, k.Talk, k.Think, k.Search},
		{k.Message, k.Poke, k.Double, k.Bounce},
		{k.Quit},
	}
}
