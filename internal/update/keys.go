package update

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the dashboard bindings. It doubles as the help source.
type KeyMap struct {
	Quit       key.Binding
	NextPane   key.Binding
	Up         key.Binding
	Down       key.Binding
	Toggle     key.Binding
	Approve    key.Binding
	Deny       key.Binding
	ApproveAll key.Binding
	DenyAll    key.Binding
	Edit       key.Binding
	Reset      key.Binding
	Send       key.Binding
	Cancel     key.Binding
	Option     key.Binding
}

var Keys = KeyMap{
	Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	NextPane:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	Approve:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "approve")),
	Deny:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "deny")),
	ApproveAll: key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "approve selected")),
	DenyAll:    key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "deny selected")),
	Edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit arg")),
	Reset:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reset edits")),
	Send:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Option:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "pick option")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPane, k.Toggle, k.Approve, k.Deny, k.ApproveAll, k.DenyAll, k.Edit, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextPane, k.Quit},
		{k.Toggle, k.Approve, k.Deny, k.ApproveAll, k.DenyAll},
		{k.Edit, k.Reset, k.Send, k.Cancel, k.Option},
	}
}
