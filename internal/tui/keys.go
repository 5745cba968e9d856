package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the bindings of the tree view.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextList key.Binding
	PrevList key.Binding

	Complete key.Binding
	Expand   key.Binding
	Edit     key.Binding
	Add      key.Binding
	Subtask  key.Binding
	MoveMenu key.Binding
	Delete   key.Binding
	Refresh  key.Binding

	Grab         key.Binding
	DropLower    key.Binding
	DropUpper    key.Binding
	DropChildren key.Binding
	DropTop      key.Binding

	Submit    key.Binding
	Cancel    key.Binding
	Confirm   key.Binding
	Help      key.Binding
	Quit      key.Binding
	ForceQuit key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		NextList: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next list")),
		PrevList: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev list")),

		Complete: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "done")),
		Expand:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Subtask:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "subtask")),
		MoveMenu: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "to list")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),

		Grab:         key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "grab")),
		DropLower:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "drop into")),
		DropUpper:    key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "drop beside")),
		DropChildren: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "drop as child")),
		DropTop:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "drop top-level")),

		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Confirm:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Complete, k.Expand, k.Add, k.Grab, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextList, k.PrevList, k.Refresh},
		{k.Complete, k.Expand, k.Edit, k.Add, k.Subtask, k.Delete},
		{k.Grab, k.DropLower, k.DropUpper, k.DropChildren, k.DropTop, k.MoveMenu},
		{k.Cancel, k.Help, k.Quit},
	}
}
