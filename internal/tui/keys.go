package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit       key.Binding
	Help       key.Binding
	Next       key.Binding
	Prev       key.Binding
	ScrollBack key.Binding
	ScrollFwd  key.Binding
	PrevPage   key.Binding
	NextPage   key.Binding
	Today      key.Binding
	DayView    key.Binding
	WeekView   key.Binding
	Earlier    key.Binding
	Later      key.Binding
	Shorter    key.Binding
	Longer     key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Add        key.Binding
	Edit       key.Binding
	Delete     key.Binding
	Undo       key.Binding
	Redo       key.Binding
	Sync       key.Binding
	Validate   key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Earlier, k.Later, k.Add, k.Undo, k.Quit, k.Help}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.Earlier, k.Later, k.Shorter, k.Longer},
		{k.ScrollBack, k.ScrollFwd, k.PrevPage, k.NextPage, k.Today, k.DayView, k.WeekView},
		{k.ScrollUp, k.ScrollDown, k.Add, k.Edit, k.Delete},
		{k.Undo, k.Redo, k.Sync, k.Validate, k.Help, k.Quit},
	}
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next shift"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev shift"),
		),
		ScrollBack: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "scroll back a day"),
		),
		ScrollFwd: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "scroll forward a day"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "previous week/day"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "next week/day"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "today"),
		),
		DayView: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "day view"),
		),
		WeekView: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "week view"),
		),
		Earlier: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "move earlier"),
		),
		Later: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "move later"),
		),
		Shorter: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "end earlier"),
		),
		Longer: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "end later"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "scroll down"),
		),
		Add: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new shift"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e", "enter"),
			key.WithHelp("e", "edit shift"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "delete shift"),
		),
		Undo: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "undo"),
		),
		Redo: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "redo"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sync now"),
		),
		Validate: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "check conflicts"),
		),
	}
}
