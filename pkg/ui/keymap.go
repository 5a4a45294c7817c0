package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	SelectPrevMessage key.Binding
	SelectNextMessage key.Binding
	UnfocusMessage    key.Binding
	FocusMessage      key.Binding
	SubmitMessage     key.Binding
	ScrollUp          key.Binding
	ScrollDown        key.Binding

	PickFile     key.Binding
	CancelPick   key.Binding
	CancelUpload key.Binding

	NewChat             key.Binding
	ToggleDisplayMode   key.Binding
	CopyMessage         key.Binding
	DismissNotification key.Binding

	Help key.Binding
	Quit key.Binding
}

var DefaultKeyMap = KeyMap{
	SelectPrevMessage: key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "previous message")),
	SelectNextMessage: key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "next message")),
	UnfocusMessage:    key.NewBinding(key.WithKeys("esc", "ctrl+g"), key.WithHelp("esc", "browse messages")),
	FocusMessage:      key.NewBinding(key.WithKeys("enter", "i"), key.WithHelp("enter", "back to input")),
	SubmitMessage:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	ScrollUp:          key.NewBinding(key.WithKeys("pgup", "shift+pgup"), key.WithHelp("pgup", "scroll up")),
	ScrollDown:        key.NewBinding(key.WithKeys("pgdown", "shift+pgdown"), key.WithHelp("pgdown", "scroll down")),

	PickFile:     key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "upload file")),
	CancelPick:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close picker")),
	CancelUpload: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "cancel upload")),

	NewChat:             key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new chat")),
	ToggleDisplayMode:   key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "light/dark")),
	CopyMessage:         key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy message")),
	DismissNotification: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "dismiss")),

	Help: key.NewBinding(key.WithKeys("f1"), key.WithHelp("f1", "help")),
	Quit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SubmitMessage, k.FocusMessage, k.PickFile, k.CancelUpload, k.CancelPick, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SubmitMessage, k.UnfocusMessage, k.FocusMessage, k.SelectPrevMessage, k.SelectNextMessage},
		{k.PickFile, k.CancelPick, k.CancelUpload},
		{k.NewChat, k.ToggleDisplayMode, k.CopyMessage, k.DismissNotification},
		{k.ScrollUp, k.ScrollDown, k.Help, k.Quit},
	}
}
