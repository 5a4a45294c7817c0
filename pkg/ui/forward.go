package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/ragchat/pkg/events"
)

// ForwardFunc returns an event handler that wakes the program up on every
// controller event. Register it with events.EventRouter.AddEventHandler.
func ForwardFunc(p *tea.Program) func(ctx context.Context, ev events.Event) error {
	return func(_ context.Context, ev events.Event) error {
		p.Send(RefreshMsg{Type: ev.Type()})
		return nil
	}
}
