package timeline

import (
	"sync"

	"github.com/go-go-golems/ragchat/pkg/events"
)

// Timeline is the ordered, append-only record of the current chat session.
// It is only ever cleared as a whole.
type Timeline struct {
	mu       sync.RWMutex
	messages []Message
	sink     events.EventSink
}

func New(sink events.EventSink) *Timeline {
	if sink == nil {
		sink = events.NewNullSink()
	}
	return &Timeline{sink: sink}
}

// Append adds m at the end and publishes a timeline-appended event, which
// renderers use to scroll to the newest entry.
func (t *Timeline) Append(m Message) {
	t.mu.Lock()
	t.messages = append(t.messages, m)
	n := len(t.messages)
	t.mu.Unlock()

	events.PublishBlind(t.sink, events.NewTimelineAppendedEvent(
		m.ID, string(m.Sender), m.Text, m.Timestamp, m.IsFileResult, n,
	))
}

func (t *Timeline) Clear() {
	t.mu.Lock()
	t.messages = nil
	t.mu.Unlock()

	events.PublishBlind(t.sink, events.NewTimelineClearedEvent())
}

// All returns a snapshot of the timeline in append order.
func (t *Timeline) All() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ret := make([]Message, len(t.messages))
	copy(ret, t.messages)
	return ret
}

func (t *Timeline) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

func (t *Timeline) Find(id string) (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, m := range t.messages {
		if m.ID == id {
			return m, true
		}
	}
	return Message{}, false
}

// Last returns the newest message, if any.
func (t *Timeline) Last() (Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}
