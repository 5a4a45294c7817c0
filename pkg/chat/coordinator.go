package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-go-golems/ragchat/pkg/events"
	"github.com/go-go-golems/ragchat/pkg/timeline"
	"github.com/rs/zerolog/log"
)

// FallbackReply replaces the assistant reply whenever the round trip fails.
const FallbackReply = "Sorry, an error occurred. Please try again."

// Assistant is the remote assistant collaborator.
type Assistant interface {
	Chat(ctx context.Context, message string) (string, error)
}

// Coordinator drives one assistant round trip per submitted message.
//
// Busy is a plain flag, not a counter: it is set by every accepted submission
// and cleared by whichever request finishes first. The coordinator does not
// reject submissions while busy; callers disable their submit affordance
// instead.
type Coordinator struct {
	assistant Assistant
	timeline  *timeline.Timeline
	sink      events.EventSink
	now       func() time.Time
	timeout   time.Duration

	mu   sync.Mutex
	busy bool
	wg   sync.WaitGroup
}

type Option func(*Coordinator)

func WithSink(sink events.EventSink) Option {
	return func(c *Coordinator) {
		c.sink = sink
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithTimeout bounds each assistant call. Zero, the default, means no timeout:
// a hung call leaves the coordinator busy.
func WithTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = d
	}
}

func NewCoordinator(assistant Assistant, tl *timeline.Timeline, options ...Option) *Coordinator {
	ret := &Coordinator{
		assistant: assistant,
		timeline:  tl,
		sink:      events.NewNullSink(),
		now:       time.Now,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// Submit appends the user message and starts the assistant call in the
// background. Whitespace-only text is ignored and Submit returns false.
// The raw, untrimmed text is both recorded and sent.
func (c *Coordinator) Submit(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.timeline.Append(timeline.NewUserMessage(text, c.now()))
	c.setBusy(true)

	c.wg.Add(1)
	go c.run(ctx, text)

	return true
}

func (c *Coordinator) run(ctx context.Context, text string) {
	defer c.wg.Done()
	defer c.setBusy(false)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply, err := c.assistant.Chat(ctx, text)
	if err != nil {
		log.Warn().Err(err).Str("component", "chat").Msg("assistant request failed")
		c.timeline.Append(timeline.NewAssistantMessage(FallbackReply, c.now()))
		return
	}

	c.timeline.Append(timeline.NewAssistantMessage(reply, c.now()))
}

func (c *Coordinator) setBusy(busy bool) {
	c.mu.Lock()
	changed := c.busy != busy
	c.busy = busy
	c.mu.Unlock()

	if changed {
		events.PublishBlind(c.sink, events.NewChatBusyEvent(busy))
	}
}

func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Wait blocks until every submitted request has finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
