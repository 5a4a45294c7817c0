package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/ragchat/pkg/events"
	"github.com/go-go-golems/ragchat/pkg/timeline"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeAssistant struct {
	mu    sync.Mutex
	calls []string
	chat  func(ctx context.Context, message string) (string, error)
}

func (f *fakeAssistant) Chat(ctx context.Context, message string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, message)
	f.mu.Unlock()
	return f.chat(ctx, message)
}

func (f *fakeAssistant) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

func TestCoordinator_SubmitAppendsUserThenAssistant(t *testing.T) {
	release := make(chan struct{})
	a := &fakeAssistant{chat: func(ctx context.Context, message string) (string, error) {
		<-release
		return "echo: " + message, nil
	}}
	tl := timeline.New(nil)
	c := NewCoordinator(a, tl)

	ok := c.Submit(context.Background(), "  hello  ")
	require.True(t, ok)

	// the user message is visible before the call resolves
	require.Equal(t, 1, tl.Len())
	require.True(t, c.Busy())
	require.Equal(t, "  hello  ", tl.All()[0].Text)

	close(release)
	c.Wait()

	all := tl.All()
	require.Len(t, all, 2)
	require.Equal(t, timeline.SenderAssistant, all[1].Sender)
	require.Equal(t, "echo:   hello  ", all[1].Text)
	require.False(t, c.Busy())
	require.Equal(t, []string{"  hello  "}, a.Calls())
}

func TestCoordinator_FailureAppendsFallback(t *testing.T) {
	a := &fakeAssistant{chat: func(ctx context.Context, message string) (string, error) {
		return "", errors.New("unexpected status code: 500")
	}}
	tl := timeline.New(nil)
	c := NewCoordinator(a, tl)

	require.True(t, c.Submit(context.Background(), "question"))
	c.Wait()

	all := tl.All()
	require.Len(t, all, 2)
	require.Equal(t, FallbackReply, all[1].Text)
	require.False(t, all[1].IsFileResult)
	require.False(t, c.Busy())
	require.Len(t, a.Calls(), 1)
}

func TestCoordinator_BlankInputIsNoop(t *testing.T) {
	a := &fakeAssistant{chat: func(ctx context.Context, message string) (string, error) {
		return "never", nil
	}}
	rec := events.NewRecorder()
	tl := timeline.New(rec)
	c := NewCoordinator(a, tl, WithSink(rec))

	for _, text := range []string{"", "   ", "\n\t"} {
		require.False(t, c.Submit(context.Background(), text))
	}
	c.Wait()

	require.Equal(t, 0, tl.Len())
	require.Empty(t, a.Calls())
	require.Empty(t, rec.Events())
}

func TestCoordinator_BusyEventsWrapTheRequest(t *testing.T) {
	a := &fakeAssistant{chat: func(ctx context.Context, message string) (string, error) {
		return "ok", nil
	}}
	rec := events.NewRecorder()
	c := NewCoordinator(a, timeline.New(nil), WithSink(rec))

	c.Submit(context.Background(), "hi")
	c.Wait()

	busy := rec.OfType(events.EventTypeChatBusy)
	require.Len(t, busy, 2)
	require.True(t, busy[0].(*events.EventChatBusy).Busy)
	require.False(t, busy[1].(*events.EventChatBusy).Busy)
}

func TestCoordinator_OverlappingSubmissionsAreNotDeduplicated(t *testing.T) {
	releaseFirst := make(chan struct{})
	a := &fakeAssistant{chat: func(ctx context.Context, message string) (string, error) {
		if message == "first" {
			<-releaseFirst
		}
		return "re: " + message, nil
	}}
	tl := timeline.New(nil)
	c := NewCoordinator(a, tl)

	require.True(t, c.Submit(context.Background(), "first"))
	require.True(t, c.Submit(context.Background(), "second"))

	// the second request resolves first and clears the shared busy flag
	require.Eventually(t, func() bool {
		return tl.Len() == 3 && !c.Busy()
	}, time.Second, 5*time.Millisecond)

	close(releaseFirst)
	c.Wait()

	all := tl.All()
	require.Len(t, all, 4)
	require.Equal(t, "first", all[0].Text)
	require.Equal(t, "second", all[1].Text)
	require.Equal(t, "re: second", all[2].Text)
	require.Equal(t, "re: first", all[3].Text)
}

func TestCoordinator_TimeoutIsAFailure(t *testing.T) {
	a := &fakeAssistant{chat: func(ctx context.Context, message string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	tl := timeline.New(nil)
	c := NewCoordinator(a, tl, WithTimeout(10*time.Millisecond))

	c.Submit(context.Background(), "slow")
	c.Wait()

	require.Equal(t, FallbackReply, tl.All()[1].Text)
}

func TestCoordinator_UsesClockForTimestamps(t *testing.T) {
	now := time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)
	a := &fakeAssistant{chat: func(ctx context.Context, message string) (string, error) {
		return "ok", nil
	}}
	tl := timeline.New(nil)
	c := NewCoordinator(a, tl, WithClock(func() time.Time { return now }))

	c.Submit(context.Background(), "hi")
	c.Wait()

	for _, m := range tl.All() {
		require.Equal(t, "9:15:00 AM", m.Timestamp)
	}
}
