package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewEventFromJson_RoundTripsTypedEvents(t *testing.T) {
	in := []Event{
		NewTimelineAppendedEvent("m1", "user", "hello", "2:03:09 PM", false, 1),
		NewTimelineClearedEvent(),
		NewChatBusyEvent(true),
		NewUploadStateEvent("in-flight", "a.pdf", 0),
		NewUploadProgressEvent("a.pdf", 40),
		NewNotificationEvent("Upload cancelled.", "info", true),
		NewDragStateEvent(true),
		NewDisplayModeEvent("dark"),
		NewInputEvent("draft"),
	}

	for _, ev := range in {
		t.Run(string(ev.Type()), func(t *testing.T) {
			b, err := json.Marshal(ev)
			require.NoError(t, err)

			out, err := NewEventFromJson(b)
			require.NoError(t, err)
			require.Equal(t, ev.Type(), out.Type())
			require.Equal(t, ev.Metadata().ID, out.Metadata().ID)
			require.Equal(t, b, out.Payload())
		})
	}
}

func TestNewEventFromJson_DecodesFields(t *testing.T) {
	b, err := json.Marshal(NewUploadStateEvent("completed", "notes.txt", 100))
	require.NoError(t, err)

	ev, err := NewEventFromJson(b)
	require.NoError(t, err)
	st, ok := ev.(*EventUploadState)
	require.True(t, ok)
	require.Equal(t, "completed", st.Status)
	require.Equal(t, "notes.txt", st.FileName)
	require.Equal(t, 100, st.Progress)
}

func TestNewEventFromJson_UnknownType(t *testing.T) {
	_, err := NewEventFromJson([]byte(`{"type":"nope"}`))
	require.Error(t, err)

	_, err = NewEventFromJson([]byte(`not json`))
	require.Error(t, err)
}

type failingSink struct{}

func (failingSink) PublishEvent(Event) error {
	return errors.New("closed")
}

func TestMultiSink_DeliversPastFailures(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := NewMultiSink(a, failingSink{})
	m.Add(b)

	require.NoError(t, m.PublishEvent(NewChatBusyEvent(true)))
	require.Len(t, a.Events(), 1)
	require.Len(t, b.Events(), 1)
}

func TestPublishBlind_NilSink(t *testing.T) {
	PublishBlind(nil, NewChatBusyEvent(true))
	PublishBlind(failingSink{}, NewChatBusyEvent(true))
}

func TestRecorder_OfTypeAndReset(t *testing.T) {
	r := NewRecorder()
	PublishBlind(r, NewChatBusyEvent(true))
	PublishBlind(r, NewDragStateEvent(true))
	PublishBlind(r, NewChatBusyEvent(false))

	require.Len(t, r.OfType(EventTypeChatBusy), 2)
	require.Len(t, r.OfType(EventTypeDragState), 1)

	r.Reset()
	require.Empty(t, r.Events())
}

func TestEventRouter_DeliversThroughWatermill(t *testing.T) {
	router, err := NewEventRouter()
	require.NoError(t, err)

	var (
		mu  sync.Mutex
		got []Event
	)
	router.AddEventHandler("test", DefaultTopic, func(_ context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- router.Run(ctx)
	}()
	<-router.Running()

	sink := router.Sink(DefaultTopic)
	require.NoError(t, sink.PublishEvent(NewDisplayModeEvent("dark")))
	require.NoError(t, sink.PublishEvent(NewInputEvent("hi")))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	types := map[EventType]bool{}
	for _, ev := range got {
		types[ev.Type()] = true
	}
	mu.Unlock()
	require.True(t, types[EventTypeDisplayMode])
	require.True(t, types[EventTypeInput])

	require.NoError(t, router.Close())
	cancel()
	<-done
}

func TestWatermillZerologAdapter_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	a := NewWatermillZerologAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))

	a.With(watermill.LogFields{"topic": DefaultTopic}).Info("subscribed", nil)

	out := buf.String()
	require.Contains(t, out, `"component":"watermill"`)
	require.Contains(t, out, `"topic":"ragchat"`)
	require.Contains(t, out, `"level":"debug"`)
}
