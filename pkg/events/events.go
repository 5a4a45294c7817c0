package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeTimelineAppended is also the "scroll to latest" signal for renderers.
	EventTypeTimelineAppended EventType = "timeline-appended"
	EventTypeTimelineCleared  EventType = "timeline-cleared"

	EventTypeChatBusy EventType = "chat-busy"

	EventTypeUploadState    EventType = "upload-state"
	EventTypeUploadProgress EventType = "upload-progress"

	EventTypeNotification EventType = "notification"

	EventTypeDragState   EventType = "drag-state"
	EventTypeDisplayMode EventType = "display-mode"
	EventTypeInput       EventType = "input"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
	Payload() []byte
}

type EventMetadata struct {
	ID   uuid.UUID `json:"id"`
	Time time.Time `json:"time"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("id", em.ID.String())
	e.Time("time", em.Time)
}

func NewEventMetadata() EventMetadata {
	return EventMetadata{
		ID:   uuid.New(),
		Time: time.Now(),
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`

	// set when the event was decoded by NewEventFromJson
	payload []byte
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Metadata() EventMetadata {
	return e.Metadata_
}

func (e *EventImpl) Payload() []byte {
	return e.payload
}

func (e *EventImpl) SetPayload(b []byte) {
	e.payload = b
}

var _ Event = &EventImpl{}

func newEventImpl(t EventType) EventImpl {
	return EventImpl{
		Type_:     t,
		Metadata_: NewEventMetadata(),
	}
}

// EventTimelineAppended carries a copy of the appended message.
type EventTimelineAppended struct {
	EventImpl
	MessageID    string `json:"message_id"`
	Sender       string `json:"sender"`
	Text         string `json:"text"`
	Timestamp    string `json:"timestamp"`
	IsFileResult bool   `json:"is_file_result"`
	// Length is the timeline length right after the append.
	Length int `json:"length"`
}

func NewTimelineAppendedEvent(id, sender, text, timestamp string, isFileResult bool, length int) *EventTimelineAppended {
	return &EventTimelineAppended{
		EventImpl:    newEventImpl(EventTypeTimelineAppended),
		MessageID:    id,
		Sender:       sender,
		Text:         text,
		Timestamp:    timestamp,
		IsFileResult: isFileResult,
		Length:       length,
	}
}

type EventTimelineCleared struct {
	EventImpl
}

func NewTimelineClearedEvent() *EventTimelineCleared {
	return &EventTimelineCleared{EventImpl: newEventImpl(EventTypeTimelineCleared)}
}

type EventChatBusy struct {
	EventImpl
	Busy bool `json:"busy"`
}

func NewChatBusyEvent(busy bool) *EventChatBusy {
	return &EventChatBusy{EventImpl: newEventImpl(EventTypeChatBusy), Busy: busy}
}

// EventUploadState is published on every upload status transition, including
// the transient terminal outcome before the return to idle.
type EventUploadState struct {
	EventImpl
	Status   string `json:"status"`
	FileName string `json:"file_name,omitempty"`
	Progress int    `json:"progress"`
}

func NewUploadStateEvent(status, fileName string, progress int) *EventUploadState {
	return &EventUploadState{
		EventImpl: newEventImpl(EventTypeUploadState),
		Status:    status,
		FileName:  fileName,
		Progress:  progress,
	}
}

type EventUploadProgress struct {
	EventImpl
	FileName string `json:"file_name,omitempty"`
	Progress int    `json:"progress"`
}

func NewUploadProgressEvent(fileName string, progress int) *EventUploadProgress {
	return &EventUploadProgress{
		EventImpl: newEventImpl(EventTypeUploadProgress),
		FileName:  fileName,
		Progress:  progress,
	}
}

type EventNotification struct {
	EventImpl
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Visible  bool   `json:"visible"`
}

func NewNotificationEvent(message, severity string, visible bool) *EventNotification {
	return &EventNotification{
		EventImpl: newEventImpl(EventTypeNotification),
		Message:   message,
		Severity:  severity,
		Visible:   visible,
	}
}

type EventDragState struct {
	EventImpl
	Dragging bool `json:"dragging"`
}

func NewDragStateEvent(dragging bool) *EventDragState {
	return &EventDragState{EventImpl: newEventImpl(EventTypeDragState), Dragging: dragging}
}

type EventDisplayMode struct {
	EventImpl
	Mode string `json:"mode"`
}

func NewDisplayModeEvent(mode string) *EventDisplayMode {
	return &EventDisplayMode{EventImpl: newEventImpl(EventTypeDisplayMode), Mode: mode}
}

type EventInput struct {
	EventImpl
	Text string `json:"text"`
}

func NewInputEvent(text string) *EventInput {
	return &EventInput{EventImpl: newEventImpl(EventTypeInput), Text: text}
}

func decodeAs[T any](b []byte) (*T, error) {
	var ret T
	if err := json.Unmarshal(b, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

// NewEventFromJson decodes a payload produced by WatermillSink back into its typed event.
func NewEventFromJson(b []byte) (Event, error) {
	var hdr struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, err
	}

	var (
		ev  Event
		err error
	)
	switch hdr.Type {
	case EventTypeTimelineAppended:
		ev, err = decodeAs[EventTimelineAppended](b)
	case EventTypeTimelineCleared:
		ev, err = decodeAs[EventTimelineCleared](b)
	case EventTypeChatBusy:
		ev, err = decodeAs[EventChatBusy](b)
	case EventTypeUploadState:
		ev, err = decodeAs[EventUploadState](b)
	case EventTypeUploadProgress:
		ev, err = decodeAs[EventUploadProgress](b)
	case EventTypeNotification:
		ev, err = decodeAs[EventNotification](b)
	case EventTypeDragState:
		ev, err = decodeAs[EventDragState](b)
	case EventTypeDisplayMode:
		ev, err = decodeAs[EventDisplayMode](b)
	case EventTypeInput:
		ev, err = decodeAs[EventInput](b)
	default:
		return nil, fmt.Errorf("unknown event type %q", hdr.Type)
	}
	if err != nil {
		return nil, err
	}

	if setter, ok := ev.(interface{ SetPayload([]byte) }); ok {
		setter.SetPayload(b)
	}
	return ev, nil
}
