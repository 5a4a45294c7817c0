package timeline

import (
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// TimestampLayout is the human-readable time-of-day captured on every message.
const TimestampLayout = "3:04:05 PM"

// Message is a single chat turn. It is a value type: the timeline stores
// copies and hands out copies, so a message cannot change after it is appended.
type Message struct {
	ID           string `json:"id" yaml:"id"`
	Text         string `json:"text" yaml:"text"`
	Sender       Sender `json:"sender" yaml:"sender"`
	Timestamp    string `json:"timestamp" yaml:"timestamp"`
	IsFileResult bool   `json:"is_file_result" yaml:"is_file_result"`
}

func newMessage(text string, sender Sender, isFileResult bool, now time.Time) Message {
	return Message{
		ID:           uuid.NewString(),
		Text:         text,
		Sender:       sender,
		Timestamp:    now.Format(TimestampLayout),
		IsFileResult: isFileResult,
	}
}

func NewUserMessage(text string, now time.Time) Message {
	return newMessage(text, SenderUser, false, now)
}

func NewAssistantMessage(text string, now time.Time) Message {
	return newMessage(text, SenderAssistant, false, now)
}

// NewFileResultMessage creates the assistant-side entry reporting an upload outcome.
func NewFileResultMessage(text string, now time.Time) Message {
	return newMessage(text, SenderAssistant, true, now)
}
