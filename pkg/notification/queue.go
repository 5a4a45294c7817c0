package notification

import (
	"sync"
	"time"

	"github.com/go-go-golems/ragchat/pkg/events"
	"github.com/rs/zerolog/log"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

const DefaultAutoHide = 3000 * time.Millisecond

type Notification struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Visible  bool     `json:"visible"`
}

// Queue is a single-slot notification holder. The latest post replaces
// whatever is shown; nothing is queued and no history is kept.
type Queue struct {
	mu       sync.Mutex
	current  Notification
	timer    *time.Timer
	seq      uint64
	autoHide time.Duration
	sink     events.EventSink
}

type Option func(*Queue)

func WithAutoHide(d time.Duration) Option {
	return func(q *Queue) {
		q.autoHide = d
	}
}

func WithSink(sink events.EventSink) Option {
	return func(q *Queue) {
		q.sink = sink
	}
}

func NewQueue(options ...Option) *Queue {
	ret := &Queue{
		autoHide: DefaultAutoHide,
		sink:     events.NewNullSink(),
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// Post shows message and (re)arms the auto-hide timer.
func (q *Queue) Post(message string, severity Severity) {
	q.mu.Lock()
	q.stopTimerLocked()
	q.seq++
	seq := q.seq
	q.current = Notification{
		Message:  message,
		Severity: severity,
		Visible:  true,
	}
	if q.autoHide > 0 {
		q.timer = time.AfterFunc(q.autoHide, func() {
			q.expire(seq)
		})
	}
	n := q.current
	q.mu.Unlock()

	log.Debug().Str("component", "notification").Str("severity", string(severity)).Str("message", message).Msg("posted")
	q.publish(n)
}

// Dismiss hides the current notification and cancels its pending auto-hide.
func (q *Queue) Dismiss() {
	q.mu.Lock()
	q.stopTimerLocked()
	if !q.current.Visible {
		q.mu.Unlock()
		return
	}
	q.current.Visible = false
	n := q.current
	q.mu.Unlock()

	q.publish(n)
}

func (q *Queue) Current() Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// expire runs on the timer goroutine. A timer armed for an older post must
// not hide a newer one.
func (q *Queue) expire(seq uint64) {
	q.mu.Lock()
	if seq != q.seq || !q.current.Visible {
		q.mu.Unlock()
		return
	}
	q.timer = nil
	q.current.Visible = false
	n := q.current
	q.mu.Unlock()

	q.publish(n)
}

func (q *Queue) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

func (q *Queue) publish(n Notification) {
	events.PublishBlind(q.sink, events.NewNotificationEvent(n.Message, string(n.Severity), n.Visible))
}
