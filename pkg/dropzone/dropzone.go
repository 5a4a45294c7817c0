package dropzone

import (
	"context"
	"sync"

	"github.com/go-go-golems/ragchat/pkg/events"
	"github.com/go-go-golems/ragchat/pkg/upload"
	"github.com/rs/zerolog/log"
)

type GestureKind string

const (
	GestureEnter GestureKind = "enter"
	GestureOver  GestureKind = "over"
	GestureLeave GestureKind = "leave"
	GestureDrop  GestureKind = "drop"
)

// Gesture is one drag-and-drop signal from the host. The host must skip its
// default handling (e.g. navigating to a dropped file) when DefaultPrevented
// reports true.
type Gesture struct {
	Kind  GestureKind
	Files []upload.File

	defaultPrevented   bool
	propagationStopped bool
}

func NewGesture(kind GestureKind, files ...upload.File) *Gesture {
	return &Gesture{Kind: kind, Files: files}
}

func (g *Gesture) PreventDefault() {
	g.defaultPrevented = true
}

func (g *Gesture) StopPropagation() {
	g.propagationStopped = true
}

func (g *Gesture) DefaultPrevented() bool {
	return g.defaultPrevented
}

func (g *Gesture) PropagationStopped() bool {
	return g.propagationStopped
}

// Starter is what a drop is forwarded to.
type Starter interface {
	Start(ctx context.Context, file upload.File) error
}

// Controller tracks whether something is being dragged over the drop zone
// and turns drops into upload requests.
type Controller struct {
	starter Starter
	sink    events.EventSink

	mu       sync.Mutex
	dragging bool
}

func NewController(starter Starter, sink events.EventSink) *Controller {
	if sink == nil {
		sink = events.NewNullSink()
	}
	return &Controller{starter: starter, sink: sink}
}

// Handle processes g. Only the first file of a drop is uploaded; the rest
// are ignored. The error is whatever the upload start returned.
func (d *Controller) Handle(ctx context.Context, g *Gesture) error {
	if g == nil {
		return nil
	}
	g.PreventDefault()
	g.StopPropagation()

	switch g.Kind {
	case GestureEnter:
		d.setDragging(true)
	case GestureOver:
	case GestureLeave:
		d.setDragging(false)
	case GestureDrop:
		d.setDragging(false)
		if len(g.Files) == 0 || g.Files[0] == nil {
			return nil
		}
		if len(g.Files) > 1 {
			log.Debug().Str("component", "dropzone").Int("dropped", len(g.Files)).Msg("multi-file drop, uploading the first file only")
		}
		return d.starter.Start(ctx, g.Files[0])
	default:
		log.Warn().Str("component", "dropzone").Str("kind", string(g.Kind)).Msg("unknown gesture")
	}
	return nil
}

func (d *Controller) IsDragging() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dragging
}

func (d *Controller) setDragging(v bool) {
	d.mu.Lock()
	changed := d.dragging != v
	d.dragging = v
	d.mu.Unlock()

	if changed {
		events.PublishBlind(d.sink, events.NewDragStateEvent(v))
	}
}
