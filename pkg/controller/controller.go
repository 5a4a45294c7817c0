package controller

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/ragchat/pkg/chat"
	"github.com/go-go-golems/ragchat/pkg/config"
	"github.com/go-go-golems/ragchat/pkg/dropzone"
	"github.com/go-go-golems/ragchat/pkg/events"
	"github.com/go-go-golems/ragchat/pkg/notification"
	"github.com/go-go-golems/ragchat/pkg/timeline"
	"github.com/go-go-golems/ragchat/pkg/upload"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type DisplayMode string

const (
	DisplayModeLight DisplayMode = "light"
	DisplayModeDark  DisplayMode = "dark"
)

var ErrMessageNotFound = errors.New("message not found")

// Clipboard is the host facility backing CopyMessage.
type Clipboard interface {
	WriteAll(text string) error
}

// ViewState is a consistent snapshot of everything a renderer needs.
type ViewState struct {
	Messages     []timeline.Message
	Busy         bool
	Upload       upload.State
	Notification notification.Notification
	Dragging     bool
	DisplayMode  DisplayMode
	Input        string
}

// Controller owns the timeline, the notification slot, both coordinators and
// the drop zone, and is the only entry point host UIs use.
type Controller struct {
	timeline      *timeline.Timeline
	notifications *notification.Queue
	chat          *chat.Coordinator
	uploads       *upload.Coordinator
	dropZone      *dropzone.Controller
	sink          events.EventSink
	clipboard     Clipboard

	mu          sync.Mutex
	displayMode DisplayMode
	input       string
}

type options struct {
	sink             events.EventSink
	clipboard        Clipboard
	now              func() time.Time
	autoHide         time.Duration
	requestTimeout   time.Duration
	progressInterval time.Duration
	progressStep     int
	progressCeiling  int
	displayMode      DisplayMode
}

type Option func(*options)

func WithSink(sink events.EventSink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

func WithClipboard(c Clipboard) Option {
	return func(o *options) {
		o.clipboard = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func WithAutoHide(d time.Duration) Option {
	return func(o *options) {
		o.autoHide = d
	}
}

func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) {
		o.requestTimeout = d
	}
}

func WithProgress(interval time.Duration, step, ceiling int) Option {
	return func(o *options) {
		o.progressInterval = interval
		o.progressStep = step
		o.progressCeiling = ceiling
	}
}

func WithDisplayMode(mode DisplayMode) Option {
	return func(o *options) {
		o.displayMode = mode
	}
}

// WithSettings applies the timing knobs of s.
func WithSettings(s *config.Settings) Option {
	return func(o *options) {
		o.autoHide = s.Notifications.AutoHide
		o.requestTimeout = s.Server.RequestTimeout
		o.progressInterval = s.Upload.ProgressInterval
		o.progressStep = s.Upload.ProgressStep
		o.progressCeiling = s.Upload.ProgressCeiling
	}
}

func New(assistant chat.Assistant, ingestor upload.Ingestor, opts ...Option) *Controller {
	o := &options{
		sink:             events.NewNullSink(),
		now:              time.Now,
		autoHide:         notification.DefaultAutoHide,
		progressInterval: upload.DefaultProgressInterval,
		progressStep:     upload.DefaultProgressStep,
		progressCeiling:  upload.DefaultProgressCeiling,
		displayMode:      DisplayModeLight,
	}
	for _, opt := range opts {
		opt(o)
	}

	tl := timeline.New(o.sink)
	q := notification.NewQueue(notification.WithAutoHide(o.autoHide), notification.WithSink(o.sink))
	uploads := upload.NewCoordinator(ingestor, tl, q,
		upload.WithSink(o.sink),
		upload.WithClock(o.now),
		upload.WithProgress(o.progressInterval, o.progressStep, o.progressCeiling),
	)

	return &Controller{
		timeline:      tl,
		notifications: q,
		chat: chat.NewCoordinator(assistant, tl,
			chat.WithSink(o.sink),
			chat.WithClock(o.now),
			chat.WithTimeout(o.requestTimeout),
		),
		uploads:     uploads,
		dropZone:    dropzone.NewController(uploads, o.sink),
		sink:        o.sink,
		clipboard:   o.clipboard,
		displayMode: o.displayMode,
	}
}

// SubmitMessage sends text to the assistant. Blank text is ignored. When the
// message is accepted the input buffer is cleared.
//
// Submitting while Busy is not rejected here; hosts disable their submit
// affordance instead.
func (c *Controller) SubmitMessage(ctx context.Context, text string) bool {
	if !c.chat.Submit(ctx, text) {
		return false
	}
	c.SetInput("")
	return true
}

// SubmitInput submits the current input buffer.
func (c *Controller) SubmitInput(ctx context.Context) bool {
	return c.SubmitMessage(ctx, c.Input())
}

func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	changed := c.input != text
	c.input = text
	c.mu.Unlock()

	if changed {
		events.PublishBlind(c.sink, events.NewInputEvent(text))
	}
}

func (c *Controller) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SubmitFile starts uploading file. A nil file is ignored. While another
// upload is in flight upload.ErrUploadInFlight is returned.
func (c *Controller) SubmitFile(ctx context.Context, file upload.File) error {
	err := c.uploads.Start(ctx, file)
	if err != nil {
		log.Debug().Err(err).Str("component", "controller").Msg("file submission rejected")
	}
	return err
}

func (c *Controller) CancelUpload() bool {
	return c.uploads.Cancel()
}

func (c *Controller) HandleGesture(ctx context.Context, g *dropzone.Gesture) error {
	err := c.dropZone.Handle(ctx, g)
	if err != nil {
		log.Debug().Err(err).Str("component", "controller").Msg("drop rejected")
	}
	return err
}

// StartNewChat clears the timeline. In-flight chat requests and uploads keep
// running and append their results to the new timeline.
func (c *Controller) StartNewChat() {
	c.timeline.Clear()
}

func (c *Controller) ToggleDisplayMode() DisplayMode {
	c.mu.Lock()
	if c.displayMode == DisplayModeDark {
		c.displayMode = DisplayModeLight
	} else {
		c.displayMode = DisplayModeDark
	}
	mode := c.displayMode
	c.mu.Unlock()

	events.PublishBlind(c.sink, events.NewDisplayModeEvent(string(mode)))
	return mode
}

func (c *Controller) DisplayMode() DisplayMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayMode
}

// CopyMessage puts the text of message id on the clipboard and confirms
// with a notification.
func (c *Controller) CopyMessage(id string) error {
	m, ok := c.timeline.Find(id)
	if !ok {
		return errors.Wrap(ErrMessageNotFound, id)
	}
	if c.clipboard == nil {
		return errors.New("no clipboard configured")
	}
	if err := c.clipboard.WriteAll(m.Text); err != nil {
		return errors.Wrap(err, "could not write to clipboard")
	}
	c.notifications.Post("Message copied!", notification.SeveritySuccess)
	return nil
}

func (c *Controller) DismissNotification() {
	c.notifications.Dismiss()
}

func (c *Controller) Messages() []timeline.Message {
	return c.timeline.All()
}

func (c *Controller) Busy() bool {
	return c.chat.Busy()
}

func (c *Controller) Upload() upload.State {
	return c.uploads.State()
}

func (c *Controller) Notification() notification.Notification {
	return c.notifications.Current()
}

func (c *Controller) Dragging() bool {
	return c.dropZone.IsDragging()
}

func (c *Controller) Snapshot() ViewState {
	c.mu.Lock()
	mode, input := c.displayMode, c.input
	c.mu.Unlock()

	return ViewState{
		Messages:     c.timeline.All(),
		Busy:         c.chat.Busy(),
		Upload:       c.uploads.State(),
		Notification: c.notifications.Current(),
		Dragging:     c.dropZone.IsDragging(),
		DisplayMode:  mode,
		Input:        input,
	}
}

// Wait blocks until all in-flight chat requests and the running upload have finished.
func (c *Controller) Wait() {
	c.chat.Wait()
	c.uploads.Wait()
}

// Close cancels a running upload and waits for all background work.
func (c *Controller) Close() {
	c.uploads.Cancel()
	c.Wait()
	c.notifications.Dismiss()
}
