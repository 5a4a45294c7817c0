package upload

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-go-golems/ragchat/pkg/events"
	"github.com/go-go-golems/ragchat/pkg/notification"
	"github.com/go-go-golems/ragchat/pkg/timeline"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusIdle      Status = "idle"
	StatusInFlight  Status = "in-flight"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

var (
	// ErrUploadInFlight is returned by Start while another upload is running.
	ErrUploadInFlight = errors.New("an upload is already in flight")
	// ErrCancelledByUser is the cancellation cause recorded by Cancel.
	ErrCancelledByUser = errors.New("Upload cancelled by user")
)

const (
	DefaultProgressInterval = 500 * time.Millisecond
	DefaultProgressStep     = 10
	DefaultProgressCeiling  = 90
)

// Ingestor is the remote ingestion collaborator. It must honor ctx
// cancellation by returning promptly.
type Ingestor interface {
	Ingest(ctx context.Context, file File) error
}

// Notifier receives the advisory notification of each upload outcome.
type Notifier interface {
	Post(message string, severity notification.Severity)
}

type State struct {
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	FileName string `json:"file_name,omitempty"`
	// LastOutcome is the terminal status of the most recent finished upload.
	LastOutcome Status `json:"last_outcome,omitempty"`
}

// Coordinator runs at most one upload at a time.
//
// Progress is simulated: a ticker bumps it by a fixed step until a ceiling
// below 100 is reached. It does not measure transferred bytes. Only a
// successful transfer sets it to 100, just before finalization resets it.
type Coordinator struct {
	ingestor      Ingestor
	timeline      *timeline.Timeline
	notifier      Notifier
	sink          events.EventSink
	now           func() time.Time
	tickInterval  time.Duration
	progressStep  int
	progressLimit int

	mu          sync.Mutex
	status      Status
	progress    int
	file        File
	cancel      context.CancelCauseFunc
	lastOutcome Status
	wg          sync.WaitGroup
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

// WithProgress configures the simulated progress ticker.
func WithProgress(interval time.Duration, step, ceiling int) Option {
	return func(c *Coordinator) {
		c.tickInterval = interval
		c.progressStep = step
		c.progressLimit = ceiling
	}
}

func NewCoordinator(ingestor Ingestor, tl *timeline.Timeline, notifier Notifier, options ...Option) *Coordinator {
	ret := &Coordinator{
		ingestor:      ingestor,
		timeline:      tl,
		notifier:      notifier,
		sink:          events.NewNullSink(),
		now:           time.Now,
		tickInterval:  DefaultProgressInterval,
		progressStep:  DefaultProgressStep,
		progressLimit: DefaultProgressCeiling,
		status:        StatusIdle,
	}
	for _, o := range options {
		o(ret)
	}
	if ret.progressLimit >= 100 {
		ret.progressLimit = 99
	}
	return ret
}

// Start begins uploading file in the background. A nil file is ignored.
func (c *Coordinator) Start(ctx context.Context, file File) error {
	if file == nil {
		return nil
	}

	c.mu.Lock()
	// a finished upload still counts until it is finalized back to idle
	if c.status != StatusIdle {
		c.mu.Unlock()
		log.Debug().Str("component", "upload").Str("file", file.Name()).Msg("upload rejected, another one is in flight")
		return ErrUploadInFlight
	}
	uploadCtx, cancel := context.WithCancelCause(ctx)
	c.status = StatusInFlight
	c.progress = 0
	c.file = file
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	log.Debug().Str("component", "upload").Str("file", file.Name()).Msg("upload started")
	c.publishState(StatusInFlight, file.Name(), 0)

	go c.run(uploadCtx, cancel, file)
	return nil
}

// Cancel triggers the cancellation token of the running upload. It reports
// whether there was an upload to cancel.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusInFlight || c.cancel == nil {
		return false
	}
	c.cancel(ErrCancelledByUser)
	return true
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		Status:      c.status,
		Progress:    c.progress,
		LastOutcome: c.lastOutcome,
	}
	if c.file != nil {
		s.FileName = c.file.Name()
	}
	return s
}

// InFlight reports whether an upload has started and not yet been finalized.
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status != StatusIdle
}

// Wait blocks until the running upload, if any, is finalized.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

func (c *Coordinator) run(ctx context.Context, cancel context.CancelCauseFunc, file File) {
	defer c.wg.Done()

	stop := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		c.simulateProgress(stop, file.Name())
		return nil
	})
	g.Go(func() error {
		defer close(stop)
		err := c.ingestor.Ingest(ctx, file)
		c.resolve(ctx, file, err)
		return nil
	})
	_ = g.Wait()

	cancel(nil)
	c.finalize(file)
}

func (c *Coordinator) simulateProgress(stop <-chan struct{}, name string) {
	if c.tickInterval <= 0 || c.progressStep <= 0 {
		return
	}
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.progress >= c.progressLimit {
				c.mu.Unlock()
				return
			}
			c.progress = min(c.progress+c.progressStep, c.progressLimit)
			p := c.progress
			c.mu.Unlock()
			events.PublishBlind(c.sink, events.NewUploadProgressEvent(name, p))
		}
	}
}

// resolve interprets the transfer result. A user cancellation recorded
// before the result is handled wins over whatever the transfer returned.
func (c *Coordinator) resolve(ctx context.Context, file File, err error) {
	name := file.Name()
	cancelled := errors.Is(context.Cause(ctx), ErrCancelledByUser)

	var outcome Status
	switch {
	case cancelled:
		outcome = StatusCancelled
		log.Info().Str("component", "upload").Str("file", name).Msg("upload cancelled")
		c.notifier.Post("Upload cancelled.", notification.SeverityInfo)

	case err != nil:
		outcome = StatusFailed
		log.Warn().Err(err).Str("component", "upload").Str("file", name).Msg("upload failed")
		c.timeline.Append(timeline.NewFileResultMessage(
			fmt.Sprintf("Error uploading file %s. Please try again.", name), c.now()))
		c.notifier.Post(fmt.Sprintf("Error uploading file %s.", name), notification.SeverityError)

	default:
		outcome = StatusCompleted
		c.mu.Lock()
		c.progress = 100
		c.mu.Unlock()
		events.PublishBlind(c.sink, events.NewUploadProgressEvent(name, 100))
		log.Info().Str("component", "upload").Str("file", name).Msg("upload completed")
		c.timeline.Append(timeline.NewFileResultMessage(
			fmt.Sprintf("Successfully uploaded file %s!", name), c.now()))
		c.notifier.Post(fmt.Sprintf("Successfully uploaded %s!", name), notification.SeveritySuccess)
	}

	c.mu.Lock()
	c.status = outcome
	c.lastOutcome = outcome
	p := c.progress
	c.mu.Unlock()
	c.publishState(outcome, name, p)
}

func (c *Coordinator) finalize(file File) {
	c.mu.Lock()
	c.progress = 0
	c.cancel = nil
	c.file = nil
	c.status = StatusIdle
	c.mu.Unlock()

	c.publishState(StatusIdle, file.Name(), 0)
}

func (c *Coordinator) publishState(status Status, name string, progress int) {
	events.PublishBlind(c.sink, events.NewUploadStateEvent(string(status), name, progress))
}
