package upload

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/ragchat/pkg/events"
	"github.com/go-go-golems/ragchat/pkg/notification"
	"github.com/go-go-golems/ragchat/pkg/timeline"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type posted struct {
	message  string
	severity notification.Severity
}

type recordingNotifier struct {
	mu    sync.Mutex
	posts []posted
}

func (r *recordingNotifier) Post(message string, severity notification.Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts = append(r.posts, posted{message, severity})
}

func (r *recordingNotifier) Posts() []posted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]posted{}, r.posts...)
}

type ingestFunc func(ctx context.Context, file File) error

func (f ingestFunc) Ingest(ctx context.Context, file File) error {
	return f(ctx, file)
}

// blockingIngestor blocks until released or cancelled.
func blockingIngestor(release <-chan error) Ingestor {
	return ingestFunc(func(ctx context.Context, file File) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-release:
			return err
		}
	})
}

type fixture struct {
	c        *Coordinator
	tl       *timeline.Timeline
	notifier *recordingNotifier
	rec      *events.Recorder
}

func newFixture(ingestor Ingestor, interval time.Duration) *fixture {
	rec := events.NewRecorder()
	tl := timeline.New(nil)
	n := &recordingNotifier{}
	c := NewCoordinator(ingestor, tl, n, WithSink(rec), WithProgress(interval, DefaultProgressStep, DefaultProgressCeiling))
	return &fixture{c: c, tl: tl, notifier: n, rec: rec}
}

func (f *fixture) statuses() []string {
	var ret []string
	for _, e := range f.rec.OfType(events.EventTypeUploadState) {
		ret = append(ret, e.(*events.EventUploadState).Status)
	}
	return ret
}

func (f *fixture) progressValues() []int {
	var ret []int
	for _, e := range f.rec.OfType(events.EventTypeUploadProgress) {
		ret = append(ret, e.(*events.EventUploadProgress).Progress)
	}
	return ret
}

func TestCoordinator_SuccessfulUpload(t *testing.T) {
	release := make(chan error)
	f := newFixture(blockingIngestor(release), time.Hour)

	require.NoError(t, f.c.Start(context.Background(), NewMemoryFile("report.pdf", []byte("%PDF"))))
	st := f.c.State()
	require.Equal(t, StatusInFlight, st.Status)
	require.Equal(t, "report.pdf", st.FileName)
	require.Equal(t, 0, st.Progress)

	release <- nil
	f.c.Wait()

	msgs := f.tl.All()
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].IsFileResult)
	require.Contains(t, msgs[0].Text, "report.pdf")
	require.Equal(t, "Successfully uploaded file report.pdf!", msgs[0].Text)

	require.Equal(t, []posted{{"Successfully uploaded report.pdf!", notification.SeveritySuccess}}, f.notifier.Posts())

	st = f.c.State()
	require.Equal(t, StatusIdle, st.Status)
	require.Equal(t, StatusCompleted, st.LastOutcome)
	require.Equal(t, 0, st.Progress)
	require.Empty(t, st.FileName)

	require.Equal(t, []int{100}, f.progressValues())
	require.Equal(t, []string{"in-flight", "completed", "idle"}, f.statuses())
}

func TestCoordinator_CancelBeforeResolution(t *testing.T) {
	f := newFixture(blockingIngestor(make(chan error)), time.Hour)

	require.NoError(t, f.c.Start(context.Background(), NewMemoryFile("notes.txt", []byte("hello"))))
	require.True(t, f.c.InFlight())

	require.True(t, f.c.Cancel())
	f.c.Wait()

	require.Equal(t, 0, f.tl.Len())
	require.Equal(t, []posted{{"Upload cancelled.", notification.SeverityInfo}}, f.notifier.Posts())

	st := f.c.State()
	require.Equal(t, StatusIdle, st.Status)
	require.Equal(t, StatusCancelled, st.LastOutcome)
	require.Equal(t, 0, st.Progress)
	require.Equal(t, []string{"in-flight", "cancelled", "idle"}, f.statuses())
}

func TestCoordinator_CancelWinsEvenIfTransferIgnoresIt(t *testing.T) {
	cancelled := make(chan struct{})
	ing := ingestFunc(func(ctx context.Context, file File) error {
		<-cancelled
		// a transport that completes anyway after the token fired
		return nil
	})
	f := newFixture(ing, time.Hour)

	require.NoError(t, f.c.Start(context.Background(), NewMemoryFile("a.txt", nil)))
	require.True(t, f.c.Cancel())
	close(cancelled)
	f.c.Wait()

	require.Equal(t, 0, f.tl.Len())
	require.Equal(t, StatusCancelled, f.c.State().LastOutcome)
}

func TestCoordinator_FailedUpload(t *testing.T) {
	release := make(chan error, 1)
	release <- errors.New("unexpected status code: 400")
	f := newFixture(blockingIngestor(release), time.Hour)

	require.NoError(t, f.c.Start(context.Background(), NewMemoryFile("bad.exe", []byte{0x4d, 0x5a})))
	f.c.Wait()

	msgs := f.tl.All()
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].IsFileResult)
	require.Equal(t, "Error uploading file bad.exe. Please try again.", msgs[0].Text)
	require.Equal(t, []posted{{"Error uploading file bad.exe.", notification.SeverityError}}, f.notifier.Posts())

	st := f.c.State()
	require.Equal(t, StatusIdle, st.Status)
	require.Equal(t, StatusFailed, st.LastOutcome)
	require.Equal(t, 0, st.Progress)
}

func TestCoordinator_ProgressStopsAtCeiling(t *testing.T) {
	release := make(chan error)
	f := newFixture(blockingIngestor(release), time.Millisecond)

	require.NoError(t, f.c.Start(context.Background(), NewMemoryFile("big.pdf", nil)))

	require.Eventually(t, func() bool {
		return f.c.State().Progress == DefaultProgressCeiling
	}, 2*time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, DefaultProgressCeiling, f.c.State().Progress)
	require.Equal(t, []int{10, 20, 30, 40, 50, 60, 70, 80, 90}, f.progressValues())

	release <- nil
	f.c.Wait()

	vals := f.progressValues()
	require.Equal(t, 100, vals[len(vals)-1])
	require.Equal(t, 0, f.c.State().Progress)
}

func TestCoordinator_SecondStartWhileInFlightIsRejected(t *testing.T) {
	release := make(chan error)
	f := newFixture(blockingIngestor(release), time.Hour)

	require.NoError(t, f.c.Start(context.Background(), NewMemoryFile("one.txt", nil)))
	err := f.c.Start(context.Background(), NewMemoryFile("two.txt", nil))
	require.ErrorIs(t, err, ErrUploadInFlight)
	require.Equal(t, "one.txt", f.c.State().FileName)

	release <- nil
	f.c.Wait()

	require.Len(t, f.tl.All(), 1)
	require.NoError(t, f.c.Start(context.Background(), NewMemoryFile("two.txt", nil)))
	release <- nil
	f.c.Wait()
	require.Len(t, f.tl.All(), 2)
}

func TestCoordinator_NilFileAndIdleCancelAreNoops(t *testing.T) {
	f := newFixture(blockingIngestor(make(chan error)), time.Hour)

	require.NoError(t, f.c.Start(context.Background(), nil))
	require.False(t, f.c.InFlight())
	require.False(t, f.c.Cancel())
	require.Empty(t, f.rec.Events())
	require.Empty(t, f.notifier.Posts())
}

func TestCoordinator_IngestorReceivesFileContent(t *testing.T) {
	var got []byte
	ing := ingestFunc(func(ctx context.Context, file File) error {
		r, err := file.Open()
		if err != nil {
			return err
		}
		defer r.Close()
		got, err = io.ReadAll(r)
		return err
	})
	f := newFixture(ing, time.Hour)

	require.NoError(t, f.c.Start(context.Background(), NewMemoryFile("doc.txt", []byte("payload"))))
	f.c.Wait()

	require.Equal(t, []byte("payload"), got)
}

func TestIsAccepted(t *testing.T) {
	require.True(t, IsAccepted("report.PDF", DefaultAcceptedTypes))
	require.True(t, IsAccepted("notes.txt", DefaultAcceptedTypes))
	require.False(t, IsAccepted("bad.exe", DefaultAcceptedTypes))
	require.False(t, IsAccepted("README", DefaultAcceptedTypes))
	require.True(t, IsAccepted("anything.bin", nil))
}
