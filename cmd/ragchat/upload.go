package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/go-go-golems/ragchat/pkg/client"
	"github.com/go-go-golems/ragchat/pkg/controller"
	"github.com/go-go-golems/ragchat/pkg/events"
	"github.com/go-go-golems/ragchat/pkg/upload"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document to the knowledge base, ctrl-c cancels",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

// progressPrinter renders upload progress events as a single updating line.
type progressPrinter struct {
	mu  sync.Mutex
	w   io.Writer
	bar progress.Model
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{
		w:   w,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (p *progressPrinter) PublishEvent(ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := ev.(type) {
	case *events.EventUploadProgress:
		_, err := fmt.Fprintf(p.w, "\r%s %s", e.FileName, p.bar.ViewAs(float64(e.Progress)/100.0))
		return err
	case *events.EventNotification:
		if e.Visible {
			_, err := fmt.Fprintf(p.w, "\n%s\n", e.Message)
			return err
		}
	}
	return nil
}

var _ events.EventSink = (*progressPrinter)(nil)

func runUpload(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	path := args[0]
	fi, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "could not stat %s", path)
	}
	if fi.IsDir() {
		return errors.Errorf("%s is a directory", path)
	}
	if !upload.IsAccepted(path, s.Upload.AcceptedTypes) {
		log.Warn().Str("file", path).Strs("accepted", s.Upload.AcceptedTypes).Msg("file type is not one of the accepted types")
	}

	cl := client.NewClient(s.Server)
	c := controller.New(nil, cl,
		controller.WithSettings(s),
		controller.WithSink(newProgressPrinter(cmd.ErrOrStderr())),
	)
	defer c.Close()

	// the upload itself does not use the signal context: an interrupt goes
	// through CancelUpload so it is reported as a cancellation
	if err := c.SubmitFile(context.Background(), upload.NewLocalFile(path)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.CancelUpload()
		case <-done:
		}
	}()

	c.Wait()
	close(done)

	switch outcome := c.Upload().LastOutcome; outcome {
	case upload.StatusCompleted:
		return nil
	case upload.StatusCancelled:
		return upload.ErrCancelledByUser
	default:
		return errors.Errorf("upload of %s %s", path, outcome)
	}
}
