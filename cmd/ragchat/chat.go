package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/ragchat/pkg/client"
	"github.com/go-go-golems/ragchat/pkg/controller"
	"github.com/go-go-golems/ragchat/pkg/events"
	"github.com/go-go-golems/ragchat/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().Bool("dark", false, "Start in dark mode")
	chatCmd.Flags().String("directory", "", "Start directory of the file picker (default: current directory)")
}

func runChat(cmd *cobra.Command, _ []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}

	// the TUI owns the terminal, so logs only go to the log file
	lc := newLogConfig()
	lc.Quiet = true
	if err := InitLogger(lc); err != nil {
		return err
	}

	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return err
	}
	defer func() {
		if err := router.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close eventRouter")
		}
	}()

	mode := controller.DisplayModeLight
	if viper.GetBool("dark") {
		mode = controller.DisplayModeDark
	}

	cl := client.NewClient(s.Server)
	c := controller.New(cl, cl,
		controller.WithSettings(s),
		controller.WithSink(router.Sink(events.DefaultTopic)),
		controller.WithClipboard(ui.SystemClipboard{}),
		controller.WithDisplayMode(mode),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	modelOptions := []ui.ModelOption{ui.WithAcceptedTypes(s.Upload.AcceptedTypes)}
	if dir := viper.GetString("directory"); dir != "" {
		modelOptions = append(modelOptions, ui.WithStartDirectory(dir))
	}

	options := []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(), // turn on mouse support so we can track the mouse wheel
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		tty, err := ui.OpenTTY()
		if err != nil {
			return errors.Wrap(err, "stdin is not a terminal and no tty is available")
		}
		defer func() {
			_ = tty.Close()
		}()
		options = append(options, tea.WithInput(tty))
	}

	p := tea.NewProgram(ui.InitialModel(ctx, c, modelOptions...), options...)
	router.AddEventHandler("ui", events.DefaultTopic, ui.ForwardFunc(p))

	eg := errgroup.Group{}
	eg.Go(func() error {
		ret := router.Run(ctx)
		log.Debug().Err(ret).Msg("router.Run returned")
		return nil
	})
	eg.Go(func() error {
		defer cancel()
		<-router.Running()
		if _, err := p.Run(); err != nil {
			return err
		}
		return nil
	})

	err = eg.Wait()

	// ctx is cancelled by now, which aborts pending requests
	c.Close()
	return err
}
