package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-go-golems/ragchat/pkg/stubserver"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local stand-in for the assistant service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		srv := stubserver.NewServer(
			stubserver.WithFileField(s.Server.FileField),
			stubserver.WithBodyLimit(viper.GetString("body-limit")),
		)

		for _, path := range viper.GetStringSlice("load") {
			b, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "could not read %s", path)
			}
			doc := srv.KnowledgeBase().Add(filepath.Base(path), string(b))
			log.Info().Str("file", path).Int("chunks", len(doc.Chunks)).Msg("preloaded document")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx, viper.GetString("addr"))
	},
}

func init() {
	serveCmd.Flags().String("addr", stubserver.DefaultAddr, "Address to listen on")
	serveCmd.Flags().String("body-limit", stubserver.DefaultBodyLimit, "Maximum request body size")
	serveCmd.Flags().StringSlice("load", nil, "Text files to add to the knowledge base at startup")
}
