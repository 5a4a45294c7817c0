package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/ragchat/pkg/chat"
	"github.com/go-go-golems/ragchat/pkg/client"
	"github.com/go-go-golems/ragchat/pkg/controller"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var askCmd = &cobra.Command{
	Use:   "ask <question...>",
	Short: "Ask a single question and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		cl := client.NewClient(s.Server)
		c := controller.New(cl, nil, controller.WithSettings(s))
		defer c.Close()

		if !c.SubmitMessage(cmd.Context(), strings.Join(args, " ")) {
			return errors.New("question must not be empty")
		}
		c.Wait()

		msgs := c.Messages()
		reply := msgs[len(msgs)-1].Text
		if reply == chat.FallbackReply {
			return errors.New(reply)
		}

		if !viper.GetBool("raw") && isatty.IsTerminal(os.Stdout.Fd()) {
			style := "light"
			if viper.GetBool("dark") {
				style = "dark"
			}
			if out, err := glamour.Render(reply, style); err == nil {
				reply = out
			}
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(reply, "\n"))
		return err
	},
}

func init() {
	askCmd.Flags().Bool("raw", false, "Print the reply without markdown rendering")
	askCmd.Flags().Bool("dark", false, "Render for a dark terminal background")
}
