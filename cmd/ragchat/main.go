package main

import (
	"io"
	"os"
	"strings"

	"github.com/go-go-golems/ragchat/pkg/config"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "ragchat is a terminal client for a retrieval-augmented chat assistant",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(cmd); err != nil {
			return err
		}
		// reinitialize the logger because we can now parse --log-level and co
		// from the command line flag
		return initLogger()
	},
	SilenceUsage: true,
}

type logConfig struct {
	WithCaller bool
	Level      string
	LogFormat  string
	LogFile    string
	// Quiet drops console output, used while the TUI owns the terminal.
	Quiet bool
}

func newLogConfig() *logConfig {
	logLevel := viper.GetString("log-level")
	if viper.GetBool("verbose") && logLevel != "trace" {
		logLevel = "debug"
	}
	return &logConfig{
		Level:      logLevel,
		LogFile:    viper.GetString("log-file"),
		LogFormat:  viper.GetString("log-format"),
		WithCaller: viper.GetBool("with-caller"),
	}
}

func initLogger() error {
	return InitLogger(newLogConfig())
}

func InitLogger(config *logConfig) error {
	var logWriter io.Writer
	switch {
	case config.Quiet:
		logWriter = io.Discard
	case config.LogFormat == "text",
		config.LogFormat == "" && isatty.IsTerminal(os.Stderr.Fd()):
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}
	case config.LogFormat == "json", config.LogFormat == "":
		logWriter = os.Stderr
	default:
		return errors.Errorf("unknown log format %q", config.LogFormat)
	}

	if config.LogFile != "" {
		fileWriter := zerolog.ConsoleWriter{
			NoColor: true,
			Out: &lumberjack.Logger{
				Filename:   config.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28,    //days
				Compress:   false, // disabled by default
			},
		}
		if config.Quiet {
			logWriter = fileWriter
		} else {
			logWriter = io.MultiWriter(logWriter, fileWriter)
		}
	}

	logger := zerolog.New(logWriter).With().Timestamp()
	if config.WithCaller {
		logger = logger.Caller()
	}
	log.Logger = logger.Logger()

	level := zerolog.InfoLevel
	if config.Level != "" {
		l, err := zerolog.ParseLevel(config.Level)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", config.Level)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	return nil
}

// initConfig wires flags, environment and the optional config file into viper.
func initConfig(cmd *cobra.Command) error {
	viper.SetEnvPrefix("ragchat")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	for key, flag := range map[string]string{
		"server.base_url":        "base-url",
		"server.request_timeout": "request-timeout",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	if configPath := viper.GetString("config"); configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.ragchat")
		viper.AddConfigPath("/etc/ragchat")

		xdgConfigPath, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(xdgConfigPath + "/ragchat")
		}
	}

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// Config file not found; ignore error
	} else if err != nil {
		return errors.Wrap(err, "could not read config file")
	}

	log.Debug().
		Str("config", viper.ConfigFileUsed()).
		Msg("Loaded configuration")

	return nil
}

func loadSettings() (*config.Settings, error) {
	return config.NewSettingsFromViper(viper.GetViper())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// logging flags
	rootCmd.PersistentFlags().Bool("with-caller", false, "Log caller")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format (json, text; default text on a terminal)")
	rootCmd.PersistentFlags().String("log-file", "", "Log file (default: stderr)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Verbose output")

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ~/.ragchat/config.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "Base URL of the assistant service")
	rootCmd.PersistentFlags().Duration("request-timeout", 0, "Timeout for assistant requests (0 disables)")

	rootCmd.AddCommand(chatCmd, askCmd, uploadCmd, serveCmd)
}
