package config

import (
	"bytes"
	_ "embed"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed default-settings.yaml
var defaultSettings []byte

type ServerSettings struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	ChatPath   string `yaml:"chat_path" mapstructure:"chat_path"`
	UploadPath string `yaml:"upload_path" mapstructure:"upload_path"`
	FileField  string `yaml:"file_field" mapstructure:"file_field"`
	// RequestTimeout bounds assistant calls; zero disables it.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

type UploadSettings struct {
	ProgressInterval time.Duration `yaml:"progress_interval" mapstructure:"progress_interval"`
	ProgressStep     int           `yaml:"progress_step" mapstructure:"progress_step"`
	ProgressCeiling  int           `yaml:"progress_ceiling" mapstructure:"progress_ceiling"`
	AcceptedTypes    []string      `yaml:"accepted_types" mapstructure:"accepted_types"`
}

type NotificationSettings struct {
	AutoHide time.Duration `yaml:"auto_hide" mapstructure:"auto_hide"`
}

type Settings struct {
	Server        ServerSettings       `yaml:"server" mapstructure:"server"`
	Upload        UploadSettings       `yaml:"upload" mapstructure:"upload"`
	Notifications NotificationSettings `yaml:"notifications" mapstructure:"notifications"`
}

// NewSettingsFromYAML decodes settings from r. Keys missing from r keep
// their built-in defaults.
func NewSettingsFromYAML(r io.Reader) (*Settings, error) {
	ret, err := DefaultSettings()
	if err != nil {
		return nil, err
	}
	if err := yaml.NewDecoder(r).Decode(ret); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "could not decode settings")
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

func DefaultSettings() (*Settings, error) {
	ret := &Settings{}
	if err := yaml.NewDecoder(bytes.NewReader(defaultSettings)).Decode(ret); err != nil {
		return nil, errors.Wrap(err, "could not decode default settings")
	}
	return ret, nil
}

// NewSettingsFromViper layers whatever v has set (config file, env, flags)
// on top of the defaults.
func NewSettingsFromViper(v *viper.Viper) (*Settings, error) {
	ret, err := DefaultSettings()
	if err != nil {
		return nil, err
	}

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	setString("server.base_url", &ret.Server.BaseURL)
	setString("server.chat_path", &ret.Server.ChatPath)
	setString("server.upload_path", &ret.Server.UploadPath)
	setString("server.file_field", &ret.Server.FileField)
	setDuration("server.request_timeout", &ret.Server.RequestTimeout)

	setDuration("upload.progress_interval", &ret.Upload.ProgressInterval)
	setInt("upload.progress_step", &ret.Upload.ProgressStep)
	setInt("upload.progress_ceiling", &ret.Upload.ProgressCeiling)
	if v.IsSet("upload.accepted_types") {
		ret.Upload.AcceptedTypes = v.GetStringSlice("upload.accepted_types")
	}

	setDuration("notifications.auto_hide", &ret.Notifications.AutoHide)

	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Settings) Validate() error {
	u, err := url.Parse(s.Server.BaseURL)
	if err != nil {
		return errors.Wrapf(err, "invalid base url %q", s.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("base url %q must be http or https", s.Server.BaseURL)
	}
	if s.Server.FileField == "" {
		return errors.New("file field must not be empty")
	}
	if s.Server.RequestTimeout < 0 {
		return errors.New("request timeout must not be negative")
	}
	if s.Upload.ProgressCeiling < 0 || s.Upload.ProgressCeiling >= 100 {
		return errors.Errorf("progress ceiling %d must be in [0, 100)", s.Upload.ProgressCeiling)
	}
	if s.Upload.ProgressStep < 0 {
		return errors.New("progress step must not be negative")
	}
	for i, t := range s.Upload.AcceptedTypes {
		if !strings.HasPrefix(t, ".") {
			s.Upload.AcceptedTypes[i] = "." + t
		}
	}
	return nil
}

// ChatURL and UploadURL join the base url with the endpoint paths.
func (s *ServerSettings) ChatURL() string {
	return joinURL(s.BaseURL, s.ChatPath)
}

func (s *ServerSettings) UploadURL() string {
	return joinURL(s.BaseURL, s.UploadPath)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
