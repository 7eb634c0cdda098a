// Package config loads client and callback-server settings from libdesk.yaml
// and LIBDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/and161185/libdesk/internal/session"
	"github.com/spf13/viper"
)

// Session backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type SessionConfig struct {
	Backend             string `mapstructure:"backend"`
	Dir                 string `mapstructure:"dir"`
	Passphrase          string `mapstructure:"passphrase"`
	DSN                 string `mapstructure:"dsn"`
	Profile             string `mapstructure:"profile"`
	ClearOnUnauthorized bool   `mapstructure:"clear_on_unauthorized"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CallbackConfig struct {
	Addr       string `mapstructure:"addr"`
	PublicBase string `mapstructure:"public_base"` // where the app's /borrows lives
}

type UIConfig struct {
	RegisterRedirectDelay time.Duration `mapstructure:"register_redirect_delay"`
}

type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Session  SessionConfig  `mapstructure:"session"`
	Log      LogConfig      `mapstructure:"log"`
	Callback CallbackConfig `mapstructure:"callback"`
	UI       UIConfig       `mapstructure:"ui"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("session.backend", BackendFile)
	v.SetDefault("session.dir", session.DefaultDir())
	v.SetDefault("session.passphrase", "")
	v.SetDefault("session.dsn", "")
	v.SetDefault("session.profile", "default")
	v.SetDefault("session.clear_on_unauthorized", false)
	v.SetDefault("log.level", "warn")
	v.SetDefault("callback.addr", ":8090")
	v.SetDefault("callback.public_base", "")
	v.SetDefault("ui.register_redirect_delay", 2*time.Second)
}

// New returns a viper instance with defaults, env binding and the config
// search path set up. path, when non-empty, names the config file explicitly.
func New(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("libdesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(session.DefaultDir())
	}

	// LIBDESK_API_BASE_URL=... overrides api.base_url
	v.SetEnvPrefix("LIBDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file if present and decodes it. A missing file is
// fine when no explicit path was given; defaults and env still apply.
func Load(v *viper.Viper, explicit bool) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &nf) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("config: api.base_url is required")
	}
	switch c.Session.Backend {
	case BackendFile, BackendMemory:
	case BackendPostgres:
		if c.Session.DSN == "" {
			return errors.New("config: session.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown session.backend %q", c.Session.Backend)
	}
	if c.UI.RegisterRedirectDelay < 0 {
		return errors.New("config: ui.register_redirect_delay must not be negative")
	}
	return nil
}
