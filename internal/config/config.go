// Package config loads and validates the authrelay settings store.
//
// The store is a YAML file; secrets can be overridden from the environment
// so they never have to live on disk. Loaded configuration is an immutable
// snapshot: reloads build a fresh *Config and swap it atomically (see
// Resolver), so in-flight requests always observe a consistent view.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration errors. They are fatal to the login feature
// but must not crash the host: the serve command reports them and keeps the
// delegated user-management surface running.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env" default:"dev"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr" default:":8080"`
		BaseURL            string   `yaml:"base_url" default:"http://localhost:8080"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver" default:"memory" validate:"oneof=memory postgres"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns" default:"10"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime" default:"30m"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind" default:"memory" validate:"oneof=memory redis"`
		Redis struct {
			Addr   string `yaml:"addr" default:"localhost:6379"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix" default:"authrelay:"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl" default:"10m"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Session struct {
		TTL         string `yaml:"ttl" default:"24h"`
		IdleTimeout string `yaml:"idle_timeout" default:"1h"`
		CookieName  string `yaml:"cookie_name" default:"authrelay_session"`
		// SigningKey signs session tokens. Override with
		// AUTHRELAY_SESSION_SIGNING_KEY; required in prod.
		SigningKey string `yaml:"signing_key"`
	} `yaml:"session"`

	OAuth struct {
		StateTTL string `yaml:"state_ttl" default:"10m"`
		// Providers holds the named endpoint profiles. The start endpoint
		// selects one by name; "default" is used when none is given.
		Providers map[string]*Provider `yaml:"providers"`
	} `yaml:"oauth"`
}

// Load reads, defaults, overrides and validates the settings store at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrInvalid, path, err)
	}
	return Parse(b)
}

// Parse builds a Config from raw YAML. Split out of Load for tests.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalid, err)
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("%w: apply defaults: %v", ErrInvalid, err)
	}
	cfg.applyEnv()
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets come from the environment instead of the YAML file.
func (c *Config) applyEnv() {
	if v := os.Getenv("AUTHRELAY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("AUTHRELAY_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("AUTHRELAY_SESSION_SIGNING_KEY"); v != "" {
		c.Session.SigningKey = v
	}
	if v := os.Getenv("AUTHRELAY_STORAGE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("AUTHRELAY_REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	for name, p := range c.OAuth.Providers {
		// AUTHRELAY_OAUTH_<NAME>_CLIENT_SECRET
		key := "AUTHRELAY_OAUTH_" + strings.ToUpper(name) + "_CLIENT_SECRET"
		if v := os.Getenv(key); v != "" {
			p.ClientSecret = v
		}
	}
}

func (c *Config) normalize() error {
	for name, p := range c.OAuth.Providers {
		if p == nil {
			return fmt.Errorf("%w: provider %q is empty", ErrInvalid, name)
		}
		p.Name = name
		if err := p.normalize(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	for _, p := range c.OAuth.Providers {
		if err := p.validate(v); err != nil {
			return err
		}
	}
	if _, err := c.durations(); err != nil {
		return err
	}
	return nil
}

// Durations groups the parsed duration settings.
type Durations struct {
	SessionTTL  time.Duration
	IdleTimeout time.Duration
	StateTTL    time.Duration
	CacheTTL    time.Duration
}

func (c *Config) durations() (Durations, error) {
	var d Durations
	var err error
	parse := func(name, s string, def time.Duration) time.Duration {
		if s == "" {
			return def
		}
		v, perr := time.ParseDuration(s)
		if perr != nil && err == nil {
			err = fmt.Errorf("%w: %s: %v", ErrInvalid, name, perr)
		}
		return v
	}
	d.SessionTTL = parse("session.ttl", c.Session.TTL, 24*time.Hour)
	d.IdleTimeout = parse("session.idle_timeout", c.Session.IdleTimeout, time.Hour)
	d.StateTTL = parse("oauth.state_ttl", c.OAuth.StateTTL, 10*time.Minute)
	d.CacheTTL = parse("cache.memory.default_ttl", c.Cache.Memory.DefaultTTL, 10*time.Minute)
	return d, err
}

// Durations returns the parsed duration settings. Load already validated
// them, so a loaded Config never fails here.
func (c *Config) Durations() Durations {
	d, _ := c.durations()
	return d
}

// Provider returns the named endpoint profile, or nil when the name is
// unknown. An empty name selects "default".
func (c *Config) Provider(name string) *Provider {
	if name == "" {
		name = "default"
	}
	return c.OAuth.Providers[name]
}

// LoginEnabled reports whether at least one provider profile is configured.
func (c *Config) LoginEnabled() bool {
	return len(c.OAuth.Providers) > 0
}
