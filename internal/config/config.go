// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

// Package config loads Lettermill configuration from a YAML file with
// command-line flag overrides. Connection URLs and API tokens are wrapped
// in secret.String so they never leak through logs.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/lettermill/lettermill/internal/secret"
)

// Config is the fully resolved application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Email         EmailConfig
	Observability ObservabilityConfig
	Log           LogConfig
	Session       SessionConfig
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr string
	// BaseURL is the public URL confirmation links point at.
	BaseURL string
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL secret.String
}

// RedisConfig configures the session store connection.
type RedisConfig struct {
	URL secret.String
}

// EmailConfig configures confirmation email delivery.
// Provider is "postmark" or "dev"; the dev provider logs emails instead
// of sending them.
type EmailConfig struct {
	Provider     string
	ServerToken  secret.String
	AccountToken secret.String
	Sender       string
}

// ObservabilityConfig configures the metrics and health probe listener.
type ObservabilityConfig struct {
	Addr string
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string
	Level  string
}

// SessionConfig configures session lifetimes.
type SessionConfig struct {
	TTL time.Duration
}

// raw mirrors Config with plain strings for koanf unmarshalling.
type raw struct {
	Server struct {
		Addr    string `koanf:"addr"`
		BaseURL string `koanf:"base_url"`
	} `koanf:"server"`
	Database struct {
		URL string `koanf:"url"`
	} `koanf:"database"`
	Redis struct {
		URL string `koanf:"url"`
	} `koanf:"redis"`
	Email struct {
		Provider     string `koanf:"provider"`
		ServerToken  string `koanf:"server_token"`
		AccountToken string `koanf:"account_token"`
		Sender       string `koanf:"sender"`
	} `koanf:"email"`
	Observability struct {
		Addr string `koanf:"addr"`
	} `koanf:"observability"`
	Log struct {
		Format string `koanf:"format"`
		Level  string `koanf:"level"`
	} `koanf:"log"`
	Session struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"session"`
}

func defaults() raw {
	var r raw
	r.Server.Addr = ":8000"
	r.Server.BaseURL = "http://localhost:8000"
	r.Email.Provider = "dev"
	r.Observability.Addr = "127.0.0.1:9100"
	r.Log.Format = "json"
	r.Log.Level = "info"
	r.Session.TTL = 24 * time.Hour
	return r
}

// Load reads configuration from the YAML file at path, then applies any
// changed flags on top. An empty path skips the file; a path that does not
// exist is an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, oops.Code("CONFIG_FILE_MISSING").
				With("path", path).
				Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_PARSE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	r := defaults()
	if err := k.Unmarshal("", &r); err != nil {
		return nil, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:    r.Server.Addr,
			BaseURL: r.Server.BaseURL,
		},
		Database: DatabaseConfig{URL: secret.New(r.Database.URL)},
		Redis:    RedisConfig{URL: secret.New(r.Redis.URL)},
		Email: EmailConfig{
			Provider:     r.Email.Provider,
			ServerToken:  secret.New(r.Email.ServerToken),
			AccountToken: secret.New(r.Email.AccountToken),
			Sender:       r.Email.Sender,
		},
		Observability: ObservabilityConfig{Addr: r.Observability.Addr},
		Log: LogConfig{
			Format: r.Log.Format,
			Level:  r.Log.Level,
		},
		Session: SessionConfig{TTL: r.Session.TTL},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Database.URL.IsEmpty() {
		return oops.Code("CONFIG_INVALID").
			Errorf("database.url is required")
	}
	if c.Redis.URL.IsEmpty() {
		return oops.Code("CONFIG_INVALID").
			Errorf("redis.url is required")
	}
	switch c.Email.Provider {
	case "dev":
	case "postmark":
		if c.Email.ServerToken.IsEmpty() {
			return oops.Code("CONFIG_INVALID").
				Errorf("email.server_token is required for the postmark provider")
		}
		if c.Email.AccountToken.IsEmpty() {
			return oops.Code("CONFIG_INVALID").
				Errorf("email.account_token is required for the postmark provider")
		}
		if c.Email.Sender == "" {
			return oops.Code("CONFIG_INVALID").
				Errorf("email.sender is required for the postmark provider")
		}
	default:
		return oops.Code("CONFIG_INVALID").
			Errorf("email.provider must be %q or %q, got %q", "postmark", "dev", c.Email.Provider)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			Errorf("log.format must be %q or %q, got %q", "json", "text", c.Log.Format)
	}
	return nil
}
