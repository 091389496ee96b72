// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

// Package config loads flagdeck settings from defaults, a YAML file and
// command-line flags, in that order of precedence.
package config

import (
	"net/url"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/flagdeck/flagdeck/internal/logging"
)

// CodeInvalid is the error code for configuration that cannot be used.
const CodeInvalid = "CONFIG_INVALID"

// Config is the effective client configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server" json:"server" yaml:"server" jsonschema:"description=Remote platform connection"`
	Session SessionConfig `koanf:"session" json:"session" yaml:"session" jsonschema:"description=Session token storage"`
	Log     LogConfig     `koanf:"log" json:"log" yaml:"log" jsonschema:"description=Diagnostic logging"`
	Metrics MetricsConfig `koanf:"metrics" json:"metrics" yaml:"metrics" jsonschema:"description=Prometheus endpoint"`
}

// ServerConfig locates the platform.
type ServerConfig struct {
	URL     string        `koanf:"url" json:"url" yaml:"url" jsonschema:"description=Base URL of the platform API"`
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout" jsonschema:"description=Per-attempt request timeout such as 10s"`
	Retries uint64        `koanf:"retries" json:"retries" yaml:"retries" jsonschema:"description=Extra attempts for GET requests that fail in transport"`
}

// SessionConfig controls where the token lives.
type SessionConfig struct {
	TokenFile string `koanf:"token_file" json:"token_file" yaml:"token_file" jsonschema:"description=Token file path; empty means the XDG state directory"`
	Persist   bool   `koanf:"persist" json:"persist" yaml:"persist" jsonschema:"description=Keep the token between runs"`
}

// LogConfig controls diagnostic logs.
type LogConfig struct {
	Format string `koanf:"format" json:"format" yaml:"format" jsonschema:"enum=text,enum=json"`
	Level  string `koanf:"level" json:"level" yaml:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// MetricsConfig controls the optional metrics server.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr" yaml:"addr" jsonschema:"description=Listen address; empty disables the server"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			URL:     "http://localhost:8000",
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{Persist: true},
		Log:     LogConfig{Format: "text", Level: "info"},
	}
}

// Validate checks the semantics the schema cannot express.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return oops.Code(CodeInvalid).With("key", "server.url").Wrapf(err, "invalid server url")
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return oops.Code(CodeInvalid).
			With("key", "server.url").
			With("value", c.Server.URL).
			Errorf("server url must be an absolute http or https URL")
	}
	if c.Server.Timeout <= 0 {
		return oops.Code(CodeInvalid).
			With("key", "server.timeout").
			Errorf("server timeout must be positive, got %s", c.Server.Timeout)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return oops.Code(CodeInvalid).
			With("key", "log.format").
			Errorf("log format must be text or json, got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code(CodeInvalid).
			With("key", "log.level").
			With("value", c.Log.Level).
			Errorf("log level must be one of debug, info, warn, error")
	}
	return nil
}

// YAML renders the configuration as YAML.
func (c *Config) YAML() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "encoding config")
	}
	return out, nil
}
