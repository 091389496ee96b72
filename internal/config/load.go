// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 flagdeck Contributors

package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Flag names bound to configuration keys.
const (
	FlagConfig      = "config"
	FlagServer      = "server"
	FlagTimeout     = "timeout"
	FlagRetries     = "retries"
	FlagTokenFile   = "token-file"
	FlagNoPersist   = "no-persist"
	FlagLogFormat   = "log-format"
	FlagLogLevel    = "log-level"
	FlagMetricsAddr = "metrics-addr"
)

// flagKeys maps each bound flag to its configuration key.
var flagKeys = map[string]string{
	FlagServer:      "server.url",
	FlagTimeout:     "server.timeout",
	FlagRetries:     "server.retries",
	FlagTokenFile:   "session.token_file",
	FlagNoPersist:   "session.persist",
	FlagLogFormat:   "log.format",
	FlagLogLevel:    "log.level",
	FlagMetricsAddr: "metrics.addr",
}

// RegisterFlags adds the configuration flags to flags. Flag defaults are only
// shown in help; unchanged flags never override the file.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String(FlagConfig, "", "config file (default $XDG_CONFIG_HOME/flagdeck/config.yaml)")
	flags.String(FlagServer, d.Server.URL, "platform base URL")
	flags.Duration(FlagTimeout, d.Server.Timeout, "per-attempt request timeout")
	flags.Uint64(FlagRetries, d.Server.Retries, "extra attempts for GET requests that fail in transport")
	flags.String(FlagTokenFile, d.Session.TokenFile, "token file (default $XDG_STATE_HOME/flagdeck/token)")
	flags.Bool(FlagNoPersist, false, "keep the session token in memory only")
	flags.String(FlagLogFormat, d.Log.Format, "log format (text or json)")
	flags.String(FlagLogLevel, d.Log.Level, "log level (debug, info, warn, error)")
	flags.String(FlagMetricsAddr, d.Metrics.Addr, "serve Prometheus metrics on this address")
}

// LoadOptions selects the sources for Load.
type LoadOptions struct {
	// Path is the config file. When empty, DefaultPath is tried.
	Path string
	// DefaultPath is read only if it exists.
	DefaultPath string
	// Flags are applied last; only changed flags take effect.
	Flags *pflag.FlagSet
}

// Load merges defaults, the config file and flags, then validates the result
// against the schema and Validate.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, err
	}

	path, required := opts.Path, true
	if path == "" {
		path, required = opts.DefaultPath, false
	}
	if path != "" {
		if err := loadFile(k, path, required); err != nil {
			return nil, err
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, flagValue(opts.Flags))
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalid).Wrapf(err, "reading flags")
		}
	}

	if err := ValidateRaw(k.Raw()); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code(CodeInvalid).Wrapf(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	d := Default()
	for key, value := range map[string]any{
		"server.url":         d.Server.URL,
		"server.timeout":     d.Server.Timeout.String(),
		"server.retries":     d.Server.Retries,
		"session.token_file": d.Session.TokenFile,
		"session.persist":    d.Session.Persist,
		"log.format":         d.Log.Format,
		"log.level":          d.Log.Level,
		"metrics.addr":       d.Metrics.Addr,
	} {
		if err := k.Set(key, value); err != nil {
			return oops.Code(CodeInvalid).With("key", key).Wrapf(err, "setting default")
		}
	}
	return nil
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return oops.Code(CodeInvalid).With("path", path).Wrapf(err, "config file")
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code(CodeInvalid).With("path", path).Wrapf(err, "parsing config file")
	}
	return nil
}

// flagValue maps bound flags to their keys and skips the rest. Durations
// are stored as strings so flag and file values look alike to the schema.
func flagValue(flags *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		switch f.Name {
		case FlagNoPersist:
			noPersist, _ := flags.GetBool(FlagNoPersist)
			return key, !noPersist
		case FlagTimeout:
			return key, f.Value.String()
		default:
			return key, posflag.FlagVal(flags, f)
		}
	}
}
