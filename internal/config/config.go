// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wither Pass Contributors

// Package config loads Wither Pass settings from a YAML file and command
// line flags.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/Foxius/wither-pass/internal/hook"
	"github.com/Foxius/wither-pass/internal/xdg"
)

// Default values for settings.
const (
	DefaultMetricsAddr = "127.0.0.1:9100"
	DefaultLogFormat   = "json"
	DefaultLogLevel    = "info"
	defaultFileName    = "config.yaml"
)

// HookSpec declares an integration to activate once its module is ready.
type HookSpec struct {
	Name string `koanf:"name"`
	// Author restricts the hook to modules declaring this author.
	Author string `koanf:"author"`
	// Version is an optional semver constraint, e.g. ">= 2.0, < 3".
	Version string `koanf:"version"`
}

// Gate compiles the version constraint. It returns nil when none is set.
func (h HookSpec) Gate() (hook.VersionPredicate, error) {
	if strings.TrimSpace(h.Version) == "" {
		return nil, nil
	}
	return hook.Constraint(h.Version)
}

// Config holds all settings.
type Config struct {
	DisabledHooks      []string      `koanf:"disabled-plugin-hooks"`
	RecheckInterval    time.Duration `koanf:"recheck-interval"`
	MaxAttempts        int           `koanf:"max-attempts"`
	RetryJitterPercent uint64        `koanf:"retry-jitter-percent"`
	HostHook           string        `koanf:"host-hook"`
	ModulesDir         string        `koanf:"modules-dir"`
	MetricsAddr        string        `koanf:"metrics-addr"`
	ControlAddr        string        `koanf:"control-addr"`
	LogFormat          string        `koanf:"log-format"`
	LogLevel           string        `koanf:"log-level"`
	Hooks              []HookSpec    `koanf:"hooks"`
}

// RegisterFlags adds every setting to flags with its default value.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringSlice("disabled-plugin-hooks", nil, "hooks to never activate (case-insensitive, globs allowed)")
	flags.Duration("recheck-interval", hook.DefaultInterval, "how often deferred hooks recheck their module")
	flags.Int("max-attempts", hook.DefaultMaxAttempts, "rechecks before a deferred hook is abandoned")
	flags.Uint64("retry-jitter-percent", 0, "random spread applied to the recheck interval (0-100)")
	flags.String("host-hook", hook.DefaultHostHookName, "name of the host-readiness hook")
	flags.String("modules-dir", xdg.ModulesDir(), "directory of installed modules")
	flags.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("control-addr", "", "gRPC health address (empty = disabled)")
	flags.String("log-format", DefaultLogFormat, "log format (json or text)")
	flags.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigDir(), defaultFileName)
}

// Load reads the file at path, when non-empty, and overlays flags.
// Flags explicitly set on the command line win over the file; unset flags
// only supply defaults.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return nil, oops.
				Code("CONFIG_INVALID").
				With("path", path).
				Wrapf(err, "failed to read config file")
		}
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.
				Code("CONFIG_INVALID").
				Wrapf(err, "failed to read flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			With("path", path).
			Wrapf(err, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolvePath returns the config file to load: explicit when set, else
// the default path if it exists, else "".
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	p := DefaultPath()
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return p
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	invalid := oops.Code("CONFIG_INVALID")

	if c.RecheckInterval <= 0 {
		return invalid.With("recheck-interval", c.RecheckInterval).
			Errorf("recheck-interval must be positive, got %s", c.RecheckInterval)
	}
	if c.MaxAttempts <= 0 {
		return invalid.With("max-attempts", c.MaxAttempts).
			Errorf("max-attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.RetryJitterPercent > 100 {
		return invalid.With("retry-jitter-percent", c.RetryJitterPercent).
			Errorf("retry-jitter-percent must be at most 100, got %d", c.RetryJitterPercent)
	}
	if strings.TrimSpace(c.HostHook) == "" {
		return invalid.Errorf("host-hook is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return invalid.With("log-format", c.LogFormat).
			Errorf("log-format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.DisabledSet(); err != nil {
		return invalid.Wrapf(err, "disabled-plugin-hooks")
	}
	for i, h := range c.Hooks {
		if strings.TrimSpace(h.Name) == "" {
			return invalid.With("index", i).Errorf("hooks[%d].name is required", i)
		}
		if _, err := h.Gate(); err != nil {
			return invalid.With("index", i).Wrapf(err, "hooks[%d].version", i)
		}
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, oops.
			Code("CONFIG_INVALID").
			With("log-level", c.LogLevel).
			Wrapf(err, "log-level must be debug, info, warn or error")
	}
	return level, nil
}

// DisabledSet builds the immutable disabled-hook set.
func (c *Config) DisabledSet() (*hook.DisabledSet, error) {
	return hook.NewDisabledSet(c.DisabledHooks)
}
