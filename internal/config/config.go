// internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"tigdiff/internal/diff"
	"tigdiff/internal/errors"
	"tigdiff/internal/logging"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Host string `mapstructure:"host"`
		Port int    `mapstructure:"port"`
	} `mapstructure:"server"`

	Environment string     `mapstructure:"environment"` // development, production
	LogLevel    string     `mapstructure:"log_level"`   // debug, info, warn, error
	Diff        DiffConfig `mapstructure:"diff"`
}

// DiffConfig holds the defaults for every diff the CLI and server produce.
type DiffConfig struct {
	ContextLines           int    `mapstructure:"context_lines"`
	InterhunkLines         int    `mapstructure:"interhunk_lines"`
	OldPrefix              string `mapstructure:"old_prefix"`
	NewPrefix              string `mapstructure:"new_prefix"`
	MaxSize                int64  `mapstructure:"max_size"`
	Patience               bool   `mapstructure:"patience"`
	IgnoreWhitespace       bool   `mapstructure:"ignore_whitespace"`
	IgnoreWhitespaceChange bool   `mapstructure:"ignore_whitespace_change"`
	IgnoreWhitespaceEOL    bool   `mapstructure:"ignore_whitespace_eol"`
	IncludeUntracked       bool   `mapstructure:"include_untracked"`
	Color                  string `mapstructure:"color"` // auto, always, never
}

// EnvPrefix prefixes environment overrides, e.g. TIG_DIFF_CONTEXT_LINES.
const EnvPrefix = "TIG"

// flagBindings maps config keys to the command line flags that override
// them.
var flagBindings = map[string]string{
	"log_level":                     "log-level",
	"server.host":                   "host",
	"server.port":                   "port",
	"diff.context_lines":            "unified",
	"diff.interhunk_lines":          "inter-hunk-context",
	"diff.patience":                 "patience",
	"diff.ignore_whitespace":        "ignore-all-space",
	"diff.ignore_whitespace_change": "ignore-space-change",
	"diff.ignore_whitespace_eol":    "ignore-space-at-eol",
	"diff.color":                    "color",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("diff.context_lines", diff.DefaultContextLines)
	v.SetDefault("diff.interhunk_lines", 0)
	v.SetDefault("diff.old_prefix", diff.DefaultOldPrefix)
	v.SetDefault("diff.new_prefix", diff.DefaultNewPrefix)
	v.SetDefault("diff.max_size", diff.DefaultMaxSize)
	v.SetDefault("diff.patience", false)
	v.SetDefault("diff.ignore_whitespace", false)
	v.SetDefault("diff.ignore_whitespace_change", false)
	v.SetDefault("diff.ignore_whitespace_eol", false)
	v.SetDefault("diff.include_untracked", false)
	v.SetDefault("diff.color", "auto")
}

// Load builds the configuration from defaults, an optional config file,
// TIG_ environment variables and flags, in increasing priority. With file
// empty, tig.yaml or tig.json is looked up in dir and dir/.tig; a missing
// file is not an error. flags may be nil.
func Load(file, dir string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName("tig")
		v.AddConfigPath(dir)
		v.AddConfigPath(filepath.Join(dir, ".tig"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.ValidationError("server port out of range", c.Server.Port)
	}
	switch c.Environment {
	case "development", "production":
	default:
		return errors.ValidationError("environment must be development or production", c.Environment)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.ValidationError("unknown log level", c.LogLevel)
	}
	switch c.Diff.Color {
	case "auto", "always", "never":
	default:
		return errors.ValidationError("diff color must be auto, always or never", c.Diff.Color)
	}
	if c.Diff.ContextLines < 0 || c.Diff.InterhunkLines < 0 || c.Diff.MaxSize < 0 {
		return errors.ValidationError("diff sizes cannot be negative", c.Diff)
	}
	return nil
}

// NewLogger builds the logger the environment calls for: console output in
// development, JSON in production.
func (c *Config) NewLogger() (*logging.Logger, error) {
	if c.Environment == "production" {
		return logging.NewLogger(c.LogLevel)
	}
	return logging.NewDevelopment(c.LogLevel)
}

// DiffOptions turns the diff section into engine options.
func (c *Config) DiffOptions() diff.Options {
	d := c.Diff
	o := diff.Options{
		ContextLines:   d.ContextLines,
		InterhunkLines: d.InterhunkLines,
		OldPrefix:      d.OldPrefix,
		NewPrefix:      d.NewPrefix,
		MaxSize:        d.MaxSize,
	}
	set := func(on bool, f diff.Flag) {
		if on {
			o.Flags |= f
		}
	}
	set(d.Patience, diff.Patience)
	set(d.IgnoreWhitespace, diff.IgnoreWhitespace)
	set(d.IgnoreWhitespaceChange, diff.IgnoreWhitespaceChange)
	set(d.IgnoreWhitespaceEOL, diff.IgnoreWhitespaceEOL)
	set(d.IncludeUntracked, diff.IncludeUntracked)
	return o
}
