// Package config loads countdown settings from defaults, a YAML file, an
// optional .env file and the environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"countdown_tui/internal/clock"
	"countdown_tui/internal/countdown"
	"countdown_tui/internal/render"
	"countdown_tui/internal/timelog"
)

// Validation errors.
var (
	ErrNegativeTime    = errors.New("time must not be negative")
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrInvalidLevel    = errors.New("invalid log level")
	ErrInvalidFormat   = errors.New("invalid format")
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// Duration is a time.Duration that reads bare integers as milliseconds and
// everything else as a Go duration string.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", value.Line)
	}
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the full application configuration.
type Config struct {
	Countdown CountdownConfig `yaml:"countdown"`
	Render    RenderConfig    `yaml:"render"`
	Log       LogConfig       `yaml:"log"`
}

type CountdownConfig struct {
	Time        Duration `yaml:"time"`
	Interval    Duration `yaml:"interval"`
	AutoStart   bool     `yaml:"auto_start"`
	EmitEvents  bool     `yaml:"emit_events"`
	LeadingZero bool     `yaml:"leading_zero"`
	// Timezone is an IANA zone name for event timestamps. Empty means the
	// local zone.
	Timezone string `yaml:"timezone,omitempty"`
}

type RenderConfig struct {
	Tag      string `yaml:"tag"`
	Template string `yaml:"template"`
	Content  string `yaml:"content"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
	// Events selects how the headless runner streams notifications:
	// text, json or cbor.
	Events string `yaml:"events"`
}

// DefaultTemplate shows the clock face parts.
const DefaultTemplate = "{{.Days}}d {{.Hours}}:{{.Minutes}}:{{.Seconds}}"

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Countdown: CountdownConfig{
			Time:        0,
			Interval:    Duration(countdown.DefaultInterval),
			AutoStart:   true,
			EmitEvents:  true,
			LeadingZero: true,
		},
		Render: RenderConfig{
			Tag:      render.DefaultTag,
			Template: DefaultTemplate,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Events: "text",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error when
// optional is true.
func Load(path string, optional bool) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Environment variables read by ApplyEnv.
const (
	EnvTime        = "COUNTDOWN_TIME"
	EnvInterval    = "COUNTDOWN_INTERVAL"
	EnvAutoStart   = "COUNTDOWN_AUTO_START"
	EnvEmitEvents  = "COUNTDOWN_EMIT_EVENTS"
	EnvLeadingZero = "COUNTDOWN_LEADING_ZERO"
	EnvTag         = "COUNTDOWN_TAG"
	EnvTemplate    = "COUNTDOWN_TEMPLATE"
	EnvLogLevel    = "COUNTDOWN_LOG_LEVEL"
	EnvTimezone    = "COUNTDOWN_TIMEZONE"
)

// LookupFunc finds an environment value.
type LookupFunc func(key string) (string, bool)

// EnvLookup returns a LookupFunc over the process environment, with values
// from envFile filling in unset keys. An empty envFile skips the file; a
// missing one is ignored.
func EnvLookup(envFile string) (LookupFunc, error) {
	fromFile := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		if m != nil {
			fromFile = m
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fromFile[key]
		return v, ok
	}, nil
}

// ApplyEnv overrides cfg with COUNTDOWN_* values found by lookup.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	durations := []struct {
		key string
		dst *Duration
	}{
		{EnvTime, &c.Countdown.Time},
		{EnvInterval, &c.Countdown.Interval},
	}
	for _, d := range durations {
		if v, ok := lookup(d.key); ok {
			parsed, err := ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", d.key, err)
			}
			*d.dst = Duration(parsed)
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{EnvAutoStart, &c.Countdown.AutoStart},
		{EnvEmitEvents, &c.Countdown.EmitEvents},
		{EnvLeadingZero, &c.Countdown.LeadingZero},
	}
	for _, b := range bools {
		if v, ok := lookup(b.key); ok {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", b.key, err)
			}
			*b.dst = parsed
		}
	}

	if v, ok := lookup(EnvTag); ok {
		c.Render.Tag = v
	}
	if v, ok := lookup(EnvTemplate); ok {
		c.Render.Template = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvTimezone); ok {
		c.Countdown.Timezone = v
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Countdown.Time < 0 {
		return ErrNegativeTime
	}
	if c.Countdown.Interval <= 0 {
		return ErrInvalidInterval
	}
	if _, err := c.Clock(); err != nil {
		return err
	}
	if err := render.ValidateTag(c.Render.Tag); err != nil {
		return err
	}
	if c.Render.Template != "" {
		if _, err := render.ParseTemplate(c.Render.Template); err != nil {
			return err
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidFormat, c.Log.Format)
	}
	switch c.Log.Events {
	case "text", string(timelog.FormatJSON), string(timelog.FormatCBOR):
	default:
		return fmt.Errorf("%w: events format %q", ErrInvalidFormat, c.Log.Events)
	}
	return nil
}

// CountdownOptions converts the countdown section into options.
func (c *Config) CountdownOptions() []countdown.Option {
	return []countdown.Option{
		countdown.WithTime(time.Duration(c.Countdown.Time)),
		countdown.WithInterval(time.Duration(c.Countdown.Interval)),
		countdown.WithAutoStart(c.Countdown.AutoStart),
		countdown.WithEmitEvents(c.Countdown.EmitEvents),
		countdown.WithLeadingZero(c.Countdown.LeadingZero),
	}
}

// Clock returns the system clock, reading in the configured zone when one
// is set.
func (c *Config) Clock() (clock.Clock, error) {
	if c.Countdown.Timezone == "" {
		return clock.Real(), nil
	}
	loc, err := time.LoadLocation(c.Countdown.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, c.Countdown.Timezone)
	}
	return clock.Func(func() time.Time { return time.Now().In(loc) }), nil
}

// Renderer builds the renderer described by the render section.
func (c *Config) Renderer() (*render.Renderer, error) {
	var tmpl render.Func
	if c.Render.Template != "" {
		var err error
		tmpl, err = render.ParseTemplate(c.Render.Template)
		if err != nil {
			return nil, err
		}
	}
	return render.New(c.Render.Tag, tmpl, c.Render.Content)
}

// ParseDuration accepts a bare integer as milliseconds or a Go duration
// string such as "1h30m".
func ParseDuration(input string) (time.Duration, error) {
	input = strings.TrimSpace(input)
	if n, err := strconv.ParseInt(input, 10, 64); err == nil {
		return time.Duration(n) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(input)
	if err == nil {
		return d, nil
	}

	return 0, fmt.Errorf("invalid duration format %q", input)
}
