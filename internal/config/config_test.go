package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countdown_tui/internal/clock"
	"countdown_tui/internal/countdown"
	"countdown_tui/internal/render"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"1500", 1500 * time.Millisecond, false},
		{" 0 ", 0, false},
		{"90s", 90 * time.Second, false},
		{"1h30m", 90 * time.Minute, false},
		{"-5", -5 * time.Millisecond, false},
		{"soon", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Duration(time.Second), cfg.Countdown.Interval)
	assert.True(t, cfg.Countdown.AutoStart)
	assert.True(t, cfg.Countdown.EmitEvents)
	assert.True(t, cfg.Countdown.LeadingZero)
	assert.Equal(t, "span", cfg.Render.Tag)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "countdown.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
countdown:
  time: 90000
  interval: 100ms
  auto_start: false
render:
  tag: div
  template: "{{.TotalSeconds}}"
log:
  level: debug
  format: json
`), 0644))

	cfg, err := Load(path, false)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, Duration(90*time.Second), cfg.Countdown.Time)
	assert.Equal(t, Duration(100*time.Millisecond), cfg.Countdown.Interval)
	assert.False(t, cfg.Countdown.AutoStart)
	assert.True(t, cfg.Countdown.EmitEvents, "unset keys keep defaults")
	assert.Equal(t, "div", cfg.Render.Tag)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = Load(path, false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("countdown:\n  time: later\n"), 0644))

	_, err := Load(path, false)
	assert.ErrorContains(t, err, "invalid duration format")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := DefaultConfig()
	cfg.Countdown.Time = Duration(25 * time.Minute)

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvTime:        "2m",
		EnvInterval:    "250",
		EnvLeadingZero: "false",
		EnvTag:         "time",
		EnvLogLevel:    "warn",
		EnvTimezone:    "UTC",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, Duration(2*time.Minute), cfg.Countdown.Time)
	assert.Equal(t, Duration(250*time.Millisecond), cfg.Countdown.Interval)
	assert.False(t, cfg.Countdown.LeadingZero)
	assert.True(t, cfg.Countdown.AutoStart)
	assert.Equal(t, "time", cfg.Render.Tag)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "UTC", cfg.Countdown.Timezone)
}

func TestApplyEnvErrors(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == EnvAutoStart {
			return "maybe", true
		}
		return "", false
	})
	assert.ErrorContains(t, err, EnvAutoStart)
}

func TestEnvLookupReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("COUNTDOWN_TEST_ONLY_KEY=from-file\n"), 0644))

	lookup, err := EnvLookup(path)
	require.NoError(t, err)

	v, ok := lookup("COUNTDOWN_TEST_ONLY_KEY")
	assert.True(t, ok)
	assert.Equal(t, "from-file", v)

	t.Setenv("COUNTDOWN_TEST_ONLY_KEY", "from-env")
	v, _ = lookup("COUNTDOWN_TEST_ONLY_KEY")
	assert.Equal(t, "from-env", v)

	_, err = EnvLookup(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		target error
	}{
		{"NegativeTime", func(c *Config) { c.Countdown.Time = -1 }, ErrNegativeTime},
		{"ZeroInterval", func(c *Config) { c.Countdown.Interval = 0 }, ErrInvalidInterval},
		{"BadTag", func(c *Config) { c.Render.Tag = "not a tag" }, render.ErrInvalidTag},
		{"BadLevel", func(c *Config) { c.Log.Level = "loud" }, ErrInvalidLevel},
		{"BadLogFormat", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidFormat},
		{"BadEvents", func(c *Config) { c.Log.Events = "xml" }, ErrInvalidFormat},
		{"BadTimezone", func(c *Config) { c.Countdown.Timezone = "Mars/Olympus_Mons" }, ErrInvalidTimezone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.target)
		})
	}

	cfg := DefaultConfig()
	cfg.Render.Template = "{{.Nope}}"
	assert.Error(t, cfg.Validate())
}

func TestClock(t *testing.T) {
	cfg := DefaultConfig()
	clk, err := cfg.Clock()
	require.NoError(t, err)
	assert.Equal(t, time.Local, clk.Now().Location())

	cfg.Countdown.Timezone = "UTC"
	clk, err = cfg.Clock()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, clk.Now().Location())

	fired := make(chan struct{})
	clk.AfterFunc(time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("callback did not fire")
	}
}

func TestCountdownOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Countdown.Time = Duration(3 * time.Second)
	cfg.Countdown.Interval = Duration(500 * time.Millisecond)
	cfg.Countdown.AutoStart = false
	cfg.Countdown.LeadingZero = false

	clk := clock.NewManual(time.Unix(0, 0))
	c := countdown.New(clk, cfg.CountdownOptions()...)
	defer c.Close()

	clk.Advance(time.Second)
	assert.False(t, c.Counting())
	assert.Equal(t, 3*time.Second, c.Count())
	assert.Equal(t, 500*time.Millisecond, c.Interval())
	assert.Equal(t, "3", c.Values().Seconds)
}

func TestRenderer(t *testing.T) {
	cfg := DefaultConfig()
	r, err := cfg.Renderer()
	require.NoError(t, err)

	v := countdown.Breakdown(90*time.Second, time.Second).Format(true)
	assert.Equal(t, "<span>00d 00:01:30</span>", r.Render(v))

	cfg.Render.Template = ""
	cfg.Render.Content = "Happy new year"
	r, err = cfg.Renderer()
	require.NoError(t, err)
	assert.Equal(t, "<span>Happy new year</span>", r.Render(v))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, _, err = NewLogger(LogConfig{Level: "loud"}, &buf)
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countdown.log")
	logger, closer, err := NewLogger(LogConfig{Level: "info", File: path}, nil)
	require.NoError(t, err)

	logger.Info("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
