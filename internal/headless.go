package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"countdown_tui/internal/clock"
	"countdown_tui/internal/config"
	"countdown_tui/internal/countdown"
	"countdown_tui/internal/timelog"
)

// HeadlessOptions configures RunHeadless.
type HeadlessOptions struct {
	Config *config.Config
	Clock  clock.Clock
	Out    io.Writer
	Logger *slog.Logger
}

// RunHeadless runs one countdown without a terminal UI. With the text
// events format it prints the rendered element after every change and logs
// notifications; with json or cbor, stdout carries only the event stream.
// It returns once the countdown has ended or when ctx is done.
func RunHeadless(ctx context.Context, opts HeadlessOptions) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	clk := opts.Clock
	if clk == nil {
		var err error
		if clk, err = cfg.Clock(); err != nil {
			return err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r, err := cfg.Renderer()
	if err != nil {
		return fmt.Errorf("build renderer: %w", err)
	}

	var mu sync.Mutex
	out := opts.Out
	text := cfg.Log.Events == "text"

	var sink timelog.Sink
	if text {
		sink = timelog.NewSlogSink(logger, slog.LevelInfo)
	} else {
		enc, err := timelog.NewEncoderSink(out, timelog.Format(cfg.Log.Events))
		if err != nil {
			return err
		}
		sink = enc
	}

	done := make(chan struct{})
	var once sync.Once

	// Nobody can press start here, so the run starts as soon as the sink
	// is subscribed.
	options := append(cfg.CountdownOptions(),
		countdown.WithLogger(logger),
		countdown.WithAutoStart(false),
	)
	if text {
		options = append(options, countdown.WithOnChange(func(s countdown.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintln(out, r.Render(s.Values))
		}))
	}
	// Registered last so the final output is written before returning.
	options = append(options, countdown.WithOnChange(func(s countdown.Snapshot) {
		if s.State == countdown.StateEnded {
			once.Do(func() { close(done) })
		}
	}))

	c := countdown.New(clk, options...)
	defer c.Close()
	defer timelog.Record(c, sink, func(err error) {
		logger.Error("write countdown event", slog.Any("error", err))
	})()

	if text {
		mu.Lock()
		fmt.Fprintln(out, r.Render(c.Values()))
		mu.Unlock()
	}

	if c.Time() == 0 {
		logger.Info("nothing to count down")
		return nil
	}
	c.Start()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.Pause()
		return ctx.Err()
	}
}
