package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"countdown_tui/internal"
	"countdown_tui/internal/config"
	"countdown_tui/internal/countdown"
)

type flags struct {
	configPath string
	envFile    string
	time       string
	interval   string
	autoStart  bool
	emitEvents bool
	leading    bool
	tag        string
	template   string
	content    string
	logLevel   string
	logFormat  string
	logFile    string
	events     string
	timezone   string
	output     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "countdown_tui",
		Short: "Terminal countdown with start, pause, progress and end events.",
		Long: `countdown_tui counts a duration down in fixed interval steps. ` +
			`Durations take milliseconds (90000) or Go duration strings (1m30s).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runTUI(cfg)
		},
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the countdown without a UI, printing output and events.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runHeadless(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	show := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML, or write it with --output.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			if f.output != "" {
				if err := config.Save(f.output, cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", f.output)
				return nil
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	defaults := config.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "countdown.yaml", "YAML config file (optional)")
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file with COUNTDOWN_* overrides (optional)")
	pf.StringVarP(&f.time, "time", "t", "", "total countdown duration")
	pf.StringVar(&f.interval, "interval", "", "tick interval (default 1s)")
	pf.BoolVar(&f.autoStart, "auto-start", defaults.Countdown.AutoStart, "start automatically")
	pf.BoolVar(&f.emitEvents, "emit-events", defaults.Countdown.EmitEvents, "emit lifecycle events")
	pf.BoolVar(&f.leading, "leading-zero", defaults.Countdown.LeadingZero, "zero pad values below 10")
	pf.StringVar(&f.tag, "tag", defaults.Render.Tag, "root element tag")
	pf.StringVar(&f.template, "template", defaults.Render.Template, "text/template for the display")
	pf.StringVar(&f.content, "content", "", "default content shown when the template is empty")
	pf.StringVar(&f.timezone, "timezone", "", "IANA zone for event timestamps (default local)")
	pf.StringVar(&f.logLevel, "log-level", defaults.Log.Level, "debug, info, warn or error")
	pf.StringVar(&f.logFormat, "log-format", defaults.Log.Format, "text or json")
	pf.StringVar(&f.logFile, "log-file", "", "write logs to this file")
	run.Flags().StringVar(&f.events, "events", defaults.Log.Events, "event stream format: text, json or cbor")
	show.Flags().StringVarP(&f.output, "output", "o", "", "write the configuration to this file")

	root.AddCommand(run, show)
	return root
}

// loadConfig layers defaults, file, environment and explicitly set flags.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath, !cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}

	lookup, err := config.EnvLookup(f.envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	changed := cmd.Flags().Changed
	if changed("time") {
		d, err := config.ParseDuration(f.time)
		if err != nil {
			return nil, fmt.Errorf("--time: %w", err)
		}
		cfg.Countdown.Time = config.Duration(d)
	}
	if changed("interval") {
		d, err := config.ParseDuration(f.interval)
		if err != nil {
			return nil, fmt.Errorf("--interval: %w", err)
		}
		cfg.Countdown.Interval = config.Duration(d)
	}
	if changed("auto-start") {
		cfg.Countdown.AutoStart = f.autoStart
	}
	if changed("emit-events") {
		cfg.Countdown.EmitEvents = f.emitEvents
	}
	if changed("leading-zero") {
		cfg.Countdown.LeadingZero = f.leading
	}
	if changed("timezone") {
		cfg.Countdown.Timezone = f.timezone
	}
	if changed("tag") {
		cfg.Render.Tag = f.tag
	}
	if changed("template") {
		cfg.Render.Template = f.template
	}
	if changed("content") {
		cfg.Render.Content = f.content
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if changed("events") {
		cfg.Log.Events = f.events
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runTUI(cfg *config.Config) error {
	// The alternate screen owns stdout, so logs go to a file or nowhere.
	logger, closer, err := config.NewLogger(cfg.Log, io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()

	r, err := cfg.Renderer()
	if err != nil {
		return err
	}

	clk, err := cfg.Clock()
	if err != nil {
		return err
	}

	m := internal.NewModel(r, nil, logger)
	opts := append(cfg.CountdownOptions(), countdown.WithLogger(logger))
	opts = append(opts, m.Bridge()...)
	m.Attach(countdown.New(clk, opts...))
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

func runHeadless(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	logger, closer, err := config.NewLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer closer.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = internal.RunHeadless(ctx, internal.HeadlessOptions{
		Config: cfg,
		Out:    stdout,
		Logger: logger,
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Debug("headless run finished", "elapsed", time.Since(start))
	return nil
}
