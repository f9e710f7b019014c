package internal

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"countdown_tui/internal/config"
	"countdown_tui/internal/countdown"
	"countdown_tui/internal/render"
	"countdown_tui/internal/timelog"

	tea "github.com/charmbracelet/bubbletea"
)

// MsgTick carries the countdown state after a change.
type MsgTick struct {
	Snapshot countdown.Snapshot
}

// MsgEvent carries a lifecycle notification into the program.
type MsgEvent struct {
	Entry timelog.Entry
}

// MsgWakeCheck is delivered by the stall watchdog.
type MsgWakeCheck struct {
	At time.Time
}

const (
	// adjustStep is how much +/- change the countdown time.
	adjustStep = time.Minute

	// wakeCheckEvery is the stall watchdog period. A check arriving more
	// than two periods after the previous one means the host slept.
	wakeCheckEvery = 5 * time.Second

	updateBuffer = 64
)

type Model struct {
	Countdown *countdown.Countdown
	Renderer  *render.Renderer
	History   *timelog.History
	Snapshot  countdown.Snapshot
	LastWake  time.Time
	Err       error

	// Time edit form state
	ShowEditForm bool
	TimeInput    string

	// Event log viewer state
	ShowLogView   bool
	LogViewScroll int

	updates   chan tea.Msg
	lastCheck time.Time
	logger    *slog.Logger
	now       func() time.Time
}

// NewModel returns a model without a countdown. Attach one before running
// the program.
func NewModel(r *render.Renderer, h *timelog.History, logger *slog.Logger) *Model {
	if h == nil {
		h = timelog.NewHistory(0)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Model{
		Renderer: r,
		History:  h,
		updates:  make(chan tea.Msg, updateBuffer),
		logger:   logger,
		now:      time.Now,
	}
}

// Attach binds c to the model and takes its current state.
func (m *Model) Attach(c *countdown.Countdown) {
	m.Countdown = c
	m.Snapshot = c.Snapshot()
}

// Bridge returns countdown options that record events in the model's
// history and in the log, and queue changes for the program. Nothing here
// blocks, so the countdown may be driven from inside Update.
func (m *Model) Bridge() []countdown.Option {
	sink := timelog.Multi{m.History, timelog.NewSlogSink(m.logger, slog.LevelInfo)}
	return []countdown.Option{
		countdown.WithHandler(func(e countdown.Event) {
			entry := timelog.NewEntry(e)
			if err := sink.Log(entry); err != nil {
				m.logger.Error("record countdown event", slog.Any("error", err))
			}
			m.post(MsgEvent{Entry: entry})
		}),
		countdown.WithOnChange(func(s countdown.Snapshot) {
			m.post(MsgTick{Snapshot: s})
		}),
	}
}

// post queues msg without blocking. A dropped update is harmless because
// the queue is only full while an earlier update is still pending, and
// handling that one reads the latest state.
func (m *Model) post(msg tea.Msg) {
	select {
	case m.updates <- msg:
	default:
		m.logger.Debug("update queue full", slog.String("msg", fmt.Sprintf("%T", msg)))
	}
}

func (m *Model) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m *Model) watchdog() tea.Cmd {
	return tea.Tick(wakeCheckEvery, func(t time.Time) tea.Msg {
		return MsgWakeCheck{At: t}
	})
}

func (m *Model) Init() tea.Cmd {
	m.lastCheck = m.now().Round(0)
	return tea.Batch(m.waitForUpdate(), m.watchdog())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MsgTick:
		m.Snapshot = msg.Snapshot
		m.refresh()
		return m, m.waitForUpdate()
	case MsgEvent:
		m.logger.Debug("countdown event", slog.String("event", msg.Entry.Event))
		m.refresh()
		return m, m.waitForUpdate()
	case MsgWakeCheck:
		// Wall time only; the monotonic clock stops while the host sleeps.
		at := msg.At.Round(0)
		if !m.lastCheck.IsZero() && at.Sub(m.lastCheck) > 2*wakeCheckEvery {
			m.logger.Info("stall detected", slog.Duration("gap", at.Sub(m.lastCheck)))
			m.wake()
		}
		m.lastCheck = at
		return m, m.watchdog()
	case tea.ResumeMsg:
		// Timers did not run while the process was stopped.
		m.wake()
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		return m, nil
	}
	return m, nil
}

func (m *Model) wake() {
	if m.Countdown == nil {
		return
	}
	m.Countdown.Wake()
	m.LastWake = m.now()
	m.refresh()
}

func (m *Model) View() string {
	if m.Countdown == nil {
		return m.emptyStateView()
	}

	if m.ShowLogView {
		return m.allLogsView()
	}

	if m.ShowEditForm {
		return m.editFormView()
	}

	return m.mainView()
}

func (m *Model) refresh() {
	if m.Countdown != nil {
		m.Snapshot = m.Countdown.Snapshot()
	}
}

// Close releases the countdown.
func (m *Model) Close() error {
	if m.Countdown == nil {
		return nil
	}
	return m.Countdown.Close()
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowLogView {
		return m.handleLogViewInput(msg)
	}

	if m.ShowEditForm {
		return m.handleFormInput(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "ctrl+z":
		return m, tea.Suspend
	}

	c := m.Countdown
	if c == nil {
		return m, nil
	}

	switch msg.String() {
	case " ", "enter":
		c.Toggle()
	case "s":
		c.Start()
	case "p":
		c.Pause()
	case "x":
		c.Stop()
	case "w":
		m.wake()
	case "r":
		c.SetTime(c.Time())
	case "+", "=":
		c.SetTime(c.Time() + adjustStep)
	case "-":
		c.SetTime(max(c.Time()-adjustStep, 0))
	case "e":
		m.ShowEditForm = true
		m.TimeInput = c.Time().String()
		m.Err = nil
	case "l":
		m.ShowLogView = true
		m.LogViewScroll = 0
	}
	m.refresh()
	return m, nil
}

func (m *Model) handleLogViewInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc", "l":
		m.ShowLogView = false
	case "up", "k":
		if m.LogViewScroll > 0 {
			m.LogViewScroll--
		}
	case "down", "j":
		maxScroll := m.History.Len() - 1
		if maxScroll < 0 {
			maxScroll = 0
		}
		if m.LogViewScroll < maxScroll {
			m.LogViewScroll++
		}
	}
	return m, nil
}

func (m *Model) handleFormInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.ShowEditForm = false
		m.Err = nil
	case "enter":
		d, err := config.ParseDuration(m.TimeInput)
		if err == nil && d < 0 {
			err = config.ErrNegativeTime
		}
		if err != nil {
			m.Err = err
			return m, nil
		}
		m.Countdown.SetTime(d)
		m.ShowEditForm = false
		m.Err = nil
		m.refresh()
	case "backspace":
		if len(m.TimeInput) > 0 {
			runes := []rune(m.TimeInput)
			m.TimeInput = string(runes[:len(runes)-1])
		}
	default:
		runes := []rune(msg.String())
		if len(runes) == 1 {
			m.TimeInput += string(runes[0])
		}
	}
	return m, nil
}
