// Package countdown implements a countdown state machine that turns a
// duration into live time-unit values and notifies observers when it
// starts, pauses, progresses and ends.
//
// A Countdown keeps exactly one tick armed on its clock while counting.
// Every tick subtracts the interval from the remaining count and re-arms
// itself, so ticks never overlap. Handlers run after the internal lock is
// released and may call back into the Countdown.
package countdown

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"countdown_tui/internal/clock"
)

// Defaults for a Countdown created without options.
const (
	DefaultInterval = time.Second
)

type options struct {
	time        time.Duration
	interval    time.Duration
	autoStart   bool
	emitEvents  bool
	leadingZero bool
	handlers    []Handler
	watchers    []func(Snapshot)
	logger      *slog.Logger
}

// Option configures a Countdown.
type Option func(*options)

// WithTime sets the total countdown duration. Negative durations are
// ignored.
func WithTime(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.time = d
		}
	}
}

// WithInterval sets the tick granularity. Non-positive intervals are
// ignored.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.interval = d
		}
	}
}

// WithAutoStart controls whether the countdown starts on its own after
// init. Defaults to true.
func WithAutoStart(b bool) Option {
	return func(o *options) { o.autoStart = b }
}

// WithEmitEvents enables or disables every lifecycle notification.
// Defaults to true.
func WithEmitEvents(b bool) Option {
	return func(o *options) { o.emitEvents = b }
}

// WithLeadingZero controls zero padding in Values. Defaults to true.
func WithLeadingZero(b bool) Option {
	return func(o *options) { o.leadingZero = b }
}

// WithHandler subscribes h before init runs, so it sees the automatic
// start.
func WithHandler(h Handler) Option {
	return func(o *options) {
		if h != nil {
			o.handlers = append(o.handlers, h)
		}
	}
}

// WithOnChange registers fn like OnChange, before init runs.
func WithOnChange(fn func(Snapshot)) Option {
	return func(o *options) {
		if fn != nil {
			o.watchers = append(o.watchers, fn)
		}
	}
}

// WithLogger sets the logger used for transition tracing.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

type handlerEntry struct {
	id int
	fn Handler
}

type watcherEntry struct {
	id int
	fn func(Snapshot)
}

// Countdown counts a duration down to zero in interval steps.
type Countdown struct {
	mu     sync.Mutex
	clock  clock.Clock
	logger *slog.Logger

	interval    time.Duration
	autoStart   bool
	emitEvents  bool
	leadingZero bool

	time    time.Duration
	count   time.Duration
	endTime time.Time
	state   State

	tick      clock.Timer
	tickSeq   uint64
	autoTimer clock.Timer
	autoSeq   uint64
	closed    bool

	nextID   int
	handlers []handlerEntry
	watchers []watcherEntry
}

// New creates a Countdown on clk and initializes it. A nil clk uses the
// system clock.
func New(clk clock.Clock, opts ...Option) *Countdown {
	o := options{
		interval:    DefaultInterval,
		autoStart:   true,
		emitEvents:  true,
		leadingZero: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if clk == nil {
		clk = clock.Real()
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Countdown{
		clock:       clk,
		logger:      o.logger,
		interval:    o.interval,
		autoStart:   o.autoStart,
		emitEvents:  o.emitEvents,
		leadingZero: o.leadingZero,
		time:        o.time,
	}
	for _, h := range o.handlers {
		c.nextID++
		c.handlers = append(c.handlers, handlerEntry{id: c.nextID, fn: h})
	}
	for _, w := range o.watchers {
		c.nextID++
		c.watchers = append(c.watchers, watcherEntry{id: c.nextID, fn: w})
	}

	c.mu.Lock()
	c.initLocked()
	c.mu.Unlock()
	return c
}

// initLocked derives count and endTime from time and schedules the
// automatic start one step later, giving the first render a chance to run.
func (c *Countdown) initLocked() {
	now := c.clock.Now()
	c.count = c.time
	c.endTime = now.Add(c.time)
	if c.state != StateCounting {
		c.state = StateIdle
	}

	if c.autoTimer != nil {
		c.autoTimer.Stop()
		c.autoTimer = nil
	}
	c.autoSeq++
	if c.time > 0 && c.autoStart {
		seq := c.autoSeq
		c.autoTimer = c.clock.AfterFunc(0, func() { c.deferredStart(seq) })
	}

	c.logger.Debug("countdown init",
		slog.Duration("time", c.time),
		slog.Duration("interval", c.interval),
		slog.Bool("auto_start", c.autoStart),
	)
}

func (c *Countdown) deferredStart(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.autoSeq {
		c.mu.Unlock()
		return
	}
	c.autoTimer = nil
	c.mu.Unlock()

	c.Start()
}

// Start begins counting. It does nothing while already counting.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.closed || c.state == StateCounting {
		c.mu.Unlock()
		return
	}

	now := c.clock.Now()
	var events []Event
	if c.emitEvents {
		events = append(events, Event{Type: EventStart, At: now})
	}
	c.state = StateCounting
	c.endTime = now.Add(c.count)
	c.armLocked()

	c.logger.Debug("countdown start", slog.Duration("count", c.count))
	c.unlockAndNotify(events)
}

// Pause suspends counting and keeps the remaining count. It does nothing
// unless counting.
func (c *Countdown) Pause() {
	c.mu.Lock()
	if c.closed || c.state != StateCounting {
		c.mu.Unlock()
		return
	}

	var events []Event
	if c.emitEvents {
		events = append(events, Event{Type: EventPause, At: c.clock.Now()})
	}
	c.state = StateIdle
	c.cancelTickLocked()

	c.logger.Debug("countdown pause", slog.Duration("count", c.count))
	c.unlockAndNotify(events)
}

// Toggle pauses a running countdown and starts an idle one.
func (c *Countdown) Toggle() {
	if c.Counting() {
		c.Pause()
		return
	}
	c.Start()
}

// Stop ends counting unconditionally and emits countdownend.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	events := c.stopLocked()
	c.unlockAndNotify(events)
}

func (c *Countdown) stopLocked() []Event {
	if c.count == 0 {
		c.state = StateEnded
	} else {
		c.state = StateIdle
	}
	c.cancelTickLocked()

	c.logger.Debug("countdown stop",
		slog.Duration("count", c.count),
		slog.String("state", c.state.String()),
	)

	if !c.emitEvents {
		return nil
	}
	return []Event{{Type: EventEnd, At: c.clock.Now()}}
}

func (c *Countdown) armLocked() {
	c.tickSeq++
	seq := c.tickSeq
	c.tick = c.clock.AfterFunc(c.interval, func() { c.step(seq) })
}

func (c *Countdown) cancelTickLocked() {
	if c.tick != nil {
		c.tick.Stop()
		c.tick = nil
	}
	// A callback that already left the clock sees a stale sequence.
	c.tickSeq++
}

func (c *Countdown) step(seq uint64) {
	c.mu.Lock()
	if c.closed || c.state != StateCounting || seq != c.tickSeq {
		c.mu.Unlock()
		return
	}
	c.tick = nil

	var events []Event
	if c.count > c.interval {
		c.count -= c.interval
		if c.emitEvents && c.count > 0 {
			events = append(events, Event{
				Type:  EventProgress,
				Units: Breakdown(c.count, c.interval),
				At:    c.clock.Now(),
			})
		}
		c.armLocked()
	} else {
		c.count = 0
		events = c.stopLocked()
	}
	c.unlockAndNotify(events)
}

// Wake realigns count with the absolute end time. Call it when the host
// resumes after timers may have been throttled. It never re-arms the tick
// and never ends the countdown by itself.
func (c *Countdown) Wake() {
	c.mu.Lock()
	if c.closed || c.state != StateCounting {
		c.mu.Unlock()
		return
	}

	remaining := c.endTime.Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	if remaining > c.time {
		remaining = c.time
	}
	c.logger.Debug("countdown wake",
		slog.Duration("count", c.count),
		slog.Duration("realigned", remaining),
	)
	c.count = remaining
	c.unlockAndNotify(nil)
}

// SetTime replaces the total duration and re-runs init. Negative durations
// are ignored.
func (c *Countdown) SetTime(d time.Duration) {
	if d < 0 {
		c.logger.Debug("countdown time rejected", slog.Duration("time", d))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.time = d
	c.initLocked()
	c.unlockAndNotify(nil)
}

// Close cancels any pending tick or automatic start and drops every
// subscriber. The countdown is inert afterwards.
func (c *Countdown) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.cancelTickLocked()
	if c.autoTimer != nil {
		c.autoTimer.Stop()
		c.autoTimer = nil
	}
	c.autoSeq++
	if c.state == StateCounting {
		c.state = StateIdle
	}
	c.handlers = nil
	c.watchers = nil
	return nil
}

// Subscribe registers h for lifecycle notifications and returns a function
// that removes it.
func (c *Countdown) Subscribe(h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.handlers = append(c.handlers, handlerEntry{id: id, fn: h})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range c.handlers {
			if e.id == id {
				c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}

// OnChange registers fn to receive a Snapshot after every change of the
// count or the counting state. It returns a function that removes fn.
func (c *Countdown) OnChange(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.watchers = append(c.watchers, watcherEntry{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range c.watchers {
			if e.id == id {
				c.watchers = append(c.watchers[:i:i], c.watchers[i+1:]...)
				return
			}
		}
	}
}

// unlockAndNotify captures subscribers and a snapshot, releases the lock and
// then delivers events followed by the change notification.
func (c *Countdown) unlockAndNotify(events []Event) {
	handlers := make([]Handler, 0, len(c.handlers))
	for _, e := range c.handlers {
		handlers = append(handlers, e.fn)
	}
	watchers := make([]func(Snapshot), 0, len(c.watchers))
	for _, e := range c.watchers {
		watchers = append(watchers, e.fn)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	for _, ev := range events {
		for _, h := range handlers {
			h(ev)
		}
	}
	for _, w := range watchers {
		w(snap)
	}
}

func (c *Countdown) snapshotLocked() Snapshot {
	u := Breakdown(c.count, c.interval)
	return Snapshot{
		Time:     c.time,
		Count:    c.count,
		Interval: c.interval,
		State:    c.state,
		Units:    u,
		Values:   u.Format(c.leadingZero),
	}
}

// Snapshot returns the current state.
func (c *Countdown) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Count returns the remaining duration.
func (c *Countdown) Count() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Time returns the configured total duration.
func (c *Countdown) Time() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

// Interval returns the tick granularity.
func (c *Countdown) Interval() time.Duration {
	return c.interval
}

// Counting reports whether a tick is armed.
func (c *Countdown) Counting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateCounting
}

// State returns the lifecycle state.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Units returns the breakdown of the remaining duration.
func (c *Countdown) Units() Units {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Breakdown(c.count, c.interval)
}

// Values returns the formatted units, zero padded if configured.
func (c *Countdown) Values() Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Breakdown(c.count, c.interval).Format(c.leadingZero)
}
