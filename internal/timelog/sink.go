package timelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"countdown_tui/internal/countdown"
)

// Sink consumes entries.
type Sink interface {
	Log(Entry) error
}

// SlogSink writes entries to a structured logger.
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogSink returns a sink logging at level.
func NewSlogSink(logger *slog.Logger, level slog.Level) *SlogSink {
	return &SlogSink{logger: logger, level: level}
}

func (s *SlogSink) Log(entry Entry) error {
	attrs := []slog.Attr{
		slog.String("id", entry.ID),
		slog.String("event", entry.Event),
		slog.Time("at", entry.At),
	}
	if entry.Units != nil {
		attrs = append(attrs,
			slog.Int64("days", entry.Units.Days),
			slog.Int64("hours", entry.Units.Hours),
			slog.Int64("minutes", entry.Units.Minutes),
			slog.Float64("seconds", entry.Units.Seconds),
			slog.Float64("total_seconds", entry.Units.TotalSeconds),
		)
	}
	s.logger.LogAttrs(context.Background(), s.level, "countdown event", attrs...)
	return nil
}

// Format selects the EncoderSink wire format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ErrUnknownFormat is returned for formats other than json and cbor.
var ErrUnknownFormat = errors.New("unknown event format")

var cborEncMode cbor.EncMode

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	cborEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create timelog CBOR encoder mode: %v", err))
	}
}

type encoder interface {
	Encode(v any) error
}

// EncoderSink writes each entry as one JSON line or one CBOR data item.
type EncoderSink struct {
	mu  sync.Mutex
	enc encoder
}

// NewEncoderSink returns a sink writing entries to w in format f.
func NewEncoderSink(w io.Writer, f Format) (*EncoderSink, error) {
	switch f {
	case FormatJSON:
		return &EncoderSink{enc: json.NewEncoder(w)}, nil
	case FormatCBOR:
		return &EncoderSink{enc: cborEncMode.NewEncoder(w)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func (s *EncoderSink) Log(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(entry); err != nil {
		return fmt.Errorf("encode %s entry: %w", entry.Event, err)
	}
	return nil
}

// Multi fans entries out to several sinks and joins their errors.
type Multi []Sink

func (m Multi) Log(entry Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Log(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handler returns a countdown handler feeding sink. Sink errors are
// reported to onErr when it is not nil.
func Handler(sink Sink, onErr func(error)) countdown.Handler {
	return func(e countdown.Event) {
		if err := sink.Log(NewEntry(e)); err != nil && onErr != nil {
			onErr(err)
		}
	}
}

// Record subscribes sink to c and returns a function that unsubscribes.
func Record(c *countdown.Countdown, sink Sink, onErr func(error)) func() {
	return c.Subscribe(Handler(sink, onErr))
}
