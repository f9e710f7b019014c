package timelog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"countdown_tui/internal/countdown"
)

// Entry records one lifecycle notification of a countdown.
type Entry struct {
	ID    string              `json:"id" cbor:"id"`
	Event string              `json:"event" cbor:"event"`
	Units *countdown.Units    `json:"units,omitempty" cbor:"units,omitempty"`
	At    time.Time           `json:"at" cbor:"at"`
	Type  countdown.EventType `json:"-" cbor:"-"`
}

// NewEntry converts a countdown event into an Entry with a fresh ID.
func NewEntry(e countdown.Event) Entry {
	entry := Entry{
		ID:    uuid.NewString(),
		Event: e.Type.String(),
		At:    e.At,
		Type:  e.Type,
	}
	if e.Type == countdown.EventProgress {
		u := e.Units
		entry.Units = &u
	}
	return entry
}

// DefaultHistorySize is the number of entries a History keeps by default.
const DefaultHistorySize = 100

// History keeps the most recent entries in memory.
type History struct {
	mu      sync.RWMutex
	size    int
	entries []Entry
}

// NewHistory returns a History holding at most size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{size: size}
}

// Log prepends entry, dropping the oldest one when full.
func (h *History) Log(entry Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append([]Entry{entry}, h.entries...)
	if len(h.entries) > h.size {
		h.entries = h.entries[:h.size]
	}
	return nil
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (h *History) Recent(n int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]Entry, n)
	copy(out, h.entries[:n])
	return out
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}
