package countdown

import (
	"math"
	"strconv"
	"time"
)

const (
	msSecond = int64(time.Second / time.Millisecond)
	msMinute = 60 * msSecond
	msHour   = 60 * msMinute
	msDay    = 24 * msHour
)

// Units is the breakdown of a remaining duration. Days, Hours, Minutes and
// Seconds are the clock-face parts; the Total fields express the whole
// duration in a single unit.
type Units struct {
	Days         int64   `json:"days" cbor:"days"`
	Hours        int64   `json:"hours" cbor:"hours"`
	Minutes      int64   `json:"minutes" cbor:"minutes"`
	Seconds      float64 `json:"seconds" cbor:"seconds"`
	TotalDays    int64   `json:"totalDays" cbor:"totalDays"`
	TotalHours   int64   `json:"totalHours" cbor:"totalHours"`
	TotalMinutes int64   `json:"totalMinutes" cbor:"totalMinutes"`
	TotalSeconds float64 `json:"totalSeconds" cbor:"totalSeconds"`
}

// Values is Units formatted for display.
type Values struct {
	Days         string
	Hours        string
	Minutes      string
	Seconds      string
	TotalDays    string
	TotalHours   string
	TotalMinutes string
	TotalSeconds string
}

// Breakdown splits count into Units. The tick interval decides how many
// decimals the seconds fields keep.
func Breakdown(count, interval time.Duration) Units {
	ms := count.Milliseconds()
	if ms < 0 {
		ms = 0
	}

	days := ms / msDay
	return Units{
		Days:         days,
		Hours:        (ms % msDay) / msHour,
		Minutes:      (ms % msHour) / msMinute,
		Seconds:      roundSeconds(ms%msMinute, interval),
		TotalDays:    days,
		TotalHours:   ms / msHour,
		TotalMinutes: ms / msMinute,
		TotalSeconds: roundSeconds(ms, interval),
	}
}

// Precision returns the number of decimals kept for seconds at the given
// tick interval. Zero means seconds are floored to whole numbers.
func Precision(interval time.Duration) int {
	ms := interval.Milliseconds()
	switch {
	case ms < 10:
		return 3
	case ms < 100:
		return 2
	case ms < 1000:
		return 1
	default:
		return 0
	}
}

func roundSeconds(ms int64, interval time.Duration) float64 {
	s := float64(ms) / float64(msSecond)
	p := Precision(interval)
	if p == 0 {
		return math.Floor(s)
	}
	pow := math.Pow10(p)
	return math.Round(s*pow) / pow
}

// Format renders every unit as a string. With leadingZero, values below 10
// get a "0" prefix.
func (u Units) Format(leadingZero bool) Values {
	i := func(v int64) string { return pad(strconv.FormatInt(v, 10), float64(v), leadingZero) }
	f := func(v float64) string { return pad(strconv.FormatFloat(v, 'f', -1, 64), v, leadingZero) }

	return Values{
		Days:         i(u.Days),
		Hours:        i(u.Hours),
		Minutes:      i(u.Minutes),
		Seconds:      f(u.Seconds),
		TotalDays:    i(u.TotalDays),
		TotalHours:   i(u.TotalHours),
		TotalMinutes: i(u.TotalMinutes),
		TotalSeconds: f(u.TotalSeconds),
	}
}

func pad(s string, v float64, leadingZero bool) string {
	if leadingZero && v < 10 {
		return "0" + s
	}
	return s
}
