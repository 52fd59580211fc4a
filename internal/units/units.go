// Package units names the granularities used to describe a relative time,
// such as "3 Minutes ago", and maps each to its display label.
//
// The table is fixed at init and never changes. Use IsUnit or Parse to check
// untrusted input before looking it up.
package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ErrUnknownUnit is returned when a string names no relative-time unit.
var ErrUnknownUnit = errors.New("unknown unit")

// Unit is a relative-time granularity.
type Unit string

const (
	Year    Unit = "year"
	Quarter Unit = "quarter"
	Month   Unit = "month"
	Week    Unit = "week"
	Day     Unit = "day"
	Hour    Unit = "hour"
	Minute  Unit = "minute"
	Second  Unit = "second"
)

const day = 24 * time.Hour

var labels = map[Unit]string{
	Year:    "Year",
	Quarter: "Quarter",
	Month:   "Month",
	Week:    "Week",
	Day:     "Day",
	Hour:    "Hour",
	Minute:  "Minute",
	Second:  "Second",
}

// descending by length
var ordered = []Unit{Year, Quarter, Month, Week, Day, Hour, Minute, Second}

var durations = map[Unit]time.Duration{
	Year:    365 * day,
	Quarter: 91 * day,
	Month:   30 * day,
	Week:    7 * day,
	Day:     day,
	Hour:    time.Hour,
	Minute:  time.Minute,
	Second:  time.Second,
}

// IsUnit reports whether v is a string or Unit naming one of the units.
// It returns false for any other value, including nil.
func IsUnit(v any) bool {
	var u Unit
	switch s := v.(type) {
	case string:
		u = Unit(s)
	case Unit:
		u = s
	default:
		return false
	}
	_, ok := labels[u]
	return ok
}

// Parse returns the Unit named by s.
func Parse(s string) (Unit, error) {
	if !IsUnit(s) {
		return "", fmt.Errorf("%w: %q", ErrUnknownUnit, s)
	}
	return Unit(s), nil
}

// Labels returns a copy of the unit to label table.
func Labels() map[Unit]string {
	out := make(map[Unit]string, len(labels))
	for u, l := range labels {
		out[u] = l
	}
	return out
}

// Label returns the display label of u.
func Label(u Unit) (string, bool) {
	l, ok := labels[u]
	return l, ok
}

// All returns every unit from the longest to the shortest.
func All() []Unit {
	return append([]Unit(nil), ordered...)
}

// String returns the unit key.
func (u Unit) String() string {
	return string(u)
}

// Label returns the display label, or the key itself for an unknown unit.
func (u Unit) Label() string {
	if l, ok := labels[u]; ok {
		return l
	}
	return string(u)
}

// Duration returns the nominal length of one u. Calendar units use fixed
// lengths: a month is 30 days, a quarter 91 and a year 365.
// Unknown units have zero length.
func (u Unit) Duration() time.Duration {
	return durations[u]
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	if !IsUnit(u) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnit, string(u))
	}
	return []byte(u), nil
}

// In returns the number of whole u contained in d. Negative durations count
// as their absolute value.
func In(d time.Duration, u Unit) int64 {
	length := u.Duration()
	if length == 0 {
		return 0
	}
	if d == math.MinInt64 {
		d = math.MaxInt64
	} else if d < 0 {
		d = -d
	}
	return int64(d / length)
}

// Largest returns the longest unit that fits at least once in d, together
// with the count. Anything shorter than a second is reported in seconds.
func Largest(d time.Duration) (Unit, int64) {
	for _, u := range ordered {
		if n := In(d, u); n > 0 {
			return u, n
		}
	}
	return Second, 0
}

// Format renders n of u, such as "1 Minute" or "3 Minutes".
func Format(n int64, u Unit) string {
	label := u.Label()
	if n != 1 && n != -1 {
		label += "s"
	}
	return strconv.FormatInt(n, 10) + " " + label
}
