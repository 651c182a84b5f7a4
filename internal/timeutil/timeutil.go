// Package timeutil converts the broker's locale datetime strings into UTC
// instants and derives the period keys used by the performance rollups.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Policy selects how broker datetimes without an explicit zone are
// interpreted. The upstream data carries JST wall-clock times, but some
// installations ran with the host zone; both readings are kept behind this
// flag so the choice is configuration, not code.
type Policy int

const (
	// PolicyJST treats parsed components as UTC+9 wall-clock time.
	PolicyJST Policy = iota
	// PolicyLocal treats parsed components as host-local wall-clock time.
	PolicyLocal
)

// ParsePolicy maps a config string to a Policy. Unknown values fall back to
// JST, the broker's own locale.
func ParsePolicy(s string) Policy {
	if strings.EqualFold(s, "local") {
		return PolicyLocal
	}
	return PolicyJST
}

var jst = time.FixedZone("JST", 9*60*60)

const (
	markerAM = "午前"
	markerPM = "午後"
)

// ParseBrokerDateTime parses "YYYY/MM/DD HH:MM[:SS]" with an optional
// trailing 午前/午後 marker and returns the UTC instant under the given
// policy. Malformed input degrades to the current instant instead of
// failing, matching observed production behavior; callers that need to
// detect the fallback should validate the string first.
func ParseBrokerDateTime(s string, policy Policy) time.Time {
	now := time.Now().UTC()

	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) < 2 {
		return now
	}

	var year, month, day int
	if _, err := fmt.Sscanf(fields[0], "%d/%d/%d", &year, &month, &day); err != nil {
		return now
	}

	var hour, min, sec int
	if n, err := fmt.Sscanf(fields[1], "%d:%d:%d", &hour, &min, &sec); err != nil || n < 3 {
		sec = 0
		if _, err := fmt.Sscanf(fields[1], "%d:%d", &hour, &min); err != nil {
			return now
		}
	}

	if len(fields) >= 3 {
		switch fields[2] {
		case markerPM:
			if hour != 12 {
				hour += 12
			}
		case markerAM:
			if hour == 12 {
				hour = 0
			}
		}
	}

	loc := jst
	if policy == PolicyLocal {
		loc = time.Local
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, loc).UTC()
}

// SplitUTC splits an instant into the separate UTC date and time-of-day
// strings the trade table stores.
func SplitUTC(t time.Time) (date, clock string) {
	u := t.UTC()
	return u.Format("2006-01-02"), u.Format("15:04:05")
}

// FormatLocal renders an instant in the host zone for editable-form
// round-tripping. Not used for persistence.
func FormatLocal(t time.Time) string {
	return t.Local().Format("2006-01-02T15:04:05")
}

// PeriodKeys holds the six rollup keys derived from one instant.
type PeriodKeys struct {
	Hourly  string // 2006-01-02T15
	Daily   string // 2006-01-02
	Weekly  string // ISO week, e.g. 2025-W24
	Monthly string // 2006-01
	Yearly  string // 2006
	Total   string // literal "total"
}

// KeysFor derives all six period keys from the instant's calendar fields.
// Pure function: the same instant always yields the same keys.
func KeysFor(t time.Time) PeriodKeys {
	isoYear, isoWeek := t.ISOWeek()
	return PeriodKeys{
		Hourly:  t.Format("2006-01-02T15"),
		Daily:   t.Format("2006-01-02"),
		Weekly:  fmt.Sprintf("%d-W%02d", isoYear, isoWeek),
		Monthly: t.Format("2006-01"),
		Yearly:  t.Format("2006"),
		Total:   "total",
	}
}
