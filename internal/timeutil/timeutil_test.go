package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePolicy(t *testing.T) {
	assert.Equal(t, PolicyJST, ParsePolicy("jst"))
	assert.Equal(t, PolicyJST, ParsePolicy(""))
	assert.Equal(t, PolicyJST, ParsePolicy("something-else"))
	assert.Equal(t, PolicyLocal, ParsePolicy("local"))
	assert.Equal(t, PolicyLocal, ParsePolicy("LOCAL"))
}

func TestParseBrokerDateTime(t *testing.T) {
	t.Run("JST wall clock converts to UTC", func(t *testing.T) {
		ts := ParseBrokerDateTime("2025/06/13 15:00:00", PolicyJST)
		assert.Equal(t, time.Date(2025, 6, 13, 6, 0, 0, 0, time.UTC), ts)
	})

	t.Run("seconds are optional", func(t *testing.T) {
		ts := ParseBrokerDateTime("2025/06/13 15:04", PolicyJST)
		assert.Equal(t, time.Date(2025, 6, 13, 6, 4, 0, 0, time.UTC), ts)
	})

	t.Run("PM marker adds twelve hours", func(t *testing.T) {
		ts := ParseBrokerDateTime("2025/06/13 3:05:00 午後", PolicyJST)
		assert.Equal(t, time.Date(2025, 6, 13, 6, 5, 0, 0, time.UTC), ts)
	})

	t.Run("PM marker leaves noon hour alone", func(t *testing.T) {
		ts := ParseBrokerDateTime("2025/06/13 12:00:00 午後", PolicyJST)
		assert.Equal(t, time.Date(2025, 6, 13, 3, 0, 0, 0, time.UTC), ts)
	})

	t.Run("AM marker maps twelve to midnight", func(t *testing.T) {
		ts := ParseBrokerDateTime("2025/06/13 12:30:00 午前", PolicyJST)
		// 00:30 JST is 15:30 UTC the previous day
		assert.Equal(t, time.Date(2025, 6, 12, 15, 30, 0, 0, time.UTC), ts)
	})

	t.Run("local policy uses the host zone", func(t *testing.T) {
		ts := ParseBrokerDateTime("2025/06/13 15:00:00", PolicyLocal)
		want := time.Date(2025, 6, 13, 15, 0, 0, 0, time.Local).UTC()
		assert.Equal(t, want, ts)
	})

	t.Run("malformed input degrades to now", func(t *testing.T) {
		for _, s := range []string{"", "garbage", "2025/06/13", "not/a/date 15:00:00", "2025/06/13 nope"} {
			ts := ParseBrokerDateTime(s, PolicyJST)
			assert.WithinDuration(t, time.Now().UTC(), ts, 5*time.Second, "input %q", s)
		}
	})
}

func TestSplitUTC(t *testing.T) {
	date, clock := SplitUTC(time.Date(2025, 6, 13, 6, 5, 9, 0, time.UTC))
	assert.Equal(t, "2025-06-13", date)
	assert.Equal(t, "06:05:09", clock)

	// Non-UTC instants are converted first.
	date, clock = SplitUTC(time.Date(2025, 6, 13, 0, 30, 0, 0, time.FixedZone("JST", 9*60*60)))
	assert.Equal(t, "2025-06-12", date)
	assert.Equal(t, "15:30:00", clock)
}

func TestKeysFor(t *testing.T) {
	keys := KeysFor(time.Date(2025, 6, 13, 6, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-06-13T06", keys.Hourly)
	assert.Equal(t, "2025-06-13", keys.Daily)
	assert.Equal(t, "2025-W24", keys.Weekly)
	assert.Equal(t, "2025-06", keys.Monthly)
	assert.Equal(t, "2025", keys.Yearly)
	assert.Equal(t, "total", keys.Total)
}

func TestKeysForISOWeekYearBoundary(t *testing.T) {
	// 2024-12-30 belongs to ISO week 1 of 2025.
	keys := KeysFor(time.Date(2024, 12, 30, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "2025-W01", keys.Weekly)
	assert.Equal(t, "2024", keys.Yearly)
}
