package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 2026-08-26, mid-afternoon.
var wednesday = time.Date(2026, 8, 26, 15, 42, 10, 0, time.UTC)

func TestWeekStart_MondayAnchor(t *testing.T) {
	start := WeekStart(wednesday)
	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC), start)

	// A Monday is its own week start; a Sunday belongs to the prior Monday.
	monday := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, StartOfDay(monday), WeekStart(monday))

	sunday := time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), WeekStart(sunday))
}

func TestWindowFor_WeekBoundary(t *testing.T) {
	w := WindowFor(TimeframeWeek, wednesday)

	createdMonday := time.Date(2026, 8, 24, 8, 30, 0, 0, time.UTC)
	createdPriorSunday := time.Date(2026, 8, 23, 23, 0, 0, 0, time.UTC)

	assert.True(t, w.Contains(createdMonday))
	assert.False(t, w.Contains(createdPriorSunday))
	assert.True(t, w.Contains(wednesday))
	assert.Equal(t, time.Date(2026, 8, 26, 23, 59, 59, 0, time.UTC), w.End)
}

func TestWindowFor_MonthQuarterYear(t *testing.T) {
	m := WindowFor(TimeframeMonth, wednesday)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), m.Start)

	q := WindowFor(TimeframeQuarter, wednesday)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), q.Start)

	y := WindowFor(TimeframeYear, wednesday)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), y.Start)
}

func TestQuarterStart_Blocks(t *testing.T) {
	cases := map[time.Month]time.Month{
		time.January: time.January, time.March: time.January,
		time.April: time.April, time.June: time.April,
		time.July: time.July, time.September: time.July,
		time.October: time.October, time.December: time.October,
	}
	for in, want := range cases {
		got := QuarterStart(time.Date(2026, in, 15, 12, 0, 0, 0, time.UTC))
		assert.Equal(t, want, got.Month(), "month %s", in)
		assert.Equal(t, 1, got.Day())
	}
}

func TestWindowFor_AllContainsEverything(t *testing.T) {
	w := WindowFor(TimeframeAll, wednesday)
	assert.True(t, w.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(wednesday))
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2026, 8, 26, 23, 0, 0, 0, time.UTC)
	b := time.Date(2026, 8, 27, 1, 0, 0, 0, time.UTC)
	// Only the calendar day matters, not the clock distance.
	assert.Equal(t, 1, DaysBetween(a, b))
	assert.Equal(t, -1, DaysBetween(b, a))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestPreviousWindows_WeekSeries(t *testing.T) {
	windows := PreviousWindows(TimeframeWeek, wednesday, 5)
	require.Len(t, windows, 5)

	// Oldest first, contiguous, last one is the current partial week.
	for i := 0; i < 4; i++ {
		assert.Equal(t, time.Monday, windows[i].Start.Weekday())
		assert.Equal(t, windows[i+1].Start.Add(-time.Second), windows[i].End)
	}
	assert.Equal(t, WeekStart(wednesday), windows[4].Start)
	assert.Equal(t, EndOfDay(wednesday), windows[4].End)
}

func TestPreviousWindows_MonthSeries(t *testing.T) {
	windows := PreviousWindows(TimeframeMonth, wednesday, 5)
	require.Len(t, windows, 5)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), windows[0].Start)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), windows[4].Start)
	assert.Equal(t, EndOfDay(wednesday), windows[4].End)
}

func TestTimeframe_Valid(t *testing.T) {
	for _, tf := range []Timeframe{TimeframeAll, TimeframeWeek, TimeframeMonth, TimeframeQuarter, TimeframeYear} {
		assert.True(t, tf.Valid())
	}
	assert.False(t, Timeframe("fortnight").Valid())
}
