// Package calendar provides day-granularity date arithmetic and the
// calendar-aligned windows used by statistics aggregation. Windows are
// aligned to calendar boundaries (week/month/quarter/year), not rolling
// N-day lookbacks.
package calendar

import (
	"math"
	"time"
)

// Timeframe names a calendar-aligned reporting window.
type Timeframe string

const (
	// TimeframeAll selects the whole collection with no window filter.
	TimeframeAll     Timeframe = "all"
	TimeframeWeek    Timeframe = "week"
	TimeframeMonth   Timeframe = "month"
	TimeframeQuarter Timeframe = "quarter"
	TimeframeYear    Timeframe = "year"
)

// Valid reports whether tf is a known timeframe.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TimeframeAll, TimeframeWeek, TimeframeMonth, TimeframeQuarter, TimeframeYear:
		return true
	}
	return false
}

func (tf Timeframe) String() string { return string(tf) }

// Window is an inclusive [Start, End] date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, boundaries included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable second of t's day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// DaysBetween returns the number of calendar days from the day containing
// `from` to the day containing `to`. Time-of-day is ignored so boundary days
// are stable across a single calendar day. Negative when `to` is earlier.
func DaysBetween(from, to time.Time) int {
	f := StartOfDay(from)
	t := StartOfDay(to)
	// Rounding absorbs DST-shortened or -lengthened days.
	return int(math.Round(t.Sub(f).Hours() / 24))
}

// WeekStart returns the most recent Monday at 00:00:00 relative to t.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	// time.Weekday puts Sunday at 0; shift so Monday is the week anchor.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// MonthStart returns the first of t's month at 00:00:00.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// QuarterStart returns the first day of t's 3-month block (Jan, Apr, Jul, Oct).
func QuarterStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	qm := time.Month((int(m)-1)/3*3 + 1)
	return time.Date(y, qm, 1, 0, 0, 0, 0, t.Location())
}

// YearStart returns January 1 of t's year at 00:00:00.
func YearStart(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// WindowFor computes the current calendar window for tf ending at now's day
// end. TimeframeAll yields an unbounded window containing every time value.
func WindowFor(tf Timeframe, now time.Time) Window {
	end := EndOfDay(now)
	switch tf {
	case TimeframeWeek:
		return Window{Start: WeekStart(now), End: end}
	case TimeframeMonth:
		return Window{Start: MonthStart(now), End: end}
	case TimeframeQuarter:
		return Window{Start: QuarterStart(now), End: end}
	case TimeframeYear:
		return Window{Start: YearStart(now), End: end}
	default:
		return Window{Start: time.Time{}, End: end.AddDate(1000, 0, 0)}
	}
}

// PreviousWindows replays the window logic for the n periods ending at now,
// oldest first; the last element is the current (partial) window. Used for
// trend charts, which plot the preceding periods plus the current one.
func PreviousWindows(tf Timeframe, now time.Time, n int) []Window {
	if n <= 0 {
		return nil
	}

	windows := make([]Window, 0, n)
	for i := n - 1; i > 0; i-- {
		w := WindowFor(tf, shift(tf, now, -i))
		// Completed periods span their whole calendar block.
		nextStart := WindowFor(tf, shift(tf, now, -i+1)).Start
		w.End = nextStart.Add(-time.Second)
		windows = append(windows, w)
	}
	return append(windows, WindowFor(tf, now))
}

// shift moves t by `periods` whole periods of tf.
func shift(tf Timeframe, t time.Time, periods int) time.Time {
	switch tf {
	case TimeframeWeek:
		return t.AddDate(0, 0, 7*periods)
	case TimeframeMonth:
		// Anchor on the month start so short months cannot skip a period.
		return MonthStart(t).AddDate(0, periods, 0)
	case TimeframeQuarter:
		return QuarterStart(t).AddDate(0, 3*periods, 0)
	case TimeframeYear:
		return YearStart(t).AddDate(periods, 0, 0)
	default:
		return t
	}
}
