// Package recurrence computes the next occurrence of a recurring task
// template. It performs no I/O and holds no state.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"taskpulse/internal/types"
)

// ErrUnknownPattern is returned for a pattern outside daily|weekly|monthly|yearly.
var ErrUnknownPattern = errors.New("unknown recurrence pattern")

// ParsePattern normalizes s and validates it against the known patterns.
func ParsePattern(s string) (types.RecurrencePattern, error) {
	p := types.RecurrencePattern(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case types.PatternDaily, types.PatternWeekly, types.PatternMonthly, types.PatternYearly:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPattern, s)
}

// NextOccurrence returns the occurrence that follows ref under pattern.
//
// Calendar arithmetic happens in ref's location, so a daily series keeps its
// wall-clock time across DST changes. Monthly steps clamp to the last day of
// the target month (Jan 31 -> Feb 28/29) and yearly steps clamp Feb 29 to
// Feb 28. The result is always strictly after ref.
func NextOccurrence(pattern types.RecurrencePattern, ref time.Time) (time.Time, error) {
	return NextOccurrenceAnchored(pattern, ref, 0)
}

// NextOccurrenceAnchored is NextOccurrence for series that started on
// anchorDay. Monthly and yearly steps target anchorDay (clamped to the month
// length) instead of ref's day, so a series started on the 31st goes
// Jan 31 -> Feb 28 -> Mar 31 rather than settling on the 28th. An anchorDay
// outside 1..31 falls back to ref's day.
func NextOccurrenceAnchored(pattern types.RecurrencePattern, ref time.Time, anchorDay int) (time.Time, error) {
	if anchorDay < 1 || anchorDay > 31 {
		anchorDay = ref.Day()
	}

	var next time.Time
	switch pattern {
	case types.PatternDaily:
		next = ref.AddDate(0, 0, 1)
	case types.PatternWeekly:
		next = ref.AddDate(0, 0, 7)
	case types.PatternMonthly:
		next = addMonthsClamped(ref, 1, anchorDay)
	case types.PatternYearly:
		next = addMonthsClamped(ref, 12, anchorDay)
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPattern, pattern)
	}

	// A DST gap can fold a daily step back onto ref's instant.
	if !next.After(ref) {
		next = ref.Add(24 * time.Hour)
	}
	return next, nil
}

// addMonthsClamped moves ref forward by months, landing on day (or the last
// day of the target month when it is shorter). time.AddDate would normalize
// Feb 31 into March, which skips a month.
func addMonthsClamped(ref time.Time, months, day int) time.Time {
	y, m, _ := ref.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, ref.Location())
	if last := daysIn(target.Year(), target.Month(), ref.Location()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day,
		ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), ref.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
