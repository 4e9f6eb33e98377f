// Package calendar implements the facility's reporting calendar: extracts
// are expected every Monday through Saturday, public holidays excluded.
package calendar

import (
	"time"
)

// Calendar answers "is this a day we expect data for".
type Calendar struct {
	holidays map[string]struct{} // keyed by YYYY-MM-DD
}

// New creates a calendar excluding the given holidays. Time-of-day and
// location on the holiday values are ignored.
func New(holidays []time.Time) *Calendar {
	c := &Calendar{holidays: make(map[string]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[h.Format("2006-01-02")] = struct{}{}
	}
	return c
}

// IsReportingDay returns true for Monday through Saturday, unless the date
// is a configured holiday. Sundays never report.
func (c *Calendar) IsReportingDay(t time.Time) bool {
	if t.Weekday() == time.Sunday {
		return false
	}
	_, holiday := c.holidays[t.Format("2006-01-02")]
	return !holiday
}

// ExpectedDates returns every reporting day in [from, to], ascending.
// An empty or inverted range yields nil.
func (c *Calendar) ExpectedDates(from, to time.Time) []time.Time {
	from = midnightUTC(from)
	to = midnightUTC(to)

	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if c.IsReportingDay(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
