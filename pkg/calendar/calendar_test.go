package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsReportingDay(t *testing.T) {
	cal := New([]time.Time{date(2024, time.July, 14)}) // a Sunday anyway, plus Bastille day 2025 below

	tests := []struct {
		name string
		day  time.Time
		want bool
	}{
		{"monday", date(2024, time.July, 1), true},
		{"saturday", date(2024, time.July, 6), true},
		{"sunday", date(2024, time.July, 7), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.IsReportingDay(tt.day))
		})
	}
}

func TestIsReportingDayHoliday(t *testing.T) {
	// 2025-07-14 is a Monday.
	cal := New([]time.Time{date(2025, time.July, 14)})

	assert.False(t, cal.IsReportingDay(date(2025, time.July, 14)))
	assert.True(t, cal.IsReportingDay(date(2025, time.July, 15)))
}

func TestExpectedDates(t *testing.T) {
	// 2024-07-01 (Mon) .. 2024-07-07 (Sun), with Thursday the 4th a holiday.
	cal := New([]time.Time{date(2024, time.July, 4)})

	got := cal.ExpectedDates(date(2024, time.July, 1), date(2024, time.July, 7))

	want := []time.Time{
		date(2024, time.July, 1),
		date(2024, time.July, 2),
		date(2024, time.July, 3),
		date(2024, time.July, 5),
		date(2024, time.July, 6),
	}
	assert.Equal(t, want, got)
}

func TestExpectedDatesEmptyRange(t *testing.T) {
	cal := New(nil)

	assert.Nil(t, cal.ExpectedDates(date(2024, time.July, 7), date(2024, time.July, 1)))
}

func TestExpectedDatesNormalizesTime(t *testing.T) {
	cal := New(nil)

	// Inputs with a time-of-day component still produce midnight UTC dates.
	from := time.Date(2024, time.July, 1, 13, 45, 0, 0, time.UTC)
	to := time.Date(2024, time.July, 2, 3, 0, 0, 0, time.UTC)

	got := cal.ExpectedDates(from, to)
	assert.Equal(t, []time.Time{date(2024, time.July, 1), date(2024, time.July, 2)}, got)
}
