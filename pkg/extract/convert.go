package extract

import (
	"strconv"
	"strings"
	"time"
)

// ParseDuration converts duration text to seconds. Accepted shapes:
//
//	"01:02:03"            -> 3723
//	"01:02:03.500000"     -> 3723.5
//	"2 days, 01:00:00"    -> 176400
//	"1 day, 01:00:00"     -> 90000
//
// Anything else yields the fallback: a row with a garbled duration keeps
// its other values instead of failing the whole extract. Callers choose
// the fallback (0 for idle-time columns, 86400 for full-day defaults).
func ParseDuration(s string, fallback float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}

	days := 0
	clock := s
	if i := strings.Index(s, "day"); i >= 0 {
		n, err := strconv.Atoi(strings.TrimSpace(s[:i]))
		if err != nil {
			return fallback
		}
		days = n
		rest := s[i+len("day"):]
		rest = strings.TrimPrefix(rest, "s")
		rest = strings.TrimPrefix(rest, ",")
		clock = strings.TrimSpace(rest)
	}

	secs, ok := parseClock(clock)
	if !ok {
		return fallback
	}
	return float64(days)*86400 + secs
}

func parseClock(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	return float64(h)*3600 + float64(m)*60 + sec, true
}

// dayFirstFormats are the timestamp layouts seen in the extracts, most
// specific first. The facility's exports are day-first throughout.
var dayFirstFormats = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006 15:04:05",
	"02-01-2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a day-first timestamp cell. Numeric cells are
// treated as Excel serial dates (days since 1899-12-30, with the 1900
// leap-year quirk).
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 1 {
		days := serial
		if serial < 60 {
			days++ // Excel treats 1900 as a leap year
		}
		base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
		return base.Add(time.Duration(days * 24 * float64(time.Hour))), true
	}

	for _, layout := range dayFirstFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseNumber parses a numeric cell, tolerating French decimal commas and
// non-breaking-space thousand separators.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseInt parses an integer cell with the same cleanup as ParseNumber.
// Fractional values are rejected.
func ParseInt(s string) (int64, bool) {
	v, ok := ParseNumber(s)
	if !ok || v != float64(int64(v)) {
		return 0, false
	}
	return int64(v), true
}
