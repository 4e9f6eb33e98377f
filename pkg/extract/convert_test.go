package extract

import (
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback float64
		want     float64
	}{
		{"plain", "01:02:03", 0, 3723.0},
		{"fractional", "01:02:03.500000", 0, 3723.5},
		{"days plural", "2 days, 01:00:00", 0, 176400.0},
		{"day singular", "1 day, 01:00:00", 0, 90000.0},
		{"days no comma", "2 days 01:00:00", 0, 176400.0},
		{"garbage fallback zero", "n/a", 0, 0.0},
		{"garbage fallback full day", "n/a", 86400, 86400.0},
		{"empty", "", 86400, 86400.0},
		{"two fields", "01:02", 0, 0.0},
		{"zero", "00:00:00", 86400, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDuration(tt.input, tt.fallback)
			if got != tt.want {
				t.Errorf("ParseDuration(%q, %v) = %v, want %v", tt.input, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"05/04/2025 06:30:00", time.Date(2025, 4, 5, 6, 30, 0, 0, time.UTC), true},
		{"05/04/2025", time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC), true},
		{"2025-04-05 06:30:00", time.Date(2025, 4, 5, 6, 30, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"not a date", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseTimestamp(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseTimestampSerial(t *testing.T) {
	// 45658 is 2025-01-01 in Excel's serial scheme.
	got, ok := ParseTimestamp("45658")
	if !ok {
		t.Fatal("expected serial date to parse")
	}
	if got.Year() != 2025 || got.Month() != time.January || got.Day() != 1 {
		t.Errorf("serial 45658 = %v, want 2025-01-01", got)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"1234", 1234, true},
		{"12,5", 12.5, true},
		{"1 234", 1234, true},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseNumber(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseInt(t *testing.T) {
	if v, ok := ParseInt("176530"); !ok || v != 176530 {
		t.Errorf("ParseInt(176530) = %v, %v", v, ok)
	}
	if _, ok := ParseInt("12,5"); ok {
		t.Error("fractional value should not parse as int")
	}
	if _, ok := ParseInt("Total"); ok {
		t.Error("text should not parse as int")
	}
}
