package simtime

import (
	"math"
	"testing"
	"time"
)

func TestToTime(t *testing.T) {
	tests := []struct {
		name     string
		year     float64
		expected time.Time
	}{
		{name: "start of 2000", year: 2000, expected: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		// 2001 is 365 days long, so half of it is noon on July 2
		{name: "middle of 2001", year: 2001.5, expected: time.Date(2001, 7, 2, 12, 0, 0, 0, time.UTC)},
		{name: "leap year quarter", year: 2024.25, expected: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToTime(tt.year)
			if d := got.Sub(tt.expected); d > time.Second || d < -time.Second {
				t.Errorf("ToTime(%v) = %v, expected %v", tt.year, got, tt.expected)
			}
		})
	}
}

func TestFromTimeRoundTrip(t *testing.T) {
	for _, year := range []float64{1880.3, 1999.999, 2000, 2050.75} {
		got := FromTime(ToTime(year))
		if math.Abs(got-year) > 1e-6 {
			t.Errorf("FromTime(ToTime(%v)) = %v", year, got)
		}
	}
}

func TestHydroYearStartMonth(t *testing.T) {
	tests := []struct {
		shift    float64
		expected time.Month
	}{
		{0.75, time.October},
		{0, time.January},
		{0.5, time.July},
		{-0.25, time.October},
		{1.99, time.December},
	}

	for _, tt := range tests {
		if got := HydroYearStartMonth(tt.shift); got != tt.expected {
			t.Errorf("HydroYearStartMonth(%v) = %v, expected %v", tt.shift, got, tt.expected)
		}
	}
}
