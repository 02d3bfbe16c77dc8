// Package simtime converts between decimal simulation years and calendar time.
package simtime

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// ToTime converts a decimal year (2000.5 is mid-2000) to a UTC time.
// The fractional part is spread over the actual length of that Gregorian year.
func ToTime(year float64) time.Time {
	y := math.Floor(year)
	start := julian.CalendarGregorianToJD(int(y), 1, 1)
	end := julian.CalendarGregorianToJD(int(y)+1, 1, 1)
	return julian.JDToTime(start + (year-y)*(end-start)).UTC()
}

// FromTime is the inverse of ToTime.
func FromTime(t time.Time) float64 {
	t = t.UTC()
	y := t.Year()
	start := julian.CalendarGregorianToJD(y, 1, 1)
	end := julian.CalendarGregorianToJD(y+1, 1, 1)
	return float64(y) + (julian.TimeToJD(t)-start)/(end-start)
}

// HydroYearStartMonth returns the calendar month in which a hydrological year
// starts when the year is shifted by the given fraction (0.75 -> October).
func HydroYearStartMonth(shift float64) time.Month {
	frac := shift - math.Floor(shift)
	return time.Month(int(math.Floor(frac*12))%12 + 1)
}
