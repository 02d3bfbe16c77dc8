// Package constants defines application-wide constants and version information.
package constants

import "runtime"

// Version holds the application version information
const Version = "1.2-" + runtime.GOOS + "/" + runtime.GOARCH

// DaysPerYear is the tropical year length used to convert daily degree-day
// factors into the per-year factors the mass-balance model works with.
const DaysPerYear = 365.242198781
