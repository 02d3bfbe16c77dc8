// Package forcing supplies the climate fields the mass-balance model consumes:
// precipitation and air temperature for one modelled year, plus optional
// temperature variability, ice mask and precipitation multiplier.
package forcing

import "github.com/chrissnell/icemass/internal/smb"

// Source returns the annual forcing to use at simulation time t (years).
type Source interface {
	Forcing(t float64) (smb.Forcing, error)
}
