package smb

import (
	"fmt"
	"math"

	"github.com/chrissnell/icemass/internal/constants"
)

// Params holds the accumulation / temperature-index model coefficients.
type Params struct {
	// UpdateFreq is the minimum simulated time between updates, in years.
	UpdateFreq float64

	// RefreezeFactor is the fraction of meltwater that refreezes in place, in [0,1].
	RefreezeFactor float64

	// ThrTempSnow is the temperature (°C) at or below which all precipitation is solid.
	ThrTempSnow float64

	// ThrTempRain is the temperature (°C) at or above which all precipitation is liquid.
	ThrTempRain float64

	// MeltFactorSnow and MeltFactorIce are degree-day factors in m water eq. / (K year).
	MeltFactorSnow float64
	MeltFactorIce  float64

	// ShiftHydroYear is the fraction of the year at which the snowpack loop starts.
	// 0.75 starts on Oct 1 for monthly data beginning in January.
	ShiftHydroYear float64

	// IceDensity and WaterDensity are in kg/m³.
	IceDensity   float64
	WaterDensity float64
}

// DefaultParams returns the PyPDD/PISM-compatible defaults.
func DefaultParams() Params {
	return Params{
		UpdateFreq:     1,
		RefreezeFactor: 0.6,
		ThrTempSnow:    0.0,
		ThrTempRain:    2.0,
		MeltFactorSnow: 0.003 * constants.DaysPerYear,
		MeltFactorIce:  0.008 * constants.DaysPerYear,
		ShiftHydroYear: 0.75,
		IceDensity:     910.0,
		WaterDensity:   1000.0,
	}
}

// Validate rejects configurations the model cannot evaluate.
func (p Params) Validate() error {
	if p.ThrTempRain <= p.ThrTempSnow {
		return fmt.Errorf("%w: snow %.2f°C, rain %.2f°C", ErrThresholds, p.ThrTempSnow, p.ThrTempRain)
	}

	checks := []struct {
		name string
		ok   bool
	}{
		{"update frequency must be >= 0", p.UpdateFreq >= 0},
		{"refreeze factor must be within [0,1]", p.RefreezeFactor >= 0 && p.RefreezeFactor <= 1},
		{"snow melt factor must be > 0", p.MeltFactorSnow > 0},
		{"ice melt factor must be >= 0", p.MeltFactorIce >= 0},
		{"ice density must be > 0", p.IceDensity > 0},
		{"water density must be > 0", p.WaterDensity > 0},
		{"hydrological year shift must be finite", !math.IsNaN(p.ShiftHydroYear) && !math.IsInf(p.ShiftHydroYear, 0)},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s", ErrInvalidParam, c.name)
		}
	}
	return nil
}
