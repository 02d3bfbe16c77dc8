// Package smb computes annual surface mass balance from climate forcing with a
// combined accumulation / temperature-index melt model (Hock, 2003). Snowpack
// bookkeeping, refreezing and the expectation form of the positive degree-day
// sum (Calov and Greve, 2005) follow PyPDD / PISM so results can be compared
// against those models.
package smb

import (
	"math"

	"github.com/chrissnell/icemass/internal/grid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// IceMaskSentinel is the balance (m ice eq. / y) forced onto off-glacier
	// cells whose computed balance is not negative.
	IceMaskSentinel = -10.0

	// maxSnowDepth caps the snowpack, in m water eq.
	maxSnowDepth = 1.0e10

	sqrt2   = 1.4142135623730951
	sqrt2Pi = 2.5066282746310002
)

// Result is the outcome of one mass-balance evaluation.
type Result struct {
	// SMB is the annual surface mass balance in m ice eq. / y.
	SMB *mat.Dense

	// Accumulation and Ablation are per-sample contributions in m water eq.,
	// indexed like the forcing (not in hydrological-year order). Ablation is
	// already reduced by the refreeze factor.
	Accumulation grid.Series
	Ablation     grid.Series

	// MinSnowDepth is the smallest snow depth seen after any step.
	MinSnowDepth float64
}

// SolidFraction is the share of precipitation falling as snow at temperature
// temp: 1 at or below snow, 0 at or above rain, linear in between.
func SolidFraction(temp, snow, rain float64) float64 {
	switch {
	case temp <= snow:
		return 1
	case temp >= rain:
		return 0
	default:
		return (rain - temp) / (rain - snow)
	}
}

// PositiveTemperature is max(temp, 0).
func PositiveTemperature(temp float64) float64 {
	if temp > 0 {
		return temp
	}
	return 0
}

// ExpectedPositiveTemperature is E[max(T,0)] for T ~ N(mean, sd²). A
// non-positive sd degenerates to PositiveTemperature(mean).
func ExpectedPositiveTemperature(mean, sd float64) float64 {
	if sd <= 0 {
		return PositiveTemperature(mean)
	}
	x := mean / (sqrt2 * sd)
	return sd*math.Exp(-x*x)/sqrt2Pi + mean*math.Erfc(-x)/2
}

// HydroIndex maps loop step i to the sample index when the year starts at
// fraction shift: (i + floor(n*shift)) mod n, always in [0,n).
func HydroIndex(i, n int, shift float64) int {
	k := (i + int(math.Floor(float64(n)*shift))) % n
	if k < 0 {
		k += n
	}
	return k
}

// stepAblation is the melt (m water eq.) for one step given the snowpack
// before melting and the step's positive degree-time.
func stepAblation(snowDepth, posTemp float64, p Params) float64 {
	switch {
	case snowDepth == 0:
		return posTemp * p.MeltFactorIce
	case posTemp*p.MeltFactorSnow < snowDepth:
		return posTemp * p.MeltFactorSnow
	default:
		// snow runs out mid-step; the remaining degree-time melts ice
		return snowDepth + (posTemp-snowDepth/p.MeltFactorSnow)*p.MeltFactorIce
	}
}

// Compute evaluates the mass balance for one year of forcing. m may be nil.
func Compute(p Params, f Forcing, m *Multiplier) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	n, rows, cols := f.Dims()
	if m != nil {
		if err := m.check(rows, cols); err != nil {
			return nil, err
		}
	}
	cells := rows * cols

	accumulation := make([][]float64, n)
	posTemp := make([][]float64, n)
	for k := 0; k < n; k++ {
		precip := grid.FlatCopy(f.Precipitation[k])
		if m != nil {
			m.apply(precip)
		}
		temp := grid.Flat(f.AirTemp[k])

		acc := make([]float64, cells)
		for c, tc := range temp {
			acc[c] = precip[c] * SolidFraction(tc, p.ThrTempSnow, p.ThrTempRain)
		}
		// kg m⁻² y⁻¹ water eq. -> m water eq. per step
		floats.Scale(1/(float64(n)*p.WaterDensity), acc)
		accumulation[k] = acc

		pos := make([]float64, cells)
		if f.AirTempSD != nil {
			sd := grid.Flat(f.AirTempSD[k])
			for c, tc := range temp {
				pos[c] = ExpectedPositiveTemperature(tc, sd[c])
			}
		} else {
			for c, tc := range temp {
				pos[c] = PositiveTemperature(tc)
			}
		}
		// °C -> °C y per step
		floats.Scale(1/float64(n), pos)
		posTemp[k] = pos
	}

	ablation := make([][]float64, n)
	snowDepth := make([]float64, cells)
	minSnow := math.Inf(1)
	for i := 0; i < n; i++ {
		k := HydroIndex(i, n, p.ShiftHydroYear)
		floats.Add(snowDepth, accumulation[k])

		abl := make([]float64, cells)
		for c := range snowDepth {
			abl[c] = stepAblation(snowDepth[c], posTemp[k][c], p)
			snowDepth[c] = math.Min(math.Max(snowDepth[c]-abl[c], 0), maxSnowDepth)
		}
		if v := floats.Min(snowDepth); v < minSnow {
			minSnow = v
		}
		ablation[k] = abl
	}

	balance := make([]float64, cells)
	for k := 0; k < n; k++ {
		floats.Scale(1-p.RefreezeFactor, ablation[k])
		floats.Add(balance, accumulation[k])
		floats.Sub(balance, ablation[k])
	}
	floats.Scale(p.WaterDensity/p.IceDensity, balance)

	if f.IceMask != nil {
		mask := grid.Flat(f.IceMask)
		for c, b := range balance {
			if !(b < 0 || mask[c] > 0.5) {
				balance[c] = IceMaskSentinel
			}
		}
	}

	res := &Result{
		SMB:          mat.NewDense(rows, cols, balance),
		Accumulation: make(grid.Series, n),
		Ablation:     make(grid.Series, n),
		MinSnowDepth: minSnow,
	}
	for k := 0; k < n; k++ {
		res.Accumulation[k] = mat.NewDense(rows, cols, accumulation[k])
		res.Ablation[k] = mat.NewDense(rows, cols, ablation[k])
	}
	return res, nil
}
