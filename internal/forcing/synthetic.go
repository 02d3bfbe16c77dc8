package forcing

import (
	"fmt"
	"math"

	"github.com/chrissnell/icemass/internal/grid"
	"github.com/chrissnell/icemass/internal/smb"
	"gonum.org/v1/gonum/mat"
)

// Synthetic generates an idealized climate over an elevation grid: a seasonal
// cosine cycle (coldest at the start of the calendar year), a linear lapse
// rate and uniform precipitation. It is used for experiments and tests where
// no reanalysis data is at hand.
type Synthetic struct {
	// Elevation is the surface elevation in m.
	Elevation *mat.Dense

	// Samples is the number of sub-annual samples (12 for monthly).
	Samples int

	// MeanTemp is the annual mean temperature (°C) at RefElevation.
	MeanTemp     float64
	RefElevation float64

	// Amplitude is half the seasonal temperature range in °C.
	Amplitude float64

	// LapseRate is the temperature change per metre of elevation (°C/m), usually negative.
	LapseRate float64

	// WarmingRate shifts temperatures by °C per year after BaseYear.
	WarmingRate float64
	BaseYear    float64

	// Precipitation in kg m⁻² y⁻¹ water eq.
	Precipitation float64

	// TempSD enables the Gaussian positive-temperature expectation when > 0.
	TempSD float64

	// IceMask is passed through unchanged; may be nil.
	IceMask *mat.Dense
}

// RampElevation builds a rows x cols elevation grid rising by gradient metres
// per row from base.
func RampElevation(rows, cols int, base, gradient float64) *mat.Dense {
	e := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			e.Set(i, j, base+gradient*float64(i))
		}
	}
	return e
}

// MaskAbove marks cells whose elevation is at least threshold.
func MaskAbove(elevation *mat.Dense, threshold float64) *mat.Dense {
	rows, cols := elevation.Dims()
	m := mat.NewDense(rows, cols, nil)
	m.Apply(func(i, j int, v float64) float64 {
		if v >= threshold {
			return 1
		}
		return 0
	}, elevation)
	return m
}

// Forcing builds the annual forcing for year t.
func (s *Synthetic) Forcing(t float64) (smb.Forcing, error) {
	if s.Elevation == nil {
		return smb.Forcing{}, fmt.Errorf("forcing: synthetic climate has no elevation grid")
	}
	if s.Samples <= 0 {
		return smb.Forcing{}, fmt.Errorf("forcing: synthetic climate needs at least one sample per year, got %d", s.Samples)
	}
	rows, cols := s.Elevation.Dims()
	n := s.Samples

	f := smb.Forcing{
		Precipitation: grid.ConstantSeries(n, rows, cols, s.Precipitation),
		AirTemp:       grid.NewSeries(n, rows, cols),
		IceMask:       s.IceMask,
	}
	if s.TempSD > 0 {
		f.AirTempSD = grid.ConstantSeries(n, rows, cols, s.TempSD)
	}

	offset := s.MeanTemp + s.WarmingRate*(t-s.BaseYear)
	for k := 0; k < n; k++ {
		season := -s.Amplitude * math.Cos(2*math.Pi*(float64(k)+0.5)/float64(n))
		f.AirTemp[k].Apply(func(i, j int, _ float64) float64 {
			return offset + season + s.LapseRate*(s.Elevation.At(i, j)-s.RefElevation)
		}, f.AirTemp[k])
	}
	return f, nil
}
