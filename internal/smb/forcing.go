package smb

import (
	"fmt"

	"github.com/chrissnell/icemass/internal/grid"
	"gonum.org/v1/gonum/mat"
)

// Forcing is one modelled year of climate input. Precipitation
// (kg m⁻² y⁻¹ water eq.) and AirTemp (°C) are required; AirTempSD and IceMask
// are optional and nil when absent.
type Forcing struct {
	Precipitation grid.Series
	AirTemp       grid.Series

	// AirTempSD switches the positive temperature to the Gaussian expectation.
	AirTempSD grid.Series

	// IceMask marks glacierized cells (> 0.5). Off-glacier cells with a
	// non-negative balance are forced to IceMaskSentinel.
	IceMask *mat.Dense
}

// Dims returns the sample count and grid shape of the forcing.
func (f Forcing) Dims() (n, rows, cols int) {
	return f.AirTemp.Dims()
}

// Validate checks that all present fields agree on the time axis and grid shape.
func (f Forcing) Validate() error {
	if len(f.Precipitation) == 0 || len(f.AirTemp) == 0 {
		return ErrNoForcing
	}
	if !f.Precipitation.Uniform() || !f.AirTemp.Uniform() {
		return fmt.Errorf("%w: ragged time series", ErrShapeMismatch)
	}

	n, rows, cols := f.AirTemp.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("%w: empty grid", ErrShapeMismatch)
	}
	if pn, pr, pc := f.Precipitation.Dims(); pn != n || pr != rows || pc != cols {
		return fmt.Errorf("%w: precipitation is %dx%dx%d, air temperature is %dx%dx%d",
			ErrShapeMismatch, pn, pr, pc, n, rows, cols)
	}
	if f.AirTempSD != nil {
		if !f.AirTempSD.Uniform() {
			return fmt.Errorf("%w: ragged temperature std series", ErrShapeMismatch)
		}
		if sn, sr, sc := f.AirTempSD.Dims(); sn != n || sr != rows || sc != cols {
			return fmt.Errorf("%w: temperature std is %dx%dx%d, air temperature is %dx%dx%d",
				ErrShapeMismatch, sn, sr, sc, n, rows, cols)
		}
	}
	if f.IceMask != nil {
		if mr, mc := f.IceMask.Dims(); mr != rows || mc != cols {
			return fmt.Errorf("%w: ice mask is %dx%d, grid is %dx%d", ErrShapeMismatch, mr, mc, rows, cols)
		}
	}
	return nil
}
