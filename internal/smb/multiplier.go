package smb

import (
	"fmt"

	"github.com/chrissnell/icemass/internal/grid"
	"gonum.org/v1/gonum/mat"
)

// Multiplier is a static precipitation correction, either one value for the
// whole domain or a per-cell map (e.g. per catchment).
type Multiplier struct {
	scalar float64
	grid   *mat.Dense
}

// ScalarMultiplier broadcasts v over every cell.
func ScalarMultiplier(v float64) *Multiplier {
	return &Multiplier{scalar: v}
}

// GridMultiplier applies g cell by cell. g must match the forcing grid.
func GridMultiplier(g *mat.Dense) *Multiplier {
	return &Multiplier{grid: g}
}

// IsGrid reports whether the multiplier is a per-cell map.
func (m *Multiplier) IsGrid() bool {
	return m.grid != nil
}

func (m *Multiplier) check(rows, cols int) error {
	if m.grid == nil {
		return nil
	}
	if r, c := m.grid.Dims(); r != rows || c != cols {
		return fmt.Errorf("%w: precipitation multiplier is %dx%d, grid is %dx%d", ErrShapeMismatch, r, c, rows, cols)
	}
	return nil
}

// apply scales precip (row-major, one plane) in place.
func (m *Multiplier) apply(precip []float64) {
	if m.grid == nil {
		for i := range precip {
			precip[i] *= m.scalar
		}
		return
	}
	factors := grid.Flat(m.grid)
	for i := range precip {
		precip[i] *= factors[i]
	}
}
