package smb

import (
	"github.com/chrissnell/icemass/internal/grid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Summary condenses a balance field into domain statistics (m ice eq. / y).
type Summary struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Total float64 `json:"total"`

	// GlacierCells counts cells with mask > 0.5; GlacierMean averages over them.
	GlacierCells int     `json:"glacier_cells"`
	GlacierMean  float64 `json:"glacier_mean"`
}

// Summarize computes statistics for balance. mask may be nil.
func Summarize(balance, mask *mat.Dense) Summary {
	values := grid.Flat(balance)
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{
		Mean:  stat.Mean(values, nil),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		Total: floats.Sum(values),
	}
	if mask == nil || !grid.SameDims(balance, mask) {
		return s
	}

	var onIce []float64
	for c, m := range grid.Flat(mask) {
		if m > 0.5 {
			onIce = append(onIce, values[c])
		}
	}
	s.GlacierCells = len(onIce)
	if len(onIce) > 0 {
		s.GlacierMean = stat.Mean(onIce, nil)
	}
	return s
}
