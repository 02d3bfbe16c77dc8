// Package grid holds the dense field types the mass-balance model works on:
// H x W planes backed by gonum matrices, and time-indexed stacks of them.
package grid

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Series is a stack of H x W planes, one per sub-annual sample.
type Series []*mat.Dense

// NewSeries allocates n zeroed planes of rows x cols.
func NewSeries(n, rows, cols int) Series {
	s := make(Series, n)
	for k := range s {
		s[k] = mat.NewDense(rows, cols, nil)
	}
	return s
}

// ConstantSeries returns n planes filled with v.
func ConstantSeries(n, rows, cols int, v float64) Series {
	s := make(Series, n)
	for k := range s {
		s[k] = Constant(rows, cols, v)
	}
	return s
}

// FromFlat builds a series from row-major time x rows x cols data.
func FromFlat(n, rows, cols int, data []float64) (Series, error) {
	if len(data) != n*rows*cols {
		return nil, fmt.Errorf("grid: %d values do not fill %dx%dx%d", len(data), n, rows, cols)
	}
	s := make(Series, n)
	plane := rows * cols
	for k := range s {
		buf := make([]float64, plane)
		copy(buf, data[k*plane:(k+1)*plane])
		s[k] = mat.NewDense(rows, cols, buf)
	}
	return s, nil
}

// Dims returns the sample count and the plane shape. An empty series is 0,0,0.
func (s Series) Dims() (n, rows, cols int) {
	if len(s) == 0 || s[0] == nil {
		return 0, 0, 0
	}
	rows, cols = s[0].Dims()
	return len(s), rows, cols
}

// Uniform reports whether every plane is non-nil and shares the first plane's shape.
func (s Series) Uniform() bool {
	_, rows, cols := s.Dims()
	for _, p := range s {
		if p == nil {
			return false
		}
		if r, c := p.Dims(); r != rows || c != cols {
			return false
		}
	}
	return true
}

// Constant returns a rows x cols plane filled with v.
func Constant(rows, cols int, v float64) *mat.Dense {
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = v
	}
	return mat.NewDense(rows, cols, data)
}

// Flat returns the plane's values in row-major order. The slice aliases the
// matrix storage when it is contiguous and is a copy otherwise.
func Flat(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		out = append(out, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols]...)
	}
	return out
}

// FlatCopy is Flat without aliasing.
func FlatCopy(m *mat.Dense) []float64 {
	src := Flat(m)
	out := make([]float64, len(src))
	copy(out, src)
	return out
}

// SameDims reports whether a and b have identical shapes.
func SameDims(a, b mat.Matrix) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}
