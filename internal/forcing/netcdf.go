package forcing

import (
	"fmt"
	"os"

	"github.com/chrissnell/icemass/internal/grid"
	"github.com/chrissnell/icemass/internal/smb"
	"github.com/ctessum/cdf"
	"gonum.org/v1/gonum/mat"
)

// Variables names the NetCDF variables a climate file is read from. Empty
// optional names mean the field is absent.
type Variables struct {
	Precipitation string
	AirTemp       string
	AirTempSD     string
	IceMask       string
}

// DefaultVariables returns the variable names written by the climate
// preprocessing tools.
func DefaultVariables() Variables {
	return Variables{
		Precipitation: "precipitation",
		AirTemp:       "air_temp",
	}
}

// NetCDFSource serves a climatology read once from a NetCDF file: the same
// annual cycle is returned for every simulation year.
type NetCDFSource struct {
	filename string
	forcing  smb.Forcing
}

// NewNetCDFSource reads every configured variable from filename. Missing
// files or variables, and inconsistent shapes, are errors here rather than
// at the first update.
func NewNetCDFSource(filename string, vars Variables) (*NetCDFSource, error) {
	ff, closeFn, err := openNCF(filename)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var f smb.Forcing
	if f.Precipitation, err = readSeries(ff, vars.Precipitation); err != nil {
		return nil, fmt.Errorf("forcing: %s: %w", filename, err)
	}
	if f.AirTemp, err = readSeries(ff, vars.AirTemp); err != nil {
		return nil, fmt.Errorf("forcing: %s: %w", filename, err)
	}
	if vars.AirTempSD != "" {
		if f.AirTempSD, err = readSeries(ff, vars.AirTempSD); err != nil {
			return nil, fmt.Errorf("forcing: %s: %w", filename, err)
		}
	}
	if vars.IceMask != "" {
		if f.IceMask, err = readPlane(ff, vars.IceMask); err != nil {
			return nil, fmt.Errorf("forcing: %s: %w", filename, err)
		}
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("forcing: %s: %w", filename, err)
	}

	return &NetCDFSource{filename: filename, forcing: f}, nil
}

// Forcing returns the stored climatology regardless of t.
func (s *NetCDFSource) Forcing(float64) (smb.Forcing, error) {
	return s.forcing, nil
}

// LoadMultiplier reads a precipitation multiplier variable. A single-valued
// variable is broadcast over the grid; otherwise the last two dimensions are
// taken as y, x and any leading dimensions must have length 1.
func LoadMultiplier(filename, variable string) (*smb.Multiplier, error) {
	ff, closeFn, err := openNCF(filename)
	if err != nil {
		return nil, fmt.Errorf("precipitation multiplier: %w", err)
	}
	defer closeFn()

	values, dims, err := readVariable(ff, variable)
	if err != nil {
		return nil, fmt.Errorf("precipitation multiplier: %s: %w", filename, err)
	}
	if len(values) == 1 {
		return smb.ScalarMultiplier(values[0]), nil
	}
	rows, cols, err := planeDims(dims)
	if err != nil {
		return nil, fmt.Errorf("precipitation multiplier: %s: %w", filename, err)
	}
	return smb.GridMultiplier(mat.NewDense(rows, cols, values)), nil
}

func openNCF(filename string) (*cdf.File, func(), error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("opening netcdf file: %w", err)
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("reading netcdf header of %s: %w", filename, err)
	}
	return ff, func() { f.Close() }, nil
}

func hasVariable(ff *cdf.File, name string) bool {
	for _, v := range ff.Header.Variables() {
		if v == name {
			return true
		}
	}
	return false
}

// readVariable reads a whole variable as float64 along with its dimension lengths.
func readVariable(ff *cdf.File, name string) ([]float64, []int, error) {
	if name == "" || !hasVariable(ff, name) {
		return nil, nil, fmt.Errorf("variable %q not in file", name)
	}
	dims := ff.Header.Lengths(name)

	r := ff.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, nil, fmt.Errorf("reading variable %s: %w", name, err)
	}

	var out []float64
	switch v := buf.(type) {
	case []float32:
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	case []float64:
		out = v
	case []int32:
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	case []int16:
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	case []int8:
		out = make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
	default:
		return nil, nil, fmt.Errorf("variable %s has unsupported type %T", name, buf)
	}
	return out, dims, nil
}

func readSeries(ff *cdf.File, name string) (grid.Series, error) {
	values, dims, err := readVariable(ff, name)
	if err != nil {
		return nil, err
	}
	if len(dims) != 3 {
		return nil, fmt.Errorf("variable %s has %d dimensions, expected time, y, x", name, len(dims))
	}
	return grid.FromFlat(dims[0], dims[1], dims[2], values)
}

func readPlane(ff *cdf.File, name string) (*mat.Dense, error) {
	values, dims, err := readVariable(ff, name)
	if err != nil {
		return nil, err
	}
	rows, cols, err := planeDims(dims)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	return mat.NewDense(rows, cols, values), nil
}

func planeDims(dims []int) (int, int, error) {
	if len(dims) < 2 {
		return 0, 0, fmt.Errorf("expected at least y, x dimensions, got %v", dims)
	}
	for _, d := range dims[:len(dims)-2] {
		if d != 1 {
			return 0, 0, fmt.Errorf("leading dimensions %v must have length 1", dims[:len(dims)-2])
		}
	}
	rows, cols := dims[len(dims)-2], dims[len(dims)-1]
	if rows == 0 || cols == 0 {
		return 0, 0, fmt.Errorf("empty grid %v", dims)
	}
	return rows, cols, nil
}
