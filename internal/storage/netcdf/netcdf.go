// Package netcdf collects every fired balance field and writes them as a
// time series to a NetCDF file when the run finishes.
package netcdf

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/chrissnell/icemass/internal/grid"
	"github.com/chrissnell/icemass/internal/storage"
	"github.com/ctessum/cdf"
	"gonum.org/v1/gonum/mat"
)

// Sink buffers balance fields in memory until Close.
type Sink struct {
	path string

	mu     sync.Mutex
	rows   int
	cols   int
	years  []float64
	fields []*mat.Dense
}

func NewSink(path string) *Sink {
	return &Sink{path: path}
}

func (s *Sink) Name() string { return "netcdf" }

func (s *Sink) Store(_ context.Context, rec storage.Record, balance *mat.Dense) error {
	if balance == nil {
		return nil
	}
	r, c := balance.Dims()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fields) == 0 {
		s.rows, s.cols = r, c
	} else if r != s.rows || c != s.cols {
		return fmt.Errorf("netcdf: grid changed shape from %dx%d to %dx%d", s.rows, s.cols, r, c)
	}
	s.years = append(s.years, rec.Year)
	s.fields = append(s.fields, mat.DenseCopyOf(balance))
	return nil
}

// Close writes time(time) and smb(time,y,x). Nothing is written when no
// update was stored.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fields) == 0 {
		return nil
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("netcdf: %w", err)
	}
	defer f.Close()

	n := len(s.fields)
	h := cdf.NewHeader([]string{"time", "y", "x"}, []int{n, s.rows, s.cols})
	h.AddAttribute("", "comment", "Surface mass balance from the accumulation PDD model")
	h.AddVariable("time", []string{"time"}, []float64{0})
	h.AddAttribute("time", "units", "years")
	h.AddVariable("smb", []string{"time", "y", "x"}, []float32{0})
	h.AddAttribute("smb", "units", "m ice eq. / y")
	h.AddAttribute("smb", "description", "surface mass balance")
	h.Define()

	ff, err := cdf.Create(f, h)
	if err != nil {
		return fmt.Errorf("netcdf: creating %s: %w", s.path, err)
	}

	w := ff.Writer("time", []int{0}, []int{n})
	if _, err := w.Write(s.years); err != nil {
		return fmt.Errorf("netcdf: writing time: %w", err)
	}

	data := make([]float32, 0, n*s.rows*s.cols)
	for _, m := range s.fields {
		for _, v := range grid.Flat(m) {
			data = append(data, float32(v))
		}
	}
	w = ff.Writer("smb", []int{0, 0, 0}, []int{n, s.rows, s.cols})
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("netcdf: writing smb: %w", err)
	}

	if err := cdf.UpdateNumRecs(f); err != nil {
		return fmt.Errorf("netcdf: %w", err)
	}
	s.fields = nil
	s.years = nil
	return nil
}
