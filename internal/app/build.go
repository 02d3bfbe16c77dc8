package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"

	"github.com/chrissnell/icemass/internal/forcing"
	"github.com/chrissnell/icemass/internal/grid"
	"github.com/chrissnell/icemass/internal/smb"
	"github.com/chrissnell/icemass/internal/storage"
	"github.com/chrissnell/icemass/internal/storage/checkpoint"
	"github.com/chrissnell/icemass/internal/storage/netcdf"
	"github.com/chrissnell/icemass/internal/storage/timescaledb"
	"github.com/chrissnell/icemass/pkg/config"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

func buildSource(c config.ForcingData) (forcing.Source, error) {
	switch c.Type {
	case config.ForcingNetCDF:
		vars := forcing.Variables{
			Precipitation: c.NetCDF.Precipitation,
			AirTemp:       c.NetCDF.AirTemp,
			AirTempSD:     c.NetCDF.AirTempSD,
			IceMask:       c.NetCDF.IceMask,
		}
		return forcing.NewNetCDFSource(c.NetCDF.File, vars)
	case config.ForcingSynthetic:
		s := c.Synthetic
		elev := forcing.RampElevation(s.Rows, s.Cols, s.BaseElevation, s.ElevationGradient)
		syn := &forcing.Synthetic{
			Elevation:     elev,
			Samples:       s.Samples,
			MeanTemp:      s.MeanTemp,
			RefElevation:  s.RefElevation,
			Amplitude:     s.Amplitude,
			LapseRate:     s.LapseRate,
			WarmingRate:   s.WarmingRate,
			BaseYear:      s.BaseYear,
			Precipitation: s.Precipitation,
			TempSD:        s.TempSD,
		}
		if s.GlacierAbove > 0 {
			syn.IceMask = forcing.MaskAbove(elev, s.GlacierAbove)
		}
		return syn, nil
	}
	return nil, fmt.Errorf("unknown forcing type %q", c.Type)
}

// buildMultiplier loads the precipitation multiplier. A configured file that
// cannot be read is an error.
func buildMultiplier(c config.SMBData) (*smb.Multiplier, error) {
	if c.OffsetInputFile == "" {
		return nil, nil
	}
	m, err := forcing.LoadMultiplier(c.OffsetInputFile, c.MultiplierVariable)
	if err != nil {
		return nil, fmt.Errorf("loading precipitation multiplier: %w", err)
	}
	return m, nil
}

func buildSinks(ctx context.Context, c config.StorageData, logger *zap.SugaredLogger) ([]storage.Sink, error) {
	var sinks []storage.Sink
	if c.TimescaleDB != nil {
		ts, err := timescaledb.New(ctx, c.TimescaleDB.ConnectionString, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, ts)
	}
	if c.Checkpoint != nil {
		sinks = append(sinks, checkpoint.NewSink(c.Checkpoint.Path))
	}
	if c.NetCDF != nil {
		sinks = append(sinks, netcdf.NewSink(c.NetCDF.File))
	}
	return sinks, nil
}

// restore seeds the updater from the checkpoint when resuming and returns
// the simulation time to start from. A missing checkpoint file starts the run
// fresh at simulation.start. On resume the run starts at the first configured
// step strictly after the checkpointed update.
func (a *App) restore(rows, cols int) (float64, error) {
	sim := a.cfg.Simulation
	cp := a.cfg.Storage.Checkpoint
	if cp == nil || !cp.Resume {
		return sim.Start, nil
	}

	snap, err := checkpoint.Load(cp.Path)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Infof("no checkpoint at %s; starting fresh", cp.Path)
		return sim.Start, nil
	}
	if err != nil {
		return 0, err
	}
	g, err := snap.Grid()
	if err != nil {
		return 0, err
	}
	if snap.Rows != rows || snap.Cols != cols {
		return 0, fmt.Errorf("checkpoint %s holds a %dx%d grid, forcing is %dx%d: %w",
			cp.Path, snap.Rows, snap.Cols, rows, cols, smb.ErrShapeMismatch)
	}

	start := resumeStart(sim.Start, sim.Step, snap.LastUpdate)
	if start >= sim.End {
		return 0, fmt.Errorf("checkpoint %s was saved at t=%g; nothing left to simulate before simulation.end (%g)",
			cp.Path, snap.LastUpdate, sim.End)
	}
	if start != sim.Start {
		a.logger.Warnf("checkpoint saved at t=%g; moving simulation start from %g to %g",
			snap.LastUpdate, sim.Start, start)
	}

	a.updater.Restore(snap.LastUpdate, g)
	a.logger.Infow("resumed from checkpoint", "path", cp.Path, "previous_run", snap.RunID,
		"last_update", snap.LastUpdate, "start", start)
	return start, nil
}

// resumeStart returns the first time start+k*step (k >= 0) strictly after last.
func resumeStart(start, step, last float64) float64 {
	if last < start {
		return start
	}
	k := math.Floor((last-start)/step+1e-9) + 1
	return start + k*step
}

// initialThickness spreads the configured thickness over the forcing grid.
func initialThickness(c *config.ConfigData, source forcing.Source) (*mat.Dense, error) {
	f, err := source.Forcing(c.Simulation.Start)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	_, rows, cols := f.Dims()
	return grid.Constant(rows, cols, c.Glacier.InitialThickness), nil
}
