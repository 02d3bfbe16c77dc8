// Package process runs a chain of simulation modules over a shared state:
// every initializer in order, then each module's Update once per time step,
// then every finalizer.
package process

import (
	"context"
	"fmt"

	"github.com/chrissnell/icemass/internal/grid"
	"github.com/chrissnell/icemass/internal/log"
	"github.com/chrissnell/icemass/internal/smb"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Module is one physical process or bookkeeping step in the chain.
type Module interface {
	Name() string
	Initialize(ctx context.Context, s *State) error
	Update(ctx context.Context, s *State) error
	Finalize(ctx context.Context, s *State) error
}

// State is shared by all modules of a run. Times are decimal years.
type State struct {
	T     float64
	DT    float64
	Start float64
	End   float64

	// DX is the grid cell size in m.
	DX float64

	// Thickness is the ice thickness in m; nil until a module sets it.
	Thickness *mat.Dense

	// SMB is the latest surface mass balance in m ice eq. / y.
	SMB *mat.Dense

	// IceMask is 1 where Thickness > 0.
	IceMask *mat.Dense

	Forcing smb.Forcing

	// Step counts completed time steps.
	Step int
}

// Runner drives modules through a State.
type Runner struct {
	modules []Module
	logger  *zap.SugaredLogger
}

func NewRunner(logger *zap.SugaredLogger, modules ...Module) *Runner {
	return &Runner{modules: modules, logger: log.OrNop(logger)}
}

// Run steps s.T from s.Start while it is below s.End. T is recomputed from
// the step count so that DT rounding does not accumulate. Cancellation is
// checked between steps; finalizers still run when the context is done.
func (r *Runner) Run(ctx context.Context, s *State) error {
	if s.DT <= 0 {
		return fmt.Errorf("process: time step must be positive, got %g", s.DT)
	}

	r.logger.Infof("initializing %d modules", len(r.modules))
	for _, m := range r.modules {
		if err := m.Initialize(ctx, s); err != nil {
			return fmt.Errorf("process: initializing %s: %w", m.Name(), err)
		}
	}

	var runErr error
	s.T = s.Start
	for s.Step = 0; s.T < s.End; {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		for _, m := range r.modules {
			if err := m.Update(ctx, s); err != nil {
				runErr = fmt.Errorf("process: %s at t=%g: %w", m.Name(), s.T, err)
				break
			}
		}
		if runErr != nil {
			break
		}
		s.Step++
		s.T = s.Start + float64(s.Step)*s.DT
	}
	r.logger.Infof("stepped %d times, t=%g", s.Step, s.T)

	for _, m := range r.modules {
		if err := m.Finalize(ctx, s); err != nil && runErr == nil {
			runErr = fmt.Errorf("process: finalizing %s: %w", m.Name(), err)
		}
	}
	return runErr
}

// Volume returns the ice volume in km³.
func Volume(s *State) float64 {
	if s.Thickness == nil {
		return 0
	}
	return floats.Sum(grid.Flat(s.Thickness)) * s.DX * s.DX / 1e9
}
