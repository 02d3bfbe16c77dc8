// Package app wires configuration into a running simulation: climate source,
// mass-balance updater, result sinks, the module chain and the REST server.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/icemass/internal/controllers/restserver"
	"github.com/chrissnell/icemass/internal/log"
	"github.com/chrissnell/icemass/internal/process"
	"github.com/chrissnell/icemass/internal/smb"
	"github.com/chrissnell/icemass/internal/storage"
	"github.com/chrissnell/icemass/pkg/config"
	"github.com/chrissnell/icemass/pkg/simtime"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	cfg    *config.ConfigData
	logger *zap.SugaredLogger
	runID  string

	memory     *storage.Memory
	dispatcher *storage.Dispatcher
	updater    *smb.Updater
	runner     *process.Runner
	state      *process.State
}

// Outcome summarizes a finished simulation.
type Outcome struct {
	RunID   string
	Steps   int
	Updates int
	Volume  float64
	Final   *process.State
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:    cfg,
		logger: log.OrNop(logger),
		runID:  uuid.NewString(),
	}
}

// RunID identifies this run in every stored record.
func (a *App) RunID() string {
	return a.runID
}

// Run simulates the configured period. With a REST server configured it
// keeps serving the results until a shutdown signal arrives.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			a.logger.Info("shutdown signal received, initiating graceful shutdown...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := a.setup(ctx); err != nil {
		return err
	}

	if a.cfg.REST != nil {
		ctrl, err := restserver.NewController(ctx, &wg, *a.cfg.REST, a.memory, a.dispatcher.Health(), a.logger)
		if err != nil {
			return err
		}
		if err := ctrl.StartController(); err != nil {
			return err
		}
	}

	outcome, err := a.simulate(ctx)
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}
	a.logger.Infow("simulation complete",
		"run_id", outcome.RunID, "steps", outcome.Steps, "updates", outcome.Updates,
		"volume_km3", outcome.Volume)

	if a.cfg.REST != nil {
		a.logger.Info("serving results; send SIGINT or SIGTERM to stop")
		<-ctx.Done()
	}

	cancel()
	a.logger.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.logger.Info("shutdown complete")
	return nil
}

// Simulate builds every component, runs the module chain once and closes
// the sinks. No REST server is started.
func (a *App) Simulate(ctx context.Context) (*Outcome, error) {
	if err := a.setup(ctx); err != nil {
		return nil, err
	}
	return a.simulate(ctx)
}

func (a *App) setup(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	source, err := buildSource(a.cfg.Forcing)
	if err != nil {
		return err
	}

	multiplier, err := buildMultiplier(a.cfg.SMB)
	if err != nil {
		return err
	}

	a.updater, err = smb.NewUpdater(a.cfg.SMB.Params(), multiplier, a.logger)
	if err != nil {
		return err
	}

	initial, err := initialThickness(a.cfg, source)
	if err != nil {
		return err
	}
	start, err := a.restore(initial.Dims())
	if err != nil {
		return err
	}

	a.memory = storage.NewMemory(a.cfg.Storage.HistorySize)
	sinks, err := buildSinks(ctx, a.cfg.Storage, a.logger)
	if err != nil {
		return err
	}
	a.dispatcher = storage.NewDispatcher(storage.NewHealthManager(), a.logger, append([]storage.Sink{a.memory}, sinks...)...)

	a.runner = process.NewRunner(a.logger,
		&process.ClimateModule{Source: source, UseDerivedMask: a.cfg.Glacier.UseDerivedMask},
		&process.SMBModule{Updater: a.updater, OnUpdate: a.store},
		&process.ThicknessModule{InitialThickness: initial},
	)
	a.state = &process.State{
		Start: start,
		End:   a.cfg.Simulation.End,
		DT:    a.cfg.Simulation.Step,
		DX:    a.cfg.Glacier.CellSize,
	}

	a.logger.Infow("simulation configured",
		"run_id", a.runID, "name", a.cfg.Simulation.Name,
		"start", a.state.Start, "end", a.state.End, "step", a.state.DT,
		"hydro_year_start", simtime.HydroYearStartMonth(a.cfg.SMB.ShiftHydroYear).String(),
		"forcing", a.cfg.Forcing.Type, "sinks", len(sinks)+1)
	return nil
}

func (a *App) simulate(ctx context.Context) (*Outcome, error) {
	runErr := a.runner.Run(ctx, a.state)
	if err := a.dispatcher.Close(); err != nil {
		a.logger.Errorf("closing sinks: %v", err)
		if runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return nil, runErr
	}

	return &Outcome{
		RunID:   a.runID,
		Steps:   a.state.Step,
		Updates: len(a.updater.Timings()),
		Volume:  process.Volume(a.state),
		Final:   a.state,
	}, nil
}

// store hands a fired update to the sinks. Sink failures are logged and
// tracked in the health manager but do not stop the run.
func (a *App) store(ctx context.Context, s *process.State) error {
	timings := a.updater.Timings()
	rec := storage.Record{
		RunID:   a.runID,
		Year:    s.T,
		Time:    simtime.ToTime(s.T),
		Summary: smb.Summarize(s.SMB, s.Forcing.IceMask),
	}
	if len(timings) > 0 {
		rec.Elapsed = timings[len(timings)-1]
	}
	if res := a.updater.LastResult(); res != nil {
		rec.MinSnowDepth = res.MinSnowDepth
	}
	_ = a.dispatcher.Store(ctx, rec, s.SMB)
	return nil
}
