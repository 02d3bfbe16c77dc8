package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/chrissnell/icemass/internal/log"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Dispatcher fans each record out to every sink, tracking their health. A
// failing sink does not stop the others.
type Dispatcher struct {
	sinks  []Sink
	health *HealthManager
	logger *zap.SugaredLogger
}

// NewDispatcher creates a dispatcher over sinks. logger may be nil.
func NewDispatcher(health *HealthManager, logger *zap.SugaredLogger, sinks ...Sink) *Dispatcher {
	if health == nil {
		health = NewHealthManager()
	}
	return &Dispatcher{
		sinks:  sinks,
		health: health,
		logger: log.OrNop(logger),
	}
}

// Health returns the health manager the dispatcher reports into.
func (d *Dispatcher) Health() *HealthManager {
	return d.health
}

// Store sends rec to all sinks and returns the joined errors, if any.
func (d *Dispatcher) Store(ctx context.Context, rec Record, balance *mat.Dense) error {
	var errs []error
	for _, s := range d.sinks {
		err := s.Store(ctx, rec, balance)
		d.health.Record(s.Name(), err)
		if err != nil {
			d.logger.Errorf("storing mass balance at t=%g in %s: %v", rec.Year, s.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
