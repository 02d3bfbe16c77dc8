package smb

import (
	"fmt"
	"time"

	"github.com/chrissnell/icemass/internal/log"
	"github.com/chrissnell/icemass/internal/schedule"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Updater recomputes the mass balance whenever its schedule is due and keeps
// the latest field for downstream processes. It is not safe for concurrent use.
type Updater struct {
	params     Params
	policy     *schedule.Policy
	multiplier *Multiplier
	logger     *zap.SugaredLogger

	smb     *mat.Dense
	last    *Result
	timings []time.Duration

	now func() time.Time
}

// NewUpdater validates p and returns an updater that has never fired.
// multiplier and logger may be nil.
func NewUpdater(p Params, multiplier *Multiplier, logger *zap.SugaredLogger) (*Updater, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Updater{
		params:     p,
		policy:     schedule.NewPolicy(p.UpdateFreq),
		multiplier: multiplier,
		logger:     log.OrNop(logger),
		now:        time.Now,
	}, nil
}

// Params returns the model parameters.
func (u *Updater) Params() Params {
	return u.params
}

// Update recomputes the balance at simulation time t (years) if the update
// interval has elapsed since the last update. It reports whether it fired.
// When not due, or when the computation fails, no state is changed.
func (u *Updater) Update(t float64, f Forcing) (bool, error) {
	if !u.policy.Due(t) {
		return false, nil
	}

	start := u.now()
	u.logger.Infow("constructing mass balance", "time", t)
	if u.multiplier != nil {
		u.logger.Debugw("applying precipitation multiplier", "grid", u.multiplier.IsGrid())
	}

	res, err := Compute(u.params, f, u.multiplier)
	if err != nil {
		return false, fmt.Errorf("mass balance at t=%g: %w", t, err)
	}

	u.smb = res.SMB
	u.last = res
	u.policy.RecordFired(t)
	u.timings = append(u.timings, u.now().Sub(start))
	return true, nil
}

// SMB returns the latest balance field (m ice eq. / y), or nil before the
// first update.
func (u *Updater) SMB() *mat.Dense {
	return u.smb
}

// LastResult returns the full result of the latest update, or nil.
func (u *Updater) LastResult() *Result {
	return u.last
}

// LastUpdate returns the simulation time of the latest update, -Inf if none.
func (u *Updater) LastUpdate() float64 {
	return u.policy.LastFired()
}

// Timings returns the wall-clock duration of every update so far.
func (u *Updater) Timings() []time.Duration {
	out := make([]time.Duration, len(u.timings))
	copy(out, u.timings)
	return out
}

// Restore seeds the updater from a checkpoint: the last update time and the
// balance field computed then.
func (u *Updater) Restore(lastUpdate float64, smb *mat.Dense) {
	u.policy.Restore(lastUpdate)
	u.smb = smb
}
