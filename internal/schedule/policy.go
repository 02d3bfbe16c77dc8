// Package schedule decides when a periodic process is due, in simulation time.
package schedule

import "math"

// Policy fires at most once per Interval simulated years. A fresh policy has
// never fired, so its first Due call is always true.
type Policy struct {
	interval float64
	last     float64
}

// NewPolicy returns a policy with the given interval in years.
func NewPolicy(interval float64) *Policy {
	return &Policy{
		interval: interval,
		last:     math.Inf(-1),
	}
}

// Due reports whether at least Interval years have elapsed since the last firing.
func (p *Policy) Due(t float64) bool {
	return t-p.last >= p.interval
}

// RecordFired marks t as the last firing time.
func (p *Policy) RecordFired(t float64) {
	p.last = t
}

// LastFired returns the last firing time, or -Inf if the policy never fired.
func (p *Policy) LastFired() float64 {
	return p.last
}

// Restore sets the last firing time, e.g. when resuming from a checkpoint.
func (p *Policy) Restore(last float64) {
	p.last = last
}
