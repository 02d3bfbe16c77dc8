// Package storage defines the sinks that receive mass-balance updates and the
// dispatcher that fans each update out to them.
package storage

import (
	"context"
	"time"

	"github.com/chrissnell/icemass/internal/smb"
	"gonum.org/v1/gonum/mat"
)

// Record describes one fired mass-balance update.
type Record struct {
	RunID   string        `json:"run_id"`
	Year    float64       `json:"year"`
	Time    time.Time     `json:"time"`
	Summary smb.Summary   `json:"summary"`
	Elapsed time.Duration `json:"elapsed"`

	// MinSnowDepth is the thinnest snowpack (m water eq.) seen during the update.
	MinSnowDepth float64 `json:"min_snow_depth"`
}

// Sink persists or publishes updates. The grid is the balance field in
// m ice eq. / y and must not be retained without copying.
type Sink interface {
	Name() string
	Store(ctx context.Context, rec Record, balance *mat.Dense) error
	Close() error
}
