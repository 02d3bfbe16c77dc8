package process

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/icemass/internal/forcing"
	"github.com/chrissnell/icemass/internal/grid"
	"github.com/chrissnell/icemass/internal/smb"
)

const epsilon = 1e-9

// coldClimate is a 5 x 5 glacier at a constant -5 °C receiving 1000 kg m⁻² y⁻¹.
func coldClimate() *forcing.Synthetic {
	return &forcing.Synthetic{
		Elevation:     grid.Constant(5, 5, 2000),
		Samples:       12,
		MeanTemp:      -5,
		RefElevation:  2000,
		Precipitation: 1000,
	}
}

func newChain(t *testing.T, p smb.Params, src forcing.Source, onUpdate func(context.Context, *State) error) (*Runner, *smb.Updater) {
	t.Helper()
	u, err := smb.NewUpdater(p, nil, nil)
	if err != nil {
		t.Fatalf("NewUpdater: %v", err)
	}
	r := NewRunner(nil,
		&ClimateModule{Source: src},
		&SMBModule{Updater: u, OnUpdate: onUpdate},
		&ThicknessModule{InitialThickness: grid.Constant(5, 5, 100)},
	)
	return r, u
}

func TestHarnessVolume(t *testing.T) {
	tests := []struct {
		name       string
		updateFreq float64
		fires      int
	}{
		{"every step", 1, 10},
		{"every other step", 2, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := smb.DefaultParams()
			p.UpdateFreq = tc.updateFreq

			calls := 0
			r, u := newChain(t, p, coldClimate(), func(context.Context, *State) error {
				calls++
				return nil
			})
			s := &State{Start: 0, End: 10, DT: 1, DX: 100}
			if err := r.Run(context.Background(), s); err != nil {
				t.Fatalf("Run: %v", err)
			}

			if s.Step != 10 {
				t.Errorf("Step = %d, expected 10", s.Step)
			}
			if calls != tc.fires || len(u.Timings()) != tc.fires {
				t.Errorf("fired %d times (%d timings), expected %d", calls, len(u.Timings()), tc.fires)
			}

			// 1 m w.e. of snow per year, no melt: 100 + 10*1000/910 m over 25 cells of 100 m
			expected := 25 * (100 + 10*1000.0/910) * 100 * 100 / 1e9
			vol := Volume(s)
			if math.Abs(vol-expected) > epsilon {
				t.Errorf("Volume = %v, expected %v", vol, expected)
			}
			if vol < 0.027 || vol > 0.0285 {
				t.Errorf("Volume %v outside tolerance bounds [0.027, 0.0285]", vol)
			}
		})
	}
}

func TestThicknessNeverNegative(t *testing.T) {
	climate := coldClimate()
	climate.MeanTemp = 15

	r, _ := newChain(t, smb.DefaultParams(), climate, nil)
	s := &State{Start: 2000, End: 2010, DT: 1, DX: 100}
	if err := r.Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v := Volume(s); v != 0 {
		t.Errorf("Volume = %v, expected the glacier to have melted away", v)
	}
	for _, v := range grid.Flat(s.IceMask) {
		if v != 0 {
			t.Fatalf("ice mask should be empty once thickness is zero")
		}
	}
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r, _ := newChain(t, smb.DefaultParams(), coldClimate(), func(context.Context, *State) error {
		cancel()
		return nil
	})

	s := &State{Start: 0, End: 10, DT: 1, DX: 100}
	err := r.Run(ctx, s)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, expected context.Canceled", err)
	}
	if s.Step != 1 {
		t.Errorf("Step = %d, expected the run to stop after the first step", s.Step)
	}
}

type recordingModule struct {
	name   string
	events *[]string
	fail   error
}

func (m *recordingModule) Name() string { return m.name }
func (m *recordingModule) Initialize(context.Context, *State) error {
	*m.events = append(*m.events, m.name+":init")
	return nil
}
func (m *recordingModule) Update(_ context.Context, s *State) error {
	*m.events = append(*m.events, m.name+":update")
	return m.fail
}
func (m *recordingModule) Finalize(context.Context, *State) error {
	*m.events = append(*m.events, m.name+":final")
	return nil
}

func TestRunnerOrdering(t *testing.T) {
	var events []string
	boom := errors.New("boom")
	r := NewRunner(nil,
		&recordingModule{name: "a", events: &events},
		&recordingModule{name: "b", events: &events, fail: boom},
	)

	err := r.Run(context.Background(), &State{Start: 0, End: 3, DT: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, expected boom", err)
	}

	expected := []string{"a:init", "b:init", "a:update", "b:update", "a:final", "b:final"}
	if len(events) != len(expected) {
		t.Fatalf("events = %v, expected %v", events, expected)
	}
	for i := range expected {
		if events[i] != expected[i] {
			t.Errorf("events[%d] = %s, expected %s", i, events[i], expected[i])
		}
	}
}

func TestRunnerRejectsZeroStep(t *testing.T) {
	if err := NewRunner(nil).Run(context.Background(), &State{End: 1}); err == nil {
		t.Errorf("expected error for zero time step")
	}
}
