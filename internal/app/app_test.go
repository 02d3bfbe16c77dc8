package app

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrissnell/icemass/internal/smb"
	"github.com/chrissnell/icemass/internal/storage/checkpoint"
	"github.com/chrissnell/icemass/pkg/config"
)

func testConfig(dir string) *config.ConfigData {
	c := &config.ConfigData{
		Simulation: config.SimulationData{Name: "test", Start: 2000, End: 2010, Step: 1},
		SMB:        config.DefaultSMB(),
		Forcing: config.ForcingData{
			Synthetic: &config.SyntheticForcingData{
				Rows:          5,
				Cols:          5,
				BaseElevation: 2000,
				MeanTemp:      -5,
				RefElevation:  2000,
				Precipitation: 1000,
			},
		},
		Glacier: config.GlacierData{InitialThickness: 100, CellSize: 100},
		Storage: config.StorageData{
			Checkpoint: &config.CheckpointData{Path: filepath.Join(dir, "state.ckpt")},
			NetCDF:     &config.NetCDFOutputData{File: filepath.Join(dir, "smb.nc")},
		},
	}
	c.ApplyDefaults()
	return c
}

func TestSimulate(t *testing.T) {
	dir := t.TempDir()
	a := New(testConfig(dir), nil)

	out, err := a.Simulate(context.Background())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if out.Steps != 10 || out.Updates != 10 {
		t.Errorf("steps=%d updates=%d, expected 10 and 10", out.Steps, out.Updates)
	}
	expected := 25 * (100 + 10*1000.0/910) * 100 * 100 / 1e9
	if math.Abs(out.Volume-expected) > 1e-9 {
		t.Errorf("Volume = %v, expected %v", out.Volume, expected)
	}
	if out.RunID != a.RunID() || out.RunID == "" {
		t.Errorf("RunID = %q", out.RunID)
	}

	if n := len(a.memory.History(0)); n != 10 {
		t.Errorf("memory holds %d records, expected 10", n)
	}
	latest, ok := a.memory.Latest()
	if !ok || latest.Year != 2009 || latest.RunID != a.RunID() {
		t.Errorf("latest record = %+v", latest)
	}
	if latest.MinSnowDepth <= 0 {
		t.Errorf("MinSnowDepth = %v, expected a snowpack all year at -5 °C", latest.MinSnowDepth)
	}
	if latest.Time.Year() != 2009 {
		t.Errorf("calendar time = %v, expected 2009", latest.Time)
	}
	if !a.dispatcher.Health().IsHealthy() {
		t.Errorf("sinks should be healthy: %+v", a.dispatcher.Health().GetAllHealth())
	}

	snap, err := checkpoint.Load(filepath.Join(dir, "state.ckpt"))
	if err != nil {
		t.Fatalf("checkpoint.Load: %v", err)
	}
	if snap.LastUpdate != 2009 || snap.Rows != 5 || snap.Cols != 5 {
		t.Errorf("snapshot = %+v", snap)
	}
	if _, err := os.Stat(filepath.Join(dir, "smb.nc")); err != nil {
		t.Errorf("NetCDF output missing: %v", err)
	}
}

func TestSimulateResume(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(testConfig(dir), nil).Simulate(context.Background()); err != nil {
		t.Fatalf("first Simulate: %v", err)
	}

	c := testConfig(dir)
	c.Simulation.Start, c.Simulation.End = 2009.5, 2012
	c.Storage.Checkpoint.Resume = true
	c.Storage.NetCDF = nil

	out, err := New(c, nil).Simulate(context.Background())
	if err != nil {
		t.Fatalf("resumed Simulate: %v", err)
	}
	// t = 2009.5 is within a year of the checkpointed update at 2009
	if out.Steps != 3 || out.Updates != 2 {
		t.Errorf("steps=%d updates=%d, expected 3 and 2", out.Steps, out.Updates)
	}
}

func TestSimulateResumeFromConfiguredStart(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(testConfig(dir), nil).Simulate(context.Background()); err != nil {
		t.Fatalf("first Simulate: %v", err)
	}

	// same start as the first run; only the end moves out
	c := testConfig(dir)
	c.Simulation.End = 2015
	c.Storage.Checkpoint.Resume = true
	c.Storage.NetCDF = nil

	a := New(c, nil)
	out, err := a.Simulate(context.Background())
	if err != nil {
		t.Fatalf("resumed Simulate: %v", err)
	}
	if out.Final.Start != 2010 {
		t.Errorf("resumed start = %v, expected 2010", out.Final.Start)
	}
	if out.Steps != 5 || out.Updates != 5 {
		t.Errorf("steps=%d updates=%d, expected 5 and 5", out.Steps, out.Updates)
	}
	latest, ok := a.memory.Latest()
	if !ok || latest.Year != 2014 {
		t.Errorf("latest record = %+v, expected year 2014", latest)
	}
}

func TestSimulateResumeNothingLeft(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(testConfig(dir), nil).Simulate(context.Background()); err != nil {
		t.Fatalf("first Simulate: %v", err)
	}

	c := testConfig(dir)
	c.Storage.Checkpoint.Resume = true
	if _, err := New(c, nil).Simulate(context.Background()); err == nil {
		t.Errorf("expected error resuming a checkpoint saved at the last step")
	}
}

func TestSimulateResumeShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	if _, err := New(testConfig(dir), nil).Simulate(context.Background()); err != nil {
		t.Fatalf("first Simulate: %v", err)
	}

	c := testConfig(dir)
	c.Simulation.End = 2015
	c.Forcing.Synthetic.Rows = 6
	c.Storage.Checkpoint.Resume = true
	_, err := New(c, nil).Simulate(context.Background())
	if !errors.Is(err, smb.ErrShapeMismatch) {
		t.Errorf("err = %v, expected ErrShapeMismatch", err)
	}
}

func TestResumeStart(t *testing.T) {
	tests := []struct {
		name     string
		start    float64
		step     float64
		last     float64
		expected float64
	}{
		{"checkpoint before start", 2009.5, 1, 2009, 2009.5},
		{"checkpoint on a step", 2000, 1, 2009, 2010},
		{"checkpoint between steps", 2000, 2, 2005, 2006},
		{"checkpoint at start", 2000, 0.5, 2000, 2000.5},
		{"fractional step", 2000, 0.1, 2000.3, 2000.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resumeStart(tt.start, tt.step, tt.last)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("resumeStart(%v, %v, %v) = %v, expected %v",
					tt.start, tt.step, tt.last, got, tt.expected)
			}
		})
	}
}

func TestSimulateMissingMultiplier(t *testing.T) {
	c := testConfig(t.TempDir())
	c.SMB.OffsetInputFile = filepath.Join(t.TempDir(), "missing.nc")
	if _, err := New(c, nil).Simulate(context.Background()); err == nil {
		t.Errorf("expected error for missing multiplier file")
	}
}

func TestSimulateInvalidConfig(t *testing.T) {
	c := testConfig(t.TempDir())
	c.SMB.ThrTempRain = c.SMB.ThrTempSnow
	if _, err := New(c, nil).Simulate(context.Background()); err == nil {
		t.Errorf("expected error for inverted thresholds")
	}
}
