package smb

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/icemass/internal/grid"
)

func newTestUpdater(t *testing.T, p Params) *Updater {
	t.Helper()
	u, err := NewUpdater(p, nil, nil)
	if err != nil {
		t.Fatalf("NewUpdater: %v", err)
	}
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	u.now = func() time.Time {
		clock = clock.Add(250 * time.Millisecond)
		return clock
	}
	return u
}

func TestUpdaterGating(t *testing.T) {
	p := DefaultParams()
	p.UpdateFreq = 1
	u := newTestUpdater(t, p)

	if u.SMB() != nil {
		t.Fatalf("SMB before first update should be nil")
	}
	if !math.IsInf(u.LastUpdate(), -1) {
		t.Fatalf("LastUpdate = %v, expected -Inf", u.LastUpdate())
	}

	cold := constantForcing(12, 2, 2, 100, -5)
	warm := constantForcing(12, 2, 2, 100, 5)

	fired, err := u.Update(2000, cold)
	if err != nil || !fired {
		t.Fatalf("first Update: fired=%v err=%v, expected to fire", fired, err)
	}
	first := u.SMB()
	firstValue := first.At(0, 0)

	fired, err = u.Update(2000.5, warm)
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}
	if fired {
		t.Errorf("second Update within the interval fired")
	}
	if u.SMB() != first || u.SMB().At(0, 0) != firstValue {
		t.Errorf("no-op update changed the balance field")
	}
	if len(u.Timings()) != 1 {
		t.Errorf("Timings has %d entries after a no-op, expected 1", len(u.Timings()))
	}
	if u.LastUpdate() != 2000 {
		t.Errorf("LastUpdate = %v, expected 2000", u.LastUpdate())
	}

	fired, err = u.Update(2001, warm)
	if err != nil || !fired {
		t.Fatalf("third Update: fired=%v err=%v, expected to fire", fired, err)
	}
	if u.SMB().At(0, 0) >= 0 {
		t.Errorf("warm year SMB = %g, expected negative", u.SMB().At(0, 0))
	}

	timings := u.Timings()
	if len(timings) != 2 {
		t.Fatalf("Timings has %d entries, expected 2", len(timings))
	}
	for i, d := range timings {
		if d != 250*time.Millisecond {
			t.Errorf("timing %d = %v, expected 250ms", i, d)
		}
	}
}

func TestUpdaterFailureLeavesState(t *testing.T) {
	u := newTestUpdater(t, DefaultParams())

	bad := Forcing{
		Precipitation: grid.ConstantSeries(12, 2, 2, 100),
		AirTemp:       grid.ConstantSeries(6, 2, 2, -5),
	}
	fired, err := u.Update(10, bad)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v, expected ErrShapeMismatch", err)
	}
	if fired {
		t.Errorf("failed update reported as fired")
	}
	if !math.IsInf(u.LastUpdate(), -1) {
		t.Errorf("failed update recorded a firing time")
	}
	if len(u.Timings()) != 0 {
		t.Errorf("failed update recorded a timing")
	}
}

func TestUpdaterRestore(t *testing.T) {
	u := newTestUpdater(t, DefaultParams())
	seed := grid.Constant(2, 2, 0.25)
	u.Restore(50, seed)

	fired, err := u.Update(50.5, constantForcing(12, 2, 2, 100, 5))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if fired {
		t.Errorf("Update fired inside the restored interval")
	}
	if u.SMB().At(1, 1) != 0.25 {
		t.Errorf("restored SMB not kept")
	}
}

func TestNewUpdaterRejectsThresholds(t *testing.T) {
	p := DefaultParams()
	p.ThrTempRain = -1
	if _, err := NewUpdater(p, nil, nil); !errors.Is(err, ErrThresholds) {
		t.Errorf("err = %v, expected ErrThresholds", err)
	}
}

func TestSummarize(t *testing.T) {
	balance := grid.Constant(2, 2, 0)
	balance.Set(0, 0, -2)
	balance.Set(0, 1, 1)
	balance.Set(1, 0, 3)
	balance.Set(1, 1, -10)
	mask := grid.Constant(2, 2, 0)
	mask.Set(0, 0, 1)
	mask.Set(1, 0, 1)

	s := Summarize(balance, mask)
	if s.Mean != -2 || s.Min != -10 || s.Max != 3 || s.Total != -8 {
		t.Errorf("Summary = %+v", s)
	}
	if s.GlacierCells != 2 || s.GlacierMean != 0.5 {
		t.Errorf("glacier stats = %d cells, mean %g; expected 2 cells, mean 0.5", s.GlacierCells, s.GlacierMean)
	}
}
