package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/chrissnell/icemass/internal/grid"
	"gonum.org/v1/gonum/mat"
)

func TestMemoryHistory(t *testing.T) {
	m := NewMemory(3)
	ctx := context.Background()

	if _, ok := m.Latest(); ok {
		t.Fatalf("empty memory returned a latest record")
	}

	for year := 2000; year < 2005; year++ {
		if err := m.Store(ctx, Record{Year: float64(year)}, grid.Constant(1, 1, float64(year))); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}

	all := m.History(0)
	if len(all) != 3 {
		t.Fatalf("History(0) returned %d records, expected 3", len(all))
	}
	if all[0].Year != 2002 || all[2].Year != 2004 {
		t.Errorf("History = %v..%v, expected 2002..2004", all[0].Year, all[2].Year)
	}

	two := m.History(2)
	if len(two) != 2 || two[0].Year != 2003 {
		t.Errorf("History(2) = %+v", two)
	}

	latest, ok := m.Latest()
	if !ok || latest.Year != 2004 {
		t.Errorf("Latest = %+v, %v", latest, ok)
	}
	if g := m.LatestGrid(); g == nil || g.At(0, 0) != 2004 {
		t.Errorf("LatestGrid did not return the newest field")
	}
}

func TestMemoryCopiesGrid(t *testing.T) {
	m := NewMemory(1)
	g := grid.Constant(1, 1, 1)
	_ = m.Store(context.Background(), Record{}, g)
	g.Set(0, 0, 99)

	if got := m.LatestGrid().At(0, 0); got != 1 {
		t.Errorf("stored grid aliased caller's matrix: got %v", got)
	}
}

type failingSink struct{ err error }

func (f failingSink) Name() string { return "failing" }
func (f failingSink) Store(context.Context, Record, *mat.Dense) error {
	return f.err
}
func (f failingSink) Close() error { return nil }

func TestDispatcher(t *testing.T) {
	boom := errors.New("boom")
	mem := NewMemory(10)
	d := NewDispatcher(nil, nil, failingSink{err: boom}, mem)

	err := d.Store(context.Background(), Record{Year: 1}, grid.Constant(1, 1, 0))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, expected boom", err)
	}
	if _, ok := mem.Latest(); !ok {
		t.Errorf("memory sink skipped after an earlier sink failed")
	}

	h := d.Health()
	if h.IsHealthy() {
		t.Errorf("IsHealthy = true with a failing sink")
	}
	if got, ok := h.GetHealth("memory"); !ok || got.Status != "healthy" || got.Stored != 1 {
		t.Errorf("memory health = %+v", got)
	}
	if got, _ := h.GetHealth("failing"); got.Error != "boom" {
		t.Errorf("failing health error = %q", got.Error)
	}
}
