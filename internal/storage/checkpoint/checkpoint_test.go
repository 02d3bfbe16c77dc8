package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrissnell/icemass/internal/grid"
	"github.com/chrissnell/icemass/internal/storage"
)

func TestSinkThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.msgpack")
	sink := NewSink(path)

	balance := grid.Constant(2, 3, -0.5)
	balance.Set(1, 2, 1.25)
	rec := storage.Record{RunID: "run-1", Year: 2042}
	if err := sink.Store(context.Background(), rec, balance); err != nil {
		t.Fatalf("Store: %v", err)
	}

	snap, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.RunID != "run-1" || snap.LastUpdate != 2042 {
		t.Errorf("snapshot = %+v", snap)
	}
	g, err := snap.Grid()
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	if r, c := g.Dims(); r != 2 || c != 3 {
		t.Fatalf("grid is %dx%d, expected 2x3", r, c)
	}
	if g.At(1, 2) != 1.25 || g.At(0, 0) != -0.5 {
		t.Errorf("grid values not restored")
	}

	// no temp files left behind
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, expected only the checkpoint", len(entries))
	}
}

func TestSinkSkipsMissingGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.msgpack")
	sink := NewSink(path)

	if err := sink.Store(context.Background(), storage.Record{Year: 2042}, nil); err != nil {
		t.Fatalf("Store without grid: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no checkpoint file, Stat returned %v", err)
	}
}

func TestSnapshotGridRejectsBadShape(t *testing.T) {
	s := Snapshot{Rows: 2, Cols: 2, SMB: []float64{1, 2, 3}}
	if _, err := s.Grid(); err == nil {
		t.Errorf("expected error for short grid data")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Errorf("expected error for missing checkpoint")
	}
}
