package storage

import (
	"context"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// Memory keeps the most recent records and the latest balance field for the
// REST server. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	capacity int
	records  []Record
	latest   *mat.Dense
}

// NewMemory keeps at most capacity records (minimum 1).
func NewMemory(capacity int) *Memory {
	if capacity < 1 {
		capacity = 1
	}
	return &Memory{capacity: capacity}
}

func (m *Memory) Name() string { return "memory" }

// Store appends rec, evicting the oldest record when full, and copies balance.
func (m *Memory) Store(_ context.Context, rec Record, balance *mat.Dense) error {
	var cp *mat.Dense
	if balance != nil {
		cp = mat.DenseCopyOf(balance)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) == m.capacity {
		copy(m.records, m.records[1:])
		m.records = m.records[:len(m.records)-1]
	}
	m.records = append(m.records, rec)
	m.latest = cp
	return nil
}

func (m *Memory) Close() error { return nil }

// Latest returns the newest record.
func (m *Memory) Latest() (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 {
		return Record{}, false
	}
	return m.records[len(m.records)-1], true
}

// History returns up to limit records, newest last. limit <= 0 returns all.
func (m *Memory) History(limit int) []Record {
	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(m.records) {
		start = len(m.records) - limit
	}
	out := make([]Record, len(m.records)-start)
	copy(out, m.records[start:])
	return out
}

// LatestGrid returns a copy of the newest balance field, or nil.
func (m *Memory) LatestGrid() *mat.Dense {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.latest == nil {
		return nil
	}
	return mat.DenseCopyOf(m.latest)
}
