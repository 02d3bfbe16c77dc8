package schedule

import (
	"math"
	"testing"
)

func TestPolicyDue(t *testing.T) {
	tests := []struct {
		name     string
		interval float64
		fired    []float64 // times recorded before the check
		at       float64
		expected bool
	}{
		{name: "never fired", interval: 1, at: -1e9, expected: true},
		{name: "within interval", interval: 1, fired: []float64{10}, at: 10.5, expected: false},
		{name: "same time", interval: 1, fired: []float64{10}, at: 10, expected: false},
		{name: "exactly one interval", interval: 1, fired: []float64{10}, at: 11, expected: true},
		{name: "past interval", interval: 5, fired: []float64{0, 5}, at: 12, expected: true},
		{name: "zero interval always due", interval: 0, fired: []float64{3}, at: 3, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(tt.interval)
			for _, f := range tt.fired {
				p.RecordFired(f)
			}
			if got := p.Due(tt.at); got != tt.expected {
				t.Errorf("Due(%v) = %v, expected %v", tt.at, got, tt.expected)
			}
		})
	}
}

func TestPolicyRestore(t *testing.T) {
	p := NewPolicy(2)
	if !math.IsInf(p.LastFired(), -1) {
		t.Fatalf("LastFired = %v, expected -Inf", p.LastFired())
	}

	p.Restore(100)
	if p.Due(101) {
		t.Errorf("restored policy should not be due one year later")
	}
	if !p.Due(102) {
		t.Errorf("restored policy should be due two years later")
	}
}
