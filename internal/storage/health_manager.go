package storage

import (
	"sync"
	"time"
)

// SinkHealth is the last known state of a sink.
type SinkHealth struct {
	LastCheck time.Time `json:"last_check"`
	Status    string    `json:"status"`
	Stored    int       `json:"stored"`
	Error     string    `json:"error,omitempty"`
}

// HealthManager tracks sink health in memory
type HealthManager struct {
	mu     sync.RWMutex
	health map[string]*SinkHealth
}

// NewHealthManager creates a new health manager
func NewHealthManager() *HealthManager {
	return &HealthManager{
		health: make(map[string]*SinkHealth),
	}
}

// Record notes the outcome of a store on the named sink.
func (hm *HealthManager) Record(sink string, err error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	h, ok := hm.health[sink]
	if !ok {
		h = &SinkHealth{}
		hm.health[sink] = h
	}
	h.LastCheck = time.Now()
	if err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
		return
	}
	h.Status = "healthy"
	h.Error = ""
	h.Stored++
}

// GetHealth returns a copy of the named sink's health.
func (hm *HealthManager) GetHealth(sink string) (SinkHealth, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	h, ok := hm.health[sink]
	if !ok {
		return SinkHealth{}, false
	}
	return *h, true
}

// GetAllHealth returns a copy of every sink's health.
func (hm *HealthManager) GetAllHealth() map[string]SinkHealth {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	result := make(map[string]SinkHealth, len(hm.health))
	for k, v := range hm.health {
		result[k] = *v
	}
	return result
}

// IsHealthy reports whether every tracked sink succeeded on its last store.
func (hm *HealthManager) IsHealthy() bool {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	for _, h := range hm.health {
		if h.Status != "healthy" {
			return false
		}
	}
	return true
}
