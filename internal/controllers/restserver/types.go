package restserver

import (
	"time"

	"github.com/chrissnell/icemass/internal/smb"
	"github.com/chrissnell/icemass/internal/storage"
)

// UpdateResponse is one mass-balance update as served over JSON.
type UpdateResponse struct {
	RunID        string      `json:"run_id"`
	Year         float64     `json:"year"`
	Timestamp    int64       `json:"ts"`
	Time         time.Time   `json:"time"`
	ElapsedMS    float64     `json:"elapsed_ms"`
	MinSnowDepth float64     `json:"min_snow_depth"`
	Summary      smb.Summary `json:"summary"`
}

// GridResponse carries the latest balance field row by row.
type GridResponse struct {
	Year  float64     `json:"year"`
	Rows  int         `json:"rows"`
	Cols  int         `json:"cols"`
	Units string      `json:"units"`
	Data  [][]float64 `json:"data"`
}

// HealthResponse reports per-sink health.
type HealthResponse struct {
	Status string                        `json:"status"`
	Sinks  map[string]storage.SinkHealth `json:"sinks"`
}

func toUpdateResponse(rec storage.Record) UpdateResponse {
	return UpdateResponse{
		RunID:        rec.RunID,
		Year:         rec.Year,
		Timestamp:    rec.Time.Unix(),
		Time:         rec.Time,
		ElapsedMS:    float64(rec.Elapsed.Microseconds()) / 1000,
		MinSnowDepth: rec.MinSnowDepth,
		Summary:      rec.Summary,
	}
}
