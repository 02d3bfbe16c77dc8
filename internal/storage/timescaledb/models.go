package timescaledb

import (
	"time"

	"github.com/chrissnell/icemass/internal/storage"
)

// SMBUpdate is one row of the smb_updates hypertable.
type SMBUpdate struct {
	Time         time.Time `gorm:"column:time;not null;index"`
	RunID        string    `gorm:"column:run_id;type:uuid;not null;index"`
	SimYear      float64   `gorm:"column:sim_year;not null"`
	MeanSMB      float64   `gorm:"column:mean_smb"`
	MinSMB       float64   `gorm:"column:min_smb"`
	MaxSMB       float64   `gorm:"column:max_smb"`
	TotalSMB     float64   `gorm:"column:total_smb"`
	GlacierCells int       `gorm:"column:glacier_cells"`
	GlacierMean  float64   `gorm:"column:glacier_mean_smb"`
	MinSnow      float64   `gorm:"column:min_snow_depth"`
	ElapsedMS    float64   `gorm:"column:elapsed_ms"`
}

// TableName specifies the table name for SMBUpdate
func (SMBUpdate) TableName() string {
	return "smb_updates"
}

func fromRecord(rec storage.Record) SMBUpdate {
	return SMBUpdate{
		Time:         rec.Time,
		RunID:        rec.RunID,
		SimYear:      rec.Year,
		MeanSMB:      rec.Summary.Mean,
		MinSMB:       rec.Summary.Min,
		MaxSMB:       rec.Summary.Max,
		TotalSMB:     rec.Summary.Total,
		GlacierCells: rec.Summary.GlacierCells,
		GlacierMean:  rec.Summary.GlacierMean,
		MinSnow:      rec.MinSnowDepth,
		ElapsedMS:    float64(rec.Elapsed.Microseconds()) / 1000,
	}
}
