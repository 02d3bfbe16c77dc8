package config

import (
	"errors"
	"fmt"

	"github.com/chrissnell/icemass/internal/smb"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// LoadConfig returns the complete configuration with defaults applied.
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Simulation SimulationData `json:"simulation"`
	SMB        SMBData        `json:"smb"`
	Forcing    ForcingData    `json:"forcing"`
	Glacier    GlacierData    `json:"glacier"`
	Storage    StorageData    `json:"storage,omitempty"`
	REST       *RESTData      `json:"rest,omitempty"`
}

// SimulationData bounds the run in decimal years.
type SimulationData struct {
	Name  string  `json:"name,omitempty"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Step  float64 `json:"step"`
}

// SMBData holds the positive-degree-day model options. Melt factors are in
// m w.e. per °C per year.
type SMBData struct {
	UpdateFreq     float64 `json:"update_freq"`
	RefreezeFactor float64 `json:"refreeze"`
	ThrTempSnow    float64 `json:"thr_temp_snow"`
	ThrTempRain    float64 `json:"thr_temp_rain"`
	MeltFactorSnow float64 `json:"melt_factor_snow"`
	MeltFactorIce  float64 `json:"melt_factor_ice"`
	ShiftHydroYear float64 `json:"shift_hydro_year"`
	IceDensity     float64 `json:"ice_density"`
	WaterDensity   float64 `json:"water_density"`

	// OffsetInputFile names a NetCDF file holding the precipitation
	// multiplier; empty means no multiplier.
	OffsetInputFile    string `json:"offset_input_file,omitempty"`
	MultiplierVariable string `json:"multiplier_variable,omitempty"`
}

// ForcingData selects the climate source.
type ForcingData struct {
	Type      string                `json:"type"`
	NetCDF    *NetCDFForcingData    `json:"netcdf,omitempty"`
	Synthetic *SyntheticForcingData `json:"synthetic,omitempty"`
}

type NetCDFForcingData struct {
	File          string `json:"file"`
	Precipitation string `json:"precipitation,omitempty"`
	AirTemp       string `json:"air_temp,omitempty"`
	AirTempSD     string `json:"air_temp_sd,omitempty"`
	IceMask       string `json:"icemask,omitempty"`
}

// SyntheticForcingData describes an idealized climate over a sloping grid.
type SyntheticForcingData struct {
	Rows              int     `json:"rows"`
	Cols              int     `json:"cols"`
	Samples           int     `json:"samples"`
	BaseElevation     float64 `json:"base_elevation"`
	ElevationGradient float64 `json:"elevation_gradient"`
	MeanTemp          float64 `json:"mean_temp"`
	RefElevation      float64 `json:"ref_elevation"`
	Amplitude         float64 `json:"amplitude"`
	LapseRate         float64 `json:"lapse_rate"`
	WarmingRate       float64 `json:"warming_rate"`
	BaseYear          float64 `json:"base_year"`
	Precipitation     float64 `json:"precipitation"`
	TempSD            float64 `json:"temp_sd"`
	// GlacierAbove marks cells at or above this elevation as glacierized
	// in the ice mask; zero disables the mask.
	GlacierAbove float64 `json:"glacier_above,omitempty"`
}

type GlacierData struct {
	InitialThickness float64 `json:"initial_thickness"`
	CellSize         float64 `json:"cell_size"`
	UseDerivedMask   bool    `json:"use_derived_mask,omitempty"`
}

// StorageData holds the configuration for the result sinks
type StorageData struct {
	HistorySize int               `json:"history_size,omitempty"`
	TimescaleDB *TimescaleDBData  `json:"timescaledb,omitempty"`
	Checkpoint  *CheckpointData   `json:"checkpoint,omitempty"`
	NetCDF      *NetCDFOutputData `json:"netcdf,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

type CheckpointData struct {
	Path   string `json:"path"`
	Resume bool   `json:"resume,omitempty"`
}

type NetCDFOutputData struct {
	File string `json:"file"`
}

type RESTData struct {
	ListenAddr string `json:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty"`
}

const (
	ForcingNetCDF    = "netcdf"
	ForcingSynthetic = "synthetic"

	DefaultHistorySize        = 100
	DefaultMultiplierVariable = "precip_multiplier"
)

// DefaultSMB returns the model defaults.
func DefaultSMB() SMBData {
	p := smb.DefaultParams()
	return SMBData{
		UpdateFreq:         p.UpdateFreq,
		RefreezeFactor:     p.RefreezeFactor,
		ThrTempSnow:        p.ThrTempSnow,
		ThrTempRain:        p.ThrTempRain,
		MeltFactorSnow:     p.MeltFactorSnow,
		MeltFactorIce:      p.MeltFactorIce,
		ShiftHydroYear:     p.ShiftHydroYear,
		IceDensity:         p.IceDensity,
		WaterDensity:       p.WaterDensity,
		MultiplierVariable: DefaultMultiplierVariable,
	}
}

// Params converts the options into model parameters.
func (s SMBData) Params() smb.Params {
	return smb.Params{
		UpdateFreq:     s.UpdateFreq,
		RefreezeFactor: s.RefreezeFactor,
		ThrTempSnow:    s.ThrTempSnow,
		ThrTempRain:    s.ThrTempRain,
		MeltFactorSnow: s.MeltFactorSnow,
		MeltFactorIce:  s.MeltFactorIce,
		ShiftHydroYear: s.ShiftHydroYear,
		IceDensity:     s.IceDensity,
		WaterDensity:   s.WaterDensity,
	}
}

// ApplyDefaults fills unset non-SMB options. SMB options are defaulted by
// the providers, which can tell an unset value from an explicit zero.
func (c *ConfigData) ApplyDefaults() {
	if c.Simulation.Step == 0 {
		c.Simulation.Step = 1
	}
	if c.SMB.MultiplierVariable == "" {
		c.SMB.MultiplierVariable = DefaultMultiplierVariable
	}
	if c.Forcing.Type == "" {
		switch {
		case c.Forcing.NetCDF != nil:
			c.Forcing.Type = ForcingNetCDF
		case c.Forcing.Synthetic != nil:
			c.Forcing.Type = ForcingSynthetic
		}
	}
	if n := c.Forcing.NetCDF; n != nil {
		if n.Precipitation == "" {
			n.Precipitation = "precipitation"
		}
		if n.AirTemp == "" {
			n.AirTemp = "air_temp"
		}
	}
	if s := c.Forcing.Synthetic; s != nil && s.Samples == 0 {
		s.Samples = 12
	}
	if c.Storage.HistorySize == 0 {
		c.Storage.HistorySize = DefaultHistorySize
	}
}

// Validate checks the options that are not covered by smb.Params.Validate.
func (c *ConfigData) Validate() error {
	var errs []error
	if c.Simulation.End <= c.Simulation.Start {
		errs = append(errs, fmt.Errorf("simulation.end (%g) must be after simulation.start (%g)", c.Simulation.End, c.Simulation.Start))
	}
	if c.Simulation.Step <= 0 {
		errs = append(errs, fmt.Errorf("simulation.step must be positive"))
	}
	if c.Glacier.CellSize <= 0 {
		errs = append(errs, fmt.Errorf("glacier.cell_size must be positive"))
	}
	if c.Glacier.InitialThickness < 0 {
		errs = append(errs, fmt.Errorf("glacier.initial_thickness must not be negative"))
	}

	switch c.Forcing.Type {
	case ForcingNetCDF:
		if c.Forcing.NetCDF == nil || c.Forcing.NetCDF.File == "" {
			errs = append(errs, fmt.Errorf("forcing.netcdf.file is required"))
		}
	case ForcingSynthetic:
		s := c.Forcing.Synthetic
		if s == nil || s.Rows <= 0 || s.Cols <= 0 {
			errs = append(errs, fmt.Errorf("forcing.synthetic needs positive rows and cols"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown forcing type %q", c.Forcing.Type))
	}

	if c.Storage.TimescaleDB != nil && c.Storage.TimescaleDB.ConnectionString == "" {
		errs = append(errs, fmt.Errorf("storage.timescaledb.connection_string is required"))
	}
	if c.Storage.Checkpoint != nil && c.Storage.Checkpoint.Path == "" {
		errs = append(errs, fmt.Errorf("storage.checkpoint.path is required"))
	}
	if c.Storage.NetCDF != nil && c.Storage.NetCDF.File == "" {
		errs = append(errs, fmt.Errorf("storage.netcdf.file is required"))
	}

	if err := c.SMB.Params().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("smb: %w", err))
	}
	return errors.Join(errs...)
}
