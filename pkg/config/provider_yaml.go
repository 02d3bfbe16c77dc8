package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}
	return ParseYAML(cfgFile)
}

// ParseYAML decodes a YAML document and applies defaults.
func ParseYAML(doc []byte) (*ConfigData, error) {
	var yc ConfigYAML
	if err := yaml.Unmarshal(doc, &yc); err != nil {
		return nil, fmt.Errorf("parsing YAML config: %w", err)
	}

	config := &ConfigData{
		Simulation: SimulationData{
			Name:  yc.Simulation.Name,
			Start: yc.Simulation.Start,
			End:   yc.Simulation.End,
			Step:  yc.Simulation.Step,
		},
		SMB: yc.SMB.toData(),
		Glacier: GlacierData{
			InitialThickness: yc.Glacier.InitialThickness,
			CellSize:         yc.Glacier.CellSize,
			UseDerivedMask:   yc.Glacier.UseDerivedMask,
		},
		Forcing: ForcingData{Type: yc.Forcing.Type},
		Storage: StorageData{HistorySize: yc.Storage.HistorySize},
	}

	if n := yc.Forcing.NetCDF; n != nil {
		config.Forcing.NetCDF = &NetCDFForcingData{
			File:          n.File,
			Precipitation: n.Precipitation,
			AirTemp:       n.AirTemp,
			AirTempSD:     n.AirTempSD,
			IceMask:       n.IceMask,
		}
	}
	if s := yc.Forcing.Synthetic; s != nil {
		syn := SyntheticForcingData(*s)
		config.Forcing.Synthetic = &syn
	}

	if yc.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yc.Storage.TimescaleDB.ConnectionString,
		}
	}
	if yc.Storage.Checkpoint != nil {
		config.Storage.Checkpoint = &CheckpointData{
			Path:   yc.Storage.Checkpoint.Path,
			Resume: yc.Storage.Checkpoint.Resume,
		}
	}
	if yc.Storage.NetCDF != nil {
		config.Storage.NetCDF = &NetCDFOutputData{File: yc.Storage.NetCDF.File}
	}
	if yc.REST != nil {
		config.REST = &RESTData{
			ListenAddr: yc.REST.ListenAddr,
			Port:       yc.REST.Port,
		}
	}

	config.ApplyDefaults()
	return config, nil
}

// IsReadOnly returns true since YAML files are read-only in this implementation
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs for unmarshaling

type ConfigYAML struct {
	Simulation SimulationYAML `yaml:"simulation"`
	SMB        SMBYAML        `yaml:"smb"`
	Forcing    ForcingYAML    `yaml:"forcing"`
	Glacier    GlacierYAML    `yaml:"glacier"`
	Storage    StorageYAML    `yaml:"storage,omitempty"`
	REST       *RESTYAML      `yaml:"rest,omitempty"`
}

type SimulationYAML struct {
	Name  string  `yaml:"name,omitempty"`
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
	Step  float64 `yaml:"step,omitempty"`
}

// SMBYAML uses pointers so that an omitted option keeps its default while
// an explicit zero (e.g. refreeze: 0) is honoured.
type SMBYAML struct {
	UpdateFreq         *float64 `yaml:"update_freq,omitempty"`
	RefreezeFactor     *float64 `yaml:"refreeze,omitempty"`
	ThrTempSnow        *float64 `yaml:"thr_temp_snow,omitempty"`
	ThrTempRain        *float64 `yaml:"thr_temp_rain,omitempty"`
	MeltFactorSnow     *float64 `yaml:"melt_factor_snow,omitempty"`
	MeltFactorIce      *float64 `yaml:"melt_factor_ice,omitempty"`
	ShiftHydroYear     *float64 `yaml:"shift_hydro_year,omitempty"`
	IceDensity         *float64 `yaml:"ice_density,omitempty"`
	WaterDensity       *float64 `yaml:"water_density,omitempty"`
	OffsetInputFile    string   `yaml:"offset_input_file,omitempty"`
	MultiplierVariable string   `yaml:"multiplier_variable,omitempty"`
}

func (s SMBYAML) toData() SMBData {
	d := DefaultSMB()
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&d.UpdateFreq, s.UpdateFreq)
	set(&d.RefreezeFactor, s.RefreezeFactor)
	set(&d.ThrTempSnow, s.ThrTempSnow)
	set(&d.ThrTempRain, s.ThrTempRain)
	set(&d.MeltFactorSnow, s.MeltFactorSnow)
	set(&d.MeltFactorIce, s.MeltFactorIce)
	set(&d.ShiftHydroYear, s.ShiftHydroYear)
	set(&d.IceDensity, s.IceDensity)
	set(&d.WaterDensity, s.WaterDensity)
	d.OffsetInputFile = s.OffsetInputFile
	if s.MultiplierVariable != "" {
		d.MultiplierVariable = s.MultiplierVariable
	}
	return d
}

type ForcingYAML struct {
	Type      string             `yaml:"type,omitempty"`
	NetCDF    *NetCDFForcingYAML `yaml:"netcdf,omitempty"`
	Synthetic *SyntheticYAML     `yaml:"synthetic,omitempty"`
}

type NetCDFForcingYAML struct {
	File          string `yaml:"file"`
	Precipitation string `yaml:"precipitation,omitempty"`
	AirTemp       string `yaml:"air_temp,omitempty"`
	AirTempSD     string `yaml:"air_temp_sd,omitempty"`
	IceMask       string `yaml:"icemask,omitempty"`
}

type SyntheticYAML struct {
	Rows              int     `yaml:"rows"`
	Cols              int     `yaml:"cols"`
	Samples           int     `yaml:"samples,omitempty"`
	BaseElevation     float64 `yaml:"base_elevation"`
	ElevationGradient float64 `yaml:"elevation_gradient,omitempty"`
	MeanTemp          float64 `yaml:"mean_temp"`
	RefElevation      float64 `yaml:"ref_elevation"`
	Amplitude         float64 `yaml:"amplitude,omitempty"`
	LapseRate         float64 `yaml:"lapse_rate,omitempty"`
	WarmingRate       float64 `yaml:"warming_rate,omitempty"`
	BaseYear          float64 `yaml:"base_year,omitempty"`
	Precipitation     float64 `yaml:"precipitation"`
	TempSD            float64 `yaml:"temp_sd,omitempty"`
	GlacierAbove      float64 `yaml:"glacier_above,omitempty"`
}

type GlacierYAML struct {
	InitialThickness float64 `yaml:"initial_thickness"`
	CellSize         float64 `yaml:"cell_size"`
	UseDerivedMask   bool    `yaml:"use_derived_mask,omitempty"`
}

type StorageYAML struct {
	HistorySize int               `yaml:"history_size,omitempty"`
	TimescaleDB *TimescaleDBYAML  `yaml:"timescaledb,omitempty"`
	Checkpoint  *CheckpointYAML   `yaml:"checkpoint,omitempty"`
	NetCDF      *NetCDFOutputYAML `yaml:"netcdf,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection_string"`
}

type CheckpointYAML struct {
	Path   string `yaml:"path"`
	Resume bool   `yaml:"resume,omitempty"`
}

type NetCDFOutputYAML struct {
	File string `yaml:"file"`
}

type RESTYAML struct {
	ListenAddr string `yaml:"listen_addr,omitempty"`
	Port       int    `yaml:"port,omitempty"`
}
