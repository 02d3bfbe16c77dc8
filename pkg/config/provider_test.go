package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrissnell/icemass/internal/smb"
)

const epsilon = 1e-12

const sampleYAML = `
simulation:
  name: test-glacier
  start: 2000
  end: 2010
forcing:
  synthetic:
    rows: 5
    cols: 4
    base_elevation: 2500
    elevation_gradient: 50
    mean_temp: -2
    ref_elevation: 2500
    amplitude: 8
    lapse_rate: -0.0065
    precipitation: 1200
smb:
  refreeze: 0
  thr_temp_rain: 2.5
  offset_input_file: multiplier.nc
glacier:
  initial_thickness: 80
  cell_size: 100
storage:
  checkpoint:
    path: /tmp/icemass.ckpt
    resume: true
  netcdf:
    file: /tmp/smb.nc
rest:
  port: 9090
`

func TestParseYAML(t *testing.T) {
	c, err := ParseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}

	if c.Simulation.Step != 1 {
		t.Errorf("Step = %v, expected default 1", c.Simulation.Step)
	}
	if c.Forcing.Type != ForcingSynthetic || c.Forcing.Synthetic.Samples != 12 {
		t.Errorf("forcing = %+v, expected synthetic with 12 samples", c.Forcing)
	}
	if c.Forcing.Synthetic.LapseRate != -0.0065 {
		t.Errorf("LapseRate = %v", c.Forcing.Synthetic.LapseRate)
	}

	// explicit zero is kept, omitted options get defaults
	if c.SMB.RefreezeFactor != 0 {
		t.Errorf("RefreezeFactor = %v, expected explicit 0", c.SMB.RefreezeFactor)
	}
	if c.SMB.ThrTempRain != 2.5 {
		t.Errorf("ThrTempRain = %v, expected 2.5", c.SMB.ThrTempRain)
	}
	def := smb.DefaultParams()
	if math.Abs(c.SMB.MeltFactorIce-def.MeltFactorIce) > epsilon || c.SMB.ShiftHydroYear != 0.75 {
		t.Errorf("defaults not applied: %+v", c.SMB)
	}
	if c.SMB.MultiplierVariable != DefaultMultiplierVariable || c.SMB.OffsetInputFile != "multiplier.nc" {
		t.Errorf("multiplier options = %q, %q", c.SMB.OffsetInputFile, c.SMB.MultiplierVariable)
	}

	if c.Storage.Checkpoint == nil || !c.Storage.Checkpoint.Resume {
		t.Errorf("checkpoint not parsed: %+v", c.Storage.Checkpoint)
	}
	if c.Storage.TimescaleDB != nil {
		t.Errorf("timescaledb should be nil when not configured")
	}
	if c.Storage.HistorySize != DefaultHistorySize {
		t.Errorf("HistorySize = %d", c.Storage.HistorySize)
	}
	if c.REST == nil || c.REST.Port != 9090 {
		t.Errorf("rest = %+v", c.REST)
	}

	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestYAMLProviderMissingFile(t *testing.T) {
	p := NewYAMLProvider(filepath.Join(t.TempDir(), "nope.yaml"))
	if _, err := p.LoadConfig(); err == nil {
		t.Errorf("expected error for missing file")
	}
	if !p.IsReadOnly() {
		t.Errorf("YAML provider should be read-only")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ConfigData)
		isErr  error
	}{
		{"valid", func(c *ConfigData) {}, nil},
		{"end before start", func(c *ConfigData) { c.Simulation.End = c.Simulation.Start }, nil},
		{"no cell size", func(c *ConfigData) { c.Glacier.CellSize = 0 }, nil},
		{"unknown forcing", func(c *ConfigData) { c.Forcing.Type = "era5" }, nil},
		{"netcdf without file", func(c *ConfigData) {
			c.Forcing = ForcingData{Type: ForcingNetCDF, NetCDF: &NetCDFForcingData{}}
		}, nil},
		{"empty checkpoint path", func(c *ConfigData) { c.Storage.Checkpoint.Path = "" }, nil},
		{"inverted thresholds", func(c *ConfigData) { c.SMB.ThrTempRain = -1 }, smb.ErrThresholds},
		{"negative refreeze", func(c *ConfigData) { c.SMB.RefreezeFactor = -0.1 }, smb.ErrInvalidParam},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, err := ParseYAML([]byte(sampleYAML))
			if err != nil {
				t.Fatalf("ParseYAML: %v", err)
			}
			tc.mutate(c)
			err = c.Validate()
			if tc.name == "valid" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if tc.isErr != nil && !errors.Is(err, tc.isErr) {
				t.Errorf("error %v is not %v", err, tc.isErr)
			}
		})
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.db")
	p, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer p.Close()

	if err := InitSchema(p.DB(), nil); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	src, err := ParseYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	src.Storage.TimescaleDB = &TimescaleDBData{ConnectionString: "postgres://localhost/icemass"}
	if err := SaveConfig(p.DB(), src); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	// saving twice replaces the configuration
	if err := SaveConfig(p.DB(), src); err != nil {
		t.Fatalf("second SaveConfig: %v", err)
	}

	got, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if got.Simulation != src.Simulation {
		t.Errorf("simulation = %+v, expected %+v", got.Simulation, src.Simulation)
	}
	if got.SMB != src.SMB {
		t.Errorf("smb = %+v, expected %+v", got.SMB, src.SMB)
	}
	if got.Glacier != src.Glacier {
		t.Errorf("glacier = %+v, expected %+v", got.Glacier, src.Glacier)
	}
	if got.Forcing.Synthetic == nil || *got.Forcing.Synthetic != *src.Forcing.Synthetic {
		t.Errorf("synthetic = %+v, expected %+v", got.Forcing.Synthetic, src.Forcing.Synthetic)
	}
	if got.Storage.TimescaleDB == nil || got.Storage.TimescaleDB.ConnectionString != "postgres://localhost/icemass" {
		t.Errorf("timescaledb = %+v", got.Storage.TimescaleDB)
	}
	if got.Storage.Checkpoint == nil || *got.Storage.Checkpoint != *src.Storage.Checkpoint {
		t.Errorf("checkpoint = %+v", got.Storage.Checkpoint)
	}
	if got.Storage.NetCDF == nil || got.Storage.NetCDF.File != "/tmp/smb.nc" {
		t.Errorf("netcdf = %+v", got.Storage.NetCDF)
	}
	if got.REST == nil || got.REST.Port != 9090 {
		t.Errorf("rest = %+v", got.REST)
	}
}

func TestSQLiteNullSMBUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.db")
	p, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer p.Close()
	if err := InitSchema(p.DB(), nil); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	db := p.DB()
	if _, err := db.Exec(`INSERT INTO configs (name, sim_start, sim_end, glacier_cell_size) VALUES ('default', 0, 10, 50)`); err != nil {
		t.Fatalf("insert config: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO smb_params (config_id, refreeze) VALUES (1, 0.2)`); err != nil {
		t.Fatalf("insert smb: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO forcing (config_id, type, file) VALUES (1, 'netcdf', 'climate.nc')`); err != nil {
		t.Fatalf("insert forcing: %v", err)
	}

	c, err := p.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	expected := DefaultSMB()
	expected.RefreezeFactor = 0.2
	if c.SMB != expected {
		t.Errorf("smb = %+v, expected %+v", c.SMB, expected)
	}
	if c.Forcing.NetCDF == nil || c.Forcing.NetCDF.AirTemp != "air_temp" {
		t.Errorf("netcdf forcing defaults not applied: %+v", c.Forcing.NetCDF)
	}
	if c.REST != nil {
		t.Errorf("rest should be nil without a rest_server row")
	}
}

func TestSQLiteMissingDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.db")
	p, err := NewSQLiteProvider(path)
	if err != nil {
		t.Fatalf("NewSQLiteProvider: %v", err)
	}
	defer p.Close()
	if err := InitSchema(p.DB(), nil); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	if _, err := p.LoadConfig(); err == nil {
		t.Errorf("expected error for empty database")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file should exist: %v", err)
	}
}
