package config

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/chrissnell/icemass/pkg/migrate"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DefaultConfigName is the configs row read by the SQLite provider.
const DefaultConfigName = "default"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider creates a new SQLite configuration provider
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// DB exposes the handle for schema setup and writes.
func (s *SQLiteProvider) DB() *sql.DB {
	return s.db
}

// SchemaMigrationTable tracks the applied config schema version.
const SchemaMigrationTable = "config_schema_migrations"

// SchemaMigrations returns the embedded config schema migrations.
func SchemaMigrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// InitSchema applies the embedded config schema migrations.
func InitSchema(db *sql.DB, logger *zap.SugaredLogger) error {
	provider := migrate.NewFSProvider(SchemaMigrations(), SchemaMigrationTable, migrate.SQLite)
	return migrate.NewMigrator(db, provider, logger).MigrateUp()
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	var configID int64
	var simName sql.NullString
	var simStep sql.NullFloat64
	var historySize sql.NullInt64
	err := s.db.QueryRow(`
		SELECT id, sim_name, sim_start, sim_end, sim_step,
		       glacier_initial_thickness, glacier_cell_size, glacier_use_derived_mask,
		       history_size
		FROM configs WHERE name = ?`, DefaultConfigName).Scan(
		&configID, &simName, &config.Simulation.Start, &config.Simulation.End, &simStep,
		&config.Glacier.InitialThickness, &config.Glacier.CellSize, &config.Glacier.UseDerivedMask,
		&historySize,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no %q configuration in %s", DefaultConfigName, s.dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation config: %w", err)
	}
	config.Simulation.Name = simName.String
	config.Simulation.Step = simStep.Float64
	config.Storage.HistorySize = int(historySize.Int64)

	if config.SMB, err = s.getSMB(configID); err != nil {
		return nil, fmt.Errorf("failed to load smb config: %w", err)
	}
	if config.Forcing, err = s.getForcing(configID); err != nil {
		return nil, fmt.Errorf("failed to load forcing config: %w", err)
	}
	if err := s.loadStorage(configID, &config.Storage); err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	if config.REST, err = s.getREST(configID); err != nil {
		return nil, fmt.Errorf("failed to load rest config: %w", err)
	}

	config.ApplyDefaults()
	return config, nil
}

func (s *SQLiteProvider) getSMB(configID int64) (SMBData, error) {
	d := DefaultSMB()
	var vals [9]sql.NullFloat64
	var offsetFile, multVar sql.NullString

	err := s.db.QueryRow(`
		SELECT update_freq, refreeze, thr_temp_snow, thr_temp_rain,
		       melt_factor_snow, melt_factor_ice, shift_hydro_year,
		       ice_density, water_density, offset_input_file, multiplier_variable
		FROM smb_params WHERE config_id = ?`, configID).Scan(
		&vals[0], &vals[1], &vals[2], &vals[3], &vals[4], &vals[5], &vals[6], &vals[7], &vals[8],
		&offsetFile, &multVar,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return d, nil
	}
	if err != nil {
		return d, err
	}

	dst := []*float64{
		&d.UpdateFreq, &d.RefreezeFactor, &d.ThrTempSnow, &d.ThrTempRain,
		&d.MeltFactorSnow, &d.MeltFactorIce, &d.ShiftHydroYear,
		&d.IceDensity, &d.WaterDensity,
	}
	for i, v := range vals {
		if v.Valid {
			*dst[i] = v.Float64
		}
	}
	d.OffsetInputFile = offsetFile.String
	if multVar.Valid && multVar.String != "" {
		d.MultiplierVariable = multVar.String
	}
	return d, nil
}

func (s *SQLiteProvider) getForcing(configID int64) (ForcingData, error) {
	var f ForcingData
	var file, vPrecip, vTemp, vTempSD, vMask sql.NullString
	var rows, cols, samples sql.NullInt64
	var syn [11]sql.NullFloat64

	err := s.db.QueryRow(`
		SELECT type, file, var_precipitation, var_air_temp, var_air_temp_sd, var_icemask,
		       syn_rows, syn_cols, syn_samples,
		       syn_base_elevation, syn_elevation_gradient, syn_mean_temp, syn_ref_elevation,
		       syn_amplitude, syn_lapse_rate, syn_warming_rate, syn_base_year,
		       syn_precipitation, syn_temp_sd, syn_glacier_above
		FROM forcing WHERE config_id = ?`, configID).Scan(
		&f.Type, &file, &vPrecip, &vTemp, &vTempSD, &vMask,
		&rows, &cols, &samples,
		&syn[0], &syn[1], &syn[2], &syn[3], &syn[4], &syn[5], &syn[6], &syn[7], &syn[8], &syn[9], &syn[10],
	)
	if errors.Is(err, sql.ErrNoRows) {
		return f, nil
	}
	if err != nil {
		return f, err
	}

	switch f.Type {
	case ForcingNetCDF:
		f.NetCDF = &NetCDFForcingData{
			File:          file.String,
			Precipitation: vPrecip.String,
			AirTemp:       vTemp.String,
			AirTempSD:     vTempSD.String,
			IceMask:       vMask.String,
		}
	case ForcingSynthetic:
		f.Synthetic = &SyntheticForcingData{
			Rows:              int(rows.Int64),
			Cols:              int(cols.Int64),
			Samples:           int(samples.Int64),
			BaseElevation:     syn[0].Float64,
			ElevationGradient: syn[1].Float64,
			MeanTemp:          syn[2].Float64,
			RefElevation:      syn[3].Float64,
			Amplitude:         syn[4].Float64,
			LapseRate:         syn[5].Float64,
			WarmingRate:       syn[6].Float64,
			BaseYear:          syn[7].Float64,
			Precipitation:     syn[8].Float64,
			TempSD:            syn[9].Float64,
			GlacierAbove:      syn[10].Float64,
		}
	}
	return f, nil
}

func (s *SQLiteProvider) loadStorage(configID int64, storage *StorageData) error {
	rows, err := s.db.Query(`
		SELECT backend_type, connection_string, path, resume
		FROM storage_backends WHERE config_id = ?
		ORDER BY backend_type`, configID)
	if err != nil {
		return fmt.Errorf("failed to query storage backends: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var backendType string
		var connStr, path sql.NullString
		var resume bool
		if err := rows.Scan(&backendType, &connStr, &path, &resume); err != nil {
			return fmt.Errorf("failed to scan storage backend row: %w", err)
		}

		switch backendType {
		case "timescaledb":
			storage.TimescaleDB = &TimescaleDBData{ConnectionString: connStr.String}
		case "checkpoint":
			storage.Checkpoint = &CheckpointData{Path: path.String, Resume: resume}
		case "netcdf":
			storage.NetCDF = &NetCDFOutputData{File: path.String}
		}
	}
	return rows.Err()
}

func (s *SQLiteProvider) getREST(configID int64) (*RESTData, error) {
	var addr sql.NullString
	var port sql.NullInt64
	err := s.db.QueryRow(`SELECT listen_addr, port FROM rest_server WHERE config_id = ?`, configID).Scan(&addr, &port)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &RESTData{ListenAddr: addr.String, Port: int(port.Int64)}, nil
}

// SaveConfig writes c as the default configuration, replacing any existing one.
func SaveConfig(db *sql.DB, c *ConfigData) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// child rows first; foreign keys are off by default in SQLite
	for _, table := range []string{"smb_params", "forcing", "storage_backends", "rest_server"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE config_id IN (SELECT id FROM configs WHERE name = ?)`, DefaultConfigName); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM configs WHERE name = ?`, DefaultConfigName); err != nil {
		return fmt.Errorf("failed to clear configs: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO configs (name, sim_name, sim_start, sim_end, sim_step,
		                     glacier_initial_thickness, glacier_cell_size, glacier_use_derived_mask,
		                     history_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		DefaultConfigName, c.Simulation.Name, c.Simulation.Start, c.Simulation.End, c.Simulation.Step,
		c.Glacier.InitialThickness, c.Glacier.CellSize, c.Glacier.UseDerivedMask,
		c.Storage.HistorySize,
	)
	if err != nil {
		return fmt.Errorf("failed to insert config: %w", err)
	}
	configID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	m := c.SMB
	if _, err := tx.Exec(`
		INSERT INTO smb_params (config_id, update_freq, refreeze, thr_temp_snow, thr_temp_rain,
		                        melt_factor_snow, melt_factor_ice, shift_hydro_year,
		                        ice_density, water_density, offset_input_file, multiplier_variable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		configID, m.UpdateFreq, m.RefreezeFactor, m.ThrTempSnow, m.ThrTempRain,
		m.MeltFactorSnow, m.MeltFactorIce, m.ShiftHydroYear,
		m.IceDensity, m.WaterDensity, m.OffsetInputFile, m.MultiplierVariable,
	); err != nil {
		return fmt.Errorf("failed to insert smb params: %w", err)
	}

	if err := insertForcing(tx, configID, c.Forcing); err != nil {
		return err
	}

	insertBackend := func(kind string, connStr, path string, resume bool) error {
		_, err := tx.Exec(`
			INSERT INTO storage_backends (config_id, backend_type, connection_string, path, resume)
			VALUES (?, ?, ?, ?, ?)`, configID, kind, connStr, path, resume)
		if err != nil {
			return fmt.Errorf("failed to insert %s backend: %w", kind, err)
		}
		return nil
	}
	if t := c.Storage.TimescaleDB; t != nil {
		if err := insertBackend("timescaledb", t.ConnectionString, "", false); err != nil {
			return err
		}
	}
	if cp := c.Storage.Checkpoint; cp != nil {
		if err := insertBackend("checkpoint", "", cp.Path, cp.Resume); err != nil {
			return err
		}
	}
	if n := c.Storage.NetCDF; n != nil {
		if err := insertBackend("netcdf", "", n.File, false); err != nil {
			return err
		}
	}

	if r := c.REST; r != nil {
		if _, err := tx.Exec(`INSERT INTO rest_server (config_id, listen_addr, port) VALUES (?, ?, ?)`,
			configID, r.ListenAddr, r.Port); err != nil {
			return fmt.Errorf("failed to insert rest config: %w", err)
		}
	}

	return tx.Commit()
}

func insertForcing(tx *sql.Tx, configID int64, f ForcingData) error {
	var err error
	switch {
	case f.NetCDF != nil:
		n := f.NetCDF
		_, err = tx.Exec(`
			INSERT INTO forcing (config_id, type, file, var_precipitation, var_air_temp, var_air_temp_sd, var_icemask)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			configID, ForcingNetCDF, n.File, n.Precipitation, n.AirTemp, n.AirTempSD, n.IceMask)
	case f.Synthetic != nil:
		s := f.Synthetic
		_, err = tx.Exec(`
			INSERT INTO forcing (config_id, type, syn_rows, syn_cols, syn_samples,
			                     syn_base_elevation, syn_elevation_gradient, syn_mean_temp, syn_ref_elevation,
			                     syn_amplitude, syn_lapse_rate, syn_warming_rate, syn_base_year,
			                     syn_precipitation, syn_temp_sd, syn_glacier_above)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			configID, ForcingSynthetic, s.Rows, s.Cols, s.Samples,
			s.BaseElevation, s.ElevationGradient, s.MeanTemp, s.RefElevation,
			s.Amplitude, s.LapseRate, s.WarmingRate, s.BaseYear,
			s.Precipitation, s.TempSD, s.GlacierAbove)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert forcing: %w", err)
	}
	return nil
}

// IsReadOnly returns false; the database can be written with SaveConfig.
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
