// Package timescaledb stores per-update mass-balance summaries in a
// TimescaleDB hypertable.
package timescaledb

import (
	"context"
	"fmt"

	"github.com/chrissnell/icemass/internal/database"
	"github.com/chrissnell/icemass/internal/log"
	"github.com/chrissnell/icemass/internal/storage"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gorm.io/gorm"
)

const (
	createExtensionSQL  = `CREATE EXTENSION IF NOT EXISTS timescaledb;`
	createHypertableSQL = `SELECT create_hypertable('smb_updates', 'time', if_not_exists => true, migrate_data => true);`
)

// Storage holds the connection to a TimescaleDB database
type Storage struct {
	DB     *gorm.DB
	logger *zap.SugaredLogger
}

// New connects, migrates the smb_updates table and turns it into a hypertable.
func New(ctx context.Context, connectionString string, l *zap.SugaredLogger) (*Storage, error) {
	l = log.OrNop(l)

	db, err := database.CreateConnection(connectionString, l)
	if err != nil {
		return nil, err
	}

	return newStorage(ctx, db, l)
}

// newStorage prepares the schema on db. The connection pool is closed when
// that fails.
func newStorage(ctx context.Context, db *gorm.DB, l *zap.SugaredLogger) (*Storage, error) {
	l = log.OrNop(l)
	t := &Storage{DB: db, logger: l}
	if err := t.setup(ctx); err != nil {
		if cerr := t.Close(); cerr != nil {
			l.Warnf("closing TimescaleDB connection: %v", cerr)
		}
		return nil, err
	}
	return t, nil
}

func (t *Storage) setup(ctx context.Context) error {
	db := t.DB.WithContext(ctx)

	t.logger.Info("creating TimescaleDB extension...")
	if err := db.Exec(createExtensionSQL).Error; err != nil {
		return fmt.Errorf("timescaledb: creating extension: %w", err)
	}

	t.logger.Info("migrating smb_updates table...")
	if err := db.AutoMigrate(&SMBUpdate{}); err != nil {
		return fmt.Errorf("timescaledb: migrating: %w", err)
	}

	t.logger.Info("creating hypertable...")
	if err := db.Exec(createHypertableSQL).Error; err != nil {
		return fmt.Errorf("timescaledb: creating hypertable: %w", err)
	}
	return nil
}

func (t *Storage) Name() string { return "timescaledb" }

// Store inserts the summary of rec; the grid itself is not stored.
func (t *Storage) Store(ctx context.Context, rec storage.Record, _ *mat.Dense) error {
	row := fromRecord(rec)
	if err := t.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("timescaledb: storing update at t=%g: %w", rec.Year, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (t *Storage) Close() error {
	sqlDB, err := t.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
