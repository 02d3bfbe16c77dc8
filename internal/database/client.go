// Package database opens GORM connections to PostgreSQL/TimescaleDB with the
// process logger bridged into GORM's.
package database

import (
	"fmt"
	"time"

	"github.com/chrissnell/icemass/internal/log"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewGormLogger routes GORM's slow-query and error output through l.
func NewGormLogger(l *zap.SugaredLogger) logger.Interface {
	return logger.New(
		zap.NewStdLog(log.OrNop(l).Desugar()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// CreateConnection is a helper function to create a database connection with standard GORM configuration
func CreateConnection(connectionString string, l *zap.SugaredLogger) (*gorm.DB, error) {
	l = log.OrNop(l)

	l.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: NewGormLogger(l)})
	if err != nil {
		l.Warnf("unable to create a TimescaleDB connection: %v", err)
		return nil, fmt.Errorf("connecting to TimescaleDB: %w", err)
	}
	l.Info("TimescaleDB connection successful")

	return db, nil
}
