// Package migrate applies numbered SQL migrations to a database/sql handle
// and records the applied version in a tracking table.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/chrissnell/icemass/internal/log"
	"go.uber.org/zap"
)

// Migration represents a single database migration
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// DB represents either a database connection or transaction
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Provider loads migrations and tracks the applied version.
type Provider interface {
	GetMigrations() ([]Migration, error)
	GetCurrentVersion(db *sql.DB) (int, error)
	SetVersion(db DB, version int) error
	CreateMigrationTable(db *sql.DB) error
}

// Migrator handles the execution of migrations
type Migrator struct {
	db       *sql.DB
	provider Provider
	logger   *zap.SugaredLogger
}

// NewMigrator creates a new migrator instance. logger may be nil.
func NewMigrator(db *sql.DB, provider Provider, logger *zap.SugaredLogger) *Migrator {
	return &Migrator{
		db:       db,
		provider: provider,
		logger:   log.OrNop(logger),
	}
}

// MigrateUp runs all pending migrations up to the latest version
func (m *Migrator) MigrateUp() error {
	return m.MigrateTo(-1)
}

// MigrateTo runs migrations up or down to reach targetVersion; -1 means latest.
func (m *Migrator) MigrateTo(targetVersion int) error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}

	migrations, err := m.sorted()
	if err != nil {
		return err
	}
	if targetVersion == -1 {
		targetVersion = 0
		if len(migrations) > 0 {
			targetVersion = migrations[len(migrations)-1].Version
		}
	}

	if targetVersion < current {
		return m.MigrateDown(targetVersion)
	}

	for _, mg := range migrations {
		if mg.Version > current && mg.Version <= targetVersion {
			if err := m.execute(mg, true); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", mg.Version, err)
			}
		}
	}
	return nil
}

// MigrateDown reverts migrations above targetVersion, newest first.
func (m *Migrator) MigrateDown(targetVersion int) error {
	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}
	if targetVersion >= current {
		return fmt.Errorf("target version %d must be less than current version %d", targetVersion, current)
	}

	migrations, err := m.sorted()
	if err != nil {
		return err
	}
	for i := len(migrations) - 1; i >= 0; i-- {
		mg := migrations[i]
		if mg.Version > targetVersion && mg.Version <= current {
			if err := m.execute(mg, false); err != nil {
				return fmt.Errorf("failed to roll back migration %d: %w", mg.Version, err)
			}
		}
	}
	return nil
}

// CurrentVersion returns the highest applied version, creating the tracking
// table if needed.
func (m *Migrator) CurrentVersion() (int, error) {
	if err := m.provider.CreateMigrationTable(m.db); err != nil {
		return 0, fmt.Errorf("failed to create migration table: %w", err)
	}
	return m.provider.GetCurrentVersion(m.db)
}

// Pending returns migrations that haven't been applied yet
func (m *Migrator) Pending() ([]Migration, error) {
	current, err := m.CurrentVersion()
	if err != nil {
		return nil, err
	}
	migrations, err := m.sorted()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, mg := range migrations {
		if mg.Version > current {
			pending = append(pending, mg)
		}
	}
	return pending, nil
}

func (m *Migrator) sorted() ([]Migration, error) {
	migrations, err := m.provider.GetMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to get migrations: %w", err)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// execute runs one migration and its version bump in a transaction.
func (m *Migrator) execute(mg Migration, up bool) error {
	stmt, direction, newVersion := mg.Up, "up", mg.Version
	if !up {
		stmt, direction, newVersion = mg.Down, "down", mg.Version-1
	}
	if stmt == "" {
		return fmt.Errorf("migration %d has no %s SQL", mg.Version, direction)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if err := m.provider.SetVersion(tx, newVersion); err != nil {
		return fmt.Errorf("failed to update migration version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	m.logger.Infof("applied migration %d (%s) %s", mg.Version, mg.Name, direction)
	return nil
}
