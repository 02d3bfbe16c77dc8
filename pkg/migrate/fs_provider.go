package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour of the tracking table.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

var migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// FSProvider loads migrations named 001_name.up.sql / 001_name.down.sql from
// the root of an fs.FS, typically an embed.FS.
type FSProvider struct {
	fsys    fs.FS
	table   string
	dialect Dialect
}

// NewFSProvider creates a provider; an empty table means "schema_migrations".
func NewFSProvider(fsys fs.FS, table string, dialect Dialect) *FSProvider {
	if table == "" {
		table = "schema_migrations"
	}
	return &FSProvider{fsys: fsys, table: table, dialect: dialect}
}

// GetMigrations loads all migrations from the filesystem
func (p *FSProvider) GetMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(p.fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := make(map[int]*Migration)
	var order []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		matches := migrationFile.FindStringSubmatch(e.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return nil, fmt.Errorf("invalid version number in file %s: %w", e.Name(), err)
		}
		content, err := fs.ReadFile(p.fsys, e.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", e.Name(), err)
		}

		mg, ok := byVersion[version]
		if !ok {
			mg = &Migration{Version: version, Name: strings.ReplaceAll(matches[2], "_", " ")}
			byVersion[version] = mg
			order = append(order, version)
		}
		if matches[3] == "up" {
			mg.Up = string(content)
		} else {
			mg.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(order))
	for _, v := range order {
		migrations = append(migrations, *byVersion[v])
	}
	return migrations, nil
}

// CreateMigrationTable creates the migration tracking table
func (p *FSProvider) CreateMigrationTable(db *sql.DB) error {
	ts := "DATETIME"
	if p.dialect == Postgres {
		ts = "TIMESTAMP"
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		applied_at %s DEFAULT CURRENT_TIMESTAMP
	)`, p.table, ts)

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

// GetCurrentVersion returns the highest applied migration version
func (p *FSProvider) GetCurrentVersion(db *sql.DB) (int, error) {
	var version int
	query := fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", p.table)
	if err := db.QueryRow(query).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

// SetVersion records version as the latest applied; 0 clears the table.
func (p *FSProvider) SetVersion(db DB, version int) error {
	var err error
	switch {
	case version == 0:
		_, err = db.Exec(fmt.Sprintf("DELETE FROM %s", p.table))
	case p.dialect == Postgres:
		// rows above version are left by rollbacks and must go first
		if _, err = db.Exec(fmt.Sprintf("DELETE FROM %s WHERE version > $1", p.table), version); err == nil {
			_, err = db.Exec(fmt.Sprintf(`INSERT INTO %s (version, applied_at)
				VALUES ($1, CURRENT_TIMESTAMP)
				ON CONFLICT (version) DO UPDATE SET applied_at = CURRENT_TIMESTAMP`, p.table), version)
		}
	default:
		if _, err = db.Exec(fmt.Sprintf("DELETE FROM %s WHERE version > ?", p.table), version); err == nil {
			_, err = db.Exec(fmt.Sprintf(`INSERT OR REPLACE INTO %s (version, applied_at)
				VALUES (?, CURRENT_TIMESTAMP)`, p.table), version)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	return nil
}
