package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/chrissnell/icemass/internal/log"
	"github.com/chrissnell/icemass/pkg/config"
	"github.com/chrissnell/icemass/pkg/migrate"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func main() {
	var (
		dbDriver       = flag.String("driver", "sqlite", "Database driver (sqlite, postgres)")
		dbDSN          = flag.String("dsn", "", "Database connection string")
		migrationDir   = flag.String("dir", "", "Migration directory (default: the built-in config schema)")
		migrationTable = flag.String("table", config.SchemaMigrationTable, "Migration table name")
		command        = flag.String("command", "up", "Migration command: up, down, to, version, status")
		targetVersion  = flag.String("target", "", "Target version for down/to commands")
		helpFlag       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if *dbDSN == "" {
		fmt.Fprintf(os.Stderr, "Error: -dsn flag is required\n")
		showHelp()
		os.Exit(1)
	}

	var dialect migrate.Dialect
	switch *dbDriver {
	case "sqlite":
		dialect = migrate.SQLite
	case "postgres":
		dialect = migrate.Postgres
	default:
		log.Fatalf("Unsupported driver: %s", *dbDriver)
	}

	var migrations fs.FS = config.SchemaMigrations()
	if *migrationDir != "" {
		migrations = os.DirFS(*migrationDir)
	}

	db, err := sql.Open(*dbDriver, *dbDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	migrator := migrate.NewMigrator(db, migrate.NewFSProvider(migrations, *migrationTable, dialect), log.GetSugaredLogger())

	switch *command {
	case "up":
		err = migrator.MigrateUp()
	case "down", "to":
		target := parseTarget(*targetVersion, *command)
		if *command == "down" {
			err = migrator.MigrateDown(target)
		} else {
			err = migrator.MigrateTo(target)
		}
	case "version":
		version, err := migrator.CurrentVersion()
		if err != nil {
			log.Fatalf("Failed to get current version: %v", err)
		}
		fmt.Printf("Current version: %d\n", version)
		return
	case "status":
		err = showStatus(migrator)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Migration command failed: %v", err)
	}
	fmt.Println("Migration completed successfully")
}

func parseTarget(v, command string) int {
	if v == "" {
		fmt.Fprintf(os.Stderr, "Error: -target flag is required for %s command\n", command)
		os.Exit(1)
	}
	target, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("Invalid target version: %v", err)
	}
	return target
}

func showStatus(migrator *migrate.Migrator) error {
	currentVersion, err := migrator.CurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	pending, err := migrator.Pending()
	if err != nil {
		return fmt.Errorf("failed to get pending migrations: %w", err)
	}

	fmt.Printf("Current version: %d\n", currentVersion)
	fmt.Printf("Pending migrations: %d\n", len(pending))
	for _, migration := range pending {
		fmt.Printf("  %d: %s\n", migration.Version, migration.Name)
	}
	return nil
}

func showHelp() {
	fmt.Println("Database Migration Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate [flags]")
	fmt.Println()
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up                 Apply all pending migrations")
	fmt.Println("  down               Roll back to target version")
	fmt.Println("  to                 Migrate to specific version (up or down)")
	fmt.Println("  version            Show current migration version")
	fmt.Println("  status             Show migration status")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  migrate -dsn config.db -command status")
	fmt.Println("  migrate -dsn config.db -command down -target 0")
	fmt.Println("  migrate -driver postgres -dsn 'host=localhost dbname=glacier sslmode=disable' \\")
	fmt.Println("          -dir cmd/pdd-calibrate/migrations -table calibration_schema_migrations -command up")
}
