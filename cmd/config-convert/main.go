package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/icemass/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if YAML file exists
	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	// Check if SQLite file already exists
	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	// Load YAML configuration
	fmt.Printf("Loading YAML configuration...\n")
	configData, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}
	if err := configData.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration is invalid:\n%v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		printConfigSummary(configData)
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	// Remove existing SQLite file if force is specified
	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Creating SQLite database...\n")
	if err := convert(*sqliteFile, configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing SQLite configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

func convert(dbPath string, configData *config.ConfigData) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	provider, err := config.NewSQLiteProvider(dbPath)
	if err != nil {
		return err
	}
	defer provider.Close()

	if err := config.InitSchema(provider.DB(), nil); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := config.SaveConfig(provider.DB(), configData); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	fmt.Printf("  Configuration successfully inserted into database\n")
	return nil
}

func printConfigSummary(c *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("Simulation: %q from %g to %g, step %g\n", c.Simulation.Name, c.Simulation.Start, c.Simulation.End, c.Simulation.Step)
	fmt.Printf("Forcing: %s\n", c.Forcing.Type)
	if c.Forcing.NetCDF != nil {
		fmt.Printf("  - file: %s\n", c.Forcing.NetCDF.File)
	}
	if s := c.Forcing.Synthetic; s != nil {
		fmt.Printf("  - %dx%d grid, %d samples per year\n", s.Rows, s.Cols, s.Samples)
	}
	fmt.Printf("SMB: update every %g y, refreeze %g, thresholds %g/%g °C\n",
		c.SMB.UpdateFreq, c.SMB.RefreezeFactor, c.SMB.ThrTempSnow, c.SMB.ThrTempRain)

	fmt.Printf("\nStorage Backends:\n")
	if c.Storage.TimescaleDB != nil {
		fmt.Printf("  - TimescaleDB: %s\n", c.Storage.TimescaleDB.ConnectionString)
	}
	if c.Storage.Checkpoint != nil {
		fmt.Printf("  - Checkpoint: %s (resume %v)\n", c.Storage.Checkpoint.Path, c.Storage.Checkpoint.Resume)
	}
	if c.Storage.NetCDF != nil {
		fmt.Printf("  - NetCDF: %s\n", c.Storage.NetCDF.File)
	}
	if c.REST != nil {
		fmt.Printf("\nREST server: %s:%d\n", c.REST.ListenAddr, c.REST.Port)
	}
}
