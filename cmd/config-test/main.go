package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/chrissnell/icemass/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlConfig, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	yamlConfig.ApplyDefaults()
	sqliteConfig.ApplyDefaults()

	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	sections := []struct {
		name       string
		yaml, sqlt interface{}
	}{
		{"simulation", yamlConfig.Simulation, sqliteConfig.Simulation},
		{"smb", yamlConfig.SMB, sqliteConfig.SMB},
		{"forcing", yamlConfig.Forcing, sqliteConfig.Forcing},
		{"glacier", yamlConfig.Glacier, sqliteConfig.Glacier},
		{"storage", yamlConfig.Storage, sqliteConfig.Storage},
		{"rest", yamlConfig.REST, sqliteConfig.REST},
	}

	mismatches := 0
	for _, s := range sections {
		if reflect.DeepEqual(s.yaml, s.sqlt) {
			fmt.Printf("✓ %s matches\n", s.name)
			continue
		}
		mismatches++
		fmt.Printf("✗ %s differs\n", s.name)
		fmt.Printf("    YAML:   %+v\n", s.yaml)
		fmt.Printf("    SQLite: %+v\n", s.sqlt)
	}

	if mismatches > 0 {
		fmt.Printf("\n%d section(s) differ\n", mismatches)
		os.Exit(1)
	}
	fmt.Println("\nConfigurations are equivalent")
}
