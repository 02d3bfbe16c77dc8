package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/icemass/internal/app"
	"github.com/chrissnell/icemass/internal/constants"
	"github.com/chrissnell/icemass/internal/log"
	"github.com/chrissnell/icemass/pkg/config"
)

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db\n\t\t\t  Use 'config-convert' tool to convert YAML→SQLite")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	check := flag.Bool("check", false, "Validate the configuration, print the resolved mass-balance parameters and exit")
	noServe := flag.Bool("no-serve", false, "Exit after the simulation even if a REST server is configured")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("icemass %s\n", constants.Version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Load configuration
	cfgData, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	if *check {
		if err := cfgData.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Configuration is invalid:\n%v\n", err)
			os.Exit(1)
		}
		p := cfgData.SMB.Params()
		fmt.Printf("Configuration OK: %g to %g every %g y, forcing %s\n",
			cfgData.Simulation.Start, cfgData.Simulation.End, cfgData.Simulation.Step, cfgData.Forcing.Type)
		fmt.Printf("  update_freq=%g refreeze=%g thr_temp_snow=%g thr_temp_rain=%g\n",
			p.UpdateFreq, p.RefreezeFactor, p.ThrTempSnow, p.ThrTempRain)
		fmt.Printf("  melt_factor_snow=%g melt_factor_ice=%g shift_hydro_year=%g\n",
			p.MeltFactorSnow, p.MeltFactorIce, p.ShiftHydroYear)
		fmt.Printf("  ice_density=%g water_density=%g\n", p.IceDensity, p.WaterDensity)
		return
	}
	if *noServe {
		cfgData.REST = nil
	}

	application := app.New(cfgData, log.GetSugaredLogger())
	if err := application.Run(context.Background()); err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cfgFile, cfgBackend string) (*config.ConfigData, error) {
	filename, _ := filepath.Abs(cfgFile)

	var provider config.ConfigProvider
	var err error

	switch cfgBackend {
	case "yaml":
		provider = config.NewYAMLProvider(filename)
	case "sqlite":
		provider, err = config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error reading config file. Did you pass the -config flag? Run with -h for help: %w", err)
	}

	return cfgData, nil
}
