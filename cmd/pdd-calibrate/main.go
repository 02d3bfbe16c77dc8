package main

import (
	"database/sql"
	"embed"
	"encoding/csv"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/chrissnell/icemass/pkg/migrate"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func main() {
	// Command line flags
	var (
		dbHost    = flag.String("db-host", "localhost", "Database host")
		dbPort    = flag.Int("db-port", 5432, "Database port")
		dbUser    = flag.String("db-user", "postgres", "Database user")
		dbPass    = flag.String("db-pass", "", "Database password")
		dbName    = flag.String("db-name", "glacier", "Database name")
		stake     = flag.String("stake", "", "Only use observations from this stake (default: all stakes)")
		since     = flag.String("since", "", "Only use periods starting on or after this date (YYYY-MM-DD)")
		initDB    = flag.Bool("init", false, "Create the stake_observations table and exit")
		csvOutput = flag.String("csv", "", "Optional CSV output file path")
	)
	flag.Parse()

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		*dbHost, *dbPort, *dbUser, *dbPass, *dbName)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error pinging database: %v\n", err)
		os.Exit(1)
	}

	if *initDB {
		if err := createSchema(db); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating schema: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("stake_observations table is ready")
		return
	}

	var sinceTime time.Time
	if *since != "" {
		sinceTime, err = time.Parse("2006-01-02", *since)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -since date: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Degree-Day Factor Calibration\n")
	fmt.Printf("=============================\n\n")
	fmt.Printf("Configuration:\n")
	if *stake != "" {
		fmt.Printf("  Stake: %s\n", *stake)
	} else {
		fmt.Printf("  Stake: all\n")
	}
	if !sinceTime.IsZero() {
		fmt.Printf("  Since: %s\n", sinceTime.Format("2006-01-02"))
	}
	fmt.Println()

	obs, err := fetchObservations(db, *stake, sinceTime)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying observations: %v\n", err)
		os.Exit(1)
	}
	if len(obs) < 3 {
		fmt.Fprintf(os.Stderr, "Error: Not enough observations (%d). Need at least 3.\n", len(obs))
		os.Exit(1)
	}
	fmt.Printf("Collected %d observations\n\n", len(obs))

	results, best, err := fitAll(obs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fitting models: %v\n", err)
		os.Exit(1)
	}

	displayComparison(results, best)
	displayConfigSnippet(best)

	if *csvOutput != "" {
		if err := exportCSV(*csvOutput, obs, best); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		} else {
			fmt.Printf("\nData exported to: %s\n", *csvOutput)
		}
	}
}

func createSchema(db *sql.DB) error {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	provider := migrate.NewFSProvider(sub, "calibration_schema_migrations", migrate.Postgres)
	return migrate.NewMigrator(db, provider, nil).MigrateUp()
}

func fetchObservations(db *sql.DB, stake string, since time.Time) ([]Observation, error) {
	query := `
		SELECT stake, period_start, period_end, pdd_snow, pdd_ice, ablation
		FROM stake_observations
		WHERE ($1 = '' OR stake = $1)
		  AND period_start >= $2
		ORDER BY stake, period_start
	`

	rows, err := db.Query(query, stake, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obs []Observation
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.Stake, &o.Start, &o.End, &o.PDDSnow, &o.PDDIce, &o.Ablation); err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning row: %v\n", err)
			continue
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

func displayComparison(results []FitResult, best FitResult) {
	fmt.Printf("Model Comparison\n")
	fmt.Printf("================\n\n")

	models := make([]FitResult, len(results))
	copy(models, results)
	sort.Slice(models, func(i, j int) bool {
		return models[i].AIC < models[j].AIC
	})

	fmt.Printf("%-22s | %10s | %10s | %8s | %10s | %10s | %10s\n", "Model", "f_snow", "f_ice", "R²", "RMSE(m)", "AIC", "BIC")
	fmt.Printf("-----------------------+------------+------------+----------+------------+------------+------------\n")
	for _, m := range models {
		marker := ""
		if m.ModelType == best.ModelType {
			marker = " ← BEST (AIC)"
		}
		fmt.Printf("%-22s | %10.5f | %10.5f | %8.4f | %10.4f | %10.2f | %10.2f%s\n",
			m.ModelName, m.MeltFactorSnow, m.MeltFactorIce, m.RSquared, m.RootMeanSquaredError, m.AIC, m.BIC, marker)
	}

	if best.MeltFactorSnow <= 0 || best.MeltFactorIce < 0 {
		fmt.Printf("\n  ⚠ WARNING: non-physical factors; check the PDD sums and surface classification\n")
	} else if best.MeltFactorIce < best.MeltFactorSnow {
		fmt.Printf("\n  ℹ Ice factor below snow factor; ice usually melts faster because of its lower albedo\n")
	}
	if best.RSquared < 0.5 {
		fmt.Printf("\n  ⚠ WARNING: Low R² (%.4f) - degree days explain little of the measured ablation\n", best.RSquared)
	}
	fmt.Println()
}

func displayConfigSnippet(best FitResult) {
	fmt.Printf("Configuration (%s)\n", best.ModelName)
	fmt.Printf("=====================\n\n")
	fmt.Printf("smb:\n")
	fmt.Printf("  melt_factor_snow: %.6f  # %.5f m w.e. °C⁻¹ d⁻¹\n", PerYear(best.MeltFactorSnow), best.MeltFactorSnow)
	fmt.Printf("  melt_factor_ice: %.6f   # %.5f m w.e. °C⁻¹ d⁻¹\n", PerYear(best.MeltFactorIce), best.MeltFactorIce)
}

func exportCSV(filename string, obs []Observation, model FitResult) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Stake", "PeriodStart", "PeriodEnd", "PDD_Snow", "PDD_Ice", "Ablation_mwe", "Predicted_mwe", "Residual_mwe"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, o := range obs {
		predicted := model.MeltFactorSnow*o.PDDSnow + model.MeltFactorIce*o.PDDIce
		record := []string{
			o.Stake,
			o.Start.Format(time.RFC3339),
			o.End.Format(time.RFC3339),
			fmt.Sprintf("%.1f", o.PDDSnow),
			fmt.Sprintf("%.1f", o.PDDIce),
			fmt.Sprintf("%.4f", o.Ablation),
			fmt.Sprintf("%.4f", predicted),
			fmt.Sprintf("%.4f", o.Ablation-predicted),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}
