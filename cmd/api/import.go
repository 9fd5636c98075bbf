package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chargeopt/chargeopt/internal/database"
	"github.com/chargeopt/chargeopt/internal/station"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import-stations",
	Short: "Load the station CSV into Postgres",
	Long: `Reads the charging station CSV and replaces the stations table with its
contents. The table is created when missing. Rows without usable
coordinates are skipped.`,
	RunE: importStations,
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "station CSV (default: stations.csv_path)")
	rootCmd.AddCommand(importCmd)
}

func importStations(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	ctx := cmd.Context()

	path := importCSVPath
	if path == "" {
		path = cfg.Stations.CSVPath
	}

	start := time.Now()
	stations, err := station.NewCSVRepository(path).List(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	logDatabase(log, cfg.Database)

	repo := station.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	n, err := repo.ReplaceAll(ctx, stations)
	if err != nil {
		return fmt.Errorf("replace stations: %w", err)
	}

	log.Info().
		Str("csv", path).
		Int64("imported", n).
		Dur("duration", time.Since(start)).
		Msg("stations imported")
	return nil
}
