package station

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// stationsTable holds the station dataset.
const stationsTable = "ev_stations"

var stationColumns = []string{
	ColumnID, ColumnName, ColumnLatitude, ColumnLongitude,
	ColumnPorts, ColumnDCFast, ColumnPublic, ColumnNetwork,
}

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL station repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Name implements Repository.
func (r *PostgresRepository) Name() string {
	return "postgres"
}

// List implements Repository.
func (r *PostgresRepository) List(ctx context.Context) ([]Station, error) {
	query := `
		SELECT
			id, station_name, latitude, longitude,
			total_charging_ports, has_dc_fast, is_public, ev_network
		FROM ev_stations
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stations: %w", err)
	}

	stations, err := pgx.CollectRows(rows, scanStation)
	if err != nil {
		return nil, fmt.Errorf("scan stations: %w", err)
	}
	return stations, nil
}

func scanStation(row pgx.CollectableRow) (Station, error) {
	var (
		s       Station
		name    *string
		network *string
	)
	err := row.Scan(
		&s.ID,
		&name,
		&s.Lat,
		&s.Lon,
		&s.TotalPorts,
		&s.HasDCFast,
		&s.IsPublic,
		&network,
	)
	if err != nil {
		return Station{}, err
	}

	s.Name = "Unknown"
	if name != nil && *name != "" {
		s.Name = *name
	}
	s.Network = "Unknown"
	if network != nil && *network != "" {
		s.Network = *network
	}
	return s, nil
}

// ReplaceAll swaps the table contents for stations in one transaction,
// bulk-loading with COPY.
func (r *PostgresRepository) ReplaceAll(ctx context.Context, stations []Station) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM ev_stations`); err != nil {
		return 0, fmt.Errorf("clear stations: %w", err)
	}

	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{stationsTable},
		stationColumns,
		pgx.CopyFromSlice(len(stations), func(i int) ([]any, error) {
			s := stations[i]
			return []any{s.ID, s.Name, s.Lat, s.Lon, s.TotalPorts, s.HasDCFast, s.IsPublic, s.Network}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy stations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Schema is the DDL for the stations table.
const Schema = `
CREATE TABLE IF NOT EXISTS ev_stations (
	id                   TEXT PRIMARY KEY,
	station_name         TEXT,
	latitude             DOUBLE PRECISION NOT NULL,
	longitude            DOUBLE PRECISION NOT NULL,
	total_charging_ports INTEGER NOT NULL DEFAULT 0,
	has_dc_fast          BOOLEAN NOT NULL DEFAULT FALSE,
	is_public            BOOLEAN NOT NULL DEFAULT FALSE,
	ev_network           TEXT
)`

// EnsureSchema creates the stations table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create ev_stations: %w", err)
	}
	return nil
}
