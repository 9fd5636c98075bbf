package station

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// CSV column names.
const (
	ColumnID        = "id"
	ColumnName      = "station_name"
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
	ColumnPorts     = "total_charging_ports"
	ColumnDCFast    = "has_dc_fast"
	ColumnPublic    = "is_public"
	ColumnNetwork   = "ev_network"
)

// CSVRepository reads stations from a CSV file with a header row.
type CSVRepository struct {
	path string
}

// NewCSVRepository creates a repository reading from path.
func NewCSVRepository(path string) *CSVRepository {
	return &CSVRepository{path: path}
}

// Name implements Repository.
func (r *CSVRepository) Name() string {
	return "csv:" + r.path
}

// List implements Repository. It re-reads the file on every call.
func (r *CSVRepository) List(_ context.Context) ([]Station, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open station csv: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only

	stations, _, err := ParseCSV(f)
	return stations, err
}

// ParseCSV reads station rows. Latitude and longitude columns are required;
// the rest are optional. Rows with unusable coordinates are skipped and
// counted.
func ParseCSV(r io.Reader) (stations []Station, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{ColumnLatitude, ColumnLongitude} {
		if _, ok := cols[required]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}

		lat, latErr := strconv.ParseFloat(field(rec, ColumnLatitude), 64)
		lon, lonErr := strconv.ParseFloat(field(rec, ColumnLongitude), 64)
		if latErr != nil || lonErr != nil || !validCoordinates(lat, lon) {
			skipped++
			continue
		}

		name := field(rec, ColumnName)
		if name == "" {
			name = "Unknown"
		}
		network := field(rec, ColumnNetwork)
		if network == "" {
			network = "Unknown"
		}

		stations = append(stations, Station{
			ID:         field(rec, ColumnID),
			Name:       name,
			Lat:        lat,
			Lon:        lon,
			TotalPorts: parsePorts(field(rec, ColumnPorts)),
			HasDCFast:  parseBool(field(rec, ColumnDCFast)),
			IsPublic:   parseBool(field(rec, ColumnPublic)),
			Network:    network,
		})
	}

	return stations, skipped, nil
}

// parsePorts accepts integers and float-formatted integers ("4.0").
func parsePorts(s string) int {
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 0 {
		return 0
	}
	return int(f)
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "1.0", "t", "true", "y", "yes":
		return true
	default:
		return false
	}
}

func validCoordinates(lat, lon float64) bool {
	return !math.IsNaN(lat) && !math.IsNaN(lon) &&
		lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
