// Package station holds the EV charging station dataset and answers
// nearest-station queries over it.
package station

import (
	"errors"
)

// Station errors.
var (
	ErrNotLoaded       = errors.New("station data not loaded")
	ErrMissingColumn   = errors.New("missing required column")
	ErrInvalidLocation = errors.New("invalid coordinates")
)

// Query defaults and bounds.
const (
	DefaultRadiusMiles = 5.0
	DefaultLimit       = 20
	MaxLimit           = 100

	// MilesPerDegree is the flat-earth conversion used for distances. It is
	// only accurate for short radii at Los Angeles' latitude.
	MilesPerDegree = 69.0

	// HighCapacityPorts is the port count at which a station counts as high capacity.
	HighCapacityPorts = 4
)

// Station is a charging station.
type Station struct {
	ID         string
	Name       string
	Lat        float64
	Lon        float64
	TotalPorts int
	HasDCFast  bool
	IsPublic   bool
	Network    string
}

// HighCapacity reports whether the station has at least HighCapacityPorts ports.
func (s Station) HighCapacity() bool {
	return s.TotalPorts >= HighCapacityPorts
}

// Match is a station found by a proximity query.
type Match struct {
	Station       Station
	DistanceMiles float64
}

// Summary aggregates the whole dataset.
type Summary struct {
	TotalStations        int
	HighCapacityStations int
	TotalPorts           int
	DCFastStations       int
	PublicStations       int
	Networks             map[string]int
}

// Summarize computes dataset statistics.
func Summarize(stations []Station) Summary {
	s := Summary{
		TotalStations: len(stations),
		Networks:      make(map[string]int),
	}
	for _, st := range stations {
		s.TotalPorts += st.TotalPorts
		if st.HighCapacity() {
			s.HighCapacityStations++
		}
		if st.HasDCFast {
			s.DCFastStations++
		}
		if st.IsPublic {
			s.PublicStations++
		}
		network := st.Network
		if network == "" {
			network = "Unknown"
		}
		s.Networks[network]++
	}
	return s
}
