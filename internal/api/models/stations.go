package models

// Station is a charging station as returned by the stations endpoint.
type Station struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	DistanceMiles float64 `json:"distance_miles"`
	TotalPorts    int     `json:"total_ports"`
	HasDCFast     bool    `json:"has_dc_fast"`
	IsPublic      bool    `json:"is_public"`
	Network       string  `json:"network"`
}

// StationQuery echoes the effective query.
type StationQuery struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	RadiusMiles float64 `json:"radius_miles"`
	Limit       int     `json:"limit"`
}

// NearbyStationsResponse lists stations near a point, nearest first.
type NearbyStationsResponse struct {
	Envelope
	Stations []Station    `json:"stations"`
	Count    int          `json:"count"`
	Query    StationQuery `json:"query"`
}

// StationSummary aggregates the dataset.
type StationSummary struct {
	TotalStations        int            `json:"total_stations"`
	HighCapacityStations int            `json:"high_capacity_stations"`
	TotalPorts           int            `json:"total_ports"`
	DCFastStations       int            `json:"dc_fast_stations"`
	PublicStations       int            `json:"public_stations"`
	Networks             map[string]int `json:"networks"`
}

// StationSummaryResponse is returned when no coordinates are given.
type StationSummaryResponse struct {
	Envelope
	Summary              StationSummary `json:"summary"`
	TotalStations        int            `json:"total_stations"`
	HighCapacityStations int            `json:"high_capacity_stations"`
}
