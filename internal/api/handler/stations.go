package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/chargeopt/chargeopt/internal/api/models"
	"github.com/chargeopt/chargeopt/internal/api/response"
	"github.com/chargeopt/chargeopt/internal/station"
)

// StationQuerier answers station lookups.
type StationQuerier interface {
	Nearby(lat, lon, radiusMiles float64, limit int) []station.Match
	Summary() station.Summary
}

// StationsHandler serves the station dataset.
type StationsHandler struct {
	stations StationQuerier
	now      func() time.Time
}

// NewStationsHandler creates a StationsHandler.
func NewStationsHandler(stations StationQuerier) *StationsHandler {
	return &StationsHandler{stations: stations, now: time.Now}
}

// ListStations handles GET /api/stations. With lat and lon it returns the
// nearest stations within radius (miles); without either it returns dataset
// statistics.
func (h *StationsHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	latStr, lonStr := q.Get("lat"), q.Get("lon")

	if latStr == "" && lonStr == "" {
		h.summary(w, r)
		return
	}
	if latStr == "" || lonStr == "" {
		response.BadRequest(w, r, "lat and lon must be provided together", []models.FieldError{
			{Field: "lat", Message: "required with lon"},
			{Field: "lon", Message: "required with lat"},
		})
		return
	}

	var fieldErrs []models.FieldError
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "lat", Message: "must be a number in [-90, 90]"})
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "lon", Message: "must be a number in [-180, 180]"})
	}

	radius := station.DefaultRadiusMiles
	if s := q.Get("radius"); s != "" {
		radius, err = strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(radius) || radius <= 0 {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "radius", Message: "must be a positive number of miles"})
		}
	}

	limit := station.DefaultLimit
	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "limit", Message: "must be an integer"})
		}
	}

	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid station query", fieldErrs)
		return
	}

	limit = station.ClampLimit(limit)
	matches := h.stations.Nearby(lat, lon, radius, limit)

	out := make([]models.Station, 0, len(matches))
	for _, m := range matches {
		out = append(out, models.Station{
			ID:            m.Station.ID,
			Name:          m.Station.Name,
			Latitude:      m.Station.Lat,
			Longitude:     m.Station.Lon,
			DistanceMiles: round(m.DistanceMiles, 2),
			TotalPorts:    m.Station.TotalPorts,
			HasDCFast:     m.Station.HasDCFast,
			IsPublic:      m.Station.IsPublic,
			Network:       m.Station.Network,
		})
	}

	response.OK(w, r, models.NearbyStationsResponse{
		Envelope: models.Success(h.now()),
		Stations: out,
		Count:    len(out),
		Query:    models.StationQuery{Lat: lat, Lon: lon, RadiusMiles: radius, Limit: limit},
	})
}

func (h *StationsHandler) summary(w http.ResponseWriter, r *http.Request) {
	s := h.stations.Summary()
	networks := s.Networks
	if networks == nil {
		networks = map[string]int{}
	}
	response.OK(w, r, models.StationSummaryResponse{
		Envelope: models.Success(h.now()),
		Summary: models.StationSummary{
			TotalStations:        s.TotalStations,
			HighCapacityStations: s.HighCapacityStations,
			TotalPorts:           s.TotalPorts,
			DCFastStations:       s.DCFastStations,
			PublicStations:       s.PublicStations,
			Networks:             networks,
		},
		TotalStations:        s.TotalStations,
		HighCapacityStations: s.HighCapacityStations,
	})
}
