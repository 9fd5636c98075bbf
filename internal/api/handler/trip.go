package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/api/models"
	"github.com/chargeopt/chargeopt/internal/api/response"
	"github.com/chargeopt/chargeopt/internal/routing"
	"github.com/chargeopt/chargeopt/internal/trip"
)

// TripPlanner plans a drive with charging stops.
type TripPlanner interface {
	Plan(ctx context.Context, req trip.Request) (*trip.Plan, error)
}

// DirectionsFinder resolves driving directions.
type DirectionsFinder interface {
	GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.Directions, error)
}

// TripConfig holds the dependencies of TripHandler.
type TripConfig struct {
	Planner    TripPlanner
	Directions DirectionsFinder
	Logger     zerolog.Logger
	Debug      bool
	Location   *time.Location
}

// TripHandler handles route optimization and directions.
type TripHandler struct {
	planner    TripPlanner
	directions DirectionsFinder
	logger     zerolog.Logger
	debug      bool
	loc        *time.Location
	now        func() time.Time
}

// NewTripHandler creates a TripHandler.
func NewTripHandler(cfg TripConfig) *TripHandler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &TripHandler{
		planner:    cfg.Planner,
		directions: cfg.Directions,
		logger:     cfg.Logger,
		debug:      cfg.Debug,
		loc:        loc,
		now:        time.Now,
	}
}

// OptimizeRoute handles POST /api/route-optimization.
func (h *TripHandler) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	var input models.RouteOptimizationRequest
	if !response.Decode(w, r, &input) {
		return
	}

	var fieldErrs []models.FieldError
	if input.StartLocation.IsZero() {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "start_location", Message: "required"})
	}
	if input.EndLocation.IsZero() {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "end_location", Message: "required"})
	}
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "start and end locations are required", fieldErrs)
		return
	}

	req := trip.Request{
		Start:          toRoutingLocation(input.StartLocation),
		End:            toRoutingLocation(input.EndLocation),
		RangeMiles:     trip.DefaultRangeMiles,
		BatteryPercent: trip.DefaultBatteryPercent,
	}
	if input.VehicleRangeMiles != nil {
		req.RangeMiles = *input.VehicleRangeMiles
	}
	if input.CurrentBatteryPercent != nil {
		req.BatteryPercent = *input.CurrentBatteryPercent
	}

	plan, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		writeRoutingError(w, r, h.logger, h.debug, err)
		return
	}

	stops := make([]models.ChargingStop, 0, len(plan.Stops))
	for _, m := range plan.Stops {
		stops = append(stops, models.ChargingStop{
			Name:              m.Station.Name,
			Latitude:          m.Station.Lat,
			Longitude:         m.Station.Lon,
			DistanceFromRoute: round(m.DistanceMiles, 2),
			HasDCFast:         m.Station.HasDCFast,
			Network:           m.Station.Network,
		})
	}

	analysis := models.ChargingAnalysis{
		NeedsCharging:       plan.NeedsCharging,
		AvailableRangeMiles: round(plan.AvailableRangeMiles, 1),
		SuggestedStops:      stops,
	}
	if plan.Midpoint != nil {
		analysis.SearchPoint = &models.Point{Lat: plan.Midpoint.Lat, Lon: plan.Midpoint.Lon}
	}

	route := plan.Directions.Route
	response.OK(w, r, models.RouteOptimizationResponse{
		Envelope: models.Success(h.now()),
		Route: models.RouteOverview{
			DistanceMiles:   round(plan.DistanceMiles, 1),
			DurationMinutes: round(plan.DurationMinutes, 1),
			Polyline:        route.Polyline,
			Summary:         route.Summary,
		},
		ChargingAnalysis: analysis,
	})
}

// Directions handles POST /api/directions.
func (h *TripHandler) Directions(w http.ResponseWriter, r *http.Request) {
	var input models.DirectionsRequest
	if !response.Decode(w, r, &input) {
		return
	}

	var fieldErrs []models.FieldError
	if input.Origin.IsZero() {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "origin", Message: "required"})
	}
	if input.Destination.IsZero() {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "destination", Message: "required"})
	}

	req := routing.DirectionsRequest{
		Origin:      toRoutingLocation(input.Origin),
		Destination: toRoutingLocation(input.Destination),
	}
	if dep := strings.TrimSpace(input.DepartureTime); dep != "" && !strings.EqualFold(dep, "now") {
		t, err := parseTime(dep, h.loc)
		if err != nil {
			fieldErrs = append(fieldErrs, models.FieldError{Field: "departure_time", Message: err.Error()})
		}
		req.DepartureTime = t
	}

	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "origin and destination are required", fieldErrs)
		return
	}

	dir, err := h.directions.GetDirections(r.Context(), req)
	if err != nil {
		writeRoutingError(w, r, h.logger, h.debug, err)
		return
	}

	route := dir.Route
	resp := models.DirectionsResponse{
		Envelope:      models.Success(h.now()),
		Distance:      route.DistanceText,
		DistanceValue: route.DistanceMeters,
		Duration:      route.DurationText,
		DurationValue: route.DurationSeconds,
		StartAddress:  route.StartAddress,
		EndAddress:    route.EndAddress,
		Polyline:      route.Polyline,
		Summary:       route.Summary,
		Provider:      dir.Provider,
	}
	if delay, ok := route.TrafficDelayMinutes(); ok {
		seconds := route.DurationInTrafficSeconds
		resp.DurationInTraffic = route.DurationInTrafficText
		resp.DurationInTrafficValue = &seconds
		resp.TrafficDelayMinutes = &delay
	}

	response.OK(w, r, resp)
}
