// Package trip plans a drive and suggests charging stops when the vehicle's
// remaining range does not comfortably cover it.
package trip

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/routing"
	"github.com/chargeopt/chargeopt/internal/station"
	"github.com/chargeopt/chargeopt/pkg/polyline"
)

// Planning defaults.
const (
	DefaultRangeMiles     = 250.0
	DefaultBatteryPercent = 80.0

	// SafetyMargin is the share of available range a trip may use before
	// charging is suggested.
	SafetyMargin = 0.8

	StopSearchRadiusMiles = 6.0
	MaxStops              = 3
)

// ErrInvalidRequest marks client input errors.
var ErrInvalidRequest = errors.New("invalid trip request")

// DirectionsSource resolves a driving route.
type DirectionsSource interface {
	GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.Directions, error)
}

// StationFinder finds stations near a point.
type StationFinder interface {
	Nearby(lat, lon, radiusMiles float64, limit int) []station.Match
}

// Request describes a trip.
type Request struct {
	Start          routing.Location
	End            routing.Location
	RangeMiles     float64
	BatteryPercent float64
}

// Plan is the planner's answer.
type Plan struct {
	Directions *routing.Directions

	DistanceMiles   float64
	DurationMinutes float64

	NeedsCharging       bool
	AvailableRangeMiles float64

	// Midpoint is where stops were searched; set only when charging is needed.
	Midpoint *routing.Coordinate
	Stops    []station.Match
}

// PlannerConfig configures a Planner.
type PlannerConfig struct {
	Directions DirectionsSource
	Stations   StationFinder
	Logger     zerolog.Logger
}

// Planner plans trips.
type Planner struct {
	directions DirectionsSource
	stations   StationFinder
	logger     zerolog.Logger
}

// NewPlanner creates a trip planner.
func NewPlanner(cfg PlannerConfig) *Planner {
	return &Planner{
		directions: cfg.Directions,
		stations:   cfg.Stations,
		logger:     cfg.Logger,
	}
}

// Validate checks request bounds.
func (p *Planner) Validate(req Request) error {
	switch {
	case req.Start.IsZero():
		return fmt.Errorf("%w: start location is required", ErrInvalidRequest)
	case req.End.IsZero():
		return fmt.Errorf("%w: end location is required", ErrInvalidRequest)
	case math.IsNaN(req.RangeMiles) || req.RangeMiles <= 0:
		return fmt.Errorf("%w: vehicle range must be positive", ErrInvalidRequest)
	case math.IsNaN(req.BatteryPercent) || req.BatteryPercent < 0 || req.BatteryPercent > 100:
		return fmt.Errorf("%w: battery percent must be within [0, 100]", ErrInvalidRequest)
	}
	return nil
}

// Plan fetches the route and, when distance exceeds SafetyMargin of the
// available range, suggests up to MaxStops stations within
// StopSearchRadiusMiles of the route's midpoint by distance.
func (p *Planner) Plan(ctx context.Context, req Request) (*Plan, error) {
	if err := p.Validate(req); err != nil {
		return nil, err
	}

	dir, err := p.directions.GetDirections(ctx, routing.DirectionsRequest{
		Origin:      req.Start,
		Destination: req.End,
	})
	if err != nil {
		return nil, err
	}

	r := dir.Route
	plan := &Plan{
		Directions:          dir,
		DistanceMiles:       r.DistanceMiles(),
		DurationMinutes:     r.DurationMinutes(),
		AvailableRangeMiles: req.RangeMiles * req.BatteryPercent / 100,
		Stops:               []station.Match{},
	}
	plan.NeedsCharging = plan.DistanceMiles > plan.AvailableRangeMiles*SafetyMargin
	if !plan.NeedsCharging {
		return plan, nil
	}

	mid := p.midpoint(r)
	plan.Midpoint = &mid
	if p.stations != nil {
		plan.Stops = p.stations.Nearby(mid.Lat, mid.Lon, StopSearchRadiusMiles, MaxStops)
	}

	p.logger.Debug().
		Float64("distance_miles", plan.DistanceMiles).
		Float64("available_range_miles", plan.AvailableRangeMiles).
		Int("stops", len(plan.Stops)).
		Msg("charging stops suggested")

	return plan, nil
}

// midpoint walks the decoded overview polyline to half its length. If the
// polyline is missing or malformed it falls back to the straight midpoint
// of the leg's end points.
func (p *Planner) midpoint(r routing.Route) routing.Coordinate {
	coords, err := polyline.Decode(r.Polyline)
	if err != nil {
		p.logger.Warn().Err(err).Msg("route polyline unreadable, using straight midpoint")
	}
	if mid, ok := polyline.Midpoint(coords); ok && err == nil {
		return routing.Coordinate{Lat: mid.Lat, Lon: mid.Lon}
	}
	return routing.Coordinate{
		Lat: (r.StartLocation.Lat + r.EndLocation.Lat) / 2,
		Lon: (r.StartLocation.Lon + r.EndLocation.Lon) / 2,
	}
}
