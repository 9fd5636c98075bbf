// Package routing provides driving directions with live traffic.
package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for routing operations.
var (
	// ErrProviderUnavailable indicates the provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("routing provider unavailable")
	// ErrNotConfigured indicates no directions provider is configured.
	ErrNotConfigured = errors.New("routing provider not configured")
	// ErrNoRouteFound indicates no route exists between the given locations.
	ErrNoRouteFound = errors.New("no route found between the given locations")
	// ErrRateLimitExceeded indicates the provider quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrInvalidLocation indicates a missing or out-of-range location.
	ErrInvalidLocation = errors.New("invalid location")
)

const metersPerMile = 1609.344

// Provider defines the interface for directions providers.
type Provider interface {
	// GetDirections returns the primary driving route between two locations.
	GetDirections(ctx context.Context, req DirectionsRequest) (*Directions, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Location is either a coordinate or a free-text address.
type Location struct {
	Point   *Coordinate
	Address string
}

// At returns a coordinate location.
func At(lat, lon float64) Location {
	return Location{Point: &Coordinate{Lat: lat, Lon: lon}}
}

// Address returns an address location.
func Address(s string) Location {
	return Location{Address: s}
}

// IsZero reports whether neither a point nor an address is set.
func (l Location) IsZero() bool {
	return l.Point == nil && strings.TrimSpace(l.Address) == ""
}

// Validate checks that the location is usable.
func (l Location) Validate() error {
	if l.Point != nil {
		p := *l.Point
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
			return fmt.Errorf("%w: %f,%f out of range", ErrInvalidLocation, p.Lat, p.Lon)
		}
		return nil
	}
	if strings.TrimSpace(l.Address) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidLocation)
	}
	return nil
}

// String renders the location as a provider query value: "lat,lon" or the
// trimmed address.
func (l Location) String() string {
	if l.Point != nil {
		return strconv.FormatFloat(l.Point.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Point.Lon, 'f', -1, 64)
	}
	return strings.TrimSpace(l.Address)
}

// DirectionsRequest is a driving directions query.
type DirectionsRequest struct {
	Origin      Location
	Destination Location

	// DepartureTime enables traffic estimates. Zero means now.
	DepartureTime time.Time
}

// Directions is a provider answer for one request.
type Directions struct {
	Route     Route
	Provider  string
	FetchedAt time.Time
}

// Route is the primary route's single leg.
type Route struct {
	Polyline string // encoded overview polyline
	Summary  string

	DistanceMeters int
	DistanceText   string

	DurationSeconds int
	DurationText    string

	// Traffic fields are set only when the provider returned a traffic estimate.
	HasTraffic               bool
	DurationInTrafficSeconds int
	DurationInTrafficText    string

	StartAddress  string
	EndAddress    string
	StartLocation Coordinate
	EndLocation   Coordinate
}

// DistanceMiles returns the route length in miles.
func (r Route) DistanceMiles() float64 {
	return float64(r.DistanceMeters) / metersPerMile
}

// DurationMinutes returns the free-flow duration in minutes.
func (r Route) DurationMinutes() float64 {
	return float64(r.DurationSeconds) / 60
}

// TrafficDelayMinutes is the extra time due to traffic, rounded to one
// decimal. ok is false when no traffic estimate is available.
func (r Route) TrafficDelayMinutes() (minutes float64, ok bool) {
	if !r.HasTraffic {
		return 0, false
	}
	delay := float64(r.DurationInTrafficSeconds-r.DurationSeconds) / 60
	return math.Round(delay*10) / 10, true
}

// Error provides detailed error information from the routing provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
