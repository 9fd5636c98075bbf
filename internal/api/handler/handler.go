// Package handler provides HTTP handlers for the charging optimization API.
package handler

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/api/middleware"
	"github.com/chargeopt/chargeopt/internal/api/models"
	"github.com/chargeopt/chargeopt/internal/api/response"
	"github.com/chargeopt/chargeopt/internal/routing"
	"github.com/chargeopt/chargeopt/internal/trip"
)

// errBadTime is returned by parseTime for unrecognized layouts.
var errBadTime = errors.New("expected RFC3339 or YYYY-MM-DDTHH:MM[:SS]")

// localLayouts are accepted for times without an offset; they are read in
// the service time zone.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseTime accepts RFC3339 (with offset or Z) or a local layout.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errBadTime, s)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// serverError logs err and writes a 500. The error text is only exposed
// when debug is set.
func serverError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, debug bool, err error) {
	logger.Error().
		Err(err).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Str("path", r.URL.Path).
		Msg("request failed")

	message := "an unexpected error occurred"
	if debug {
		message = err.Error()
	}
	response.InternalError(w, r, message)
}

func toRoutingLocation(l models.Location) routing.Location {
	if l.Point != nil {
		return routing.At(l.Point.Lat, l.Point.Lon)
	}
	return routing.Address(l.Address)
}

// writeRoutingError maps routing and trip planning failures to problems.
func writeRoutingError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, debug bool, err error) {
	var providerErr *routing.Error
	switch {
	case errors.Is(err, routing.ErrNotConfigured):
		response.ServiceUnavailable(w, r, "directions provider not configured")
	case errors.Is(err, routing.ErrInvalidLocation), errors.Is(err, trip.ErrInvalidRequest):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, routing.ErrNoRouteFound):
		response.NoRoute(w, r, "no route found between the given locations")
	case errors.Is(err, routing.ErrRateLimitExceeded):
		response.TooManyRequests(w, r, "directions provider quota exceeded", 60)
	case errors.Is(err, routing.ErrProviderUnavailable), errors.As(err, &providerErr):
		logger.Warn().Err(err).Msg("directions provider failed")
		response.BadGateway(w, r, "directions provider request failed")
	default:
		serverError(w, r, logger, debug, err)
	}
}
