// Package googlemaps implements routing.Provider using the Google Maps
// Directions API with live traffic estimates.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/provider/resilience"
	"github.com/chargeopt/chargeopt/internal/routing"
)

const (
	// ProviderName identifies this routing provider.
	ProviderName = "google_maps"

	// DefaultBaseURL is the Google Maps web services base URL.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"
)

// ClientConfig holds configuration for the Google Directions client.
type ClientConfig struct {
	// APIKey is the Google Maps API key (required).
	APIKey string

	// BaseURL overrides the web services base URL.
	BaseURL string

	// HTTPClient performs requests. Default: resilient client named ProviderName.
	HTTPClient resilience.HTTPDoer

	// Logger for client operations.
	Logger zerolog.Logger

	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time
}

// Client is a Google Directions API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient resilience.HTTPDoer
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a new Google Directions client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetDirections requests a driving route with a best_guess traffic model.
func (c *Client) GetDirections(ctx context.Context, req routing.DirectionsRequest) (*routing.Directions, error) {
	departure := "now"
	if !req.DepartureTime.IsZero() && req.DepartureTime.After(c.now()) {
		departure = strconv.FormatInt(req.DepartureTime.Unix(), 10)
	}

	q := url.Values{}
	q.Set("origin", req.Origin.String())
	q.Set("destination", req.Destination.String())
	q.Set("mode", "driving")
	q.Set("departure_time", departure)
	q.Set("traffic_model", "best_guess")
	q.Set("key", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/directions/json?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "REQUEST_FAILED",
			Message:  "failed to reach directions provider",
			Err:      fmt.Errorf("%w: %w", routing.ErrProviderUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, httpError(resp.StatusCode)
	}

	var gResp directionsResponse
	if err := json.Unmarshal(body, &gResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if err := statusError(gResp.Status, gResp.ErrorMessage); err != nil {
		return nil, err
	}
	if len(gResp.Routes) == 0 || len(gResp.Routes[0].Legs) == 0 {
		return nil, &routing.Error{
			Provider: ProviderName,
			Code:     "NO_ROUTE",
			Message:  "provider returned no route",
			Err:      routing.ErrNoRouteFound,
		}
	}

	directions := toDirections(&gResp.Routes[0], c.now())

	c.logger.Debug().
		Int("distance_m", directions.Route.DistanceMeters).
		Int("duration_s", directions.Route.DurationSeconds).
		Bool("traffic", directions.Route.HasTraffic).
		Msg("received directions from google maps")

	return directions, nil
}

func toDirections(r *route, fetchedAt time.Time) *routing.Directions {
	leg := r.Legs[0]
	out := routing.Route{
		Polyline:        r.OverviewPolyline.Points,
		Summary:         r.Summary,
		DistanceMeters:  leg.Distance.Value,
		DistanceText:    leg.Distance.Text,
		DurationSeconds: leg.Duration.Value,
		DurationText:    leg.Duration.Text,
		StartAddress:    leg.StartAddress,
		EndAddress:      leg.EndAddress,
		StartLocation:   routing.Coordinate{Lat: leg.StartLocation.Lat, Lon: leg.StartLocation.Lng},
		EndLocation:     routing.Coordinate{Lat: leg.EndLocation.Lat, Lon: leg.EndLocation.Lng},
	}
	if leg.DurationInTraffic != nil {
		out.HasTraffic = true
		out.DurationInTrafficSeconds = leg.DurationInTraffic.Value
		out.DurationInTrafficText = leg.DurationInTraffic.Text
	}
	return &routing.Directions{
		Route:     out,
		Provider:  ProviderName,
		FetchedAt: fetchedAt,
	}
}

// statusError maps the API's top-level status to domain errors.
func statusError(status, message string) error {
	if message == "" {
		message = "directions request failed with status " + status
	}
	var sentinel error
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		sentinel = routing.ErrNoRouteFound
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		sentinel = routing.ErrRateLimitExceeded
	case "INVALID_REQUEST", "MAX_WAYPOINTS_EXCEEDED", "MAX_ROUTE_LENGTH_EXCEEDED":
		sentinel = routing.ErrInvalidLocation
	default:
		sentinel = routing.ErrProviderUnavailable
	}
	return &routing.Error{
		Provider: ProviderName,
		Code:     status,
		Message:  message,
		Err:      sentinel,
	}
}

func httpError(statusCode int) error {
	sentinel := routing.ErrProviderUnavailable
	if statusCode == http.StatusTooManyRequests {
		sentinel = routing.ErrRateLimitExceeded
	}
	return &routing.Error{
		Provider: ProviderName,
		Code:     fmt.Sprintf("HTTP_%d", statusCode),
		Message:  fmt.Sprintf("directions provider returned status %d", statusCode),
		Err:      sentinel,
	}
}

// Google Directions API response structures.

type textValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type leg struct {
	Distance          textValue  `json:"distance"`
	Duration          textValue  `json:"duration"`
	DurationInTraffic *textValue `json:"duration_in_traffic"`
	StartAddress      string     `json:"start_address"`
	EndAddress        string     `json:"end_address"`
	StartLocation     latLng     `json:"start_location"`
	EndLocation       latLng     `json:"end_location"`
}

type route struct {
	Summary          string `json:"summary"`
	Legs             []leg  `json:"legs"`
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
}

type directionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
	Routes       []route `json:"routes"`
}
