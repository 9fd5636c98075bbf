// Package googlemaps implements places.Provider with the Google Places
// Autocomplete API.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/places"
	"github.com/chargeopt/chargeopt/internal/provider/resilience"
)

const (
	// ProviderName identifies this places provider.
	ProviderName = "google_places"

	// DefaultBaseURL is the Google Maps web services base URL.
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"
)

// ClientConfig holds configuration for the Places client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient resilience.HTTPDoer
	Logger     zerolog.Logger
}

// Client is a Google Places Autocomplete client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient resilience.HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a Places client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Autocomplete implements places.Provider.
func (c *Client) Autocomplete(ctx context.Context, q places.Query) ([]places.Prediction, error) {
	v := url.Values{}
	v.Set("input", q.Input)
	v.Set("location", strconv.FormatFloat(q.Lat, 'f', -1, 64)+","+strconv.FormatFloat(q.Lon, 'f', -1, 64))
	v.Set("radius", strconv.Itoa(q.RadiusMeters))
	if q.Country != "" {
		v.Set("components", "country:"+q.Country)
	}
	v.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/place/autocomplete/json?"+v.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", places.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", places.ErrProviderUnavailable, resp.StatusCode)
	}

	var body autocompleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	switch body.Status {
	case "OK", "ZERO_RESULTS":
	default:
		c.logger.Warn().Str("status", body.Status).Str("error", body.ErrorMessage).Msg("places autocomplete rejected")
		return nil, fmt.Errorf("%w: %s", places.ErrProviderUnavailable, body.Status)
	}

	out := make([]places.Prediction, 0, len(body.Predictions))
	for _, p := range body.Predictions {
		out = append(out, places.Prediction{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.StructuredFormatting.MainText,
			SecondaryText: p.StructuredFormatting.SecondaryText,
			Types:         p.Types,
		})
	}
	return out, nil
}

type autocompleteResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Predictions  []struct {
		PlaceID              string   `json:"place_id"`
		Description          string   `json:"description"`
		Types                []string `json:"types"`
		StructuredFormatting struct {
			MainText      string `json:"main_text"`
			SecondaryText string `json:"secondary_text"`
		} `json:"structured_formatting"`
	} `json:"predictions"`
}
