// Package openweathermap implements weather.Provider against the
// OpenWeatherMap 2.5 API in imperial units.
package openweathermap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/provider/resilience"
	"github.com/chargeopt/chargeopt/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL overrides the API base URL.
	BaseURL string

	// HTTPClient performs requests. Default: resilient client named ProviderName.
	HTTPClient resilience.HTTPDoer

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient resilience.HTTPDoer
	logger     zerolog.Logger
}

// NewClient creates a new OpenWeatherMap client.
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

// GetCurrentWeather fetches current conditions.
func (c *Client) GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Snapshot, error) {
	var resp currentWeatherResponse
	if err := c.get(ctx, "/weather", lat, lon, &resp); err != nil {
		return nil, err
	}

	snap := toSnapshot(resp.Coord.Lat, resp.Coord.Lon, resp.Dt, resp.Main.Temp, resp.Main.Humidity,
		resp.Wind.Speed, resp.Clouds.All, resp.Weather)
	return &snap, nil
}

// GetForecast fetches the 5 day / 3 hour forecast.
func (c *Client) GetForecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error) {
	var resp forecastResponse
	if err := c.get(ctx, "/forecast", lat, lon, &resp); err != nil {
		return nil, err
	}

	forecast := &weather.Forecast{
		Lat:       resp.City.Coord.Lat,
		Lon:       resp.City.Coord.Lon,
		Hourly:    make([]weather.Snapshot, 0, len(resp.List)),
		FetchedAt: time.Now(),
	}
	for _, item := range resp.List {
		forecast.Hourly = append(forecast.Hourly, toSnapshot(
			resp.City.Coord.Lat, resp.City.Coord.Lon, item.Dt,
			item.Main.Temp, item.Main.Humidity, item.Wind.Speed, item.Clouds.All, item.Weather,
		))
	}
	return forecast, nil
}

func (c *Client) get(ctx context.Context, path string, lat, lon float64, out any) error {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "imperial")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return fmt.Errorf("%w: %w", weather.ErrProviderUnavailable, err)
		}
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug().
			Int("status", resp.StatusCode).
			Str("path", path).
			Str("body", string(body)).
			Msg("openweathermap returned non-200")
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func toSnapshot(lat, lon float64, dt int64, temp, humidity, wind, clouds float64, conds []condition) weather.Snapshot {
	snap := weather.Snapshot{
		Lat:          lat,
		Lon:          lon,
		TemperatureF: temp,
		Humidity:     humidity,
		WindSpeedMph: wind,
		CloudCover:   clouds,
		Condition:    weather.ConditionUnknown,
		ObservedAt:   time.Unix(dt, 0),
	}
	if len(conds) > 0 {
		snap.Condition = mapCondition(conds[0].Main)
		snap.Description = conds[0].Description
	}
	return snap
}

func mapCondition(main string) weather.Condition {
	switch main {
	case "Clear":
		return weather.ConditionClear
	case "Clouds":
		return weather.ConditionClouds
	case "Rain":
		return weather.ConditionRain
	case "Drizzle":
		return weather.ConditionDrizzle
	case "Thunderstorm":
		return weather.ConditionThunderstorm
	case "Snow":
		return weather.ConditionSnow
	case "Mist":
		return weather.ConditionMist
	case "Fog":
		return weather.ConditionFog
	case "Haze", "Smoke", "Dust", "Sand", "Ash", "Squall", "Tornado":
		return weather.ConditionHaze
	default:
		return weather.ConditionUnknown
	}
}

type condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type mainBlock struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
}

type windBlock struct {
	Speed float64 `json:"speed"`
}

type cloudBlock struct {
	All float64 `json:"all"`
}

type coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type currentWeatherResponse struct {
	Coord   coord       `json:"coord"`
	Weather []condition `json:"weather"`
	Main    mainBlock   `json:"main"`
	Wind    windBlock   `json:"wind"`
	Clouds  cloudBlock  `json:"clouds"`
	Dt      int64       `json:"dt"`
}

type forecastResponse struct {
	List []struct {
		Dt      int64       `json:"dt"`
		Main    mainBlock   `json:"main"`
		Weather []condition `json:"weather"`
		Wind    windBlock   `json:"wind"`
		Clouds  cloudBlock  `json:"clouds"`
	} `json:"list"`
	City struct {
		Coord coord `json:"coord"`
	} `json:"city"`
}
