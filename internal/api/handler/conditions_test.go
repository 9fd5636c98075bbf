package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeopt/chargeopt/internal/api/handler"
	"github.com/chargeopt/chargeopt/internal/weather"
)

type staticWeather struct {
	snap      weather.Snapshot
	lat, lon  float64
	callCount int
}

func (s *staticWeather) Current(_ context.Context, lat, lon float64) weather.Reading {
	s.callCount++
	s.lat, s.lon = lat, lon
	return weather.Reading{Snapshot: s.snap}
}

func TestCurrentConditions(t *testing.T) {
	// Wednesday 14:30 local: LADWP high peak, SCE off peak.
	now := time.Date(2026, 6, 17, 21, 30, 0, 0, time.UTC)
	loc := time.FixedZone("PDT", -7*3600)
	ws := &staticWeather{snap: weather.Snapshot{
		TemperatureF: 78.44,
		Humidity:     40,
		WindSpeedMph: 6.26,
		CloudCover:   10,
		Condition:    "clear",
		Description:  "clear sky",
		Source:       weather.SourceProvider,
		ObservedAt:   now,
	}}

	h := handler.NewConditionsHandler(handler.ConditionsConfig{
		Weather:  ws,
		SiteLat:  34.0522,
		SiteLon:  -118.2437,
		Location: loc,
		Clock:    func() time.Time { return now },
	})

	rec := get(t, h.CurrentConditions, "/api/current-conditions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ws.callCount)
	assert.Equal(t, 34.0522, ws.lat)
	assert.Equal(t, -118.2437, ws.lon)

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])

	w := body["weather"].(map[string]any)
	assert.Equal(t, 78.4, w["temperature"])
	assert.Equal(t, 6.3, w["wind_speed"])
	assert.Equal(t, "clear", w["condition"])

	s := body["solar"].(map[string]any)
	assert.Greater(t, s["power_kw"].(float64), 0.0)

	pricing := body["pricing"].(map[string]any)
	ladwp := pricing["los_angeles_dept_water_power"].(map[string]any)
	assert.Equal(t, 0.37, ladwp["rate"])
	assert.Equal(t, "high_peak", ladwp["period"])
	sce := pricing["southern_california_edison"].(map[string]any)
	assert.Equal(t, 0.27, sce["rate"])
	assert.Equal(t, "off_peak", sce["period"])
}

func TestCurrentConditions_NoWeatherServiceUsesSeasonalModel(t *testing.T) {
	h := handler.NewConditionsHandler(handler.ConditionsConfig{
		SiteLat: 34.0522,
		SiteLon: -118.2437,
		Clock:   func() time.Time { return fixedNow },
	})

	rec := get(t, h.CurrentConditions, "/api/current-conditions")
	require.Equal(t, http.StatusOK, rec.Code)

	w := decode(t, rec)["weather"].(map[string]any)
	assert.NotEmpty(t, w["source"])
}

func TestTariffs(t *testing.T) {
	h := handler.NewConditionsHandler(handler.ConditionsConfig{Location: time.UTC})

	rec := get(t, h.Tariffs, "/api/tariffs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))

	body := decode(t, rec)
	assert.Equal(t, "UTC", body["timezone"])

	utilities := body["utilities"].([]any)
	require.Len(t, utilities, 2)

	ladwp := utilities[0].(map[string]any)
	assert.Equal(t, "ladwp", ladwp["short"])
	weekday := ladwp["weekday"].([]any)
	weekend := ladwp["weekend"].([]any)
	require.Len(t, weekday, 24)
	require.Len(t, weekend, 24)
	assert.Equal(t, "high_peak", weekday[14].(map[string]any)["period"])
	assert.Equal(t, "base_period", weekend[14].(map[string]any)["period"])

	sce := utilities[1].(map[string]any)
	assert.Equal(t, 0.32, sce["weekday"].([]any)[19].(map[string]any)["rate"])
}
