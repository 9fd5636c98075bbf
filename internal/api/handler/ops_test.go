package handler_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeopt/chargeopt/internal/api/handler"
	"github.com/chargeopt/chargeopt/internal/provider/resilience"
	"github.com/chargeopt/chargeopt/internal/routing"
	"github.com/chargeopt/chargeopt/internal/scoring"
	"github.com/chargeopt/chargeopt/internal/tariff"
	"github.com/chargeopt/chargeopt/internal/weather"
)

type identityScaler struct{}

func (identityScaler) Transform(v scoring.FeatureVector) ([]float64, error) { return v.Slice(), nil }

type constRegressor float64

func (c constRegressor) Predict([]float64) (float64, error) { return float64(c), nil }

type stationStats struct {
	loaded bool
	count  int
}

func (s stationStats) Loaded() bool { return s.loaded }
func (s stationStats) Count() int   { return s.count }

type configured bool

func (c configured) Configured() bool { return bool(c) }

type weatherCache weather.CacheStats

func (c weatherCache) CacheStats() weather.CacheStats { return weather.CacheStats(c) }

type routingCache routing.CacheStats

func (c routingCache) CacheStats() routing.CacheStats { return routing.CacheStats(c) }

type workerStats map[string]any

func (w workerStats) MetricsSnapshot() map[string]any { return w }

var fixedNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func TestHealthCheck_Healthy(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{
		Version: "1.2.3",
		Models: &scoring.ModelSet{
			Scaler: identityScaler{},
			Regressors: map[tariff.Utility]scoring.Regressor{
				tariff.UtilityLADWP: constRegressor(0.5),
				tariff.UtilitySCE:   constRegressor(0.5),
			},
		},
		Stations:  stationStats{loaded: true, count: 42},
		Providers: map[string]handler.Configurable{"weather": configured(true), "maps": configured(false)},
		Clock:     func() time.Time { return fixedNow },
	})

	rec := get(t, h.HealthCheck, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "healthy", body["health"])
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, float64(2), body["models_loaded"])
	assert.Equal(t, []any{"ladwp", "sce"}, body["models"])
	assert.Equal(t, float64(42), body["stations_loaded"])
	assert.Equal(t, map[string]any{"weather": true, "maps": false}, body["providers"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestHealthCheck_DegradedWithoutModelsOrStations(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{
		Stations: stationStats{loaded: false},
	})

	rec := get(t, h.HealthCheck, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "degraded", body["health"])
	assert.Equal(t, float64(0), body["models_loaded"])
	assert.Equal(t, []any{}, body["models"])
}

func TestSystemStatus(t *testing.T) {
	registry := resilience.NewRegistry()
	resilience.NewClient(resilience.ClientConfig{Name: "openweathermap", Registry: registry})
	registry.RecordFailure("openweathermap", errors.New("upstream 503"))

	h := handler.NewOpsHandler(handler.OpsConfig{
		Registry: registry,
		Weather: weatherCache{
			CurrentEntries: 3, CurrentFreshEntries: 2,
			ForecastEntries: 1, ForecastFreshEntries: 1,
		},
		Routing: routingCache{TotalEntries: 4, FreshEntries: 1, StaleEntries: 2},
		Worker:  workerStats{"runs": 5},
	})

	rec := get(t, h.SystemStatus, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "healthy", body["health"])

	providers := body["providers"].([]any)
	require.Len(t, providers, 1)
	p := providers[0].(map[string]any)
	assert.Equal(t, "openweathermap", p["provider"])
	assert.Equal(t, "healthy", p["status"])
	assert.Equal(t, "closed", p["circuit_state"])
	assert.Equal(t, "upstream 503", p["last_error"])

	assert.Equal(t, map[string]any{"total_entries": float64(4), "fresh_entries": float64(3), "stale_entries": float64(1)}, body["weather_cache"])
	assert.Equal(t, map[string]any{"total_entries": float64(4), "fresh_entries": float64(1), "stale_entries": float64(2)}, body["routing_cache"])
	assert.Equal(t, map[string]any{"runs": float64(5)}, body["worker"])
}

func TestSystemStatus_NoDependencies(t *testing.T) {
	rec := get(t, handler.NewOpsHandler(handler.OpsConfig{}).SystemStatus, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, []any{}, body["providers"])
	assert.NotContains(t, body, "worker")
}
