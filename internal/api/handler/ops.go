package handler

import (
	"net/http"
	"time"

	"github.com/chargeopt/chargeopt/internal/api/models"
	"github.com/chargeopt/chargeopt/internal/api/response"
	"github.com/chargeopt/chargeopt/internal/provider/resilience"
	"github.com/chargeopt/chargeopt/internal/routing"
	"github.com/chargeopt/chargeopt/internal/scoring"
	"github.com/chargeopt/chargeopt/internal/tariff"
	"github.com/chargeopt/chargeopt/internal/weather"
)

// Configurable is any provider-backed service that may run unconfigured.
type Configurable interface {
	Configured() bool
}

// StationStats reports the loaded station dataset.
type StationStats interface {
	Loaded() bool
	Count() int
}

// WeatherCache exposes weather cache statistics.
type WeatherCache interface {
	CacheStats() weather.CacheStats
}

// RoutingCache exposes directions cache statistics.
type RoutingCache interface {
	CacheStats() routing.CacheStats
}

// WorkerStats exposes background worker counters.
type WorkerStats interface {
	MetricsSnapshot() map[string]any
}

// OpsConfig holds the dependencies of the ops endpoints. Any of them may be
// nil.
type OpsConfig struct {
	Version   string
	BuildTime string
	Models    *scoring.ModelSet
	Stations  StationStats
	Providers map[string]Configurable
	Registry  *resilience.Registry
	Weather   WeatherCache
	Routing   RoutingCache
	Worker    WorkerStats
	Clock     func() time.Time
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /api/health. It always answers 200; missing
// models or stations only mark the service degraded.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Envelope:  models.Success(h.cfg.Clock()),
		Health:    models.HealthHealthy,
		Version:   h.cfg.Version,
		BuildTime: h.cfg.BuildTime,
		Models:    []string{},
		Providers: make(map[string]bool, len(h.cfg.Providers)),
	}

	for _, u := range h.cfg.Models.LoadedUtilities() {
		resp.Models = append(resp.Models, u.Short())
	}
	resp.ModelsLoaded = len(resp.Models)
	if resp.ModelsLoaded < len(tariff.Utilities()) {
		resp.Health = models.HealthDegraded
	}

	if h.cfg.Stations != nil {
		resp.StationsLoaded = h.cfg.Stations.Count()
		if !h.cfg.Stations.Loaded() {
			resp.Health = models.HealthDegraded
		}
	} else {
		resp.Health = models.HealthDegraded
	}

	for name, p := range h.cfg.Providers {
		resp.Providers[name] = p != nil && p.Configured()
	}

	w.Header().Set("Cache-Control", "no-store")
	response.OK(w, r, resp)
}

// SystemStatus handles GET /api/status: provider circuit state and cache
// statistics.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	resp := models.StatusResponse{
		Envelope:  models.Success(h.cfg.Clock()),
		Health:    models.HealthHealthy,
		Providers: []models.ProviderStatus{},
	}

	if h.cfg.Registry != nil {
		for _, ph := range h.cfg.Registry.GetAllHealth() {
			status := ph.Status()
			if status != resilience.StatusHealthy {
				resp.Health = models.HealthDegraded
			}
			resp.Providers = append(resp.Providers, models.ProviderStatus{
				Provider:            ph.Name,
				Status:              status,
				CircuitState:        ph.CircuitState.String(),
				ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
				LastSuccessAt:       ph.LastSuccessAt,
				LastFailureAt:       ph.LastFailureAt,
				LastError:           ph.LastError,
			})
		}
	}

	if h.cfg.Weather != nil {
		s := h.cfg.Weather.CacheStats()
		resp.WeatherCache = models.CacheStats{
			TotalEntries: s.CurrentEntries + s.ForecastEntries,
			FreshEntries: s.CurrentFreshEntries + s.ForecastFreshEntries,
			StaleEntries: s.CurrentEntries + s.ForecastEntries - s.CurrentFreshEntries - s.ForecastFreshEntries,
		}
	}
	if h.cfg.Routing != nil {
		s := h.cfg.Routing.CacheStats()
		resp.RoutingCache = models.CacheStats{
			TotalEntries: s.TotalEntries,
			FreshEntries: s.FreshEntries,
			StaleEntries: s.StaleEntries,
		}
	}
	if h.cfg.Worker != nil {
		resp.Worker = h.cfg.Worker.MetricsSnapshot()
	}

	w.Header().Set("Cache-Control", "no-store")
	response.OK(w, r, resp)
}
