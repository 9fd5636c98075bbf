// Package api provides the HTTP API of the charging optimization service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/api/handler"
	"github.com/chargeopt/chargeopt/internal/api/middleware"
	"github.com/chargeopt/chargeopt/internal/api/response"
	"github.com/chargeopt/chargeopt/internal/provider/resilience"
	"github.com/chargeopt/chargeopt/internal/scoring"
	"github.com/chargeopt/chargeopt/internal/solar"
	"github.com/chargeopt/chargeopt/internal/tariff"
	"github.com/chargeopt/chargeopt/internal/telemetry"
)

// RouterConfig holds configuration for the router. Services left nil are
// served in their degraded mode where one exists.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Debug exposes internal error details in 500 responses.
	Debug       bool
	RequireTLS  bool
	CORSOrigins []string

	SiteLat  float64
	SiteLon  float64
	Location *time.Location

	Optimizer  handler.SessionOptimizer
	Weather    handler.CurrentWeather
	Solar      *solar.Estimator
	Schedule   *tariff.Schedule
	Models     *scoring.ModelSet
	Stations   StationService
	Planner    handler.TripPlanner
	Directions handler.DirectionsFinder
	Places     handler.PlaceSuggester
	Assistant  handler.ChatResponder

	Registry     *resilience.Registry
	WeatherCache handler.WeatherCache
	RoutingCache handler.RoutingCache
	Worker       handler.WorkerStats

	// Providers reports which external integrations have credentials.
	Providers map[string]handler.Configurable
}

// StationService is the station dataset as the API sees it.
type StationService interface {
	handler.StationQuerier
	handler.StationStats
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = telemetry.DefaultServiceName
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ContentTypeJSON)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no such endpoint")
	})
	r.MethodNotAllowed(response.MethodNotAllowed)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Models:    cfg.Models,
		Stations:  cfg.Stations,
		Providers: cfg.Providers,
		Registry:  cfg.Registry,
		Weather:   cfg.WeatherCache,
		Routing:   cfg.RoutingCache,
		Worker:    cfg.Worker,
	})
	conditionsHandler := handler.NewConditionsHandler(handler.ConditionsConfig{
		Weather:  cfg.Weather,
		Solar:    cfg.Solar,
		Schedule: cfg.Schedule,
		SiteLat:  cfg.SiteLat,
		SiteLon:  cfg.SiteLon,
		Location: cfg.Location,
	})
	optimizeHandler := handler.NewOptimizeHandler(cfg.Optimizer, cfg.Logger, cfg.Debug)
	stationsHandler := handler.NewStationsHandler(cfg.Stations)
	tripHandler := handler.NewTripHandler(handler.TripConfig{
		Planner:    cfg.Planner,
		Directions: cfg.Directions,
		Logger:     cfg.Logger,
		Debug:      cfg.Debug,
		Location:   cfg.Location,
	})
	assistHandler := handler.NewAssistHandler(cfg.Places, cfg.Assistant, cfg.Logger, cfg.Debug)

	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		// Probes are not rate limited.
		r.Get("/health", opsHandler.HealthCheck)
		r.Get("/status", opsHandler.SystemStatus)

		r.With(expensiveRateLimit).Post("/optimize-session", optimizeHandler.OptimizeSession)
		r.With(expensiveRateLimit).Post("/route-optimization", tripHandler.OptimizeRoute)

		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/current-conditions", conditionsHandler.CurrentConditions)
			r.Get("/tariffs", conditionsHandler.Tariffs)
			r.Get("/stations", stationsHandler.ListStations)
			r.Post("/directions", tripHandler.Directions)
			r.Post("/autocomplete", assistHandler.Autocomplete)
			r.Post("/chat", assistHandler.Chat)
			r.Post("/claude-chat", assistHandler.Chat)
		})
	})

	return r
}
