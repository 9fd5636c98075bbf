package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chargeopt/chargeopt/internal/api"
	"github.com/chargeopt/chargeopt/internal/api/handler"
	"github.com/chargeopt/chargeopt/internal/api/middleware"
	"github.com/chargeopt/chargeopt/internal/assistant"
	"github.com/chargeopt/chargeopt/internal/assistant/anthropic"
	"github.com/chargeopt/chargeopt/internal/config"
	"github.com/chargeopt/chargeopt/internal/database"
	"github.com/chargeopt/chargeopt/internal/optimizer"
	"github.com/chargeopt/chargeopt/internal/places"
	placesgoogle "github.com/chargeopt/chargeopt/internal/places/googlemaps"
	"github.com/chargeopt/chargeopt/internal/provider/resilience"
	"github.com/chargeopt/chargeopt/internal/routing"
	routinggoogle "github.com/chargeopt/chargeopt/internal/routing/googlemaps"
	"github.com/chargeopt/chargeopt/internal/scoring"
	"github.com/chargeopt/chargeopt/internal/solar"
	"github.com/chargeopt/chargeopt/internal/station"
	"github.com/chargeopt/chargeopt/internal/tariff"
	"github.com/chargeopt/chargeopt/internal/telemetry"
	"github.com/chargeopt/chargeopt/internal/trip"
	"github.com/chargeopt/chargeopt/internal/weather"
	"github.com/chargeopt/chargeopt/internal/weather/openweathermap"
	"github.com/chargeopt/chargeopt/internal/worker"
)

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting chargeopt API")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    telemetry.DefaultServiceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.Endpoint,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.Telemetry.Enabled {
		log.Info().Str("otlp_endpoint", cfg.Telemetry.Endpoint).Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("init http metrics: %w", err)
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		return fmt.Errorf("init provider metrics: %w", err)
	}

	loc, err := cfg.Optimizer.Location()
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	registry := resilience.NewRegistry()
	deps := providerDeps{registry: registry, metrics: providerMetrics, logger: log}

	// Weather: cached provider with a seasonal fallback.
	weatherSvc := weather.NewService(weather.ServiceConfig{
		Provider:     deps.weatherProvider(cfg.Weather),
		Logger:       log,
		Metrics:      providerMetrics,
		CacheTTL:     cfg.Weather.CacheTTL,
		FetchTimeout: cfg.Weather.Timeout,
	})

	// Scoring models, solar and tariffs.
	estimator := solar.NewEstimator(solar.DefaultConfig())
	schedule := tariff.NewSchedule(tariff.DefaultRates())
	modelSet, err := scoring.LoadModelDir(cfg.Models.Dir, log)
	if err != nil {
		log.Warn().Err(err).Str("dir", cfg.Models.Dir).Msg("scoring models unavailable, using neutral scores")
	}
	scorer := scoring.NewScorer(scoring.ScorerConfig{
		Models:   modelSet,
		Solar:    estimator,
		Schedule: schedule,
		Logger:   log,
	})

	opt := optimizer.New(optimizer.Config{
		Weather:     weatherSvc,
		Scorer:      scorer,
		Solar:       estimator,
		Schedule:    schedule,
		Logger:      log,
		SiteLat:     cfg.Optimizer.SiteLat,
		SiteLon:     cfg.Optimizer.SiteLon,
		Location:    loc,
		MaxPowerKW:  cfg.Optimizer.MaxPowerKW,
		MaxWindow:   cfg.Optimizer.MaxWindow,
		Concurrency: cfg.Optimizer.Concurrency,
	})

	// Stations. A failed load leaves an empty dataset.
	repo, closeRepo, err := stationRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()
	stations := station.NewService(station.ServiceConfig{Repository: repo, Logger: log})
	_ = stations.Load(ctx) //nolint:errcheck // logged by Load; the API serves an empty dataset

	// Maps: directions, trip planning and autocomplete.
	directions := routing.NewService(routing.ServiceConfig{
		Provider: deps.routingProvider(cfg.Maps),
		Logger:   log,
		Metrics:  providerMetrics,
	})
	planner := trip.NewPlanner(trip.PlannerConfig{
		Directions: directions,
		Stations:   stations,
		Logger:     log,
	})
	placesSvc := places.NewService(places.ServiceConfig{
		Provider: deps.placesProvider(cfg.Maps),
		Logger:   log,
		Metrics:  providerMetrics,
		Lat:      cfg.Optimizer.SiteLat,
		Lon:      cfg.Optimizer.SiteLon,
	})

	assistantSvc := assistant.NewService(assistant.ServiceConfig{
		Provider:  deps.assistantProvider(cfg.Assistant),
		Schedule:  schedule,
		Stations:  stations,
		Logger:    log,
		Metrics:   providerMetrics,
		MaxTokens: cfg.Assistant.MaxTokens,
		Location:  loc,
	})

	var refresh *worker.RefreshJob
	if cfg.Worker.Enabled {
		refresh = worker.NewRefreshJob(worker.RefreshJobConfig{
			Config: worker.RefreshConfig{
				Interval:    cfg.Worker.Interval,
				Concurrency: cfg.Worker.Concurrency,
			},
			Logger:  log.With().Str("component", "weather-refresh").Logger(),
			Weather: weatherSvc,
		})
		refresh.Start(ctx)
		defer refresh.Stop()
	}

	routerCfg := api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: telemetry.DefaultServiceName,
		Metrics:     httpMetrics,
		Debug:       cfg.Server.Debug,
		RequireTLS:  cfg.Server.RequireTLS,
		CORSOrigins: cfg.Server.CORSOrigins,
		SiteLat:     cfg.Optimizer.SiteLat,
		SiteLon:     cfg.Optimizer.SiteLon,
		Location:    loc,
		Optimizer:   opt,
		Weather:     weatherSvc,
		Solar:       estimator,
		Schedule:    schedule,
		Models:      modelSet,
		Stations:    stations,
		Planner:     planner,
		Directions:  directions,
		Places:      placesSvc,
		Assistant:   assistantSvc,
		Registry:    registry,
		Providers: map[string]handler.Configurable{
			"weather":   weatherSvc,
			"maps":      directions,
			"places":    placesSvc,
			"assistant": assistantSvc,
		},
		WeatherCache: weatherSvc,
		RoutingCache: directions,
	}
	if refresh != nil {
		routerCfg.Worker = refresh
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// stationRepository opens the configured station source. The returned
// close func is always safe to call.
func stationRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (station.Repository, func(), error) {
	if cfg.Stations.Source != "postgres" {
		return station.NewCSVRepository(cfg.Stations.CSVPath), func() {}, nil
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	logDatabase(log, cfg.Database)
	return station.NewPostgresRepository(pool), pool.Close, nil
}

func logDatabase(log zerolog.Logger, db database.Config) {
	log.Info().
		Str("host", db.Host).
		Int("port", db.Port).
		Str("database", db.Database).
		Msg("database connected")
}

// providerDeps builds provider clients that share one registry, one set of
// metrics and circuit breaker logging.
type providerDeps struct {
	registry *resilience.Registry
	metrics  *telemetry.ProviderMetrics
	logger   zerolog.Logger
}

func (d providerDeps) client(name string, timeout time.Duration) *resilience.Client {
	cfg := resilience.DefaultClientConfig(name)
	cfg.CircuitBreaker.OnStateChange = resilience.LogStateChanges(d.logger)
	cfg.Registry = d.registry
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return resilience.NewClient(cfg)
}

// The provider constructors below return a nil interface, never a typed nil,
// when no API key is configured.

func (d providerDeps) weatherProvider(cfg config.WeatherConfig) weather.Provider {
	if cfg.APIKey == "" {
		d.logger.Warn().Msg("OpenWeatherMap not configured, using seasonal weather")
		return nil
	}
	return openweathermap.NewClient(openweathermap.ClientConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		HTTPClient: d.client(openweathermap.ProviderName, cfg.Timeout),
		Logger:     d.logger,
	})
}

func (d providerDeps) routingProvider(cfg config.MapsConfig) routing.Provider {
	if cfg.APIKey == "" {
		d.logger.Warn().Msg("Google Maps not configured, directions disabled")
		return nil
	}
	return routinggoogle.NewClient(routinggoogle.ClientConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		HTTPClient: d.client(routinggoogle.ProviderName, 0),
		Logger:     d.logger,
	})
}

func (d providerDeps) placesProvider(cfg config.MapsConfig) places.Provider {
	if cfg.APIKey == "" {
		return nil
	}
	return placesgoogle.NewClient(placesgoogle.ClientConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		HTTPClient: d.client(placesgoogle.ProviderName, 0),
		Logger:     d.logger,
	})
}

func (d providerDeps) assistantProvider(cfg config.AssistantConfig) assistant.Provider {
	if cfg.APIKey == "" {
		d.logger.Warn().Msg("assistant provider not configured, using rule-based answers")
		return nil
	}
	return anthropic.NewClient(anthropic.ClientConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		HTTPClient: d.client(anthropic.ProviderName, 30*time.Second),
		Logger:     d.logger,
	})
}
