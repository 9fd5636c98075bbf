package weather

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/chargeopt/chargeopt/internal/telemetry"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetCurrentWeather fetches current conditions for a location.
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*Snapshot, error)

	// GetForecast fetches the hourly (or 3-hourly) forecast for a location.
	GetForecast(ctx context.Context, lat, lon float64) (*Forecast, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider. Nil means every lookup uses the
	// seasonal fallback.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records provider calls. Optional.
	Metrics *telemetry.ProviderMetrics

	// Fallback synthesizes weather when the provider cannot answer.
	// Default: seasonal model with Gaussian noise.
	Fallback *SeasonalModel

	// CacheTTL is how long to cache weather data (default: 10 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.1).
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration

	// FetchTimeout bounds each provider call (default: 5 seconds).
	FetchTimeout time.Duration

	// FailureTTL is how long a failed fetch for a grid cell suppresses
	// further provider calls for that cell (default: 1 minute).
	FailureTTL time.Duration

	// ForecastMaxGap is how far a forecast entry may precede the requested
	// time and still cover it (default: 3 hours).
	ForecastMaxGap time.Duration

	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time
}

// Service provides weather data with caching and a seasonal fallback.
// Lookups never fail; see Reading.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	metrics         *telemetry.ProviderMetrics
	fallback        *SeasonalModel
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	fetchTimeout    time.Duration
	failureTTL      time.Duration
	forecastMaxGap  time.Duration
	now             func() time.Time

	// group coalesces concurrent fetches per kind and grid cell. Provider
	// calls run outside mu.
	group singleflight.Group

	mu              sync.RWMutex
	currentCache    map[string]*cachedSnapshot
	forecastCache   map[string]*cachedForecast
	failedUntil     map[string]time.Time
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type cachedSnapshot struct {
	snapshot  Snapshot
	fetchedAt time.Time
	expiresAt time.Time
}

type cachedForecast struct {
	forecast  *Forecast
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.1 // ~11km
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = time.Hour
	}

	fetchTimeout := cfg.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = 5 * time.Second
	}

	failureTTL := cfg.FailureTTL
	if failureTTL == 0 {
		failureTTL = time.Minute
	}

	forecastMaxGap := cfg.ForecastMaxGap
	if forecastMaxGap == 0 {
		forecastMaxGap = 3 * time.Hour
	}

	fallback := cfg.Fallback
	if fallback == nil {
		fallback = NewSeasonalModel(NormalNoise(nil))
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		fallback:        fallback,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		fetchTimeout:    fetchTimeout,
		failureTTL:      failureTTL,
		forecastMaxGap:  forecastMaxGap,
		now:             now,
		currentCache:    make(map[string]*cachedSnapshot),
		forecastCache:   make(map[string]*cachedForecast),
		failedUntil:     make(map[string]time.Time),
		cleanupInterval: 5 * time.Minute,
	}
}

// Configured reports whether a provider is wired in.
func (s *Service) Configured() bool {
	return s.provider != nil
}

// ProviderName returns the provider name, or "fallback" when none is configured.
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return string(SourceFallback)
	}
	return s.provider.Name()
}

// Current returns current conditions at a location.
func (s *Service) Current(ctx context.Context, lat, lon float64) Reading {
	now := s.now()
	if err := validateCoordinates(lat, lon); err != nil {
		return s.fallbackReading(lat, lon, now, err)
	}
	if s.provider == nil {
		return s.fallbackReading(lat, lon, now, ErrNotConfigured)
	}

	snap, err := s.current(ctx, lat, lon)
	if err != nil {
		return s.fallbackReading(lat, lon, now, err)
	}
	return Reading{Snapshot: snap}
}

// At returns the best available weather for time t at a location. It tries
// the forecast entry covering t, then current conditions, then the seasonal
// fallback for t's month.
func (s *Service) At(ctx context.Context, lat, lon float64, t time.Time) Reading {
	if err := validateCoordinates(lat, lon); err != nil {
		return s.fallbackReading(lat, lon, t, err)
	}
	if s.provider == nil {
		return s.fallbackReading(lat, lon, t, ErrNotConfigured)
	}

	forecast, ferr := s.forecast(ctx, lat, lon)
	if ferr == nil {
		if snap, ok := forecast.At(t, s.forecastMaxGap); ok {
			snap.Source = SourceForecast
			return Reading{Snapshot: snap}
		}
		ferr = ErrNoDataForTime
	}

	snap, err := s.current(ctx, lat, lon)
	if err == nil {
		return Reading{Snapshot: snap}
	}

	return s.fallbackReading(lat, lon, t, fmt.Errorf("forecast: %v; current: %w", ferr, err))
}

// Refresh fetches current conditions and forecast for a location, populating
// the cache. Unlike Current and At it reports provider failures.
func (s *Service) Refresh(ctx context.Context, lat, lon float64) error {
	if err := validateCoordinates(lat, lon); err != nil {
		return err
	}
	if s.provider == nil {
		return ErrNotConfigured
	}
	if _, err := s.current(ctx, lat, lon); err != nil {
		return err
	}
	if _, err := s.forecast(ctx, lat, lon); err != nil {
		return err
	}
	return nil
}

func (s *Service) fallbackReading(lat, lon float64, t time.Time, cause error) Reading {
	s.metrics.RecordFallback(s.ProviderName(), "weather")
	s.logger.Debug().
		Err(cause).
		Float64("lat", lat).
		Float64("lon", lon).
		Time("at", t).
		Msg("using seasonal weather fallback")

	return Reading{
		Snapshot: s.fallback.Snapshot(lat, lon, t),
		Fallback: true,
		Err:      cause,
	}
}

func (s *Service) current(ctx context.Context, lat, lon float64) (Snapshot, error) {
	cacheKey := s.cacheKey(lat, lon)

	s.mu.RLock()
	if cached, ok := s.currentCache[cacheKey]; ok && s.now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.metrics.RecordCacheHit(s.provider.Name(), "current")
		return cached.snapshot, nil
	}
	s.mu.RUnlock()

	s.metrics.RecordCacheMiss(s.provider.Name(), "current")
	v, err, _ := s.group.Do("current:"+cacheKey, func() (any, error) {
		return s.fetchCurrent(ctx, lat, lon, cacheKey)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (s *Service) forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	cacheKey := s.cacheKey(lat, lon)

	s.mu.RLock()
	if cached, ok := s.forecastCache[cacheKey]; ok && s.now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.metrics.RecordCacheHit(s.provider.Name(), "forecast")
		return cached.forecast, nil
	}
	s.mu.RUnlock()

	s.metrics.RecordCacheMiss(s.provider.Name(), "forecast")
	v, err, _ := s.group.Do("forecast:"+cacheKey, func() (any, error) {
		return s.fetchForecast(ctx, lat, lon, cacheKey)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Forecast), nil
}

// fetchContext detaches the fetch from the caller that happened to lead the
// singleflight group, so its cancellation does not fail the others.
func (s *Service) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
}

// recentFailure reports whether key failed within the failure window.
// Caller holds s.mu for reading.
func (s *Service) recentFailure(key string, now time.Time) bool {
	until, ok := s.failedUntil[key]
	return ok && now.Before(until)
}

func (s *Service) fetchCurrent(ctx context.Context, lat, lon float64, cacheKey string) (Snapshot, error) {
	now := s.now()
	failKey := "current:" + cacheKey

	s.mu.RLock()
	cached := s.currentCache[cacheKey]
	suppressed := s.recentFailure(failKey, now)
	s.mu.RUnlock()

	if cached != nil && now.Before(cached.expiresAt) {
		return cached.snapshot, nil
	}
	if suppressed {
		return s.staleCurrent(cached, now, ErrRecentFailure)
	}

	fetchCtx, cancel := s.fetchContext(ctx)
	defer cancel()

	start := time.Now()
	snap, err := s.provider.GetCurrentWeather(fetchCtx, lat, lon)
	s.metrics.RecordCall(s.provider.Name(), "current", time.Since(start), err)

	now = s.now()
	if err != nil {
		s.logger.Warn().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Str("provider", s.provider.Name()).
			Dur("retry_after", s.failureTTL).
			Msg("failed to fetch current weather")

		s.mu.Lock()
		s.failedUntil[failKey] = now.Add(s.failureTTL)
		s.mu.Unlock()
		return s.staleCurrent(cached, now, err)
	}

	out := *snap
	out.Source = SourceProvider

	s.mu.Lock()
	s.currentCache[cacheKey] = &cachedSnapshot{
		snapshot:  out,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	delete(s.failedUntil, failKey)
	s.cleanupIfNeeded(now)
	s.mu.Unlock()

	return out, nil
}

func (s *Service) staleCurrent(cached *cachedSnapshot, now time.Time, cause error) (Snapshot, error) {
	if cached != nil && now.Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
		s.logger.Debug().
			Time("fetched_at", cached.fetchedAt).
			Msg("serving stale weather data due to provider error")
		stale := cached.snapshot
		stale.Source = SourceStale
		return stale, nil
	}
	return Snapshot{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, cause)
}

func (s *Service) fetchForecast(ctx context.Context, lat, lon float64, cacheKey string) (*Forecast, error) {
	now := s.now()
	failKey := "forecast:" + cacheKey

	s.mu.RLock()
	cached := s.forecastCache[cacheKey]
	suppressed := s.recentFailure(failKey, now)
	s.mu.RUnlock()

	if cached != nil && now.Before(cached.expiresAt) {
		return cached.forecast, nil
	}
	if suppressed {
		return s.staleForecast(cached, now, ErrRecentFailure)
	}

	fetchCtx, cancel := s.fetchContext(ctx)
	defer cancel()

	start := time.Now()
	forecast, err := s.provider.GetForecast(fetchCtx, lat, lon)
	s.metrics.RecordCall(s.provider.Name(), "forecast", time.Since(start), err)

	now = s.now()
	if err != nil {
		s.logger.Warn().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Str("provider", s.provider.Name()).
			Dur("retry_after", s.failureTTL).
			Msg("failed to fetch forecast")

		s.mu.Lock()
		s.failedUntil[failKey] = now.Add(s.failureTTL)
		s.mu.Unlock()
		return s.staleForecast(cached, now, err)
	}

	s.mu.Lock()
	s.forecastCache[cacheKey] = &cachedForecast{
		forecast:  forecast,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	delete(s.failedUntil, failKey)
	s.cleanupIfNeeded(now)
	s.mu.Unlock()

	return forecast, nil
}

func (s *Service) staleForecast(cached *cachedForecast, now time.Time, cause error) (*Forecast, error) {
	if cached != nil && now.Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
		s.logger.Debug().
			Time("fetched_at", cached.fetchedAt).
			Msg("serving stale forecast data due to provider error")
		return cached.forecast, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, cause)
}

// cacheKey groups nearby points into grid cells.
func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.2f:%.2f", gridLat, gridLon)
}

// cleanupIfNeeded drops entries past their stale window. Caller holds s.mu.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now
	expired := 0

	for key, cached := range s.currentCache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.currentCache, key)
			expired++
		}
	}
	for key, cached := range s.forecastCache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.forecastCache, key)
			expired++
		}
	}
	for key, until := range s.failedUntil {
		if !now.Before(until) {
			delete(s.failedUntil, key)
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired weather cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentCache = make(map[string]*cachedSnapshot)
	s.forecastCache = make(map[string]*cachedForecast)
	s.failedUntil = make(map[string]time.Time)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	CurrentEntries       int
	CurrentFreshEntries  int
	ForecastEntries      int
	ForecastFreshEntries int
	Provider             string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	stats := CacheStats{
		CurrentEntries:  len(s.currentCache),
		ForecastEntries: len(s.forecastCache),
		Provider:        s.ProviderName(),
	}
	for _, c := range s.currentCache {
		if now.Before(c.expiresAt) {
			stats.CurrentFreshEntries++
		}
	}
	for _, c := range s.forecastCache {
		if now.Before(c.expiresAt) {
			stats.ForecastFreshEntries++
		}
	}
	return stats
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
