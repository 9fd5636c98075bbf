package routing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/telemetry"
)

// ServiceConfig holds configuration for the routing service.
type ServiceConfig struct {
	// Provider is the directions provider. Nil means not configured.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics records provider calls. Optional.
	Metrics *telemetry.ProviderMetrics

	// CacheTTL is how long to cache directions (default: 5 minutes).
	CacheTTL time.Duration

	// CacheGridSize quantizes coordinate locations in cache keys (default: 0.001 ~ 110m).
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 15 minutes).
	StaleIfErrorTTL time.Duration

	// CleanupInterval is how often to drop expired entries (default: 5 minutes).
	CleanupInterval time.Duration

	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time
}

// Service provides directions with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	metrics         *telemetry.ProviderMetrics
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	mu          sync.RWMutex
	cache       map[string]*cachedDirections
	lastCleanup time.Time
}

type cachedDirections struct {
	directions *Directions
	fetchedAt  time.Time
	expiresAt  time.Time
}

// NewService creates a new routing service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.001
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 15 * time.Minute
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 5 * time.Minute
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cleanupInterval: cleanupInterval,
		now:             now,
		cache:           make(map[string]*cachedDirections),
	}
}

// Configured reports whether a provider is set.
func (s *Service) Configured() bool {
	return s.provider != nil
}

// ProviderName returns the provider name, or "" when not configured.
func (s *Service) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// GetDirections returns the driving route between two locations.
// Uses cached data if available and not expired.
func (s *Service) GetDirections(ctx context.Context, req DirectionsRequest) (*Directions, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}
	if err := req.Origin.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_ORIGIN",
			Message:  "invalid origin",
			Err:      err,
		}
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, &Error{
			Provider: s.provider.Name(),
			Code:     "INVALID_DESTINATION",
			Message:  "invalid destination",
			Err:      err,
		}
	}

	cacheKey := s.cacheKey(req)

	s.mu.RLock()
	if cached, ok := s.cache[cacheKey]; ok && s.now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		s.metrics.RecordCacheHit(s.provider.Name(), "directions")
		return cached.directions, nil
	}
	s.mu.RUnlock()

	return s.fetchDirections(ctx, req, cacheKey)
}

func (s *Service) fetchDirections(ctx context.Context, req DirectionsRequest, cacheKey string) (*Directions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring the write lock.
	if cached, ok := s.cache[cacheKey]; ok && s.now().Before(cached.expiresAt) {
		s.metrics.RecordCacheHit(s.provider.Name(), "directions")
		return cached.directions, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), "directions")

	s.logger.Debug().
		Str("origin", req.Origin.String()).
		Str("destination", req.Destination.String()).
		Str("provider", s.provider.Name()).
		Msg("fetching directions from provider")

	start := s.now()
	resp, err := s.provider.GetDirections(ctx, req)
	s.metrics.RecordCall(s.provider.Name(), "directions", s.now().Sub(start), err)
	if err != nil {
		s.logger.Error().Err(err).
			Str("origin", req.Origin.String()).
			Str("destination", req.Destination.String()).
			Msg("failed to fetch directions")

		if cached, ok := s.cache[cacheKey]; ok && s.now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Str("cache_key", cacheKey).
				Msg("serving stale directions due to provider error")
			return cached.directions, nil
		}
		return nil, err
	}

	now := s.now()
	s.cache[cacheKey] = &cachedDirections{
		directions: resp,
		fetchedAt:  now,
		expiresAt:  now.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded(now)

	return resp, nil
}

// cacheKey quantizes coordinates to the grid and normalizes addresses.
// Departure times are bucketed to the cache TTL; zero means "now".
func (s *Service) cacheKey(req DirectionsRequest) string {
	departure := "now"
	if !req.DepartureTime.IsZero() {
		departure = req.DepartureTime.Truncate(s.cacheTTL).UTC().Format(time.RFC3339)
	}
	return s.locationKey(req.Origin) + "|" + s.locationKey(req.Destination) + "|" + departure
}

func (s *Service) locationKey(l Location) string {
	if l.Point != nil {
		lat := math.Floor(l.Point.Lat/s.cacheGridSize) * s.cacheGridSize
		lon := math.Floor(l.Point.Lon/s.cacheGridSize) * s.cacheGridSize
		return fmt.Sprintf("%.4f,%.4f", lat, lon)
	}
	return strings.ToLower(strings.Join(strings.Fields(l.Address), " "))
}

// cleanupIfNeeded removes entries past the stale window. Caller holds mu.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}
	if expired > 0 {
		s.logger.Debug().Int("expired_entries", expired).Msg("cleaned up routing cache")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedDirections)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	Provider     string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	stats := CacheStats{TotalEntries: len(s.cache), Provider: s.ProviderName()}
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			stats.FreshEntries++
		} else if now.Before(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			stats.StaleEntries++
		}
	}
	return stats
}
