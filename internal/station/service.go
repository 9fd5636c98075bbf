package station

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the station service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
}

// Service owns the loaded station dataset.
type Service struct {
	repo    Repository
	logger  zerolog.Logger
	locator atomic.Pointer[Locator]
	loaded  atomic.Bool
}

// NewService creates a station service with an empty dataset.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}
	s.locator.Store(NewLocator(nil))
	return s
}

// Load reads the dataset from the repository. On failure the current
// dataset is kept (empty on first load) and the error is returned for
// logging; the service keeps answering queries.
func (s *Service) Load(ctx context.Context) error {
	if s.repo == nil {
		return ErrNotLoaded
	}

	start := time.Now()
	stations, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("source", s.repo.Name()).Msg("failed to load station data")
		return err
	}

	loc := NewLocator(stations)
	s.locator.Store(loc)
	s.loaded.Store(true)

	sum := loc.Summary()
	s.logger.Info().
		Str("source", s.repo.Name()).
		Int("stations", sum.TotalStations).
		Int("high_capacity", sum.HighCapacityStations).
		Dur("duration", time.Since(start)).
		Msg("station data loaded")
	return nil
}

// Loaded reports whether a load has succeeded.
func (s *Service) Loaded() bool {
	return s.loaded.Load()
}

// Count returns the number of stations.
func (s *Service) Count() int {
	return s.locator.Load().Len()
}

// Summary returns dataset statistics.
func (s *Service) Summary() Summary {
	return s.locator.Load().Summary()
}

// Nearby delegates to the current Locator.
func (s *Service) Nearby(lat, lon, radiusMiles float64, limit int) []Match {
	return s.locator.Load().Nearby(lat, lon, radiusMiles, limit)
}
