package weather_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeopt/chargeopt/internal/weather"
)

var laNoon = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu            sync.Mutex
	currentCalls  int
	forecastCalls int
	currentErr    error
	forecastErr   error
	forecast      *weather.Forecast
	delay         time.Duration
}

func newMockProvider() *mockProvider {
	return &mockProvider{}
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Snapshot, error) {
	m.mu.Lock()
	m.currentCalls++
	err := m.currentErr
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	return &weather.Snapshot{
		Lat:          lat,
		Lon:          lon,
		TemperatureF: 75,
		Humidity:     50,
		WindSpeedMph: 4,
		CloudCover:   10,
		Condition:    weather.ConditionClear,
		Description:  "clear sky",
		ObservedAt:   laNoon,
	}, nil
}

func (m *mockProvider) GetForecast(_ context.Context, lat, lon float64) (*weather.Forecast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecastCalls++

	if m.forecastErr != nil {
		return nil, m.forecastErr
	}
	if m.forecast != nil {
		return m.forecast, nil
	}
	return &weather.Forecast{Lat: lat, Lon: lon, FetchedAt: laNoon}, nil
}

func (m *mockProvider) calls() (current, forecast int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentCalls, m.forecastCalls
}

func (m *mockProvider) setCurrentErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentErr = err
}

func newTestService(p *mockProvider, clock func() time.Time) *weather.Service {
	return weather.NewService(weather.ServiceConfig{
		Provider: p,
		Logger:   zerolog.Nop(),
		Fallback: weather.NewSeasonalModel(weather.ZeroNoise),
		CacheTTL: 5 * time.Minute,
		Clock:    clock,
	})
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestService_CurrentCaches(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider, fixedClock(laNoon))

	r := service.Current(context.Background(), 34.05, -118.24)
	require.False(t, r.Fallback)
	require.NoError(t, r.Err)
	assert.Equal(t, weather.SourceProvider, r.Snapshot.Source)
	assert.InDelta(t, 75.0, r.Snapshot.TemperatureF, 1e-9)

	// Same grid cell, served from cache.
	r = service.Current(context.Background(), 34.051, -118.241)
	assert.False(t, r.Fallback)

	current, _ := provider.calls()
	assert.Equal(t, 1, current)
}

func TestService_CurrentNoProvider(t *testing.T) {
	service := weather.NewService(weather.ServiceConfig{
		Logger:   zerolog.Nop(),
		Fallback: weather.NewSeasonalModel(weather.ZeroNoise),
		Clock:    fixedClock(laNoon),
	})

	r := service.Current(context.Background(), 34.05, -118.24)
	assert.True(t, r.Fallback)
	assert.ErrorIs(t, r.Err, weather.ErrNotConfigured)
	assert.Equal(t, weather.SourceFallback, r.Snapshot.Source)
	assert.Equal(t, "partly cloudy", r.Snapshot.Description)
	assert.False(t, service.Configured())
}

func TestService_CurrentProviderErrorFallsBack(t *testing.T) {
	provider := newMockProvider()
	provider.setCurrentErr(errors.New("boom"))
	service := newTestService(provider, fixedClock(laNoon))

	r := service.Current(context.Background(), 34.05, -118.24)
	assert.True(t, r.Fallback)
	assert.ErrorIs(t, r.Err, weather.ErrProviderUnavailable)
	assert.InDelta(t, 65.0, r.Snapshot.Humidity, 1e-9)
}

func TestService_StaleIfError(t *testing.T) {
	provider := newMockProvider()
	now := laNoon
	service := newTestService(provider, func() time.Time { return now })

	r := service.Current(context.Background(), 34.05, -118.24)
	require.False(t, r.Fallback)

	// Expire the fresh entry, then break the provider.
	now = now.Add(10 * time.Minute)
	provider.setCurrentErr(errors.New("boom"))

	r = service.Current(context.Background(), 34.05, -118.24)
	assert.False(t, r.Fallback)
	assert.Equal(t, weather.SourceStale, r.Snapshot.Source)
}

func TestService_FetchTimeout(t *testing.T) {
	provider := newMockProvider()
	provider.delay = time.Second
	service := weather.NewService(weather.ServiceConfig{
		Provider:     provider,
		Logger:       zerolog.Nop(),
		Fallback:     weather.NewSeasonalModel(weather.ZeroNoise),
		FetchTimeout: 20 * time.Millisecond,
		Clock:        fixedClock(laNoon),
	})

	start := time.Now()
	r := service.Current(context.Background(), 34.05, -118.24)
	assert.True(t, r.Fallback)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestService_AtUsesForecast(t *testing.T) {
	provider := newMockProvider()
	provider.forecast = &weather.Forecast{
		Hourly: []weather.Snapshot{
			{TemperatureF: 60, ObservedAt: laNoon.Add(3 * time.Hour)},
			{TemperatureF: 66, ObservedAt: laNoon.Add(6 * time.Hour)},
		},
	}
	service := newTestService(provider, fixedClock(laNoon))

	r := service.At(context.Background(), 34.05, -118.24, laNoon.Add(7*time.Hour))
	require.False(t, r.Fallback)
	assert.Equal(t, weather.SourceForecast, r.Snapshot.Source)
	assert.InDelta(t, 66.0, r.Snapshot.TemperatureF, 1e-9)

	// Before the first forecast entry: current conditions are used.
	r = service.At(context.Background(), 34.05, -118.24, laNoon.Add(time.Hour))
	require.False(t, r.Fallback)
	assert.Equal(t, weather.SourceProvider, r.Snapshot.Source)
}

func TestService_AtFallsBackToSeasonal(t *testing.T) {
	provider := newMockProvider()
	provider.forecastErr = errors.New("forecast down")
	provider.setCurrentErr(errors.New("current down"))
	service := newTestService(provider, fixedClock(laNoon))

	jan := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	r := service.At(context.Background(), 34.05, -118.24, jan)
	assert.True(t, r.Fallback)
	assert.Error(t, r.Err)
	// January: 15 C = 59 F with zero noise.
	assert.InDelta(t, 59.0, r.Snapshot.TemperatureF, 1e-9)
	assert.Equal(t, jan, r.Snapshot.ObservedAt)
}

func TestService_InvalidCoordinates(t *testing.T) {
	service := newTestService(newMockProvider(), fixedClock(laNoon))

	r := service.Current(context.Background(), 95, 0)
	assert.True(t, r.Fallback)
	assert.ErrorIs(t, r.Err, weather.ErrInvalidCoordinates)

	assert.ErrorIs(t, service.Refresh(context.Background(), 95, 0), weather.ErrInvalidCoordinates)
}

func TestService_Refresh(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider, fixedClock(laNoon))

	require.NoError(t, service.Refresh(context.Background(), 34.05, -118.24))
	current, forecast := provider.calls()
	assert.Equal(t, 1, current)
	assert.Equal(t, 1, forecast)

	stats := service.CacheStats()
	assert.Equal(t, 1, stats.CurrentFreshEntries)
	assert.Equal(t, 1, stats.ForecastFreshEntries)
	assert.Equal(t, "mock", stats.Provider)

	provider.setCurrentErr(errors.New("boom"))
	service.InvalidateCache()
	assert.ErrorIs(t, service.Refresh(context.Background(), 34.05, -118.24), weather.ErrProviderUnavailable)
}

func TestService_ConcurrentAccess(t *testing.T) {
	provider := newMockProvider()
	service := newTestService(provider, fixedClock(laNoon))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := service.At(context.Background(), 34.05, -118.24, laNoon.Add(time.Duration(i)*time.Hour))
			assert.False(t, r.Fallback)
		}(i)
	}
	wg.Wait()

	current, forecast := provider.calls()
	assert.Equal(t, 1, current)
	assert.Equal(t, 1, forecast)
}

// hangingProvider blocks every call until the fetch context ends.
type hangingProvider struct {
	currentCalls  atomic.Int32
	forecastCalls atomic.Int32
	entered       chan struct{}
}

func newHangingProvider() *hangingProvider {
	return &hangingProvider{entered: make(chan struct{}, 64)}
}

func (h *hangingProvider) Name() string { return "hanging" }

func (h *hangingProvider) GetCurrentWeather(ctx context.Context, _, _ float64) (*weather.Snapshot, error) {
	h.currentCalls.Add(1)
	h.entered <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (h *hangingProvider) GetForecast(ctx context.Context, _, _ float64) (*weather.Forecast, error) {
	h.forecastCalls.Add(1)
	h.entered <- struct{}{}
	<-ctx.Done()
	return nil, ctx.Err()
}

func newHangingService(p weather.Provider, clock func() time.Time) *weather.Service {
	return weather.NewService(weather.ServiceConfig{
		Provider:     p,
		Logger:       zerolog.Nop(),
		Fallback:     weather.NewSeasonalModel(weather.ZeroNoise),
		FetchTimeout: 50 * time.Millisecond,
		FailureTTL:   time.Minute,
		Clock:        clock,
	})
}

func TestService_AtOutageSweepCallsProviderOnce(t *testing.T) {
	provider := newHangingProvider()
	service := newHangingService(provider, fixedClock(laNoon))

	start := time.Now()
	for h := 0; h < 24; h++ {
		r := service.At(context.Background(), 34.05, -118.24, laNoon.Add(time.Duration(h)*time.Hour))
		require.True(t, r.Fallback)
		assert.ErrorIs(t, r.Err, weather.ErrProviderUnavailable)
	}

	assert.Equal(t, int32(1), provider.forecastCalls.Load())
	assert.Equal(t, int32(1), provider.currentCalls.Load())
	assert.Less(t, time.Since(start), 24*50*time.Millisecond)
}

func TestService_AtOutageConcurrentCallersShareFetch(t *testing.T) {
	provider := newHangingProvider()
	service := newHangingService(provider, fixedClock(laNoon))

	var wg sync.WaitGroup
	for h := 0; h < 24; h++ {
		wg.Add(1)
		go func(h int) {
			defer wg.Done()
			r := service.At(context.Background(), 34.05, -118.24, laNoon.Add(time.Duration(h)*time.Hour))
			assert.True(t, r.Fallback)
		}(h)
	}
	wg.Wait()

	assert.Equal(t, int32(1), provider.forecastCalls.Load())
	assert.Equal(t, int32(1), provider.currentCalls.Load())
}

func TestService_FetchDoesNotHoldLock(t *testing.T) {
	provider := newHangingProvider()
	service := weather.NewService(weather.ServiceConfig{
		Provider:     provider,
		Logger:       zerolog.Nop(),
		Fallback:     weather.NewSeasonalModel(weather.ZeroNoise),
		FetchTimeout: 2 * time.Second,
		Clock:        fixedClock(laNoon),
	})

	go service.Current(context.Background(), 34.05, -118.24)
	<-provider.entered

	done := make(chan weather.CacheStats, 1)
	go func() { done <- service.CacheStats() }()

	select {
	case stats := <-done:
		assert.Equal(t, 0, stats.CurrentEntries)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("cache stats blocked behind an in-flight provider call")
	}
}

func TestService_FailureWindowExpires(t *testing.T) {
	provider := newMockProvider()
	provider.setCurrentErr(errors.New("boom"))
	now := laNoon
	service := weather.NewService(weather.ServiceConfig{
		Provider:   provider,
		Logger:     zerolog.Nop(),
		Fallback:   weather.NewSeasonalModel(weather.ZeroNoise),
		FailureTTL: time.Minute,
		Clock:      func() time.Time { return now },
	})

	assert.True(t, service.Current(context.Background(), 34.05, -118.24).Fallback)
	r := service.Current(context.Background(), 34.05, -118.24)
	assert.True(t, r.Fallback)
	assert.ErrorIs(t, r.Err, weather.ErrRecentFailure)
	current, _ := provider.calls()
	assert.Equal(t, 1, current)

	// Another grid cell is not affected.
	service.Current(context.Background(), 33.70, -117.80)
	current, _ = provider.calls()
	assert.Equal(t, 2, current)

	now = now.Add(61 * time.Second)
	provider.setCurrentErr(nil)
	r = service.Current(context.Background(), 34.05, -118.24)
	assert.False(t, r.Fallback)
	current, _ = provider.calls()
	assert.Equal(t, 3, current)
}
