package worker_test

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

	"github.com/chargeopt/chargeopt/internal/worker"
)

type fakeWeather struct {
	mu      sync.Mutex
	points  []worker.Point
	failLat float64
	calls   atomic.Int32
}

func (f *fakeWeather) Refresh(_ context.Context, lat, lon float64) error {
	f.calls.Add(1)
	f.mu.Lock()
	f.points = append(f.points, worker.Point{Lat: lat, Lon: lon})
	f.mu.Unlock()
	if lat == f.failLat {
		return errors.New("provider down")
	}
	return nil
}

func TestDefaultRefreshConfig(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, 7, cfg.TotalPoints())

	points := cfg.AllPoints()
	require.NotEmpty(t, points)
	assert.Equal(t, worker.Point{Lat: 34.0522, Lon: -118.2437}, points[0])
}

func TestRefreshConfig_AllPointsByPriority(t *testing.T) {
	cfg := worker.RefreshConfig{
		Targets: []worker.RefreshTarget{
			{Name: "late", Priority: 3, Points: []worker.Point{{Lat: 3, Lon: 3}}},
			{Name: "early", Priority: 1, Points: []worker.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}},
		},
	}

	assert.Equal(t, []worker.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}, {Lat: 3, Lon: 3}}, cfg.AllPoints())
	assert.Equal(t, "late", cfg.Targets[0].Name, "AllPoints must not reorder the config")
}

func TestRefreshJob_Run(t *testing.T) {
	weather := &fakeWeather{failLat: 2}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Targets: []worker.RefreshTarget{
				{Name: "a", Points: []worker.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}, {Lat: 3, Lon: 3}}},
			},
			Concurrency: 2,
		},
		Logger:  zerolog.Nop(),
		Weather: weather,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 3, result.TotalPoints)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, worker.Point{Lat: 2, Lon: 2}, result.Errors[0].Point)
	assert.Equal(t, int32(3), weather.calls.Load())

	snap := job.MetricsSnapshot()
	assert.Equal(t, int64(1), snap["runs"])
	assert.Equal(t, int64(2), snap["successful_refreshes"])
	assert.Equal(t, int64(1), snap["failed_refreshes"])
}

func TestRefreshJob_Run_NoWeather(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{Logger: zerolog.Nop()})

	result := job.Run(context.Background())
	assert.Zero(t, result.Successful)
	assert.Zero(t, result.Failed)
}

func TestRefreshJob_Run_CanceledContext(t *testing.T) {
	weather := &fakeWeather{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{Logger: zerolog.Nop(), Weather: weather})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)
	assert.Equal(t, result.TotalPoints, result.Failed)
	assert.Zero(t, weather.calls.Load())
}

func TestRefreshJob_StartStop(t *testing.T) {
	weather := &fakeWeather{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{
			Targets:  []worker.RefreshTarget{{Name: "a", Points: []worker.Point{{Lat: 1, Lon: 1}}}},
			Interval: 10 * time.Millisecond,
		},
		Logger:  zerolog.Nop(),
		Weather: weather,
	})

	job.Start(context.Background())
	assert.Eventually(t, func() bool { return weather.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	job.Stop()

	after := weather.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, weather.calls.Load())
}
