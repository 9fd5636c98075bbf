package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// WeatherRefresher fetches and caches weather for a point.
type WeatherRefresher interface {
	Refresh(ctx context.Context, lat, lon float64) error
}

// RefreshJob warms the weather cache for configured points.
type RefreshJob struct {
	config  RefreshConfig
	logger  zerolog.Logger
	weather WeatherRefresher

	metrics *RefreshMetrics

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	Runs                int64
	SuccessfulRefreshes int64
	FailedRefreshes     int64
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config  RefreshConfig
	Logger  zerolog.Logger
	Weather WeatherRefresher
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:  cfg.Config.withDefaults(),
		logger:  cfg.Logger,
		weather: cfg.Weather,
		metrics: &RefreshMetrics{},
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// RefreshResult contains the result of one run.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int
	Errors      []RefreshError
}

// RefreshError records a failed point.
type RefreshError struct {
	Point Point
	Error string
}

// Run refreshes every point once using a bounded worker pool.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	points := j.config.AllPoints()
	result := &RefreshResult{
		StartTime:   startTime,
		TotalPoints: len(points),
	}

	if j.weather == nil {
		result.EndTime = time.Now()
		return result
	}

	j.logger.Debug().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting weather refresh")

	pointsChan := make(chan Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		if pr.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{Point: pr.point, Error: pr.err.Error()})
			continue
		}
		result.Successful++
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	evt := j.logger.Info()
	if result.Failed > 0 {
		evt = j.logger.Warn()
	}
	evt.Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("weather refresh completed")

	return result
}

type pointResult struct {
	point Point
	err   error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, points <-chan Point, results chan<- pointResult) {
	for point := range points {
		if ctx.Err() != nil {
			results <- pointResult{point: point, err: ctx.Err()}
			continue
		}
		pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
		err := j.weather.Refresh(pointCtx, point.Lat, point.Lon)
		cancel()
		results <- pointResult{point: point, err: err}
	}
}

// Start runs the job immediately and then every Interval until ctx is
// done or Stop is called.
func (j *RefreshJob) Start(ctx context.Context) {
	go func() {
		defer close(j.done)

		ticker := time.NewTicker(j.config.Interval)
		defer ticker.Stop()

		j.Run(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-j.stop:
				return
			case <-ticker.C:
				j.Run(ctx)
			}
		}
	}()
}

// Stop signals the background loop and waits for the current run to finish.
// It must only be called after Start.
func (j *RefreshJob) Stop() {
	j.stopOnce.Do(func() { close(j.stop) })
	<-j.done
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.Runs++
	j.metrics.SuccessfulRefreshes += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
}

// MetricsSnapshot returns the job statistics as a map for the status endpoint.
func (j *RefreshJob) MetricsSnapshot() map[string]any {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return map[string]any{
		"runs":                  j.metrics.Runs,
		"successful_refreshes":  j.metrics.SuccessfulRefreshes,
		"failed_refreshes":      j.metrics.FailedRefreshes,
		"last_refresh_at":       j.metrics.LastRefreshAt,
		"last_refresh_duration": j.metrics.LastRefreshDuration.String(),
	}
}
