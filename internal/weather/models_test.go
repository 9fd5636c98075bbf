package weather_test

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chargeopt/chargeopt/internal/weather"
)

func TestSnapshot_TemperatureC(t *testing.T) {
	s := weather.Snapshot{TemperatureF: 77}
	assert.InDelta(t, 25.0, s.TemperatureC(), 1e-9)
}

func TestForecast_At(t *testing.T) {
	base := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	f := &weather.Forecast{
		Hourly: []weather.Snapshot{
			{TemperatureF: 60, ObservedAt: base},
			{TemperatureF: 70, ObservedAt: base.Add(3 * time.Hour)},
			{TemperatureF: 80, ObservedAt: base.Add(6 * time.Hour)},
		},
	}

	tests := []struct {
		name  string
		at    time.Time
		want  float64
		found bool
	}{
		{"exact", base.Add(3 * time.Hour), 70, true},
		{"between", base.Add(4 * time.Hour), 70, true},
		{"before first", base.Add(-time.Hour), 0, false},
		{"past last within gap", base.Add(8 * time.Hour), 80, true},
		{"past last beyond gap", base.Add(10 * time.Hour), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, ok := f.At(tt.at, 3*time.Hour)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.InDelta(t, tt.want, snap.TemperatureF, 1e-9)
			}
		})
	}

	var nilForecast *weather.Forecast
	_, ok := nilForecast.At(base, time.Hour)
	assert.False(t, ok)
}

func TestSeasonalModel_Snapshot(t *testing.T) {
	m := weather.NewSeasonalModel(nil)

	tests := []struct {
		month time.Month
		wantF float64
	}{
		{time.January, 59}, // 15 C
		{time.April, 77},   // 25 C at the sine peak
		{time.October, 41}, // 5 C at the trough
		{time.July, 59},    // sin(pi) = 0
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			at := time.Date(2024, tt.month, 10, 12, 0, 0, 0, time.UTC)
			s := m.Snapshot(34.05, -118.24, at)
			assert.InDelta(t, tt.wantF, s.TemperatureF, 1e-6)
			assert.InDelta(t, 65.0, s.Humidity, 1e-9)
			assert.InDelta(t, 7.83, s.WindSpeedMph, 1e-9)
			assert.InDelta(t, 20.0, s.CloudCover, 1e-9)
			assert.Equal(t, "partly cloudy", s.Description)
			assert.Equal(t, weather.SourceFallback, s.Source)
			assert.Equal(t, at, s.ObservedAt)
		})
	}
}

func TestNormalNoise_Deterministic(t *testing.T) {
	a := weather.NormalNoise(rand.NewPCG(1, 2))
	b := weather.NormalNoise(rand.NewPCG(1, 2))

	for i := 0; i < 10; i++ {
		assert.Equal(t, a(), b())
	}
}

func TestNormalNoise_Spread(t *testing.T) {
	noise := weather.NormalNoise(rand.NewPCG(7, 7))

	var sum, sumSq float64
	const n = 20000
	for i := 0; i < n; i++ {
		v := noise()
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	assert.InDelta(t, 0, mean, 0.15)
	assert.InDelta(t, 3.6*3.6, variance, 0.8)
}
