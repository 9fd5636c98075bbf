package weather

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Seasonal fallback constants for the Los Angeles basin.
const (
	fallbackHumidity    = 65.0
	fallbackWindMph     = 7.83
	fallbackCloudCover  = 20.0
	fallbackDescription = "partly cloudy"
	fallbackNoiseSigma  = 3.6
)

// NoiseSource returns a temperature perturbation in degrees Fahrenheit.
type NoiseSource func() float64

// NormalNoise returns Gaussian noise with mean 0 and the seasonal sigma.
// A nil src draws from the global generator, which is safe for concurrent
// use; a non-nil src is not.
func NormalNoise(src rand.Source) NoiseSource {
	dist := distuv.Normal{Mu: 0, Sigma: fallbackNoiseSigma, Src: src}
	return dist.Rand
}

// ZeroNoise always returns 0.
func ZeroNoise() float64 { return 0 }

// SeasonalModel synthesizes a snapshot when no provider data is available.
type SeasonalModel struct {
	noise NoiseSource
}

// NewSeasonalModel creates a seasonal model. A nil noise source means no noise.
func NewSeasonalModel(noise NoiseSource) *SeasonalModel {
	if noise == nil {
		noise = ZeroNoise
	}
	return &SeasonalModel{noise: noise}
}

// Snapshot returns the synthetic weather for the month of t.
func (m *SeasonalModel) Snapshot(lat, lon float64, t time.Time) Snapshot {
	month := float64(t.Month())
	tempC := 15 + 10*math.Sin((month-1)*math.Pi/6)

	return Snapshot{
		Lat:          lat,
		Lon:          lon,
		TemperatureF: tempC*9/5 + 32 + m.noise(),
		Humidity:     fallbackHumidity,
		WindSpeedMph: fallbackWindMph,
		CloudCover:   fallbackCloudCover,
		Condition:    ConditionClouds,
		Description:  fallbackDescription,
		ObservedAt:   t,
		Source:       SourceFallback,
	}
}
