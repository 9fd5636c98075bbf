package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNotConfigured       = errors.New("weather provider not configured")
	ErrNoDataForTime       = errors.New("no forecast data for requested time")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")

	// ErrRecentFailure means the provider failed for this grid cell within
	// the failure window and was not called again.
	ErrRecentFailure = errors.New("provider failed recently")
)

// Source records where a snapshot came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceForecast Source = "forecast"
	SourceStale    Source = "stale"
	SourceFallback Source = "fallback"
)

// Condition represents the general weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// Snapshot is the weather at a point and time in imperial units.
// Snapshots are values and are never modified after creation.
type Snapshot struct {
	Lat float64
	Lon float64

	TemperatureF float64
	Humidity     float64 // percent 0-100
	WindSpeedMph float64
	CloudCover   float64 // percent 0-100

	Condition   Condition
	Description string

	ObservedAt time.Time
	Source     Source
}

// TemperatureC returns the temperature in degrees Celsius.
func (s Snapshot) TemperatureC() float64 {
	return (s.TemperatureF - 32) * 5 / 9
}

// Forecast holds hourly forecast snapshots for one location.
type Forecast struct {
	Lat float64
	Lon float64

	Hourly []Snapshot

	FetchedAt time.Time
}

// At returns the forecast entry covering t, picking the latest entry whose
// time is not after t. Entries more than maxGap before t are ignored.
func (f *Forecast) At(t time.Time, maxGap time.Duration) (Snapshot, bool) {
	if f == nil {
		return Snapshot{}, false
	}
	var (
		best  Snapshot
		found bool
	)
	for _, h := range f.Hourly {
		if h.ObservedAt.After(t) {
			continue
		}
		if t.Sub(h.ObservedAt) > maxGap {
			continue
		}
		if !found || h.ObservedAt.After(best.ObservedAt) {
			best = h
			found = true
		}
	}
	return best, found
}

// Reading is the outcome of a weather lookup. Snapshot is always usable;
// Fallback is set when it was synthesized, and Err carries the cause.
type Reading struct {
	Snapshot Snapshot
	Fallback bool
	Err      error
}
