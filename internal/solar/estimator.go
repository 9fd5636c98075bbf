// Package solar estimates photovoltaic output from time of day, season and
// weather, without a full solar ephemeris.
package solar

import (
	"math"
	"time"

	"github.com/chargeopt/chargeopt/internal/weather"
)

// Config holds the site and model constants.
type Config struct {
	// MonthlyGHI is the mean global horizontal irradiance per month in
	// kWh/m²/day, January first.
	MonthlyGHI [12]float64

	// SunriseHour and SunsetHour bound the production window [SunriseHour, SunsetHour).
	SunriseHour int
	SunsetHour  int

	// IrradianceScale converts the daily mean into a midday peak.
	IrradianceScale float64

	// MaxCloudDerate is the fraction of output lost under full cloud cover.
	MaxCloudDerate float64

	// TempCoefficient is the fractional loss per °C above ReferenceTempC.
	TempCoefficient float64
	ReferenceTempC  float64

	PanelAreaM2     float64
	PanelEfficiency float64
}

// DefaultConfig returns constants calibrated for the Los Angeles basin.
func DefaultConfig() Config {
	return Config{
		MonthlyGHI:      [12]float64{3.06, 3.65, 5.15, 6.35, 6.89, 7.24, 7.65, 7.02, 5.79, 4.42, 3.46, 2.82},
		SunriseHour:     6,
		SunsetHour:      19,
		IrradianceScale: 2.5,
		MaxCloudDerate:  0.8,
		TempCoefficient: 0.004,
		ReferenceTempC:  25,
		PanelAreaM2:     500,
		PanelEfficiency: 0.17,
	}
}

// Estimate is the estimated solar output for one hour.
type Estimate struct {
	GHI             float64 // W/m²
	PowerKW         float64
	HourlyEnergyKWh float64
	TempFactor      float64
	CloudFactor     float64
}

// Estimator computes solar estimates. It holds no mutable state.
type Estimator struct {
	cfg Config
}

// NewEstimator creates an estimator with the given constants.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate returns the output for the hour and month of t (in t's location)
// under weather w.
func (e *Estimator) Estimate(t time.Time, w weather.Snapshot) Estimate {
	hour := t.Hour()
	baseline := e.cfg.MonthlyGHI[int(t.Month())-1] * 1000 / 24

	cloud := math.Max(0, math.Min(100, w.CloudCover))
	cloudFactor := 1 - e.cfg.MaxCloudDerate*cloud/100

	ghi := baseline * e.elevationFactor(hour) * e.cfg.IrradianceScale * cloudFactor

	tempFactor := 1 - e.cfg.TempCoefficient*(w.TemperatureC()-e.cfg.ReferenceTempC)

	power := math.Max(0, ghi/1000*e.cfg.PanelAreaM2*e.cfg.PanelEfficiency*tempFactor)

	return Estimate{
		GHI:             ghi,
		PowerKW:         power,
		HourlyEnergyKWh: power, // one hour at constant power
		TempFactor:      tempFactor,
		CloudFactor:     cloudFactor,
	}
}

// elevationFactor models sun angle as cos² of the hour angle around noon.
func (e *Estimator) elevationFactor(hour int) float64 {
	if hour < e.cfg.SunriseHour || hour >= e.cfg.SunsetHour {
		return 0
	}
	angle := float64(hour-12) * 15 * math.Pi / 180
	c := math.Cos(angle)
	return math.Max(0, c*c)
}
