package scoring

import (
	"math"
	"time"

	"github.com/chargeopt/chargeopt/internal/solar"
	"github.com/chargeopt/chargeopt/internal/tariff"
	"github.com/chargeopt/chargeopt/internal/weather"
)

// Feature indexes into a FeatureVector. The order matches the column order the
// models were trained on and must not change.
const (
	FeatureHour = iota
	FeatureDayOfYear
	FeatureMonth
	FeatureIsWeekend
	FeatureGHI
	FeatureDNI
	FeatureDHI
	FeatureTemperature
	FeatureWindSpeed
	FeatureSolarEnergyKWh
	FeatureLADWPRate
	FeatureSCERate
	FeatureHourSin
	FeatureHourCos
	FeatureDaySin
	FeatureDayCos

	NumFeatures
)

// FeatureNames are the training column names, indexed like FeatureVector.
var FeatureNames = [NumFeatures]string{
	"hour", "day_of_year", "month", "is_weekend",
	"ghi", "dni", "dhi", "temperature", "wind_speed",
	"solar_energy_kwh", "ladwp_rate", "sce_rate",
	"hour_sin", "hour_cos", "day_sin", "day_cos",
}

// FeatureVector is the model input for one (time, weather) pair.
type FeatureVector [NumFeatures]float64

// Slice returns a copy of the vector as a slice.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// BuildFeatures assembles the feature vector from precomputed solar output and
// both utilities' quotes for the same hour.
func BuildFeatures(t time.Time, w weather.Snapshot, est solar.Estimate, ladwp, sce tariff.Quote) FeatureVector {
	hour := float64(t.Hour())
	doy := float64(t.YearDay())

	ghi := est.GHI
	var dni float64
	if ghi > 100 {
		dni = ghi * 0.7
	}
	dhi := ghi
	if ghi > 50 {
		dhi = ghi * 0.3
	}

	var weekend float64
	if tariff.IsWeekend(t) {
		weekend = 1
	}

	var v FeatureVector
	v[FeatureHour] = hour
	v[FeatureDayOfYear] = doy
	v[FeatureMonth] = float64(t.Month())
	v[FeatureIsWeekend] = weekend
	v[FeatureGHI] = ghi
	v[FeatureDNI] = dni
	v[FeatureDHI] = dhi
	v[FeatureTemperature] = w.TemperatureF
	v[FeatureWindSpeed] = w.WindSpeedMph
	v[FeatureSolarEnergyKWh] = est.HourlyEnergyKWh
	v[FeatureLADWPRate] = ladwp.Rate
	v[FeatureSCERate] = sce.Rate
	v[FeatureHourSin] = math.Sin(2 * math.Pi * hour / 24)
	v[FeatureHourCos] = math.Cos(2 * math.Pi * hour / 24)
	v[FeatureDaySin] = math.Sin(2 * math.Pi * doy / 365)
	v[FeatureDayCos] = math.Cos(2 * math.Pi * doy / 365)
	return v
}
