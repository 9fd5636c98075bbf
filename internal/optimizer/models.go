package optimizer

import (
	"time"

	"github.com/chargeopt/chargeopt/internal/tariff"
	"github.com/chargeopt/chargeopt/internal/weather"
)

// Request is a charging session to schedule.
type Request struct {
	Start     time.Time
	End       time.Time
	EnergyKWh float64
	Utility   tariff.Utility
}

// Candidate is one evaluated hour of the window.
type Candidate struct {
	Time          time.Time
	Score         float64
	Rate          float64
	Period        tariff.Period
	SolarKW       float64
	TemperatureF  float64
	WeatherSource weather.Source
}

// Entry is energy allocated to one hour.
type Entry struct {
	Time             time.Time
	Hour             int
	EnergyKWh        float64
	Cost             float64
	Rate             float64
	Period           tariff.Period
	Score            float64
	SolarAvailableKW float64
	SolarOffsetKWh   float64
}

// Summary totals a schedule. TotalEnergyKWh is the requested energy; when
// the window cannot hold it, AllocatedEnergyKWh is smaller and ShortfallKWh
// is the difference.
type Summary struct {
	TotalEnergyKWh     float64
	AllocatedEnergyKWh float64
	ShortfallKWh       float64
	Satisfied          bool
	TotalCost          float64
	AverageRate        float64
	SolarOffsetKWh     float64
	SolarPercentage    float64
	ChargingHours      int
	CandidateHours     int
	Utility            tariff.Utility
}

// Result is a computed schedule. Entries are in chronological order;
// Candidates hold every evaluated hour, also chronological.
type Result struct {
	Entries    []Entry
	Summary    Summary
	Candidates []Candidate
}
