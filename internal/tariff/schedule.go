// Package tariff provides the time-of-use rate schedules for the two modeled
// Los Angeles utilities.
package tariff

import (
	"errors"
	"strings"
	"time"
)

// ErrUnknownUtility is returned when a utility identifier cannot be parsed.
var ErrUnknownUtility = errors.New("unknown utility")

// Utility identifies an electric utility.
type Utility string

const (
	// UtilityLADWP is the Los Angeles Department of Water and Power (utility "A").
	UtilityLADWP Utility = "los_angeles_dept_water_power"
	// UtilitySCE is Southern California Edison (utility "B").
	UtilitySCE Utility = "southern_california_edison"
)

// Period is a named pricing period.
type Period string

const (
	PeriodBase     Period = "base_period"
	PeriodLowPeak  Period = "low_peak"
	PeriodHighPeak Period = "high_peak"

	PeriodOffPeak Period = "off_peak"
	PeriodMidPeak Period = "mid_peak"
	PeriodOnPeak  Period = "on_peak"
)

// IsPeak reports whether the period carries a peak surcharge.
func (p Period) IsPeak() bool {
	switch p {
	case PeriodLowPeak, PeriodHighPeak, PeriodMidPeak, PeriodOnPeak:
		return true
	default:
		return false
	}
}

// Quote is the rate in effect for a given hour.
type Quote struct {
	Rate   float64 // $/kWh
	Period Period
}

// ParseUtility accepts the short letter, abbreviation or long identifier.
func ParseUtility(s string) (Utility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "ladwp", string(UtilityLADWP):
		return UtilityLADWP, nil
	case "b", "sce", string(UtilitySCE):
		return UtilitySCE, nil
	default:
		return "", ErrUnknownUtility
	}
}

// Utilities returns the modeled utilities in display order.
func Utilities() []Utility {
	return []Utility{UtilityLADWP, UtilitySCE}
}

// Short returns the abbreviation used in model file names and logs.
func (u Utility) Short() string {
	switch u {
	case UtilityLADWP:
		return "ladwp"
	case UtilitySCE:
		return "sce"
	default:
		return string(u)
	}
}

// Rates holds the per-period prices of both utilities.
type Rates struct {
	LADWPBase     float64
	LADWPLowPeak  float64
	LADWPHighPeak float64

	SCEOffPeak float64
	SCEMidPeak float64
	SCEOnPeak  float64
}

// DefaultRates returns the published residential TOU rates.
func DefaultRates() Rates {
	return Rates{
		LADWPBase:     0.22,
		LADWPLowPeak:  0.223,
		LADWPHighPeak: 0.37,
		SCEOffPeak:    0.27,
		SCEMidPeak:    0.30,
		SCEOnPeak:     0.32,
	}
}

// Schedule maps (hour, weekend, utility) to a quote. It is immutable and safe
// for concurrent use.
type Schedule struct {
	rates Rates
}

// NewSchedule creates a schedule over the given rates.
func NewSchedule(rates Rates) *Schedule {
	return &Schedule{rates: rates}
}

// Rates returns the rate table backing the schedule.
func (s *Schedule) Rates() Rates {
	return s.rates
}

// Quote returns the rate and period for a local hour in [0,23].
// Any utility other than LADWP is priced on the SCE table.
func (s *Schedule) Quote(hour int, weekend bool, u Utility) Quote {
	if u == UtilityLADWP {
		return s.ladwp(hour, weekend)
	}
	return s.sce(hour, weekend)
}

// QuoteAt prices the hour containing t, using t's location for the local hour.
func (s *Schedule) QuoteAt(t time.Time, u Utility) Quote {
	return s.Quote(t.Hour(), IsWeekend(t), u)
}

// Table returns the 24 hourly quotes for a weekday or weekend day.
func (s *Schedule) Table(u Utility, weekend bool) [24]Quote {
	var out [24]Quote
	for h := range out {
		out[h] = s.Quote(h, weekend, u)
	}
	return out
}

func (s *Schedule) ladwp(hour int, weekend bool) Quote {
	switch {
	case weekend || hour >= 20 || hour < 10:
		return Quote{Rate: s.rates.LADWPBase, Period: PeriodBase}
	case (hour >= 10 && hour < 13) || (hour >= 17 && hour < 20):
		return Quote{Rate: s.rates.LADWPLowPeak, Period: PeriodLowPeak}
	case hour >= 13 && hour < 17:
		return Quote{Rate: s.rates.LADWPHighPeak, Period: PeriodHighPeak}
	default:
		return Quote{Rate: s.rates.LADWPBase, Period: PeriodBase}
	}
}

func (s *Schedule) sce(hour int, weekend bool) Quote {
	switch {
	case weekend || hour < 16 || hour >= 22:
		return Quote{Rate: s.rates.SCEOffPeak, Period: PeriodOffPeak}
	case (hour >= 16 && hour < 18) || (hour >= 20 && hour < 22):
		return Quote{Rate: s.rates.SCEMidPeak, Period: PeriodMidPeak}
	case hour >= 18 && hour < 20:
		return Quote{Rate: s.rates.SCEOnPeak, Period: PeriodOnPeak}
	default:
		return Quote{Rate: s.rates.SCEOffPeak, Period: PeriodOffPeak}
	}
}

// IsWeekend reports whether t falls on Saturday or Sunday in its location.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
