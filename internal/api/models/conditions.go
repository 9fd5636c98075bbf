package models

import "time"

// Weather is a weather snapshot in imperial units.
type Weather struct {
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"wind_speed"`
	Clouds      float64   `json:"clouds"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Solar is a solar production estimate.
type Solar struct {
	GHI             float64 `json:"ghi"`
	PowerKW         float64 `json:"power_kw"`
	HourlyEnergyKWh float64 `json:"hourly_energy_kwh"`
}

// RateQuote is a tariff rate and its period.
type RateQuote struct {
	Rate   float64 `json:"rate"`
	Period string  `json:"period"`
}

// ConditionsResponse is the current-conditions body. Pricing is keyed by
// the long utility identifier.
type ConditionsResponse struct {
	Envelope
	Weather Weather              `json:"weather"`
	Solar   Solar                `json:"solar"`
	Pricing map[string]RateQuote `json:"pricing"`
}

// HourRate is one hour of a tariff table.
type HourRate struct {
	Hour   int     `json:"hour"`
	Rate   float64 `json:"rate"`
	Period string  `json:"period"`
}

// UtilityTariff is the 24-hour schedule of one utility.
type UtilityTariff struct {
	Utility string     `json:"utility"`
	Short   string     `json:"short"`
	Weekday []HourRate `json:"weekday"`
	Weekend []HourRate `json:"weekend"`
}

// TariffsResponse lists every modeled utility.
type TariffsResponse struct {
	Envelope
	Timezone  string          `json:"timezone"`
	Utilities []UtilityTariff `json:"utilities"`
}
