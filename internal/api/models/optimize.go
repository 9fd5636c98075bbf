package models

// OptimizeRequest is the optimize-session body. Times are RFC3339 or local
// wall-clock time without an offset.
type OptimizeRequest struct {
	SessionStart    string   `json:"session_start"`
	SessionEnd      string   `json:"session_end"`
	EnergyNeededKWh *float64 `json:"energy_needed_kwh"`
	Utility         string   `json:"utility"`
}

// OptimizationSummary totals the schedule.
type OptimizationSummary struct {
	TotalEnergyKWh     float64 `json:"total_energy_kwh"`
	AllocatedEnergyKWh float64 `json:"allocated_energy_kwh"`
	ShortfallKWh       float64 `json:"shortfall_kwh"`
	Satisfied          bool    `json:"satisfied"`
	TotalCost          float64 `json:"total_cost"`
	AverageRate        float64 `json:"average_rate"`
	SolarOffsetKWh     float64 `json:"solar_offset_kwh"`
	SolarPercentage    float64 `json:"solar_percentage"`
	ChargingHours      int     `json:"charging_hours"`
	CandidateHours     int     `json:"candidate_hours"`
	Utility            string  `json:"utility"`
}

// ScheduleEntry is one charging hour.
type ScheduleEntry struct {
	Datetime          string  `json:"datetime"`
	Hour              int     `json:"hour"`
	EnergyKWh         float64 `json:"energy_kwh"`
	ChargingCost      float64 `json:"charging_cost"`
	UtilityRate       float64 `json:"utility_rate"`
	Period            string  `json:"period"`
	OptimizationScore float64 `json:"optimization_score"`
	SolarAvailableKW  float64 `json:"solar_available_kw"`
	SolarOffset       float64 `json:"solar_offset"`
}

// OptimizeResponse is the optimize-session result.
type OptimizeResponse struct {
	Envelope
	Summary  OptimizationSummary `json:"optimization_summary"`
	Schedule []ScheduleEntry     `json:"charging_schedule"`
}
