package models

// RouteOptimizationRequest asks for a route with suggested charging stops.
type RouteOptimizationRequest struct {
	StartLocation         Location `json:"start_location"`
	EndLocation           Location `json:"end_location"`
	VehicleRangeMiles     *float64 `json:"vehicle_range_miles,omitempty"`
	CurrentBatteryPercent *float64 `json:"current_battery_percent,omitempty"`
}

// RouteOverview summarizes the driving route.
type RouteOverview struct {
	DistanceMiles   float64 `json:"distance_miles"`
	DurationMinutes float64 `json:"duration_minutes"`
	Polyline        string  `json:"polyline"`
	Summary         string  `json:"summary,omitempty"`
}

// ChargingStop is a suggested station near the route.
type ChargingStop struct {
	Name              string  `json:"name"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	DistanceFromRoute float64 `json:"distance_from_route"`
	HasDCFast         bool    `json:"has_dc_fast"`
	Network           string  `json:"network"`
}

// ChargingAnalysis says whether the trip needs a stop.
type ChargingAnalysis struct {
	NeedsCharging       bool           `json:"needs_charging"`
	AvailableRangeMiles float64        `json:"available_range_miles"`
	SearchPoint         *Point         `json:"search_point,omitempty"`
	SuggestedStops      []ChargingStop `json:"suggested_stops"`
}

// RouteOptimizationResponse is the trip plan.
type RouteOptimizationResponse struct {
	Envelope
	Route            RouteOverview    `json:"route"`
	ChargingAnalysis ChargingAnalysis `json:"charging_analysis"`
}

// DirectionsRequest asks for driving directions. DepartureTime is optional
// RFC3339.
type DirectionsRequest struct {
	Origin        Location `json:"origin"`
	Destination   Location `json:"destination"`
	DepartureTime string   `json:"departure_time,omitempty"`
}

// DirectionsResponse is the primary route with traffic data when available.
type DirectionsResponse struct {
	Envelope
	Distance               string   `json:"distance"`
	DistanceValue          int      `json:"distance_value"`
	Duration               string   `json:"duration"`
	DurationValue          int      `json:"duration_value"`
	DurationInTraffic      string   `json:"duration_in_traffic,omitempty"`
	DurationInTrafficValue *int     `json:"duration_in_traffic_value,omitempty"`
	TrafficDelayMinutes    *float64 `json:"traffic_delay_minutes,omitempty"`
	StartAddress           string   `json:"start_address"`
	EndAddress             string   `json:"end_address"`
	Polyline               string   `json:"polyline"`
	Summary                string   `json:"summary,omitempty"`
	Provider               string   `json:"provider"`
}

// AutocompleteRequest is a partial place query.
type AutocompleteRequest struct {
	Input string `json:"input"`
}

// Prediction is one place suggestion.
type Prediction struct {
	PlaceID       string   `json:"place_id"`
	Description   string   `json:"description"`
	MainText      string   `json:"main_text"`
	SecondaryText string   `json:"secondary_text"`
	Types         []string `json:"types,omitempty"`
}

// AutocompleteResponse lists suggestions.
type AutocompleteResponse struct {
	Envelope
	Predictions []Prediction `json:"predictions"`
}

// ChatRequest is a message to the assistant with optional client context.
type ChatRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// ChatResponse is the assistant's answer.
type ChatResponse struct {
	Envelope
	Response string `json:"response"`
	Fallback bool   `json:"fallback"`
	Note     string `json:"note,omitempty"`
	Provider string `json:"provider,omitempty"`
}
