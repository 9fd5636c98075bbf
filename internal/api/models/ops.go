package models

import "time"

// Health values.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// HealthResponse is the liveness body.
type HealthResponse struct {
	Envelope
	Health         string          `json:"health"`
	Version        string          `json:"version"`
	BuildTime      string          `json:"buildTime"`
	ModelsLoaded   int             `json:"models_loaded"`
	Models         []string        `json:"models"`
	StationsLoaded int             `json:"stations_loaded"`
	Providers      map[string]bool `json:"providers"`
}

// StatusResponse reports upstream provider health.
type StatusResponse struct {
	Envelope
	Health       string           `json:"health"`
	Providers    []ProviderStatus `json:"providers"`
	WeatherCache CacheStats       `json:"weather_cache"`
	RoutingCache CacheStats       `json:"routing_cache"`
	Worker       map[string]any   `json:"worker,omitempty"`
}

// ProviderStatus represents the circuit state of an external provider.
type ProviderStatus struct {
	Provider            string     `json:"provider"`
	Status              string     `json:"status"`
	CircuitState        string     `json:"circuit_state"`
	ConsecutiveFailures uint32     `json:"consecutive_failures"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
}

// CacheStats describes a provider cache.
type CacheStats struct {
	TotalEntries int `json:"total_entries"`
	FreshEntries int `json:"fresh_entries"`
	StaleEntries int `json:"stale_entries"`
}
