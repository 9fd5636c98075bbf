package places

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/telemetry"
)

// MinInputLength is the shortest input sent to the provider.
const MinInputLength = 2

// Bias defaults: downtown Los Angeles, 50 km, United States.
const (
	DefaultLat          = 34.0522
	DefaultLon          = -118.2437
	DefaultRadiusMeters = 50000
	DefaultCountry      = "us"
)

// ServiceConfig holds configuration for the places service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger
	Metrics  *telemetry.ProviderMetrics

	// Bias center and radius. Zero values use the defaults above.
	Lat          float64
	Lon          float64
	RadiusMeters int
	Country      string
}

// Service answers autocomplete queries.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	metrics  *telemetry.ProviderMetrics
	bias     Query
}

// NewService creates a places service.
func NewService(cfg ServiceConfig) *Service {
	bias := Query{
		Lat:          cfg.Lat,
		Lon:          cfg.Lon,
		RadiusMeters: cfg.RadiusMeters,
		Country:      cfg.Country,
	}
	if bias.Lat == 0 && bias.Lon == 0 {
		bias.Lat, bias.Lon = DefaultLat, DefaultLon
	}
	if bias.RadiusMeters <= 0 {
		bias.RadiusMeters = DefaultRadiusMeters
	}
	if bias.Country == "" {
		bias.Country = DefaultCountry
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		bias:     bias,
	}
}

// Configured reports whether a provider is set.
func (s *Service) Configured() bool {
	return s.provider != nil
}

// Autocomplete returns suggestions for input. Input shorter than
// MinInputLength characters yields an empty list without a provider call,
// even when no provider is configured.
func (s *Service) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	input = strings.TrimSpace(input)
	if utf8.RuneCountInString(input) < MinInputLength {
		return []Prediction{}, nil
	}
	if s.provider == nil {
		return nil, ErrNotConfigured
	}

	q := s.bias
	q.Input = input

	start := time.Now()
	preds, err := s.provider.Autocomplete(ctx, q)
	s.metrics.RecordCall(s.provider.Name(), "autocomplete", time.Since(start), err)
	if err != nil {
		s.logger.Error().Err(err).Str("input", input).Msg("autocomplete failed")
		return nil, err
	}
	if preds == nil {
		preds = []Prediction{}
	}
	return preds, nil
}
