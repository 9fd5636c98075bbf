// Package places provides place-name autocomplete biased to a service area.
package places

import (
	"context"
	"errors"
)

// Errors returned by the places service.
var (
	ErrNotConfigured       = errors.New("places provider not configured")
	ErrProviderUnavailable = errors.New("places provider unavailable")
)

// Provider suggests places for partial input.
type Provider interface {
	Autocomplete(ctx context.Context, q Query) ([]Prediction, error)
	Name() string
}

// Query is an autocomplete request with a location bias.
type Query struct {
	Input        string
	Lat          float64
	Lon          float64
	RadiusMeters int
	Country      string
}

// Prediction is one suggested place.
type Prediction struct {
	PlaceID       string
	Description   string
	MainText      string
	SecondaryText string
	Types         []string
}
