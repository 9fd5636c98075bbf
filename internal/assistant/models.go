// Package assistant answers EV charging questions with an LLM, falling back
// to rule-based advice from the tariff schedule.
package assistant

import (
	"context"
	"errors"
)

// ErrProviderUnavailable marks a provider call that produced no usable answer.
var ErrProviderUnavailable = errors.New("assistant provider unavailable")

// Provider completes a single-turn prompt.
type Provider interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Name() string
}

// Prompt is a single user turn with its system instructions.
type Prompt struct {
	System    string
	Message   string
	MaxTokens int
}

// Reply is the assistant's answer. Fallback is set when the text came from
// the built-in rules, with Note saying why.
type Reply struct {
	Text     string
	Fallback bool
	Note     string
	Provider string
}

// Intent is the topic detected in a message for fallback answers.
type Intent string

const (
	IntentBestTime Intent = "best_time"
	IntentRates    Intent = "rates"
	IntentSolar    Intent = "solar"
	IntentStations Intent = "stations"
	IntentGeneral  Intent = "general"
)
