package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/tariff"
	"github.com/chargeopt/chargeopt/internal/telemetry"
)

// DefaultMaxTokens caps LLM replies.
const DefaultMaxTokens = 500

// Fallback notes.
const (
	NoteNotConfigured = "Fallback response - assistant provider not configured"
	NoteProviderError = "Fallback response - assistant provider error"
	NoteEmptyMessage  = "Fallback response - no message provided"
)

// StationCounter reports how many stations are loaded.
type StationCounter interface {
	Count() int
}

// ServiceConfig holds configuration for the assistant.
type ServiceConfig struct {
	// Provider answers prompts. Nil means fallback only.
	Provider Provider

	Schedule  *tariff.Schedule
	Stations  StationCounter
	Logger    zerolog.Logger
	Metrics   *telemetry.ProviderMetrics
	MaxTokens int

	// Location is used for local times in fallback answers. Default: UTC.
	Location *time.Location

	// Clock returns the current time. Default: time.Now.
	Clock func() time.Time
}

// Service answers chat messages.
type Service struct {
	provider  Provider
	schedule  *tariff.Schedule
	stations  StationCounter
	logger    zerolog.Logger
	metrics   *telemetry.ProviderMetrics
	maxTokens int
	loc       *time.Location
	now       func() time.Time
}

// NewService creates an assistant service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider:  cfg.Provider,
		schedule:  cfg.Schedule,
		stations:  cfg.Stations,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		maxTokens: cfg.MaxTokens,
		loc:       cfg.Location,
		now:       cfg.Clock,
	}
	if s.schedule == nil {
		s.schedule = tariff.NewSchedule(tariff.DefaultRates())
	}
	if s.maxTokens <= 0 {
		s.maxTokens = DefaultMaxTokens
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Configured reports whether an LLM provider is set.
func (s *Service) Configured() bool {
	return s.provider != nil
}

// Reply answers message. Provider failures never surface as errors; they
// produce a rule-based reply with a note. An empty message gets the general
// help text without calling the provider.
func (s *Service) Reply(ctx context.Context, message string, clientContext map[string]any) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return s.fallback(message, NoteEmptyMessage, clientContext), nil
	}

	if s.provider == nil {
		return s.fallback(message, NoteNotConfigured, clientContext), nil
	}

	start := time.Now()
	text, err := s.provider.Complete(ctx, Prompt{
		System:    s.systemPrompt(clientContext),
		Message:   message,
		MaxTokens: s.maxTokens,
	})
	s.metrics.RecordCall(s.provider.Name(), "chat", time.Since(start), err)
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("%w: empty completion", ErrProviderUnavailable)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", s.provider.Name()).Msg("assistant provider failed, using fallback")
		s.metrics.RecordFallback(s.provider.Name(), "chat")
		return s.fallback(message, NoteProviderError, clientContext), nil
	}

	return Reply{Text: text, Provider: s.provider.Name()}, nil
}

func (s *Service) fallback(message, note string, clientContext map[string]any) Reply {
	return Reply{
		Text:     s.fallbackText(DetectIntent(message), s.now().In(s.loc), parseConditions(clientContext)),
		Fallback: true,
		Note:     note,
		Provider: "fallback",
	}
}

func (s *Service) stationCount() int {
	if s.stations == nil {
		return 0
	}
	return s.stations.Count()
}

func (s *Service) systemPrompt(clientContext map[string]any) string {
	var b strings.Builder
	b.WriteString("You are an assistant for an EV charging optimization service in Los Angeles.\n\n")
	b.WriteString("Current conditions:\n")
	fmt.Fprintf(&b, "- %d EV charging stations available\n", s.stationCount())
	b.WriteString("- Real-time solar and weather integration\n")
	b.WriteString("- LA Department of Water and Power and Southern California Edison time-of-use rate optimization\n")

	if len(clientContext) > 0 {
		if raw, err := json.MarshalIndent(clientContext, "", "  "); err == nil {
			fmt.Fprintf(&b, "\nContext: %s\n", raw)
		}
	}

	b.WriteString("\nHelp users with charging times, solar integration, cost savings, station recommendations and route planning with charging stops. ")
	b.WriteString("Be accurate and concise.")
	return b.String()
}
