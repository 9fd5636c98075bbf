package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeopt/chargeopt/internal/api/models"
	"github.com/chargeopt/chargeopt/internal/api/response"
	"github.com/chargeopt/chargeopt/internal/assistant"
	"github.com/chargeopt/chargeopt/internal/places"
)

// PlaceSuggester completes partial place names.
type PlaceSuggester interface {
	Autocomplete(ctx context.Context, input string) ([]places.Prediction, error)
}

// ChatResponder answers chat messages.
type ChatResponder interface {
	Reply(ctx context.Context, message string, clientContext map[string]any) (assistant.Reply, error)
}

// AssistHandler handles autocomplete and chat.
type AssistHandler struct {
	places    PlaceSuggester
	assistant ChatResponder
	logger    zerolog.Logger
	debug     bool
	now       func() time.Time
}

// NewAssistHandler creates an AssistHandler.
func NewAssistHandler(p PlaceSuggester, a ChatResponder, logger zerolog.Logger, debug bool) *AssistHandler {
	return &AssistHandler{places: p, assistant: a, logger: logger, debug: debug, now: time.Now}
}

// Autocomplete handles POST /api/autocomplete. Inputs shorter than the
// minimum length answer an empty list.
func (h *AssistHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	var input models.AutocompleteRequest
	if !response.Decode(w, r, &input) {
		return
	}

	preds, err := h.places.Autocomplete(r.Context(), input.Input)
	switch {
	case errors.Is(err, places.ErrNotConfigured):
		response.ServiceUnavailable(w, r, "places provider not configured")
		return
	case err != nil:
		h.logger.Warn().Err(err).Msg("autocomplete provider failed")
		response.BadGateway(w, r, "places provider request failed")
		return
	}

	out := make([]models.Prediction, 0, len(preds))
	for _, p := range preds {
		out = append(out, models.Prediction{
			PlaceID:       p.PlaceID,
			Description:   p.Description,
			MainText:      p.MainText,
			SecondaryText: p.SecondaryText,
			Types:         p.Types,
		})
	}

	response.OK(w, r, models.AutocompleteResponse{
		Envelope:    models.Success(h.now()),
		Predictions: out,
	})
}

// Chat handles POST /api/chat. Provider failures still answer 200 with a
// rule-based reply flagged as fallback.
func (h *AssistHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var input models.ChatRequest
	if !response.Decode(w, r, &input) {
		return
	}

	reply, err := h.assistant.Reply(r.Context(), input.Message, input.Context)
	if err != nil {
		serverError(w, r, h.logger, h.debug, err)
		return
	}

	response.OK(w, r, models.ChatResponse{
		Envelope: models.Success(h.now()),
		Response: reply.Text,
		Fallback: reply.Fallback,
		Note:     reply.Note,
		Provider: reply.Provider,
	})
}
