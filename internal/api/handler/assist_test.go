package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeopt/chargeopt/internal/api/handler"
	"github.com/chargeopt/chargeopt/internal/assistant"
	"github.com/chargeopt/chargeopt/internal/places"
)

type fakeSuggester struct {
	preds []places.Prediction
	err   error
}

func (f fakeSuggester) Autocomplete(_ context.Context, _ string) ([]places.Prediction, error) {
	return f.preds, f.err
}

func newAssistHandler(p handler.PlaceSuggester) *handler.AssistHandler {
	chat := assistant.NewService(assistant.ServiceConfig{
		Logger: zerolog.Nop(),
		Clock:  func() time.Time { return time.Date(2026, 6, 17, 14, 30, 0, 0, time.UTC) },
	})
	return handler.NewAssistHandler(p, chat, zerolog.Nop(), false)
}

func TestAutocomplete(t *testing.T) {
	h := newAssistHandler(fakeSuggester{preds: []places.Prediction{{
		PlaceID:       "ChIJE9on3F3HwoAR9AhGJW_fL-I",
		Description:   "Los Angeles, CA, USA",
		MainText:      "Los Angeles",
		SecondaryText: "CA, USA",
		Types:         []string{"locality"},
	}}})

	rec := postJSON(t, h.Autocomplete, "/api/autocomplete", `{"input":"Los Ang"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	preds := decode(t, rec)["predictions"].([]any)
	require.Len(t, preds, 1)
	p := preds[0].(map[string]any)
	assert.Equal(t, "Los Angeles", p["main_text"])
	assert.Equal(t, []any{"locality"}, p["types"])
}

func TestAutocomplete_Errors(t *testing.T) {
	rec := postJSON(t, newAssistHandler(fakeSuggester{err: places.ErrNotConfigured}).Autocomplete, "/api/autocomplete", `{"input":"Pasadena"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = postJSON(t, newAssistHandler(fakeSuggester{err: places.ErrProviderUnavailable}).Autocomplete, "/api/autocomplete", `{"input":"Pasadena"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAutocomplete_EmptyPredictions(t *testing.T) {
	rec := postJSON(t, newAssistHandler(fakeSuggester{}).Autocomplete, "/api/autocomplete", `{"input":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["predictions"])
}

func TestChat_Fallback(t *testing.T) {
	h := newAssistHandler(fakeSuggester{})

	rec := postJSON(t, h.Chat, "/api/chat", `{"message":"When is the best time to charge?","context":{"utility":"ladwp"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, true, body["fallback"])
	assert.Equal(t, assistant.NoteNotConfigured, body["note"])
	assert.NotEmpty(t, body["response"])
}

func TestChat_EmptyMessage(t *testing.T) {
	rec := postJSON(t, newAssistHandler(fakeSuggester{}).Chat, "/api/chat", `{"message":"   "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["fallback"])
	assert.Equal(t, assistant.NoteEmptyMessage, body["note"])
	assert.NotEmpty(t, body["response"])
}

type failingResponder struct{}

func (failingResponder) Reply(context.Context, string, map[string]any) (assistant.Reply, error) {
	return assistant.Reply{}, errors.New("template failure")
}

func TestChat_UnexpectedErrorDebug(t *testing.T) {
	h := handler.NewAssistHandler(fakeSuggester{}, failingResponder{}, zerolog.Nop(), true)

	rec := postJSON(t, h.Chat, "/api/chat", `{"message":"hi"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "template failure", decode(t, rec)["message"])
}
