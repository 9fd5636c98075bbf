package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeopt/chargeopt/internal/assistant"
	"github.com/chargeopt/chargeopt/internal/assistant/anthropic"
)

func newClient(url string) *anthropic.Client {
	return anthropic.NewClient(anthropic.ClientConfig{
		APIKey:     "sk-test",
		BaseURL:    url,
		HTTPClient: http.DefaultClient,
		Logger:     zerolog.Nop(),
	})
}

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-haiku-20240307", body["model"])
		assert.Equal(t, float64(500), body["max_tokens"])
		assert.Equal(t, "be brief", body["system"])
		assert.Equal(t, []any{map[string]any{"role": "user", "content": "hi"}}, body["messages"])

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Charge "},{"type":"text","text":"tonight."}],"stop_reason":"end_turn"}`))
	}))
	defer server.Close()

	text, err := newClient(server.URL).Complete(context.Background(), assistant.Prompt{
		System:    "be brief",
		Message:   "hi",
		MaxTokens: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "Charge tonight.", text)
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL).Complete(context.Background(), assistant.Prompt{Message: "hi", MaxTokens: 10})
	assert.ErrorIs(t, err, assistant.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	_, err := newClient(server.URL).Complete(context.Background(), assistant.Prompt{Message: "hi", MaxTokens: 10})
	assert.ErrorIs(t, err, assistant.ErrProviderUnavailable)
}
