package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chargeopt/chargeopt/internal/api/middleware"
)

func captureRequestID(inbound string) (ctxID, headerID string) {
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = middleware.GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody)
	if inbound != "" {
		req.Header.Set(middleware.RequestIDHeader, inbound)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get(middleware.RequestIDHeader)
}

func TestRequestID_Inbound(t *testing.T) {
	tests := []struct {
		name    string
		inbound string
		reused  bool
	}{
		{"none", "", false},
		{"proxy id", "lb-7f3a.2291_x", true},
		{"too long", strings.Repeat("a", 65), false},
		{"unsafe characters", "abc\r\nSet-Cookie: x", false},
		{"spaces", "two words", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctxID, headerID := captureRequestID(tt.inbound)

			assert.Equal(t, ctxID, headerID)
			if tt.reused {
				assert.Equal(t, tt.inbound, ctxID)
				return
			}
			assert.True(t, strings.HasPrefix(ctxID, "req_"), ctxID)
			assert.Len(t, ctxID, len("req_")+32)
		})
	}
}

func TestRequestID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 50)
	for i := 0; i < 50; i++ {
		id, _ := captureRequestID("")
		_, dup := seen[id]
		assert.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestGetRequestID_OutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}
