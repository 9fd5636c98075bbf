package middleware

import (
	"net/http"
	"strings"

	"github.com/chargeopt/chargeopt/internal/api/models"
)

// ContentTypeJSON sets the Content-Type header to application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only set if not already set (allows handlers to override)
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// RequireJSON rejects POST bodies declared as anything but JSON with a 415
// problem. A missing Content-Type is accepted.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			contentType := r.Header.Get("Content-Type")
			if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
				models.NewProblem(
					"https://chargeopt.dev/problems/unsupported-media-type",
					"Unsupported Media Type",
					"UNSUPPORTED_MEDIA_TYPE",
					http.StatusUnsupportedMediaType,
					GetRequestID(r.Context()),
				).WithMessage("Content-Type must be application/json").WithInstance(r.URL.Path).Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
