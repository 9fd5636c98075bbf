// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/chargeopt/chargeopt/internal/api/middleware"
	"github.com/chargeopt/chargeopt/internal/api/models"
)

// MaxBodyBytes caps request bodies read by Decode.
const MaxBodyBytes = 64 << 10

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 JSON response.
func OK(w http.ResponseWriter, r *http.Request, data any) {
	JSON(w, r, http.StatusOK, data)
}

// Decode reads a JSON request body into dst. On failure it writes a 400
// problem and returns false.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	err := json.NewDecoder(body).Decode(dst)
	if err == nil {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		BadRequest(w, r, "request body is required", nil)
	case errors.As(err, &maxErr):
		BadRequest(w, r, "request body too large", nil)
	default:
		BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
	}
	return false
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, message string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), message, errors))
}

// FieldInvalid writes a 400 naming a single field.
func FieldInvalid(w http.ResponseWriter, r *http.Request, field, message string) {
	BadRequest(w, r, message, []models.FieldError{{Field: field, Message: message}})
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), message))
}

// MethodNotAllowed writes a 405 error response.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, r, models.NewMethodNotAllowed(middleware.GetRequestID(r.Context()), r.Method+" is not supported on this resource"))
}

// TooManyRequests writes a 429 with a Retry-After hint.
func TooManyRequests(w http.ResponseWriter, r *http.Request, message string, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	Error(w, r, models.NewTooManyRequests(middleware.GetRequestID(r.Context()), message))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), message))
}

// BadGateway writes a 502 for a failed upstream provider.
func BadGateway(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, models.NewBadGateway(middleware.GetRequestID(r.Context()), message))
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), message))
}

// NoRoute writes a 404 for a routing query with no result.
func NoRoute(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, models.NewNoRoute(middleware.GetRequestID(r.Context()), message))
}
