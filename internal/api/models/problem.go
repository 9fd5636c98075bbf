package models

import (
	"encoding/json"
	"net/http"
)

// Problem is the error body for every failed request, served as
// application/problem+json. Status is always "error" so clients can branch
// on it the same way as on success bodies.
type Problem struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`

	// Code is a stable machine-readable identifier.
	Code string `json:"code"`

	// Message explains this occurrence.
	Message string `json:"message,omitempty"`

	Instance string `json:"instance,omitempty"`
	TraceID  string `json:"traceId"`

	// Errors contains structured field validation errors.
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem codes.
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeTooManyRequests  = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeUpstream         = "UPSTREAM_ERROR"
	CodeNoRoute          = "NO_ROUTE"
)

const problemBase = "https://chargeopt.dev/problems/"

// ProblemType constants for standard error types.
const (
	ProblemTypeValidation       = problemBase + "validation-error"
	ProblemTypeNotFound         = problemBase + "not-found"
	ProblemTypeMethodNotAllowed = problemBase + "method-not-allowed"
	ProblemTypeTooManyRequests  = problemBase + "too-many-requests"
	ProblemTypeInternal         = problemBase + "internal-error"
	ProblemTypeUnavailable      = problemBase + "service-unavailable"
	ProblemTypeUpstream         = problemBase + "upstream-error"
	ProblemTypeNoRoute          = problemBase + "no-route"
)

// NewProblem creates a new Problem with the given parameters.
func NewProblem(problemType, title, code string, statusCode int, traceID string) *Problem {
	return &Problem{
		Type:       problemType,
		Title:      title,
		Status:     StatusError,
		StatusCode: statusCode,
		Code:       code,
		TraceID:    traceID,
	}
}

// WithMessage sets the occurrence message.
func (p *Problem) WithMessage(message string) *Problem {
	p.Message = message
	return p
}

// WithInstance adds the request instance URI to the Problem.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors adds field errors to the Problem.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.StatusCode)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, message string, errors []FieldError) *Problem {
	p := NewProblem(ProblemTypeValidation, "Validation error", CodeValidation, http.StatusBadRequest, traceID)
	p.Message = message
	p.Errors = errors
	return p
}

// NewNotFound creates a 404 Not Found problem.
func NewNotFound(traceID, message string) *Problem {
	return NewProblem(ProblemTypeNotFound, "Not found", CodeNotFound, http.StatusNotFound, traceID).WithMessage(message)
}

// NewMethodNotAllowed creates a 405 problem.
func NewMethodNotAllowed(traceID, message string) *Problem {
	return NewProblem(ProblemTypeMethodNotAllowed, "Method not allowed", CodeMethodNotAllowed, http.StatusMethodNotAllowed, traceID).WithMessage(message)
}

// NewNoRoute creates a 404 problem for a directions query with no result.
func NewNoRoute(traceID, message string) *Problem {
	return NewProblem(ProblemTypeNoRoute, "No route found", CodeNoRoute, http.StatusNotFound, traceID).WithMessage(message)
}

// NewTooManyRequests creates a 429 Too Many Requests problem.
func NewTooManyRequests(traceID, message string) *Problem {
	return NewProblem(ProblemTypeTooManyRequests, "Too many requests", CodeTooManyRequests, http.StatusTooManyRequests, traceID).WithMessage(message)
}

// NewInternalError creates a 500 Internal Server Error problem.
func NewInternalError(traceID, message string) *Problem {
	return NewProblem(ProblemTypeInternal, "Internal server error", CodeInternal, http.StatusInternalServerError, traceID).WithMessage(message)
}

// NewBadGateway creates a 502 problem for an upstream provider failure.
func NewBadGateway(traceID, message string) *Problem {
	return NewProblem(ProblemTypeUpstream, "Upstream provider error", CodeUpstream, http.StatusBadGateway, traceID).WithMessage(message)
}

// NewServiceUnavailable creates a 503 Service Unavailable problem.
func NewServiceUnavailable(traceID, message string) *Problem {
	return NewProblem(ProblemTypeUnavailable, "Service unavailable", CodeUnavailable, http.StatusServiceUnavailable, traceID).WithMessage(message)
}
