package problems

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

// ContentType is the media type of RFC 7807 responses.
const ContentType = "application/problem+json"

// Problem represents RFC7807 Problem Details for HTTP APIs
type Problem struct {
	Type     string       `json:"type,omitempty"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// New creates a new Problem with the given status and detail
func New(status int, detail string) *Problem {
	return &Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

func BadRequest(detail string) *Problem         { return New(http.StatusBadRequest, detail) }
func Unauthorized(detail string) *Problem       { return New(http.StatusUnauthorized, detail) }
func Forbidden(detail string) *Problem          { return New(http.StatusForbidden, detail) }
func NotFound(detail string) *Problem           { return New(http.StatusNotFound, detail) }
func Conflict(detail string) *Problem           { return New(http.StatusConflict, detail) }
func TooManyRequests(detail string) *Problem    { return New(http.StatusTooManyRequests, detail) }
func Internal(detail string) *Problem           { return New(http.StatusInternalServerError, detail) }
func ServiceUnavailable(detail string) *Problem { return New(http.StatusServiceUnavailable, detail) }
func GatewayTimeout(detail string) *Problem     { return New(http.StatusGatewayTimeout, detail) }

// Write renders p for r. Instance and TraceID are filled in when empty.
func Write(w http.ResponseWriter, r *http.Request, p *Problem) {
	if p.Instance == "" {
		p.Instance = r.URL.Path
	}
	if p.TraceID == "" {
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			p.TraceID = sc.TraceID().String()
		}
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
