package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorBuilder assembles a structured error with request context.
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]any
	requestID string
}

// NewError starts building an error of the given type.
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]any),
	}
}

// WithContext attaches one context field.
func (eb *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID attaches the request id.
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause records the underlying error as context.
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final ArenaError.
func (eb *ErrorBuilder) Build() ArenaError {
	ctx := eb.context
	if len(ctx) == 0 {
		ctx = nil
	}
	return ArenaError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   ctx,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// writeError builds and writes a structured error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, eb *ErrorBuilder) {
	arenaErr := eb.WithRequestID(middleware.GetReqID(r.Context())).Build()
	category := ErrorCategoryFor(arenaErr.Type)

	evt := s.log.Error()
	if category == CategoryValidation || status < 500 {
		evt = s.log.Warn()
	}
	evt.Str("type", arenaErr.Type).
		Str("category", string(category)).
		Int("status", status).
		Str("request_id", arenaErr.RequestID).
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Msg(arenaErr.Message)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Arena-Version", ArenaVersion)
	w.Header().Set("X-Error-Type", arenaErr.Type)
	w.Header().Set("X-Error-Category", string(category))
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(arenaErr); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// recoverer turns handler panics into structured internal errors.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				s.log.Error().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("path", r.URL.Path).
					Interface("panic", rvr).
					Msg("panic recovered")
				s.writeError(w, r, http.StatusInternalServerError,
					NewError(ErrTypeInternal, "Internal server error").
						WithContext("panic", fmt.Sprintf("%v", rvr)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
