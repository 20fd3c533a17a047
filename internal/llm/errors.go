package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a semantic error delivered in a well-formed provider
// response (empty completions, content filter refusals, and the like).
type APIError struct {
	Provider string
	Type     string
	Message  string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Type, e.Message)
}

// AuthError indicates the provider rejected our credentials (key missing,
// expired, or revoked).
type AuthError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}

// TransportError is a network-level failure: the request never produced an
// HTTP response.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response that is not an auth failure.
type HTTPError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if the provider throttled the request.
func (e *HTTPError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsRetryable returns true if the request is worth another attempt.
func (e *HTTPError) IsRetryable() bool {
	return e.IsRateLimited() || e.StatusCode >= 500
}

// Retryable reports whether err should be retried after a backoff. Transport
// failures and retryable HTTP statuses qualify; auth and semantic errors do
// not.
func Retryable(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.IsRetryable()
}
