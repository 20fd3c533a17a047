// Package llm provides chat-completion clients for the providers that can
// back an arena agent: OpenAI, Anthropic, and Ollama. All three share one
// provider-neutral request/response shape plus the HTTP retry plumbing; the
// per-provider files only translate to and from each wire format.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/null-channel/ai-arena/internal/metrics"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a chat transcript.
type Message struct {
	Role    Role
	Content string
}

// ChatRequest is a provider-neutral completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	// Seed pins sampling where the provider supports it (OpenAI, Ollama).
	Seed *int64
	// MaxTokens caps the completion length. Anthropic requires it and
	// substitutes a default when zero.
	MaxTokens int
	// JSONMode asks the provider to emit a single JSON object where the
	// API has a switch for it (OpenAI response_format, Ollama format).
	JSONMode bool
}

// Usage counts tokens consumed by one or more completions.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another call's usage.
func (u *Usage) Add(more Usage) {
	u.PromptTokens += more.PromptTokens
	u.CompletionTokens += more.CompletionTokens
	u.TotalTokens += more.TotalTokens
}

// ChatResponse is the text of a completion plus its token accounting.
type ChatResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Client is one provider connection.
type Client interface {
	// Provider returns the short provider name ("openai", "anthropic",
	// "ollama") used in logs and metrics labels.
	Provider() string

	// Chat requests a completion. The context bounds the whole call,
	// retries included.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// Config holds the shared provider client configuration.
type Config struct {
	// BaseURL overrides the provider's default endpoint (useful for
	// proxies and OpenAI-compatible servers).
	BaseURL string
	// APIKey authenticates the request. Ollama does not use one.
	APIKey string

	MaxRetries     int
	BaseRetryDelay time.Duration
	MaxRetryDelay  time.Duration

	HTTPClient *http.Client
}

// Default retry/backoff parameters. Callers with a tight move budget
// should lower MaxRetries rather than the delays.
const (
	DefaultMaxRetries     = 2
	DefaultBaseRetryDelay = 1 * time.Second
	DefaultMaxRetryDelay  = 10 * time.Second
)

// core is the HTTP plumbing shared by every provider client.
type core struct {
	provider string
	config   Config
	http     *http.Client
}

func newCore(provider string, config Config) core {
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.BaseRetryDelay == 0 {
		config.BaseRetryDelay = DefaultBaseRetryDelay
	}
	if config.MaxRetryDelay == 0 {
		config.MaxRetryDelay = DefaultMaxRetryDelay
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		// No transport timeout here: the caller's context carries the
		// real deadline, and LLM completions are legitimately slow.
		httpClient = &http.Client{}
	}

	return core{
		provider: provider,
		config:   config,
		http:     httpClient,
	}
}

// postJSON performs a single POST attempt and decodes the response into out.
func (c *core) postJSON(ctx context.Context, url string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(c.provider, "transport_error", time.Since(start).Seconds())
		return &TransportError{Provider: c.provider, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	metrics.RecordProviderRequest(c.provider, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.provider, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		_, msg := parseErrorBody(respBody)
		return &AuthError{Provider: c.provider, StatusCode: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, msg := parseErrorBody(respBody)
		return &HTTPError{Provider: c.provider, StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: parse response: %w", c.provider, err)
	}
	return nil
}

// postWithRetry wraps postJSON with capped exponential backoff on
// retryable errors. Auth and semantic errors fail immediately.
func (c *core) postWithRetry(ctx context.Context, url string, headers map[string]string, payload, out any) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay(attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.postJSON(ctx, url, headers, payload, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !Retryable(err) {
			return err
		}
	}

	return fmt.Errorf("%s: max retries exceeded: %w", c.provider, lastErr)
}

// retryDelay calculates the backoff delay for a given attempt number.
func (c *core) retryDelay(attempt int) time.Duration {
	delay := c.config.BaseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > c.config.MaxRetryDelay {
		delay = c.config.MaxRetryDelay
	}
	return delay
}

// parseErrorBody digs a human-readable message out of an error response.
// Providers disagree on the envelope: OpenAI and Anthropic nest an object
// under "error", Ollama uses a bare string.
func parseErrorBody(body []byte) (errType, message string) {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return "", snippet(body)
	}

	var msg string
	if json.Unmarshal(envelope.Error, &msg) == nil && msg != "" {
		return "", msg
	}

	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(envelope.Error, &obj) == nil && obj.Message != "" {
		return obj.Type, obj.Message
	}

	return "", snippet(body)
}

// snippet trims an error body down to something loggable.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
