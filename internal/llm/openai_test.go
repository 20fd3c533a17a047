package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpenAIChat(t *testing.T) {
	var got openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing or wrong Authorization header")
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing Content-Type header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4o-2024-08-06",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"row": 1, "col": 2}`}},
			},
			"usage": map[string]any{"prompt_tokens": 215, "completion_tokens": 12, "total_tokens": 227},
		})
	}))
	defer server.Close()

	c := NewOpenAI(Config{BaseURL: server.URL, APIKey: "sk-test"})
	seed := int64(42)
	resp, err := c.Chat(context.Background(), &ChatRequest{
		Model: "gpt-4o",
		Messages: []Message{
			{Role: RoleSystem, Content: "respond with JSON"},
			{Role: RoleUser, Content: "your move"},
		},
		Temperature: 0.7,
		Seed:        &seed,
		JSONMode:    true,
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if got.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %s", got.Model)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
	if got.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %v", got.Temperature)
	}
	if got.Seed == nil || *got.Seed != 42 {
		t.Errorf("expected seed 42, got %v", got.Seed)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("expected response_format json_object, got %+v", got.ResponseFormat)
	}

	if resp.Content != `{"row": 1, "col": 2}` {
		t.Errorf("unexpected content: %s", resp.Content)
	}
	if resp.Model != "gpt-4o-2024-08-06" {
		t.Errorf("unexpected model: %s", resp.Model)
	}
	if resp.Usage.PromptTokens != 215 || resp.Usage.CompletionTokens != 12 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestOpenAIRetryOn500(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(500)
			w.Write([]byte(`{"error": {"message": "server overloaded"}}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		})
	}))
	defer server.Close()

	c := NewOpenAI(Config{
		BaseURL:        server.URL,
		APIKey:         "sk-test",
		MaxRetries:     3,
		BaseRetryDelay: 5 * time.Millisecond,
		MaxRetryDelay:  20 * time.Millisecond,
	})

	resp, err := c.Chat(context.Background(), &ChatRequest{Model: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if resp.Content != "ok" {
		t.Errorf("unexpected content: %s", resp.Content)
	}
}

func TestOpenAIRetriesExhausted(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(429)
		w.Write([]byte(`{"error": {"message": "rate limit reached"}}`))
	}))
	defer server.Close()

	c := NewOpenAI(Config{
		BaseURL:        server.URL,
		APIKey:         "sk-test",
		MaxRetries:     2,
		BaseRetryDelay: time.Millisecond,
		MaxRetryDelay:  5 * time.Millisecond,
	})

	_, err := c.Chat(context.Background(), &ChatRequest{Model: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if !strings.Contains(err.Error(), "max retries exceeded") {
		t.Errorf("expected retry exhaustion, got: %v", err)
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected wrapped *HTTPError, got %T: %v", err, err)
	}
	if !httpErr.IsRateLimited() {
		t.Errorf("expected rate-limited error, got status %d", httpErr.StatusCode)
	}
}

func TestOpenAITransportErrorRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewOpenAI(Config{
		BaseURL:        url,
		APIKey:         "sk-test",
		MaxRetries:     1,
		BaseRetryDelay: time.Millisecond,
	})

	_, err := c.Chat(context.Background(), &ChatRequest{Model: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "max retries exceeded") {
		t.Errorf("transport errors should exhaust the retry budget, got: %v", err)
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected wrapped *TransportError, got %T: %v", err, err)
	}
}

func TestOpenAIAuthError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(401)
		w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	c := NewOpenAI(Config{BaseURL: server.URL, APIKey: "sk-bad"})

	_, err := c.Chat(context.Background(), &ChatRequest{Model: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected auth error, got nil")
	}

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %T: %v", err, err)
	}
	if authErr.StatusCode != 401 {
		t.Errorf("expected status 401, got %d", authErr.StatusCode)
	}
	if !strings.Contains(authErr.Message, "Incorrect API key") {
		t.Errorf("expected provider message, got %q", authErr.Message)
	}
	if attempts != 1 {
		t.Errorf("auth errors must not be retried, got %d attempts", attempts)
	}
}

func TestOpenAIBadRequestNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(400)
		w.Write([]byte(`{"error": {"message": "unknown model"}}`))
	}))
	defer server.Close()

	c := NewOpenAI(Config{BaseURL: server.URL, APIKey: "sk-test"})

	_, err := c.Chat(context.Background(), &ChatRequest{Model: "gpt-9", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T: %v", err, err)
	}
	if httpErr.IsRetryable() {
		t.Error("400 must not be retryable")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	c := NewOpenAI(Config{BaseURL: server.URL, APIKey: "sk-test"})

	_, err := c.Chat(context.Background(), &ChatRequest{Model: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.Type != "empty_response" {
		t.Errorf("expected empty_response, got %s", apiErr.Type)
	}
}

func TestOpenAIContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	c := NewOpenAI(Config{
		BaseURL:        server.URL,
		APIKey:         "sk-test",
		MaxRetries:     5,
		BaseRetryDelay: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Chat(ctx, &ChatRequest{Model: "gpt-4o", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cancellation should cut the backoff short, took %v", elapsed)
	}
}
