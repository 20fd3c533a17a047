package llm

import "context"

// DefaultOllamaBaseURL points at a local Ollama daemon.
const DefaultOllamaBaseURL = "http://localhost:11434"

// OllamaClient talks to a local (or remote) Ollama server's chat API.
// No API key is involved.
type OllamaClient struct {
	core core
}

// NewOllama creates a client for the Ollama chat API.
func NewOllama(config Config) *OllamaClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultOllamaBaseURL
	}
	return &OllamaClient{core: newCore("ollama", config)}
}

func (c *OllamaClient) Provider() string {
	return "ollama"
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	Seed        *int64  `json:"seed,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

// Chat sends the transcript to /api/chat with streaming disabled.
func (c *OllamaClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	payload := ollamaRequest{
		Model:  req.Model,
		Stream: false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			Seed:        req.Seed,
			NumPredict:  req.MaxTokens,
		},
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.JSONMode {
		payload.Format = "json"
	}

	var resp ollamaResponse
	url := c.core.config.BaseURL + "/api/chat"
	if err := c.core.postWithRetry(ctx, url, nil, payload, &resp); err != nil {
		return nil, err
	}

	if resp.Message.Content == "" {
		return nil, &APIError{Provider: "ollama", Type: "empty_response", Message: "empty completion"}
	}

	return &ChatResponse{
		Content: resp.Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}
