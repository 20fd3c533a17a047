package llm

import "context"

// DefaultOpenAIBaseURL is the public OpenAI API endpoint.
const DefaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIClient talks to the OpenAI chat completions API. Any
// OpenAI-compatible server works by overriding Config.BaseURL.
type OpenAIClient struct {
	core core
}

// NewOpenAI creates a client for the chat completions API.
func NewOpenAI(config Config) *OpenAIClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultOpenAIBaseURL
	}
	return &OpenAIClient{core: newCore("openai", config)}
}

func (c *OpenAIClient) Provider() string {
	return "openai"
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponseFormat struct {
	Type string `json:"type"`
}

type openaiRequest struct {
	Model          string                `json:"model"`
	Messages       []openaiMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	Seed           *int64                `json:"seed,omitempty"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
}

type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

// Chat sends the transcript to /v1/chat/completions and returns the first
// choice.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	payload := openaiRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		Seed:        req.Seed,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, openaiMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.JSONMode {
		payload.ResponseFormat = &openaiResponseFormat{Type: "json_object"}
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.core.config.APIKey,
	}

	var resp openaiResponse
	url := c.core.config.BaseURL + "/v1/chat/completions"
	if err := c.core.postWithRetry(ctx, url, headers, payload, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, &APIError{Provider: "openai", Type: "empty_response", Message: "no choices in completion"}
	}

	return &ChatResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage:   resp.Usage,
	}, nil
}
