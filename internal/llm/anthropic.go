package llm

import "context"

// DefaultAnthropicBaseURL is the public Anthropic API endpoint.
const DefaultAnthropicBaseURL = "https://api.anthropic.com"

const anthropicVersion = "2023-06-01"

// The messages API rejects requests without max_tokens; this cap is ample
// for a single JSON move.
const defaultAnthropicMaxTokens = 1024

// AnthropicClient talks to the Anthropic messages API.
type AnthropicClient struct {
	core core
}

// NewAnthropic creates a client for the messages API.
func NewAnthropic(config Config) *AnthropicClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultAnthropicBaseURL
	}
	return &AnthropicClient{core: newCore("anthropic", config)}
}

func (c *AnthropicClient) Provider() string {
	return "anthropic"
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Chat sends the transcript to /v1/messages and returns the first text
// block. System messages are lifted into the API's top-level system field;
// there is no JSON response format switch, so JSONMode rides on the system
// instruction alone.
func (c *AnthropicClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	payload := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if payload.MaxTokens == 0 {
		payload.MaxTokens = defaultAnthropicMaxTokens
	}
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			if payload.System != "" {
				payload.System += "\n\n"
			}
			payload.System += m.Content
			continue
		}
		payload.Messages = append(payload.Messages, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	headers := map[string]string{
		"x-api-key":         c.core.config.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	url := c.core.config.BaseURL + "/v1/messages"
	if err := c.core.postWithRetry(ctx, url, headers, payload, &resp); err != nil {
		return nil, err
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return nil, &APIError{Provider: "anthropic", Type: "empty_response", Message: "no text content in response"}
	}

	return &ChatResponse{
		Content: text,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
