package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/null-channel/ai-arena/internal/engine"
	"github.com/null-channel/ai-arena/internal/llm"
)

// systemPrompt is shared by every provider. The JSON-only contract is what
// makes tolerant extraction below mostly unnecessary; models still wander.
const systemPrompt = "You are a game-playing AI. Respond ONLY with strict JSON matching the expected schema. Do not include any text outside JSON."

// LLMAgent plays by asking a chat-completion provider for each move. The
// whole move request is serialized into the user message; the completion is
// handed back to the engine for adjudication.
type LLMAgent struct {
	name        string
	client      llm.Client
	model       string
	temperature float64
	seed        *int64
	usage       llm.Usage
}

// NewLLMAgent wraps a provider client in the agent contract.
func NewLLMAgent(name string, client llm.Client, cfg Config) *LLMAgent {
	var seed *int64
	if cfg.Seed != 0 {
		s := cfg.Seed
		seed = &s
	}
	return &LLMAgent{
		name:        name,
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		seed:        seed,
	}
}

func (a *LLMAgent) Name() string {
	return a.name
}

// TotalUsage returns the tokens consumed across all turns so far.
func (a *LLMAgent) TotalUsage() llm.Usage {
	return a.usage
}

func (a *LLMAgent) PerformTurn(ctx context.Context, req *engine.MoveRequest) (*engine.MoveResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal move request: %w", err)
	}

	resp, err := a.client.Chat(ctx, &llm.ChatRequest{
		Model: a.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: string(payload)},
		},
		Temperature: a.temperature,
		Seed:        a.seed,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	a.usage.Add(resp.Usage)

	return &engine.MoveResponse{
		Raw: json.RawMessage(ExtractJSONObject(resp.Content)),
		Usage: &engine.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// ExtractJSONObject pulls the first balanced JSON object out of completion
// text. Models wrap moves in markdown fences or prose often enough that
// strict parsing alone would forfeit winnable games. Text without any
// object comes back unchanged and fails move validation downstream.
func ExtractJSONObject(s string) string {
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}

	return s
}
