package engine

import (
	"context"
	"encoding/json"

	"github.com/null-channel/ai-arena/internal/games"
)

// Agent is a decision source for one seat. PerformTurn may be slow and may
// hang: the engine always invokes it under a deadline context and abandons
// the call when the deadline passes, so implementations should honor ctx and
// release their resources promptly.
type Agent interface {
	Name() string
	PerformTurn(ctx context.Context, req *MoveRequest) (*MoveResponse, error)
}

// PlayedMove is one prior accepted move, as agents see it.
type PlayedMove struct {
	TurnIndex int              `json:"turn_index"`
	Player    games.PlayerSlot `json:"player"`
	Move      string           `json:"move"`
}

// MoveRequest is everything an agent gets for one decision. MatchID is
// serialized as game_id, the name agents have always received on the wire.
type MoveRequest struct {
	MatchID    string           `json:"game_id"`
	TurnIndex  int              `json:"turn_index"`
	Player     games.PlayerSlot `json:"player"`
	State      json.RawMessage  `json:"state"`
	LegalMoves []string         `json:"legal_moves"`
	History    []PlayedMove     `json:"move_history,omitempty"`
	MoveSchema json.RawMessage  `json:"expected_move_schema"`
}

// TokenUsage counts tokens for one provider call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// MoveResponse carries the agent's candidate move payload. Raw is decoded
// and adjudicated by the engine, never by the agent.
type MoveResponse struct {
	Raw         json.RawMessage `json:"chosen_move"`
	Diagnostics string          `json:"diagnostics,omitempty"`
	Usage       *TokenUsage     `json:"usage,omitempty"`
}
