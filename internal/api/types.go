package api

import (
	"github.com/null-channel/ai-arena/internal/engine"
	"github.com/null-channel/ai-arena/internal/games"
	"github.com/null-channel/ai-arena/internal/store"
)

// ArenaError is the structured envelope every failed request returns.
type ArenaError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface.
func (e ArenaError) Error() string {
	return e.Message
}

// Error types with proper categorization.
const (
	// Input validation errors
	ErrTypeValidation  = "validation_error"
	ErrTypeInvalidSpec = "invalid_spec"

	// Match-related errors
	ErrTypeGameNotFound  = "game_not_found"
	ErrTypeMatchNotFound = "match_not_found"
	ErrTypeMatchFailed   = "match_failed"

	// System errors
	ErrTypeTimeout       = "timeout"
	ErrTypeInternal      = "internal_error"
	ErrTypeStoreDisabled = "store_disabled"
)

// ErrorCategory buckets error types for logging and response headers.
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryMatch      ErrorCategory = "match"
	CategoryTimeout    ErrorCategory = "timeout"
	CategorySystem     ErrorCategory = "system"
)

// ErrorCategoryFor returns the category for an error type.
func ErrorCategoryFor(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeInvalidSpec:
		return CategoryValidation
	case ErrTypeGameNotFound, ErrTypeMatchNotFound, ErrTypeMatchFailed:
		return CategoryMatch
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// AgentSpec configures one seat of an API-run match.
type AgentSpec struct {
	Kind          string   `json:"kind"`
	Name          string   `json:"name,omitempty"`
	Model         string   `json:"model,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Seed          int64    `json:"seed,omitempty"`
	SecretProfile string   `json:"secret_profile,omitempty"`
	ScriptPath    string   `json:"script_path,omitempty"`
}

// MatchRequest asks the server to run one match synchronously.
type MatchRequest struct {
	Game           string            `json:"game"`
	Params         map[string]any    `json:"params,omitempty"`
	AgentOne       AgentSpec         `json:"agent_one"`
	AgentTwo       AgentSpec         `json:"agent_two"`
	MaxAttempts    int               `json:"max_attempts,omitempty"`
	MoveTimeoutMS  int               `json:"move_timeout_ms,omitempty"`
	MaxTurns       int               `json:"max_turns,omitempty"`
	StartingPlayer *games.PlayerSlot `json:"starting_player,omitempty"`
}

// MatchResponse carries the finished match and its estimated provider cost.
type MatchResponse struct {
	Match        *engine.MatchResult `json:"match"`
	Cost         string              `json:"cost"`
	ArenaVersion string              `json:"arena_version"`
}

// MatchListResponse is one page of stored matches.
type MatchListResponse struct {
	Matches      []store.MatchRecord `json:"matches"`
	Total        int64               `json:"total"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
	ArenaVersion string              `json:"arena_version"`
}

// BatchListResponse lists recent stored batches.
type BatchListResponse struct {
	Batches      []store.BatchRecord `json:"batches"`
	ArenaVersion string              `json:"arena_version"`
}

// GamesResponse lists the registered games.
type GamesResponse struct {
	Games        []games.GameSpec `json:"games"`
	ArenaVersion string           `json:"arena_version"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status       string `json:"status"`
	ArenaVersion string `json:"arena_version"`
	Timestamp    string `json:"timestamp"`
}
