package engine

import (
	"encoding/json"
	"time"

	"github.com/null-channel/ai-arena/internal/games"
)

// AttemptOutcome classifies one agent response.
type AttemptOutcome string

const (
	AttemptValid        AttemptOutcome = "valid"
	AttemptInvalid      AttemptOutcome = "invalid"
	AttemptMalformed    AttemptOutcome = "malformed"
	AttemptTimeout      AttemptOutcome = "timeout"
	AttemptBackendError AttemptOutcome = "backend_error"
)

// Attempt is one agent response for a single turn slot.
type Attempt struct {
	Index       int             `json:"index"`
	Outcome     AttemptOutcome  `json:"outcome"`
	Response    json.RawMessage `json:"response,omitempty"`
	Error       string          `json:"error,omitempty"`
	LatencyMS   int64           `json:"latency_ms"`
	Diagnostics string          `json:"diagnostics,omitempty"`
	Usage       *TokenUsage     `json:"usage,omitempty"`
}

// TurnRecord is the append-only log entry for one resolved turn: every
// attempt made for the slot, plus either the accepted move or the forfeit
// flag.
type TurnRecord struct {
	TurnIndex    int              `json:"turn_index"`
	Player       games.PlayerSlot `json:"player"`
	Agent        string           `json:"agent"`
	Attempts     []Attempt        `json:"attempts"`
	AcceptedMove string           `json:"accepted_move,omitempty"`
	MoveRaw      json.RawMessage  `json:"move_raw,omitempty"`
	Forfeited    bool             `json:"forfeited,omitempty"`
	StateAfter   json.RawMessage  `json:"state_after,omitempty"`

	// Move holds the decoded accepted move for in-process replay. Records
	// loaded from storage re-parse MoveRaw instead.
	Move games.Move `json:"-"`
}

// OutcomeKind names how a match ended.
type OutcomeKind string

const (
	OutcomeWin     OutcomeKind = "win"
	OutcomeDraw    OutcomeKind = "draw"
	OutcomeForfeit OutcomeKind = "forfeit"
)

// Outcome is the final verdict of one match. A forfeit names both the player
// who forfeited and the opponent as winner.
type Outcome struct {
	Kind        OutcomeKind       `json:"kind"`
	Winner      *games.PlayerSlot `json:"winner,omitempty"`
	ForfeitedBy *games.PlayerSlot `json:"forfeited_by,omitempty"`
}

// WinOutcome names p the winner under the game's own rules.
func WinOutcome(p games.PlayerSlot) Outcome {
	return Outcome{Kind: OutcomeWin, Winner: &p}
}

// DrawOutcome ends the match with no winner.
func DrawOutcome() Outcome {
	return Outcome{Kind: OutcomeDraw}
}

// ForfeitOutcome ends the match against loser; the opponent wins.
func ForfeitOutcome(loser games.PlayerSlot) Outcome {
	winner := loser.Other()
	return Outcome{Kind: OutcomeForfeit, Winner: &winner, ForfeitedBy: &loser}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeWin:
		if o.Winner != nil {
			return "win(" + o.Winner.String() + ")"
		}
		return "win"
	case OutcomeDraw:
		return "draw"
	case OutcomeForfeit:
		if o.ForfeitedBy != nil {
			return "forfeit(" + o.ForfeitedBy.String() + ")"
		}
		return "forfeit"
	}
	return string(o.Kind)
}

// PlayerInfo binds a seat to an agent for the match's lifetime.
type PlayerInfo struct {
	Slot  games.PlayerSlot `json:"slot"`
	Agent string           `json:"agent"`
}

// StatsSummary aggregates one player's decisions over a match.
type StatsSummary struct {
	Player           games.PlayerSlot `json:"player"`
	Agent            string           `json:"agent"`
	TurnsTaken       int              `json:"turns_taken"`
	ValidMoves       int              `json:"valid_moves"`
	InvalidAttempts  int              `json:"invalid_attempts"`
	Timeouts         int              `json:"timeouts"`
	BackendErrors    int              `json:"backend_errors"`
	TotalLatencyMS   int64            `json:"total_latency_ms"`
	AvgLatencyMS     float64          `json:"avg_latency_ms"`
	PromptTokens     int              `json:"prompt_tokens,omitempty"`
	CompletionTokens int              `json:"completion_tokens,omitempty"`
}

// MatchResult is the single, complete record of one match. TotalTurns counts
// accepted moves; a trailing forfeited turn slot appears in Turns but not in
// the count.
type MatchResult struct {
	MatchID    string          `json:"match_id"`
	GameID     string          `json:"game_id"`
	Players    [2]PlayerInfo   `json:"players"`
	Outcome    Outcome         `json:"outcome"`
	TotalTurns int             `json:"total_turns"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMS int64           `json:"duration_ms"`
	Turns      []TurnRecord    `json:"turns"`
	Stats      [2]StatsSummary `json:"stats"`
	Error      string          `json:"error,omitempty"`
}

// WinnerName returns the display name of the winning agent, if any.
func (r *MatchResult) WinnerName() (string, bool) {
	if r.Outcome.Winner == nil {
		return "", false
	}
	return r.Players[*r.Outcome.Winner].Agent, true
}
