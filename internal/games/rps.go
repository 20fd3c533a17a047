package games

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rpsThrows lists the throws in canonical order.
var rpsThrows = [3]string{"rock", "paper", "scissors"}

// RPSMove is one throw. Choice is always lowercase.
type RPSMove struct {
	Choice string `json:"choice"`
}

func (m RPSMove) String() string { return m.Choice }

// beats reports whether a defeats b.
func beats(a, b string) bool {
	switch {
	case a == "rock" && b == "scissors":
		return true
	case a == "paper" && b == "rock":
		return true
	case a == "scissors" && b == "paper":
		return true
	}
	return false
}

type rpsRound struct {
	one    string
	two    string
	winner int8 // player slot, gridEmpty for a tied round
}

type rpsState struct {
	// pending holds the first throw of the round in progress, committed by
	// pendingBy. It is never shown to the other player.
	pending   string
	pendingBy int8
	rounds    []rpsRound
	scoreOne  int
	scoreTwo  int
}

// RockPaperScissors plays best-of-N rounds. The two throws of a round land on
// consecutive turns; the round resolves when the second throw arrives, and a
// player reaching the majority of rounds wins early. Tied rounds consume a
// round without scoring.
type RockPaperScissors struct {
	rounds int
	schema json.RawMessage
}

// NewRockPaperScissors builds the game from param rounds (default 3).
func NewRockPaperScissors(params map[string]any) (Game, error) {
	rounds, err := intParam(params, "rounds", 3)
	if err != nil {
		return nil, err
	}
	if rounds < 1 || rounds > 99 {
		return nil, fmt.Errorf("rps: rounds %d out of range [1, 99]", rounds)
	}
	g := &RockPaperScissors{rounds: rounds}
	g.schema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "choice": {"type": "string", "enum": ["rock", "paper", "scissors"], "description": "Your choice for this round"}
  },
  "required": ["choice"]
}`)
	return g, nil
}

func (g *RockPaperScissors) Name() string { return "rps" }

func (g *RockPaperScissors) Spec() GameSpec {
	return GameSpec{
		ID:          "rps",
		Name:        "Rock Paper Scissors",
		Description: fmt.Sprintf("best of %d rounds", g.rounds),
	}
}

// MatchIDPrefix keeps the historical rps_ match id prefix.
func (g *RockPaperScissors) MatchIDPrefix() string { return "rps" }

func (g *RockPaperScissors) roundsToWin() int { return g.rounds/2 + 1 }

func (g *RockPaperScissors) InitialState() State {
	return rpsState{pendingBy: gridEmpty}
}

// LegalMoves returns all three throws; mid-round every throw stays legal.
func (g *RockPaperScissors) LegalMoves(s State, p PlayerSlot) []Move {
	if g.IsTerminal(s) {
		return nil
	}
	moves := make([]Move, 0, len(rpsThrows))
	for _, t := range rpsThrows {
		moves = append(moves, RPSMove{Choice: t})
	}
	return moves
}

func (g *RockPaperScissors) Apply(s State, p PlayerSlot, m Move) (State, error) {
	st := s.(rpsState)
	mv, ok := m.(RPSMove)
	if !ok {
		return nil, fmt.Errorf("rps: move type %T", m)
	}
	if st.pending == "" {
		next := st
		next.rounds = st.rounds[:len(st.rounds):len(st.rounds)]
		next.pending = mv.Choice
		next.pendingBy = int8(p)
		return next, nil
	}
	if PlayerSlot(st.pendingBy) == p {
		return nil, fmt.Errorf("rps: %s threw twice in round %d", p, len(st.rounds)+1)
	}
	round := rpsRound{winner: gridEmpty}
	if PlayerSlot(st.pendingBy) == PlayerOne {
		round.one, round.two = st.pending, mv.Choice
	} else {
		round.one, round.two = mv.Choice, st.pending
	}
	switch {
	case beats(round.one, round.two):
		round.winner = int8(PlayerOne)
	case beats(round.two, round.one):
		round.winner = int8(PlayerTwo)
	}
	next := rpsState{
		pendingBy: gridEmpty,
		rounds:    append(st.rounds[:len(st.rounds):len(st.rounds)], round),
		scoreOne:  st.scoreOne,
		scoreTwo:  st.scoreTwo,
	}
	switch PlayerSlot(round.winner) {
	case PlayerOne:
		next.scoreOne++
	case PlayerTwo:
		next.scoreTwo++
	}
	return next, nil
}

func (g *RockPaperScissors) IsTerminal(s State) bool {
	st := s.(rpsState)
	if st.pending != "" {
		return false
	}
	toWin := g.roundsToWin()
	return st.scoreOne >= toWin || st.scoreTwo >= toWin || len(st.rounds) >= g.rounds
}

func (g *RockPaperScissors) Winner(s State) (PlayerSlot, bool) {
	st := s.(rpsState)
	switch {
	case st.scoreOne > st.scoreTwo:
		return PlayerOne, true
	case st.scoreTwo > st.scoreOne:
		return PlayerTwo, true
	}
	return 0, false
}

// ParseMove lowercases the choice; unrecognized throws parse fine and fail
// move validation instead.
func (g *RockPaperScissors) ParseMove(raw json.RawMessage) (Move, error) {
	var payload struct {
		Choice *string `json:"choice"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("rps: decode move: %w", err)
	}
	if payload.Choice == nil {
		return nil, fmt.Errorf("rps: move requires choice")
	}
	return RPSMove{Choice: strings.ToLower(strings.TrimSpace(*payload.Choice))}, nil
}

// StateView renders the match from the viewer's side. The opponent's pending
// throw is reported only as opponent_has_thrown; its value stays hidden until
// the round resolves.
func (g *RockPaperScissors) StateView(s State, viewer PlayerSlot) (json.RawMessage, error) {
	st := s.(rpsState)
	yourScore, oppScore := st.scoreOne, st.scoreTwo
	if viewer == PlayerTwo {
		yourScore, oppScore = oppScore, yourScore
	}
	history := make([]map[string]any, 0, len(st.rounds))
	for i, r := range st.rounds {
		yours, theirs := r.one, r.two
		if viewer == PlayerTwo {
			yours, theirs = theirs, yours
		}
		outcome := "tie"
		switch PlayerSlot(r.winner) {
		case viewer:
			outcome = "you"
		case viewer.Other():
			outcome = "opponent"
		}
		history = append(history, map[string]any{
			"round":           i + 1,
			"your_choice":     yours,
			"opponent_choice": theirs,
			"winner":          outcome,
		})
	}
	round := len(st.rounds) + 1
	if round > g.rounds {
		round = g.rounds
	}
	view := map[string]any{
		"rounds_total":        g.rounds,
		"rounds_to_win":       g.roundsToWin(),
		"round":               round,
		"your_slot":           viewer.String(),
		"your_score":          yourScore,
		"opponent_score":      oppScore,
		"opponent_has_thrown": st.pending != "" && PlayerSlot(st.pendingBy) != viewer,
		"round_history":       history,
		"game_over":           g.IsTerminal(s),
	}
	if w, ok := g.Winner(s); ok && g.IsTerminal(s) {
		view["winner"] = w.String()
	}
	return json.Marshal(view)
}

func (g *RockPaperScissors) MoveSchema() json.RawMessage { return g.schema }
