// Package games defines the rule-engine contract the match engine drives and
// the registry of playable game kinds. Game implementations are pure: state
// values are never mutated in place, every accepted move produces a new one.
package games

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// PlayerSlot identifies one of the two seats in a match.
type PlayerSlot int

const (
	PlayerOne PlayerSlot = iota
	PlayerTwo
)

// String returns the wire name of the slot.
func (p PlayerSlot) String() string {
	if p == PlayerTwo {
		return "player_two"
	}
	return "player_one"
}

// Other returns the opposing slot.
func (p PlayerSlot) Other() PlayerSlot {
	if p == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// Valid reports whether the slot is one of the two defined seats.
func (p PlayerSlot) Valid() bool {
	return p == PlayerOne || p == PlayerTwo
}

// MarshalText encodes the slot as its wire name.
func (p PlayerSlot) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes "player_one" or "player_two".
func (p *PlayerSlot) UnmarshalText(text []byte) error {
	switch string(text) {
	case "player_one":
		*p = PlayerOne
	case "player_two":
		*p = PlayerTwo
	default:
		return fmt.Errorf("unknown player slot %q", text)
	}
	return nil
}

// Move is a single game-specific action. Implementations must be small
// comparable value types: the engine adjudicates legality by comparing a
// candidate against the legal-move set with ==.
type Move interface {
	String() string
}

// State is an opaque game position. The engine never inspects it; it only
// hands it back to the Game that produced it and renders agent views of it.
type State interface{}

// GameSpec is the registry metadata for one game kind.
type GameSpec struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Game is the capability contract a rule engine implements for one game kind.
//
// Apply is only ever called with a move drawn from LegalMoves for the same
// state and player; an error from it therefore signals a defect in the Game
// itself, which aborts the match rather than counting against either player.
type Game interface {
	Name() string
	Spec() GameSpec

	// InitialState returns the position before the first move.
	InitialState() State

	// LegalMoves returns every move the player may make. An empty slice
	// signals the player has no legal move (see StalemateArbiter).
	LegalMoves(s State, p PlayerSlot) []Move

	// Apply plays an already-validated move and returns the new state.
	Apply(s State, p PlayerSlot, m Move) (State, error)

	// IsTerminal reports whether the game has ended at s.
	IsTerminal(s State) bool

	// Winner returns the winning slot when there is one. ok == false with
	// IsTerminal true means the game ended in a draw.
	Winner(s State) (PlayerSlot, bool)

	// ParseMove decodes an agent-supplied candidate into a Move.
	ParseMove(raw json.RawMessage) (Move, error)

	// StateView renders the position as the given player is allowed to see
	// it. Games with hidden information redact accordingly.
	StateView(s State, viewer PlayerSlot) (json.RawMessage, error)

	// MoveSchema is the JSON schema describing a well-formed move, sent to
	// agents alongside the state view.
	MoveSchema() json.RawMessage
}

// StalemateArbiter is an optional Game extension consulted when the player to
// move has no legal move and the position is not terminal. It may name a
// winner; games that do not implement it get the default stalemate-is-a-draw
// resolution.
type StalemateArbiter interface {
	Stalemate(s State, p PlayerSlot) (winner PlayerSlot, hasWinner bool)
}

// Factory builds a configured Game instance from loosely-typed parameters
// (JSON bodies and CSV columns both land here as map[string]any).
type Factory func(params map[string]any) (Game, error)

var registry = make(map[string]Factory)

// Register adds a game factory under the given id. Called from init.
func Register(id string, f Factory) {
	registry[strings.ToLower(id)] = f
}

// New constructs a configured game by id. The id match is case-insensitive.
func New(id string, params map[string]any) (Game, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, fmt.Errorf("unknown game %q", id)
	}
	return f(params)
}

// List returns the specs of all registered games, sorted by id. Aliases
// registered for the same game collapse to one entry.
func List() []GameSpec {
	seen := make(map[string]bool, len(registry))
	specs := make([]GameSpec, 0, len(registry))
	for id := range registry {
		g, err := registry[id](nil)
		if err != nil || seen[g.Spec().ID] {
			continue
		}
		seen[g.Spec().ID] = true
		specs = append(specs, g.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

// intParam reads an integer parameter that may arrive as a JSON number, a Go
// int, or a CSV string. Missing or empty values yield the default.
func intParam(params map[string]any, key string, def int) (int, error) {
	if params == nil {
		return def, nil
	}
	v, ok := params[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("param %q: %w", key, err)
		}
		return int(i), nil
	case string:
		if strings.TrimSpace(n) == "" {
			return def, nil
		}
		var i int
		if _, err := fmt.Sscanf(strings.TrimSpace(n), "%d", &i); err != nil {
			return 0, fmt.Errorf("param %q: invalid integer %q", key, n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("param %q: unsupported type %T", key, v)
	}
}

// init registers all built-in games. The CamelCase aliases match the names
// batch files have historically used.
func init() {
	Register("tictactoe", NewTicTacToe)
	Register("connectfour", NewConnectFour)
	Register("rps", NewRockPaperScissors)
	Register("rockpaperscissors", NewRockPaperScissors)
}
