package engine

import (
	"fmt"

	"github.com/null-channel/ai-arena/internal/games"
)

// Replay re-derives the final position of a match from its accepted moves
// alone. Records loaded from storage carry only the raw payload; those are
// re-parsed through the game. The turn log is sufficient: replaying it over
// the same game implementation reproduces the same terminal state.
func Replay(g games.Game, turns []TurnRecord) (games.State, error) {
	state := g.InitialState()
	for _, t := range turns {
		if t.Forfeited {
			continue
		}
		move := t.Move
		if move == nil {
			if len(t.MoveRaw) == 0 {
				return nil, fmt.Errorf("turn %d: no accepted move recorded", t.TurnIndex)
			}
			parsed, err := g.ParseMove(t.MoveRaw)
			if err != nil {
				return nil, fmt.Errorf("turn %d: %w", t.TurnIndex, err)
			}
			move = parsed
		}
		next, err := g.Apply(state, t.Player, move)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", t.TurnIndex, err)
		}
		state = next
	}
	return state, nil
}
