package engine

import (
	"bytes"
	"encoding/json"

	"github.com/null-channel/ai-arena/internal/games"
)

// Validate decodes an agent's candidate payload and checks it against the
// legal-move set. Pure: same inputs, same verdict.
//
// Classification: an empty payload or one ParseMove cannot decode is a
// *MalformedResponseError; a decoded move outside the legal set is an
// *InvalidMoveError. The distinction feeds per-player statistics.
func Validate(g games.Game, legal []games.Move, raw json.RawMessage) (games.Move, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &MalformedResponseError{Reason: "empty response"}
	}
	move, err := g.ParseMove(trimmed)
	if err != nil {
		return nil, &MalformedResponseError{Reason: err.Error()}
	}
	for _, m := range legal {
		if m == move {
			return move, nil
		}
	}
	return nil, &InvalidMoveError{Move: move.String(), Reason: "not in the legal move set"}
}
