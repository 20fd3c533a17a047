package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/null-channel/ai-arena/internal/engine"
	"github.com/null-channel/ai-arena/internal/games"
)

func TestRandomAgentPlaysLegalMoves(t *testing.T) {
	game, err := games.New("tictactoe", nil)
	if err != nil {
		t.Fatalf("games.New failed: %v", err)
	}

	agent := NewRandomAgent("Random_1", 7)
	state := game.InitialState()

	// Walk a few plies and confirm every pick parses and is legal.
	player := games.PlayerOne
	for turn := 1; turn <= 5; turn++ {
		legal := game.LegalMoves(state, player)
		display := make([]string, len(legal))
		for i, m := range legal {
			display[i] = m.String()
		}

		resp, err := agent.PerformTurn(context.Background(), &engine.MoveRequest{
			TurnIndex:  turn,
			Player:     player,
			LegalMoves: display,
			MoveSchema: game.MoveSchema(),
		})
		if err != nil {
			t.Fatalf("turn %d: PerformTurn failed: %v", turn, err)
		}

		move, err := game.ParseMove(resp.Raw)
		if err != nil {
			t.Fatalf("turn %d: pick does not parse: %v (%s)", turn, err, resp.Raw)
		}
		found := false
		for _, m := range legal {
			if m == move {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("turn %d: pick %s is not legal", turn, move)
		}

		state, err = game.Apply(state, player, move)
		if err != nil {
			t.Fatalf("turn %d: apply failed: %v", turn, err)
		}
		player = player.Other()
	}
}

func TestRandomAgentDeterministicWithSeed(t *testing.T) {
	req := &engine.MoveRequest{
		LegalMoves: []string{"row=0 col=0", "row=0 col=1", "row=0 col=2", "row=1 col=0", "row=1 col=1"},
		MoveSchema: json.RawMessage(`{"type": "object", "properties": {"row": {}, "col": {}}}`),
	}

	one := NewRandomAgent("Random_1", 99)
	two := NewRandomAgent("Random_2", 99)

	for i := 0; i < 10; i++ {
		a, err := one.PerformTurn(context.Background(), req)
		if err != nil {
			t.Fatalf("PerformTurn failed: %v", err)
		}
		b, err := two.PerformTurn(context.Background(), req)
		if err != nil {
			t.Fatalf("PerformTurn failed: %v", err)
		}
		if string(a.Raw) != string(b.Raw) {
			t.Fatalf("call %d: same seed diverged: %s vs %s", i, a.Raw, b.Raw)
		}
	}
}

func TestRandomAgentBareMoveUsesSchemaProperty(t *testing.T) {
	game, err := games.New("rps", nil)
	if err != nil {
		t.Fatalf("games.New failed: %v", err)
	}

	agent := NewRandomAgent("Random_2", 3)
	resp, err := agent.PerformTurn(context.Background(), &engine.MoveRequest{
		LegalMoves: []string{"rock", "paper", "scissors"},
		MoveSchema: game.MoveSchema(),
	})
	if err != nil {
		t.Fatalf("PerformTurn failed: %v", err)
	}

	var move struct {
		Choice string `json:"choice"`
	}
	if err := json.Unmarshal(resp.Raw, &move); err != nil {
		t.Fatalf("raw move is not JSON: %v (%s)", err, resp.Raw)
	}
	if move.Choice != "rock" && move.Choice != "paper" && move.Choice != "scissors" {
		t.Errorf("unexpected choice %q", move.Choice)
	}
}

func TestRandomAgentNoLegalMoves(t *testing.T) {
	agent := NewRandomAgent("Random_1", 1)

	_, err := agent.PerformTurn(context.Background(), &engine.MoveRequest{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestMoveJSON(t *testing.T) {
	schema := json.RawMessage(`{"type": "object", "properties": {"choice": {"type": "string"}}}`)

	raw, err := moveJSON("row=1 col=2", nil)
	if err != nil {
		t.Fatalf("moveJSON failed: %v", err)
	}
	var pair struct{ Row, Col int }
	if err := json.Unmarshal(raw, &pair); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if pair.Row != 1 || pair.Col != 2 {
		t.Errorf("expected row=1 col=2, got %+v", pair)
	}

	raw, err = moveJSON("scissors", schema)
	if err != nil {
		t.Fatalf("moveJSON failed: %v", err)
	}
	if string(raw) != `{"choice":"scissors"}` {
		t.Errorf("unexpected payload: %s", raw)
	}

	// Bare moves cannot map onto multi-property schemas.
	multi := json.RawMessage(`{"properties": {"row": {}, "col": {}}}`)
	if _, err := moveJSON("center", multi); err == nil {
		t.Error("expected error for ambiguous bare move")
	}
}
