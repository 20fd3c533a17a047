package games

import (
	"encoding/json"
	"testing"
)

func TestTicTacToeSpec(t *testing.T) {
	g, err := NewTicTacToe(nil)
	if err != nil {
		t.Fatalf("NewTicTacToe failed: %v", err)
	}

	spec := g.Spec()
	if spec.ID != "tictactoe" {
		t.Errorf("Expected ID 'tictactoe', got '%s'", spec.ID)
	}
	if spec.Name != "Tic-Tac-Toe" {
		t.Errorf("Expected name 'Tic-Tac-Toe', got '%s'", spec.Name)
	}

	prefixer, ok := g.(interface{ MatchIDPrefix() string })
	if !ok {
		t.Fatal("expected TicTacToe to provide a match id prefix")
	}
	if prefixer.MatchIDPrefix() != "ttt" {
		t.Errorf("Expected prefix 'ttt', got '%s'", prefixer.MatchIDPrefix())
	}
}

func TestTicTacToeParams(t *testing.T) {
	// CSV params arrive as strings.
	g, err := NewTicTacToe(map[string]any{"board_size": "5", "win_length": "4"})
	if err != nil {
		t.Fatalf("NewTicTacToe with string params failed: %v", err)
	}
	if len(g.LegalMoves(g.InitialState(), PlayerOne)) != 25 {
		t.Errorf("Expected 25 legal moves on a 5x5 board, got %d", len(g.LegalMoves(g.InitialState(), PlayerOne)))
	}

	bad := []map[string]any{
		{"board_size": 1},
		{"board_size": 20},
		{"win_length": 1},
		{"win_length": 4}, // exceeds default board size 3
		{"board_size": "not a number"},
	}
	for _, params := range bad {
		if _, err := NewTicTacToe(params); err == nil {
			t.Errorf("Expected error for params %v, got none", params)
		}
	}
}

func TestTicTacToeLegalMoves(t *testing.T) {
	g, err := NewTicTacToe(nil)
	if err != nil {
		t.Fatalf("NewTicTacToe failed: %v", err)
	}

	s := g.InitialState()
	moves := g.LegalMoves(s, PlayerOne)
	if len(moves) != 9 {
		t.Fatalf("Expected 9 legal moves, got %d", len(moves))
	}

	s, err = g.Apply(s, PlayerOne, TicTacToeMove{Row: 1, Col: 1})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	moves = g.LegalMoves(s, PlayerTwo)
	if len(moves) != 8 {
		t.Errorf("Expected 8 legal moves after one placement, got %d", len(moves))
	}
	for _, m := range moves {
		if m == (TicTacToeMove{Row: 1, Col: 1}) {
			t.Error("occupied cell still listed as legal")
		}
	}
}

func TestTicTacToeDiagonalWin(t *testing.T) {
	g, err := NewTicTacToe(nil)
	if err != nil {
		t.Fatalf("NewTicTacToe failed: %v", err)
	}

	s := g.InitialState()
	seq := []struct {
		p PlayerSlot
		m TicTacToeMove
	}{
		{PlayerOne, TicTacToeMove{0, 0}},
		{PlayerTwo, TicTacToeMove{0, 1}},
		{PlayerOne, TicTacToeMove{1, 1}},
		{PlayerTwo, TicTacToeMove{0, 2}},
		{PlayerOne, TicTacToeMove{2, 2}},
	}
	for _, step := range seq {
		if g.IsTerminal(s) {
			t.Fatal("game ended before the winning move")
		}
		s, err = g.Apply(s, step.p, step.m)
		if err != nil {
			t.Fatalf("Apply(%v) failed: %v", step.m, err)
		}
	}

	if !g.IsTerminal(s) {
		t.Fatal("expected terminal state after diagonal win")
	}
	w, ok := g.Winner(s)
	if !ok || w != PlayerOne {
		t.Errorf("Expected winner player_one, got %v (ok=%v)", w, ok)
	}
	if moves := g.LegalMoves(s, PlayerTwo); moves != nil {
		t.Errorf("Expected no legal moves after a win, got %d", len(moves))
	}
}

func TestTicTacToeDraw(t *testing.T) {
	g, err := NewTicTacToe(nil)
	if err != nil {
		t.Fatalf("NewTicTacToe failed: %v", err)
	}

	// X O X
	// X O O
	// O X X
	s := g.InitialState()
	seq := []struct {
		p PlayerSlot
		m TicTacToeMove
	}{
		{PlayerOne, TicTacToeMove{0, 0}},
		{PlayerTwo, TicTacToeMove{0, 1}},
		{PlayerOne, TicTacToeMove{0, 2}},
		{PlayerTwo, TicTacToeMove{1, 1}},
		{PlayerOne, TicTacToeMove{1, 0}},
		{PlayerTwo, TicTacToeMove{1, 2}},
		{PlayerOne, TicTacToeMove{2, 1}},
		{PlayerTwo, TicTacToeMove{2, 0}},
		{PlayerOne, TicTacToeMove{2, 2}},
	}
	for _, step := range seq {
		s, err = g.Apply(s, step.p, step.m)
		if err != nil {
			t.Fatalf("Apply(%v) failed: %v", step.m, err)
		}
	}

	if !g.IsTerminal(s) {
		t.Fatal("expected terminal state on a full board")
	}
	if _, ok := g.Winner(s); ok {
		t.Error("expected a draw, got a winner")
	}
}

func TestTicTacToeApplyRejects(t *testing.T) {
	g, err := NewTicTacToe(nil)
	if err != nil {
		t.Fatalf("NewTicTacToe failed: %v", err)
	}

	s := g.InitialState()
	s, err = g.Apply(s, PlayerOne, TicTacToeMove{Row: 0, Col: 0})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, err := g.Apply(s, PlayerTwo, TicTacToeMove{Row: 0, Col: 0}); err == nil {
		t.Error("Expected error applying to an occupied cell")
	}
	if _, err := g.Apply(s, PlayerTwo, TicTacToeMove{Row: 9, Col: 0}); err == nil {
		t.Error("Expected error applying out of bounds")
	}
}

func TestTicTacToeStateImmutability(t *testing.T) {
	g, err := NewTicTacToe(nil)
	if err != nil {
		t.Fatalf("NewTicTacToe failed: %v", err)
	}

	s := g.InitialState()
	if _, err := g.Apply(s, PlayerOne, TicTacToeMove{Row: 1, Col: 1}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	// The original state must be untouched.
	if len(g.LegalMoves(s, PlayerOne)) != 9 {
		t.Errorf("Expected prior state to keep 9 legal moves, got %d", len(g.LegalMoves(s, PlayerOne)))
	}
}

func TestTicTacToeParseMove(t *testing.T) {
	g, err := NewTicTacToe(nil)
	if err != nil {
		t.Fatalf("NewTicTacToe failed: %v", err)
	}

	m, err := g.ParseMove(json.RawMessage(`{"row": 1, "col": 2}`))
	if err != nil {
		t.Fatalf("ParseMove failed: %v", err)
	}
	if m != (TicTacToeMove{Row: 1, Col: 2}) {
		t.Errorf("Expected move row=1 col=2, got %v", m)
	}

	// Out-of-range coordinates parse fine; legality is the validator's call.
	m, err = g.ParseMove(json.RawMessage(`{"row": 9, "col": 9}`))
	if err != nil {
		t.Fatalf("ParseMove rejected out-of-range move: %v", err)
	}
	if m != (TicTacToeMove{Row: 9, Col: 9}) {
		t.Errorf("Expected move row=9 col=9, got %v", m)
	}

	if _, err := g.ParseMove(json.RawMessage(`{"row": 1}`)); err == nil {
		t.Error("Expected error for missing col")
	}
	if _, err := g.ParseMove(json.RawMessage(`not json`)); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestTicTacToeStateView(t *testing.T) {
	g, err := NewTicTacToe(nil)
	if err != nil {
		t.Fatalf("NewTicTacToe failed: %v", err)
	}

	s := g.InitialState()
	s, err = g.Apply(s, PlayerOne, TicTacToeMove{Row: 0, Col: 0})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	raw, err := g.StateView(s, PlayerTwo)
	if err != nil {
		t.Fatalf("StateView failed: %v", err)
	}
	var view struct {
		Board     [][]string `json:"board"`
		BoardSize int        `json:"board_size"`
		WinLength int        `json:"win_length"`
		YourMark  string     `json:"your_mark"`
		MoveCount int        `json:"move_count"`
		GameOver  bool       `json:"game_over"`
	}
	if err := json.Unmarshal(raw, &view); err != nil {
		t.Fatalf("StateView produced invalid JSON: %v", err)
	}

	if view.BoardSize != 3 || view.WinLength != 3 {
		t.Errorf("Expected 3/3 board params, got %d/%d", view.BoardSize, view.WinLength)
	}
	if view.YourMark != "O" {
		t.Errorf("Expected player_two mark 'O', got '%s'", view.YourMark)
	}
	if view.MoveCount != 1 {
		t.Errorf("Expected move_count 1, got %d", view.MoveCount)
	}
	if view.Board[0][0] != "X" {
		t.Errorf("Expected 'X' at (0,0), got '%s'", view.Board[0][0])
	}
	if view.GameOver {
		t.Error("Expected game_over false")
	}
}

func TestTicTacToeMoveSchema(t *testing.T) {
	g, err := NewTicTacToe(map[string]any{"board_size": 5})
	if err != nil {
		t.Fatalf("NewTicTacToe failed: %v", err)
	}

	var schema struct {
		Properties map[string]struct {
			Maximum int `json:"maximum"`
		} `json:"properties"`
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(g.MoveSchema(), &schema); err != nil {
		t.Fatalf("MoveSchema is not valid JSON: %v", err)
	}
	if schema.Properties["row"].Maximum != 4 {
		t.Errorf("Expected row maximum 4, got %d", schema.Properties["row"].Maximum)
	}
	if len(schema.Required) != 2 {
		t.Errorf("Expected 2 required fields, got %v", schema.Required)
	}
}
