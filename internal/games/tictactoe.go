package games

import (
	"encoding/json"
	"fmt"
)

// TicTacToeMove places a mark at a 0-indexed board cell.
type TicTacToeMove struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (m TicTacToeMove) String() string {
	return fmt.Sprintf("row=%d col=%d", m.Row, m.Col)
}

type tttState struct {
	board  grid
	winner int8
}

// TicTacToe is an N×N mark-placement game won by connecting winLength marks
// in a straight line. The classic game is board size 3, win length 3.
type TicTacToe struct {
	size      int
	winLength int
	schema    json.RawMessage
}

// NewTicTacToe builds a tic-tac-toe game from params board_size and
// win_length (defaults 3 and 3).
func NewTicTacToe(params map[string]any) (Game, error) {
	size, err := intParam(params, "board_size", 3)
	if err != nil {
		return nil, err
	}
	winLength, err := intParam(params, "win_length", 3)
	if err != nil {
		return nil, err
	}
	if size < 2 || size > 19 {
		return nil, fmt.Errorf("tictactoe: board_size %d out of range [2, 19]", size)
	}
	if winLength < 2 || winLength > size {
		return nil, fmt.Errorf("tictactoe: win_length %d out of range [2, %d]", winLength, size)
	}
	g := &TicTacToe{size: size, winLength: winLength}
	g.schema = json.RawMessage(fmt.Sprintf(`{
  "type": "object",
  "properties": {
    "row": {"type": "integer", "minimum": 0, "maximum": %d, "description": "Row index (0-indexed)"},
    "col": {"type": "integer", "minimum": 0, "maximum": %d, "description": "Column index (0-indexed)"}
  },
  "required": ["row", "col"]
}`, size-1, size-1))
	return g, nil
}

func (g *TicTacToe) Name() string { return "tictactoe" }

func (g *TicTacToe) Spec() GameSpec {
	return GameSpec{
		ID:          "tictactoe",
		Name:        "Tic-Tac-Toe",
		Description: fmt.Sprintf("%d×%d board, %d in a row wins", g.size, g.size, g.winLength),
	}
}

// MatchIDPrefix keeps the historical ttt_ match id prefix.
func (g *TicTacToe) MatchIDPrefix() string { return "ttt" }

func (g *TicTacToe) InitialState() State {
	return tttState{board: newGrid(g.size, g.size), winner: gridEmpty}
}

func (g *TicTacToe) LegalMoves(s State, p PlayerSlot) []Move {
	st := s.(tttState)
	if st.winner != gridEmpty {
		return nil
	}
	var moves []Move
	for r := 0; r < g.size; r++ {
		for c := 0; c < g.size; c++ {
			if st.board.at(r, c) == gridEmpty {
				moves = append(moves, TicTacToeMove{Row: r, Col: c})
			}
		}
	}
	return moves
}

func (g *TicTacToe) Apply(s State, p PlayerSlot, m Move) (State, error) {
	st := s.(tttState)
	mv, ok := m.(TicTacToeMove)
	if !ok {
		return nil, fmt.Errorf("tictactoe: move type %T", m)
	}
	if !st.board.inBounds(mv.Row, mv.Col) || st.board.at(mv.Row, mv.Col) != gridEmpty {
		return nil, fmt.Errorf("tictactoe: cell (%d,%d) not playable", mv.Row, mv.Col)
	}
	next := tttState{board: st.board.place(mv.Row, mv.Col, p), winner: st.winner}
	if next.board.connects(mv.Row, mv.Col, g.winLength) {
		next.winner = int8(p)
	}
	return next, nil
}

func (g *TicTacToe) IsTerminal(s State) bool {
	st := s.(tttState)
	return st.winner != gridEmpty || st.board.full()
}

func (g *TicTacToe) Winner(s State) (PlayerSlot, bool) {
	st := s.(tttState)
	if st.winner == gridEmpty {
		return 0, false
	}
	return PlayerSlot(st.winner), true
}

func (g *TicTacToe) ParseMove(raw json.RawMessage) (Move, error) {
	var payload struct {
		Row *int `json:"row"`
		Col *int `json:"col"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("tictactoe: decode move: %w", err)
	}
	if payload.Row == nil || payload.Col == nil {
		return nil, fmt.Errorf("tictactoe: move requires row and col")
	}
	return TicTacToeMove{Row: *payload.Row, Col: *payload.Col}, nil
}

func (g *TicTacToe) StateView(s State, viewer PlayerSlot) (json.RawMessage, error) {
	st := s.(tttState)
	moveCount := 0
	for _, c := range st.board.cells {
		if c != gridEmpty {
			moveCount++
		}
	}
	view := map[string]any{
		"board":      st.board.marks(),
		"board_size": g.size,
		"win_length": g.winLength,
		"your_mark":  markFor(viewer),
		"move_count": moveCount,
		"game_over":  g.IsTerminal(s),
	}
	if st.winner != gridEmpty {
		view["winner"] = markFor(PlayerSlot(st.winner))
	}
	return json.Marshal(view)
}

func (g *TicTacToe) MoveSchema() json.RawMessage { return g.schema }

func markFor(p PlayerSlot) string {
	if p == PlayerTwo {
		return "O"
	}
	return "X"
}
