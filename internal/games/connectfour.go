package games

import (
	"encoding/json"
	"fmt"
)

// ConnectFourMove drops a disc into a 0-indexed column.
type ConnectFourMove struct {
	Column int `json:"column"`
}

func (m ConnectFourMove) String() string {
	return fmt.Sprintf("column=%d", m.Column)
}

type c4State struct {
	board  grid
	winner int8
}

// ConnectFour is the gravity-drop connection game. Discs fall to the lowest
// empty cell of the chosen column; winLength in a line wins.
type ConnectFour struct {
	rows      int
	cols      int
	winLength int
	schema    json.RawMessage
}

// NewConnectFour builds a connect-four game from params rows, cols, and
// win_length (defaults 6, 7, 4).
func NewConnectFour(params map[string]any) (Game, error) {
	rows, err := intParam(params, "rows", 6)
	if err != nil {
		return nil, err
	}
	cols, err := intParam(params, "cols", 7)
	if err != nil {
		return nil, err
	}
	winLength, err := intParam(params, "win_length", 4)
	if err != nil {
		return nil, err
	}
	if rows < 2 || rows > 20 || cols < 2 || cols > 20 {
		return nil, fmt.Errorf("connectfour: board %dx%d out of range [2, 20]", rows, cols)
	}
	if winLength < 2 || (winLength > rows && winLength > cols) {
		return nil, fmt.Errorf("connectfour: win_length %d unreachable on a %dx%d board", winLength, rows, cols)
	}
	g := &ConnectFour{rows: rows, cols: cols, winLength: winLength}
	g.schema = json.RawMessage(fmt.Sprintf(`{
  "type": "object",
  "properties": {
    "column": {"type": "integer", "minimum": 0, "maximum": %d, "description": "Column index (0-indexed) where to drop the piece"}
  },
  "required": ["column"]
}`, cols-1))
	return g, nil
}

func (g *ConnectFour) Name() string { return "connectfour" }

func (g *ConnectFour) Spec() GameSpec {
	return GameSpec{
		ID:          "connectfour",
		Name:        "Connect Four",
		Description: fmt.Sprintf("%d×%d board, %d in a row wins", g.rows, g.cols, g.winLength),
	}
}

// MatchIDPrefix keeps the historical c4_ match id prefix.
func (g *ConnectFour) MatchIDPrefix() string { return "c4" }

func (g *ConnectFour) InitialState() State {
	return c4State{board: newGrid(g.rows, g.cols), winner: gridEmpty}
}

// LegalMoves returns one move per column whose top cell is still empty.
func (g *ConnectFour) LegalMoves(s State, p PlayerSlot) []Move {
	st := s.(c4State)
	if st.winner != gridEmpty {
		return nil
	}
	var moves []Move
	for c := 0; c < g.cols; c++ {
		if st.board.at(0, c) == gridEmpty {
			moves = append(moves, ConnectFourMove{Column: c})
		}
	}
	return moves
}

func (g *ConnectFour) Apply(s State, p PlayerSlot, m Move) (State, error) {
	st := s.(c4State)
	mv, ok := m.(ConnectFourMove)
	if !ok {
		return nil, fmt.Errorf("connectfour: move type %T", m)
	}
	if mv.Column < 0 || mv.Column >= g.cols {
		return nil, fmt.Errorf("connectfour: column %d out of range", mv.Column)
	}
	row := -1
	for r := g.rows - 1; r >= 0; r-- {
		if st.board.at(r, mv.Column) == gridEmpty {
			row = r
			break
		}
	}
	if row < 0 {
		return nil, fmt.Errorf("connectfour: column %d full", mv.Column)
	}
	next := c4State{board: st.board.place(row, mv.Column, p), winner: st.winner}
	if next.board.connects(row, mv.Column, g.winLength) {
		next.winner = int8(p)
	}
	return next, nil
}

func (g *ConnectFour) IsTerminal(s State) bool {
	st := s.(c4State)
	return st.winner != gridEmpty || st.board.full()
}

func (g *ConnectFour) Winner(s State) (PlayerSlot, bool) {
	st := s.(c4State)
	if st.winner == gridEmpty {
		return 0, false
	}
	return PlayerSlot(st.winner), true
}

func (g *ConnectFour) ParseMove(raw json.RawMessage) (Move, error) {
	var payload struct {
		Column *int `json:"column"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("connectfour: decode move: %w", err)
	}
	if payload.Column == nil {
		return nil, fmt.Errorf("connectfour: move requires column")
	}
	return ConnectFourMove{Column: *payload.Column}, nil
}

func (g *ConnectFour) StateView(s State, viewer PlayerSlot) (json.RawMessage, error) {
	st := s.(c4State)
	moveCount := 0
	for _, c := range st.board.cells {
		if c != gridEmpty {
			moveCount++
		}
	}
	view := map[string]any{
		"board":      st.board.marks(),
		"rows":       g.rows,
		"cols":       g.cols,
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

func (g *ConnectFour) MoveSchema() json.RawMessage { return g.schema }
