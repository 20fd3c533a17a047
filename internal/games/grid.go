package games

// gridEmpty marks an unoccupied cell. Occupied cells hold the PlayerSlot of
// the mark's owner.
const gridEmpty int8 = -1

// grid is the shared board representation for the mark-placement games.
// Values are immutable by convention: mutating methods operate on clones.
type grid struct {
	rows, cols int
	cells      []int8
}

func newGrid(rows, cols int) grid {
	cells := make([]int8, rows*cols)
	for i := range cells {
		cells[i] = gridEmpty
	}
	return grid{rows: rows, cols: cols, cells: cells}
}

func (g grid) at(row, col int) int8 {
	return g.cells[row*g.cols+col]
}

func (g grid) inBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// place returns a copy of the grid with the player's mark at (row, col).
func (g grid) place(row, col int, p PlayerSlot) grid {
	cells := make([]int8, len(g.cells))
	copy(cells, g.cells)
	cells[row*g.cols+col] = int8(p)
	return grid{rows: g.rows, cols: g.cols, cells: cells}
}

func (g grid) full() bool {
	for _, c := range g.cells {
		if c == gridEmpty {
			return false
		}
	}
	return true
}

// connectDirs covers horizontal, vertical, and the two diagonals; the scan
// walks each direction forward and backward from the anchor cell.
var connectDirs = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {1, -1}}

// connects reports whether the mark at (row, col) sits in a straight line of
// at least winLen same-owner marks.
func (g grid) connects(row, col, winLen int) bool {
	owner := g.at(row, col)
	if owner == gridEmpty {
		return false
	}
	for _, dir := range connectDirs {
		count := 1
		for step := 1; ; step++ {
			r, c := row+dir[0]*step, col+dir[1]*step
			if !g.inBounds(r, c) || g.at(r, c) != owner {
				break
			}
			count++
		}
		for step := 1; ; step++ {
			r, c := row-dir[0]*step, col-dir[1]*step
			if !g.inBounds(r, c) || g.at(r, c) != owner {
				break
			}
			count++
		}
		if count >= winLen {
			return true
		}
	}
	return false
}

// marks renders the grid as rows of "X" / "O" / "" strings for state views.
// PlayerOne is X, PlayerTwo is O.
func (g grid) marks() [][]string {
	out := make([][]string, g.rows)
	for r := 0; r < g.rows; r++ {
		out[r] = make([]string, g.cols)
		for c := 0; c < g.cols; c++ {
			switch g.at(r, c) {
			case int8(PlayerOne):
				out[r][c] = "X"
			case int8(PlayerTwo):
				out[r][c] = "O"
			default:
				out[r][c] = ""
			}
		}
	}
	return out
}
