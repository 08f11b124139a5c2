package game

import "errors"

// ErrDiagonalMove is returned for a relative move along both axes at once.
var ErrDiagonalMove = errors.New("diagonal move not supported")

// Selection is the cursor: a used cell, the active axis and the clue number
// the cell carries on that axis.
type Selection struct {
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Direction Direction `json:"direction"`
	Number    string    `json:"number"`
}

// Key returns the selected cell address.
func (s Selection) Key() CellKey {
	return CellKey{Row: s.Row, Col: s.Col}
}

// resolve places the cursor on (row, col), keeping preferred when the cell
// takes part in it and switching axes otherwise.
func (g *Grid) resolve(row, col int, preferred Direction) (Selection, bool) {
	if !g.used(row, col) {
		return Selection{}, false
	}
	cell := g.Cells[row][col]
	dir := preferred
	if cell.Clue(dir) == "" {
		dir = dir.Other()
	}
	return Selection{Row: row, Col: col, Direction: dir, Number: cell.Clue(dir)}, true
}

// InitialSelection puts the cursor on the start of the first clue.
func (g *Grid) InitialSelection() (Selection, bool) {
	clue, ok := g.FirstClue()
	if !ok {
		return Selection{}, false
	}
	return g.resolve(clue.Row, clue.Col, clue.Direction)
}

// SelectCell handles a click. Clicking the selected cell toggles the axis
// when the cell supports the other one.
func (g *Grid) SelectCell(cur Selection, row, col int) (Selection, bool) {
	if !g.used(row, col) {
		return cur, false
	}
	if row == cur.Row && col == cur.Col {
		return g.ToggleDirection(cur)
	}
	next, _ := g.resolve(row, col, cur.Direction)
	return next, next != cur
}

// MoveRelative handles an arrow key. The axis of the delta becomes the
// preferred direction; targets are clamped to the grid and unused targets
// discard the move.
func (g *Grid) MoveRelative(cur Selection, dRow, dCol int) (Selection, bool, error) {
	var preferred Direction
	switch {
	case dRow != 0 && dCol != 0:
		return cur, false, ErrDiagonalMove
	case dCol != 0:
		preferred = Across
	case dRow != 0:
		preferred = Down
	default:
		return cur, false, nil
	}
	row := clamp(cur.Row+dRow, 0, g.Rows-1)
	col := clamp(cur.Col+dCol, 0, g.Cols-1)
	next, ok := g.resolve(row, col, preferred)
	if !ok {
		return cur, false, nil
	}
	return next, next != cur, nil
}

// ToggleDirection switches to the other axis when the current cell has a
// clue on it.
func (g *Grid) ToggleDirection(cur Selection) (Selection, bool) {
	cell, ok := g.Cell(cur.Row, cur.Col)
	if !ok || !cell.Used {
		return cur, false
	}
	other := cur.Direction.Other()
	n := cell.Clue(other)
	if n == "" {
		return cur, false
	}
	if _, ok := g.Clue(other, n); !ok {
		return cur, false
	}
	return Selection{Row: cur.Row, Col: cur.Col, Direction: other, Number: n}, true
}

// MoveToClueStart jumps to the declared start of a clue.
func (g *Grid) MoveToClueStart(cur Selection, d Direction, number string) (Selection, bool) {
	clue, ok := g.Clue(d, number)
	if !ok || !g.used(clue.Row, clue.Col) {
		return cur, false
	}
	next := Selection{Row: clue.Row, Col: clue.Col, Direction: d, Number: number}
	return next, next != cur
}

// RelativeCell offsets (row, col) by delta cells along d and reports whether
// the result is a used cell.
func (g *Grid) RelativeCell(row, col int, d Direction, delta int) (CellKey, bool) {
	dr, dc := d.Step()
	k := CellKey{Row: row + dr*delta, Col: col + dc*delta}
	if !g.used(k.Row, k.Col) {
		return CellKey{}, false
	}
	return k, true
}

// WordEdge moves to the first (end=false) or last cell of the selected word.
func (g *Grid) WordEdge(cur Selection, end bool) (Selection, bool) {
	clue, ok := g.Clue(cur.Direction, cur.Number)
	if !ok {
		return cur, false
	}
	delta := 0
	if end {
		delta = clue.Len() - 1
	}
	k, ok := g.RelativeCell(clue.Row, clue.Col, clue.Direction, delta)
	if !ok {
		return cur, false
	}
	next, _ := g.resolve(k.Row, k.Col, cur.Direction)
	return next, next != cur
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
