package game

// Snapshot is a read-only copy of a session for renderers and share images.
// Nothing in it aliases session storage.
type Snapshot struct {
	Rows      int                  `json:"rows"`
	Cols      int                  `json:"cols"`
	Cells     [][]Cell             `json:"cells"`
	Clues     map[Direction][]Clue `json:"clues"`
	Selection *Selection           `json:"selection,omitempty"`
	Completed Record               `json:"completed"`
	Pending   []WordID             `json:"pending"`
	Recent    []WordID             `json:"recent"`
	Phase     Phase                `json:"phase"`
	Complete  bool                 `json:"complete"`
}

// Snapshot copies the current state. Before a puzzle is loaded only the
// completion fields are set.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Completed: s.record.clone(),
		Pending:   s.Pending(),
		Recent:    s.Recent(),
		Phase:     s.commit.phase,
		Complete:  s.Complete(),
	}
	if s.grid == nil {
		return snap
	}
	snap.Rows, snap.Cols = s.grid.Rows, s.grid.Cols
	snap.Cells = make([][]Cell, s.grid.Rows)
	for r, row := range s.grid.Cells {
		snap.Cells[r] = make([]Cell, len(row))
		for c, cell := range row {
			cell.Guess = s.board.Guess(r, c)
			snap.Cells[r][c] = cell
		}
	}
	snap.Clues = make(map[Direction][]Clue, len(s.grid.Clues))
	for d, list := range s.grid.Clues {
		snap.Clues[d] = append([]Clue(nil), list...)
	}
	if s.hasSel {
		sel := s.sel
		snap.Selection = &sel
	}
	return snap
}
