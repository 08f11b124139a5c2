package game

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxDimension bounds grid rows and columns.
const MaxDimension = 256

// ClueEntry places one answer on the grid.
type ClueEntry struct {
	Row    int    `json:"row" yaml:"row"`
	Col    int    `json:"col" yaml:"col"`
	Answer string `json:"answer,omitempty" yaml:"answer"`
	Clue   string `json:"clue" yaml:"clue"`
}

// ClueInput is the declarative puzzle content, keyed by clue number.
type ClueInput struct {
	Across map[string]ClueEntry `json:"across" yaml:"across"`
	Down   map[string]ClueEntry `json:"down" yaml:"down"`
}

func (in ClueInput) entries(d Direction) map[string]ClueEntry {
	if d == Across {
		return in.Across
	}
	return in.Down
}

// Cell is one square of the grid. Unused cells only carry their position.
type Cell struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Used   bool   `json:"used"`
	Guess  string `json:"guess,omitempty"`
	Answer string `json:"answer,omitempty"`
	Number string `json:"number,omitempty"`
	Across string `json:"across,omitempty"`
	Down   string `json:"down,omitempty"`
}

// Clue returns the clue number owning the cell along d, or "".
func (c Cell) Clue(d Direction) string {
	if d == Across {
		return c.Across
	}
	return c.Down
}

// Clue is a placed answer.
type Clue struct {
	Number    string    `json:"number"`
	Direction Direction `json:"direction"`
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Answer    string    `json:"answer"`
	Text      string    `json:"clue"`
}

// ID returns the clue's word id.
func (c Clue) ID() WordID {
	return WordID{Number: c.Number, Direction: c.Direction}
}

// Len is the answer length in cells.
func (c Clue) Len() int {
	return utf8.RuneCountInString(c.Answer)
}

// Grid is the immutable logical grid derived from a ClueInput.
// Cells carry empty guesses; guesses live in a Board.
type Grid struct {
	Rows  int                  `json:"rows"`
	Cols  int                  `json:"cols"`
	Cells [][]Cell             `json:"cells"`
	Clues map[Direction][]Clue `json:"clues"`
	index map[WordID]int
}

// BuildOptions tunes grid construction.
type BuildOptions struct {
	// Square pads the bounding box to a square.
	Square bool
}

// BuildError reports a structural defect in puzzle content.
type BuildError struct {
	Word   WordID
	Cell   *CellKey
	Reason string
}

func (e *BuildError) Error() string {
	var b strings.Builder
	b.WriteString("invalid puzzle")
	if e.Word.Number != "" {
		fmt.Fprintf(&b, " at %s", e.Word)
	}
	if e.Cell != nil {
		fmt.Fprintf(&b, " cell %s", e.Cell)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// Build derives the grid from clue input. It refuses to produce a grid when
// the input is structurally inconsistent.
func Build(in ClueInput, opts BuildOptions) (*Grid, error) {
	clues := map[Direction][]Clue{}
	rows, cols := 0, 0
	for _, d := range Directions {
		entries := in.entries(d)
		numbers := make([]string, 0, len(entries))
		for n := range entries {
			numbers = append(numbers, n)
		}
		sortNumbers(numbers)

		list := make([]Clue, 0, len(numbers))
		for _, n := range numbers {
			e := entries[n]
			id := WordID{Number: n, Direction: d}
			if strings.TrimSpace(n) == "" {
				return nil, &BuildError{Word: id, Reason: "empty clue number"}
			}
			if e.Answer == "" {
				return nil, &BuildError{Word: id, Reason: "empty answer"}
			}
			if e.Row < 0 || e.Col < 0 {
				return nil, &BuildError{Word: id, Cell: &CellKey{e.Row, e.Col}, Reason: "negative coordinate"}
			}
			if e.Row >= MaxDimension || e.Col >= MaxDimension {
				return nil, &BuildError{Word: id, Cell: &CellKey{e.Row, e.Col},
					Reason: fmt.Sprintf("coordinate beyond the %d cell limit", MaxDimension)}
			}
			c := Clue{Number: n, Direction: d, Row: e.Row, Col: e.Col, Answer: e.Answer, Text: e.Clue}
			dr, dc := d.Step()
			span := c.Len() - 1
			if span >= MaxDimension || e.Row+dr*span >= MaxDimension || e.Col+dc*span >= MaxDimension {
				return nil, &BuildError{Word: id, Cell: &CellKey{e.Row, e.Col},
					Reason: fmt.Sprintf("answer runs past the %d cell limit", MaxDimension)}
			}
			rows = max(rows, e.Row+dr*span+1)
			cols = max(cols, e.Col+dc*span+1)
			list = append(list, c)
		}
		clues[d] = list
	}
	if len(clues[Across])+len(clues[Down]) == 0 {
		return nil, &BuildError{Reason: "no clues"}
	}
	if opts.Square {
		rows = max(rows, cols)
		cols = rows
	}

	cells := make([][]Cell, rows)
	for r := range cells {
		cells[r] = make([]Cell, cols)
		for c := range cells[r] {
			cells[r][c] = Cell{Row: r, Col: c}
		}
	}

	g := &Grid{Rows: rows, Cols: cols, Cells: cells, Clues: clues, index: map[WordID]int{}}
	for _, d := range Directions {
		for i, clue := range clues[d] {
			g.index[clue.ID()] = i
			if err := g.place(clue); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

func (g *Grid) place(clue Clue) error {
	dr, dc := clue.Direction.Step()
	i := 0
	for _, ch := range clue.Answer {
		r, c := clue.Row+dr*i, clue.Col+dc*i
		cell := &g.Cells[r][c]
		answer := strings.ToUpper(string(ch))
		if cell.Used && cell.Answer != answer {
			return &BuildError{
				Word:   clue.ID(),
				Cell:   &CellKey{r, c},
				Reason: fmt.Sprintf("answer %q conflicts with crossing letter %q", answer, cell.Answer),
			}
		}
		if owner := cell.Clue(clue.Direction); owner != "" {
			return &BuildError{
				Word:   clue.ID(),
				Cell:   &CellKey{r, c},
				Reason: fmt.Sprintf("overlaps %s along the same direction", WordID{Number: owner, Direction: clue.Direction}),
			}
		}
		cell.Used = true
		cell.Answer = answer
		if clue.Direction == Across {
			cell.Across = clue.Number
		} else {
			cell.Down = clue.Number
		}
		if i == 0 && cell.Number == "" {
			cell.Number = clue.Number
		}
		i++
	}
	return nil
}

func sortNumbers(ns []string) {
	for i := 1; i < len(ns); i++ {
		for j := i; j > 0 && numberLess(ns[j], ns[j-1]); j-- {
			ns[j], ns[j-1] = ns[j-1], ns[j]
		}
	}
}

// InBounds reports whether (row, col) is on the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.Rows && col >= 0 && col < g.Cols
}

// Cell returns the cell at (row, col) and false when out of bounds.
func (g *Grid) Cell(row, col int) (Cell, bool) {
	if !g.InBounds(row, col) {
		return Cell{}, false
	}
	return g.Cells[row][col], true
}

func (g *Grid) used(row, col int) bool {
	return g.InBounds(row, col) && g.Cells[row][col].Used
}

// Clue looks up a clue by direction and number.
func (g *Grid) Clue(d Direction, number string) (Clue, bool) {
	i, ok := g.index[WordID{Number: number, Direction: d}]
	if !ok {
		return Clue{}, false
	}
	return g.Clues[d][i], true
}

// WordCells returns the cell span of a word, or nil for an unknown id.
func (g *Grid) WordCells(id WordID) []CellKey {
	clue, ok := g.Clue(id.Direction, id.Number)
	if !ok {
		return nil
	}
	dr, dc := id.Direction.Step()
	keys := make([]CellKey, clue.Len())
	for i := range keys {
		keys[i] = CellKey{Row: clue.Row + dr*i, Col: clue.Col + dc*i}
	}
	return keys
}

// FirstClue returns the first across clue, or the first down clue when the
// puzzle has no across entries.
func (g *Grid) FirstClue() (Clue, bool) {
	for _, d := range Directions {
		if len(g.Clues[d]) > 0 {
			return g.Clues[d][0], true
		}
	}
	return Clue{}, false
}

// WordCount is the number of clues on the grid.
func (g *Grid) WordCount() int {
	return len(g.Clues[Across]) + len(g.Clues[Down])
}
