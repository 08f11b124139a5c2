package game

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction is the axis a clue runs along.
type Direction string

const (
	Across Direction = "across"
	Down   Direction = "down"
)

// Directions lists both axes in numbering order.
var Directions = []Direction{Across, Down}

// Other returns the perpendicular axis.
func (d Direction) Other() Direction {
	if d == Across {
		return Down
	}
	return Across
}

// Step returns the row/col increment of one cell along d.
func (d Direction) Step() (dRow, dCol int) {
	if d == Across {
		return 0, 1
	}
	return 1, 0
}

// ParseDirection accepts "across" or "down" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Across:
		return Across, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// CellKey addresses a grid cell.
type CellKey struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (k CellKey) String() string {
	return strconv.Itoa(k.Row) + "-" + strconv.Itoa(k.Col)
}

// WordID identifies one clue independently of its crossing clues.
type WordID struct {
	Number    string
	Direction Direction
}

func (w WordID) String() string {
	return w.Number + "-" + string(w.Direction)
}

// MarshalText lets WordID be used as a JSON object key.
func (w WordID) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *WordID) UnmarshalText(b []byte) error {
	id, err := ParseWordID(string(b))
	if err != nil {
		return err
	}
	*w = id
	return nil
}

// ParseWordID parses "<number>-<direction>".
func ParseWordID(s string) (WordID, error) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return WordID{}, fmt.Errorf("malformed word id %q", s)
	}
	dir, err := ParseDirection(s[i+1:])
	if err != nil {
		return WordID{}, fmt.Errorf("malformed word id %q: %w", s, err)
	}
	return WordID{Number: s[:i], Direction: dir}, nil
}

// wordSet is a set of word ids.
type wordSet map[WordID]struct{}

func newWordSet(ids ...WordID) wordSet {
	s := make(wordSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s wordSet) sorted() []WordID {
	out := make([]WordID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sortWordIDs(out)
	return out
}

// sortWordIDs orders ids by direction (across first) then numeric clue number.
func sortWordIDs(ids []WordID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && wordLess(ids[j], ids[j-1]); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func wordLess(a, b WordID) bool {
	if a.Direction != b.Direction {
		return a.Direction == Across
	}
	return numberLess(a.Number, b.Number)
}

// numberLess compares clue numbers numerically, falling back to string order.
func numberLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
