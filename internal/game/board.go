package game

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Board holds the player's guesses. It is a value: With returns a new Board
// and never touches the receiver's storage.
type Board struct {
	rows [][]string
}

// NewBoard returns an empty board sized to g.
func NewBoard(g *Grid) Board {
	rows := make([][]string, g.Rows)
	for r := range rows {
		rows[r] = make([]string, g.Cols)
	}
	return Board{rows: rows}
}

// Guess returns the guess at (row, col), "" when empty or out of range.
func (b Board) Guess(row, col int) string {
	if row < 0 || row >= len(b.rows) || col < 0 || col >= len(b.rows[row]) {
		return ""
	}
	return b.rows[row][col]
}

// With returns a copy of b with (row, col) set to guess. Only the outer slice
// and the touched row are copied.
func (b Board) With(row, col int, guess string) Board {
	if b.Guess(row, col) == guess {
		return b
	}
	rows := make([][]string, len(b.rows))
	copy(rows, b.rows)
	line := make([]string, len(rows[row]))
	copy(line, rows[row])
	line[col] = guess
	rows[row] = line
	return Board{rows: rows}
}

// Filled counts non-empty guesses.
func (b Board) Filled() int {
	n := 0
	for _, row := range b.rows {
		for _, g := range row {
			if g != "" {
				n++
			}
		}
	}
	return n
}

// Rows returns a deep copy of the guesses.
func (b Board) Rows() [][]string {
	out := make([][]string, len(b.rows))
	for i, row := range b.rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

// normalizeGuess accepts a single letter or digit and uppercases it.
func normalizeGuess(s string) (string, bool) {
	if utf8.RuneCountInString(s) != 1 {
		return "", false
	}
	r, _ := utf8.DecodeRuneInString(s)
	if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
		return "", false
	}
	return strings.ToUpper(s), true
}
