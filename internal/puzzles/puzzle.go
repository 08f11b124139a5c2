package puzzles

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/bodul/dailyword/internal/game"
)

// DayLayout formats the day a puzzle is scheduled for.
const DayLayout = "2006-01-02"

var ErrNotFound = errors.New("puzzle not found")

// Puzzle is a stored puzzle document.
type Puzzle struct {
	ID        string                    `json:"id" yaml:"id"`
	Title     string                    `json:"title" yaml:"title"`
	Author    string                    `json:"author,omitempty" yaml:"author"`
	Date      string                    `json:"date,omitempty" yaml:"date"`
	Across    map[string]game.ClueEntry `json:"across" yaml:"across"`
	Down      map[string]game.ClueEntry `json:"down" yaml:"down"`
	CreatedAt time.Time                 `json:"created_at" yaml:"-"`
}

// Clues returns the clue input consumed by the game engine.
func (p *Puzzle) Clues() game.ClueInput {
	return game.ClueInput{Across: p.Across, Down: p.Down}
}

// Clone returns a copy of p that shares no maps with it.
func (p *Puzzle) Clone() *Puzzle {
	c := *p
	c.Across = maps.Clone(p.Across)
	c.Down = maps.Clone(p.Down)
	return &c
}

// Public returns a copy of p with every answer removed.
func (p *Puzzle) Public() *Puzzle {
	c := p.Clone()
	for _, entries := range []map[string]game.ClueEntry{c.Across, c.Down} {
		for n, e := range entries {
			e.Answer = ""
			entries[n] = e
		}
	}
	return c
}

// Validate checks required fields and that the grid builds.
func (p *Puzzle) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errors.New("title is required")
	}
	if p.Date != "" {
		if _, err := time.Parse(DayLayout, p.Date); err != nil {
			return fmt.Errorf("invalid date %q: want YYYY-MM-DD", p.Date)
		}
	}
	for _, d := range game.Directions {
		entries := p.Across
		if d == game.Down {
			entries = p.Down
		}
		for n, e := range entries {
			if strings.TrimSpace(e.Clue) == "" {
				return fmt.Errorf("%s-%s: clue text is required", n, d)
			}
		}
	}
	if _, err := game.Build(p.Clues(), game.BuildOptions{}); err != nil {
		return err
	}
	return nil
}

// DefaultPuzzle is played when no puzzle is stored.
func DefaultPuzzle() *Puzzle {
	return &Puzzle{
		ID:     "default",
		Title:  "Puzzle du jour",
		Author: "dailyword",
		Across: map[string]game.ClueEntry{
			"1": {Row: 0, Col: 0, Answer: "CRANE", Clue: "Construction lifter"},
			"4": {Row: 4, Col: 0, Answer: "TOWEL", Clue: "Beach essential"},
		},
		Down: map[string]game.ClueEntry{
			"1": {Row: 0, Col: 0, Answer: "CHEST", Clue: "Treasure holder"},
			"2": {Row: 0, Col: 2, Answer: "ARROW", Clue: "Quiver item"},
			"3": {Row: 0, Col: 4, Answer: "EASEL", Clue: "Painter's stand"},
		},
	}
}
