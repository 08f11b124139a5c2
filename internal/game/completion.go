package game

import (
	"strings"

	"github.com/charmbracelet/log"
)

// Completion is what is kept for a finished word: the time stage it was
// finished in.
type Completion struct {
	Stage int `json:"stage"`
}

// Record maps every complete and correct word to its completion.
type Record map[WordID]Completion

// Has reports whether id is complete.
func (r Record) Has(id WordID) bool {
	_, ok := r[id]
	return ok
}

// Equal compares ids and stages.
func (r Record) Equal(o Record) bool {
	if len(r) != len(o) {
		return false
	}
	for id, c := range r {
		if oc, ok := o[id]; !ok || oc != c {
			return false
		}
	}
	return true
}

func (r Record) clone() Record {
	out := make(Record, len(r))
	for id, c := range r {
		out[id] = c
	}
	return out
}

// IDs returns the recorded word ids in clue order.
func (r Record) IDs() []WordID {
	ids := make([]WordID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sortWordIDs(ids)
	return ids
}

// CorrectWords walks every clue and returns the words whose cells are all
// filled with the right letters, in clue order.
func CorrectWords(g *Grid, b Board) []WordID {
	return correctSet(g, b).sorted()
}

func correctSet(g *Grid, b Board) wordSet {
	out := wordSet{}
	for _, d := range Directions {
		for _, clue := range g.Clues[d] {
			if wordCorrect(g, b, clue.ID()) {
				out[clue.ID()] = struct{}{}
			}
		}
	}
	return out
}

func wordCorrect(g *Grid, b Board, id WordID) bool {
	keys := g.WordCells(id)
	if len(keys) == 0 {
		return false
	}
	for _, k := range keys {
		if !g.used(k.Row, k.Col) {
			return false
		}
		guess := b.Guess(k.Row, k.Col)
		if guess == "" || !strings.EqualFold(guess, g.Cells[k.Row][k.Col].Answer) {
			return false
		}
	}
	return true
}

// DiffCompletion builds the next record from the freshly computed correct
// set. Words already in prev keep their stage; words found in carry (an
// uncommitted batch) keep the stage they were tagged with there; other new
// words get stage. The second result lists words absent from prev.
func DiffCompletion(g *Grid, prev, carry Record, correct []WordID, stage int, logger *log.Logger) (Record, []WordID) {
	for id := range prev {
		if _, ok := g.Clue(id.Direction, id.Number); !ok && logger != nil {
			logger.Warn("completion entry references unknown clue", "word", id.String())
		}
	}

	next := make(Record, len(correct))
	var newly []WordID
	for _, id := range correct {
		if _, ok := g.Clue(id.Direction, id.Number); !ok {
			if logger != nil {
				logger.Warn("skipping completion check for unknown clue", "word", id.String())
			}
			continue
		}
		if c, ok := prev[id]; ok {
			next[id] = c
			continue
		}
		if c, ok := carry[id]; ok {
			next[id] = c
		} else {
			next[id] = Completion{Stage: stage}
		}
		newly = append(newly, id)
	}
	return next, newly
}
