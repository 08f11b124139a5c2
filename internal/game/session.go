package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultRecentHold is how long newly committed words stay in the recently
// completed set.
const DefaultRecentHold = 1500 * time.Millisecond

var (
	ErrNoPuzzle   = errors.New("no puzzle loaded")
	ErrUnknownKey = errors.New("unknown key")
)

// Config is injected at session construction.
type Config struct {
	// DefaultPuzzle is loaded by NewSession when it has clues.
	DefaultPuzzle ClueInput
	Square        bool
	RecentHold    time.Duration
}

// DefaultConfig returns a config without a default puzzle.
func DefaultConfig() Config {
	return Config{RecentHold: DefaultRecentHold}
}

// Option customizes a Session.
type Option func(*Session)

func WithClock(c Clock) Option { return func(s *Session) { s.clock = c } }

func WithTracker(t Tracker) Option { return func(s *Session) { s.tracker = t } }

func WithLogger(l *log.Logger) Option { return func(s *Session) { s.logger = l } }

// Session owns one player's grid, cursor and completion state. It is not
// safe for concurrent use; callers serialize actions.
type Session struct {
	cfg     Config
	clock   Clock
	tracker Tracker
	logger  *log.Logger

	grid   *Grid
	board  Board
	sel    Selection
	hasSel bool
	record Record
	commit commitState
	stage  int

	started   bool
	completed bool
	startedAt time.Time
}

// NewSession creates a session and loads cfg.DefaultPuzzle when present.
// A structurally invalid default puzzle is an error.
func NewSession(cfg Config, opts ...Option) (*Session, error) {
	if cfg.RecentHold <= 0 {
		cfg.RecentHold = DefaultRecentHold
	}
	s := &Session{
		cfg:     cfg,
		clock:   SystemClock{},
		tracker: nopTracker{},
		logger:  log.Default(),
		record:  Record{},
		commit:  newCommitState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(cfg.DefaultPuzzle.Across)+len(cfg.DefaultPuzzle.Down) > 0 {
		if err := s.Load(cfg.DefaultPuzzle); err != nil {
			return nil, fmt.Errorf("load default puzzle: %w", err)
		}
	}
	return s, nil
}

// Load rebuilds the grid from in, resets the cursor to the first across
// clue and clears all completion state. On error the session is unchanged.
func (s *Session) Load(in ClueInput) error {
	g, err := Build(in, BuildOptions{Square: s.cfg.Square})
	if err != nil {
		return err
	}
	s.grid = g
	s.board = NewBoard(g)
	s.sel, s.hasSel = g.InitialSelection()
	s.record = Record{}
	s.commit = newCommitState()
	s.started = false
	s.completed = false
	s.startedAt = s.clock.Now()
	s.logger.Debug("puzzle loaded", "rows", g.Rows, "cols", g.Cols, "words", g.WordCount())
	return nil
}

// Grid returns the static grid, nil before a puzzle is loaded.
func (s *Session) Grid() *Grid { return s.grid }

// Board returns the current guesses.
func (s *Session) Board() Board { return s.board }

// Selection returns the cursor and false before a puzzle is loaded.
func (s *Session) Selection() (Selection, bool) { return s.sel, s.hasSel }

// Record returns a copy of the committed completion record.
func (s *Session) Record() Record { return s.record.clone() }

// Pending returns the batch published but not yet committed.
func (s *Session) Pending() []WordID { return s.commit.pending.sorted() }

// Recent returns the batch committed within the last RecentHold.
func (s *Session) Recent() []WordID { return s.commit.recent.sorted() }

// Phase returns the commit protocol phase.
func (s *Session) Phase() Phase { return s.commit.phase }

// Busy reports whether Tick still has work to do.
func (s *Session) Busy() bool { return s.commit.busy() }

// Complete reports whether every word is in the record.
func (s *Session) Complete() bool {
	return s.grid != nil && len(s.record) == s.grid.WordCount()
}

// Editable reports whether (row, col) can be changed: neither crossing word
// may be complete.
func (s *Session) Editable(row, col int) bool {
	if s.grid == nil || !s.grid.used(row, col) {
		return false
	}
	cell := s.grid.Cells[row][col]
	for _, d := range Directions {
		if n := cell.Clue(d); n != "" && s.record.Has(WordID{Number: n, Direction: d}) {
			return false
		}
	}
	return true
}

// Start marks the beginning of play. Only the first call after a load
// notifies the tracker.
func (s *Session) Start() {
	if s.grid == nil || s.started {
		return
	}
	s.started = true
	s.startedAt = s.clock.Now()
	s.tracker.Track(Event{Kind: EventStart, At: s.startedAt})
}

// Share notifies the tracker of a share action.
func (s *Session) Share() {
	s.tracker.Track(Event{Kind: EventShare, At: s.clock.Now()})
}

// SelectCell moves the cursor to a clicked cell.
func (s *Session) SelectCell(row, col int) bool {
	if !s.hasSel {
		return false
	}
	var changed bool
	s.sel, changed = s.grid.SelectCell(s.sel, row, col)
	return changed
}

// MoveRelative moves the cursor by an arrow-key delta.
func (s *Session) MoveRelative(dRow, dCol int) (bool, error) {
	if !s.hasSel {
		return false, nil
	}
	next, changed, err := s.grid.MoveRelative(s.sel, dRow, dCol)
	if err != nil {
		return false, err
	}
	s.sel = next
	return changed, nil
}

// ToggleDirection switches axis on the current cell when possible.
func (s *Session) ToggleDirection() bool {
	if !s.hasSel {
		return false
	}
	var changed bool
	s.sel, changed = s.grid.ToggleDirection(s.sel)
	return changed
}

// MoveToClueStart jumps to a clue, as when a clue is clicked in the list.
func (s *Session) MoveToClueStart(d Direction, number string) bool {
	if !s.hasSel {
		return false
	}
	var changed bool
	s.sel, changed = s.grid.MoveToClueStart(s.sel, d, number)
	return changed
}

// MoveWordEdge moves to the first (Home) or last (End) cell of the word.
func (s *Session) MoveWordEdge(end bool) bool {
	if !s.hasSel {
		return false
	}
	var changed bool
	s.sel, changed = s.grid.WordEdge(s.sel, end)
	return changed
}

// Type enters ch at the cursor.
func (s *Session) Type(ch string, stage int) bool {
	if !s.hasSel {
		return false
	}
	return s.EnterCharacter(s.sel.Row, s.sel.Col, ch, stage)
}

// EnterCharacter writes ch at (row, col) unless the cell is locked, then
// advances the cursor one cell along the current direction when that cell
// is used. stage tags any word this entry completes.
func (s *Session) EnterCharacter(row, col int, ch string, stage int) bool {
	if s.grid == nil || !s.grid.used(row, col) {
		return false
	}
	guess, ok := normalizeGuess(ch)
	if !ok {
		return false
	}
	s.stage = stage
	changed := false
	if s.Editable(row, col) && s.board.Guess(row, col) != guess {
		s.setBoard(s.board.With(row, col, guess), stage)
		changed = true
	}
	if k, ok := s.grid.RelativeCell(row, col, s.sel.Direction, 1); ok {
		next, _ := s.grid.resolve(k.Row, k.Col, s.sel.Direction)
		if next != s.sel {
			s.sel = next
			changed = true
		}
	}
	return changed
}

// Backspace clears the selected cell when it holds an editable guess. A
// locked guess blocks the key entirely. On an empty cell it walks back
// along the current direction to the nearest editable cell, clears it and
// moves there.
func (s *Session) Backspace() bool {
	if !s.hasSel {
		return false
	}
	cur := s.sel
	if s.board.Guess(cur.Row, cur.Col) != "" {
		if !s.Editable(cur.Row, cur.Col) {
			return false
		}
		s.setBoard(s.board.With(cur.Row, cur.Col, ""), s.stage)
		return true
	}
	dr, dc := cur.Direction.Step()
	for r, c := cur.Row-dr, cur.Col-dc; s.grid.InBounds(r, c); r, c = r-dr, c-dc {
		if !s.Editable(r, c) {
			continue
		}
		s.setBoard(s.board.With(r, c, ""), s.stage)
		s.sel, _ = s.grid.resolve(r, c, cur.Direction)
		return true
	}
	return false
}

// Delete clears the selected cell when editable. The cursor never moves.
func (s *Session) Delete() bool {
	if !s.hasSel {
		return false
	}
	if !s.Editable(s.sel.Row, s.sel.Col) || s.board.Guess(s.sel.Row, s.sel.Col) == "" {
		return false
	}
	s.setBoard(s.board.With(s.sel.Row, s.sel.Col, ""), s.stage)
	return true
}

// setBoard replaces the guesses and runs the completion pass against the new
// value.
func (s *Session) setBoard(b Board, stage int) {
	s.board = b
	correct := CorrectWords(s.grid, b)

	var carry Record
	if s.commit.inFlight() {
		carry = s.commit.target
	}
	next, newly := DiffCompletion(s.grid, s.record, carry, correct, stage, s.logger)

	if s.commit.inFlight() {
		if next.Equal(s.commit.target) {
			return
		}
		if len(newly) == 0 {
			s.commit.cancel()
		}
	}
	if len(newly) > 0 {
		s.commit.begin(next, newly)
		return
	}
	if !next.Equal(s.record) {
		s.install(next)
	}
}

func (s *Session) install(r Record) {
	s.record = r
	if s.completed || !s.Complete() {
		return
	}
	s.completed = true
	now := s.clock.Now()
	elapsed := now.Sub(s.startedAt)
	s.logger.Info("puzzle complete", "elapsed", elapsed)
	s.tracker.Track(Event{Kind: EventComplete, At: now, Elapsed: elapsed})
}

// Tick is a frame boundary: it moves the staged commit forward one phase
// and expires the recently completed set. It reports whether observable
// state changed.
func (s *Session) Tick() bool {
	install, changed := s.commit.step(s.clock.Now(), s.cfg.RecentHold)
	if install != nil {
		s.install(install)
	}
	return changed
}

// HandleKey dispatches a keyboard key named like DOM KeyboardEvent.key.
func (s *Session) HandleKey(key string, stage int) (bool, error) {
	if s.grid == nil {
		return false, ErrNoPuzzle
	}
	switch key {
	case "ArrowUp":
		return s.MoveRelative(-1, 0)
	case "ArrowDown":
		return s.MoveRelative(1, 0)
	case "ArrowLeft":
		return s.MoveRelative(0, -1)
	case "ArrowRight":
		return s.MoveRelative(0, 1)
	case "Tab", " ":
		return s.ToggleDirection(), nil
	case "Home":
		return s.MoveWordEdge(false), nil
	case "End":
		return s.MoveWordEdge(true), nil
	case "Backspace":
		return s.Backspace(), nil
	case "Delete":
		return s.Delete(), nil
	}
	if _, ok := normalizeGuess(key); ok {
		return s.Type(key, stage), nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}
