package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bodul/dailyword/internal/game"
)

var errInvalidInput = errors.New("invalid input")

// Input is one player action, as posted over HTTP or the websocket.
type Input struct {
	Type      string `json:"type"` // "key", "click" or "clue"
	Key       string `json:"key,omitempty"`
	Stage     int    `json:"stage,omitempty"`
	Row       int    `json:"row,omitempty"`
	Col       int    `json:"col,omitempty"`
	Direction string `json:"direction,omitempty"`
	Number    string `json:"number,omitempty"`
}

// GameSession is one player's game, serialized behind a mutex.
type GameSession struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	mu       sync.Mutex
	puzzleID string
	engine   *game.Session
}

// Apply runs one input and reports whether visible state changed.
func (g *GameSession) Apply(in Input) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch in.Type {
	case "key":
		return g.engine.HandleKey(in.Key, in.Stage)
	case "click":
		return g.engine.SelectCell(in.Row, in.Col), nil
	case "clue":
		dir, err := game.ParseDirection(in.Direction)
		if err != nil {
			return false, fmt.Errorf("%w: %v", errInvalidInput, err)
		}
		return g.engine.MoveToClueStart(dir, in.Number), nil
	}
	return false, fmt.Errorf("%w: unknown type %q", errInvalidInput, in.Type)
}

// Load swaps the puzzle in place.
func (g *GameSession) Load(puzzleID string, in game.ClueInput) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.engine.Load(in); err != nil {
		return err
	}
	g.puzzleID = puzzleID
	g.engine.Start()
	return nil
}

// Tick advances the completion animation by one frame.
func (g *GameSession) Tick() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Tick()
}

// Busy reports whether Tick has pending work.
func (g *GameSession) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Busy()
}

func (g *GameSession) Share() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.engine.Share()
}

// PuzzleID returns the puzzle currently loaded.
func (g *GameSession) PuzzleID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.puzzleID
}

// View returns the puzzle ID and state as of the same instant.
func (g *GameSession) View() (string, game.Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.puzzleID, g.engine.Snapshot()
}

// Snapshot returns a copy of the session state.
func (g *GameSession) Snapshot() game.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.engine.Snapshot()
}
