package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bodul/dailyword/internal/game"
	"github.com/bodul/dailyword/internal/puzzles"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Store resolves puzzles and holds live game sessions in memory.
type Store struct {
	mu       sync.RWMutex
	puzzles  puzzles.Repository
	fallback string
	cfg      game.Config
	logger   *log.Logger
	games    map[string]*GameSession
}

// NewStore creates an empty session store over repo. fallback is played
// when nothing is scheduled for today.
func NewStore(repo puzzles.Repository, fallback *puzzles.Puzzle, cfg game.Config, logger *log.Logger) *Store {
	cfg.DefaultPuzzle = fallback.Clues()
	return &Store{
		puzzles:  repo,
		fallback: fallback.ID,
		cfg:      cfg,
		logger:   logger,
		games:    make(map[string]*GameSession),
	}
}

// Puzzles exposes the puzzle repository.
func (s *Store) Puzzles() puzzles.Repository { return s.puzzles }

// resolvePuzzle returns the requested puzzle, or today's, or nil for the
// fallback.
func (s *Store) resolvePuzzle(ctx context.Context, puzzleID string) (*puzzles.Puzzle, error) {
	if puzzleID != "" {
		return s.puzzles.Get(ctx, puzzleID)
	}
	p, err := puzzles.Today(ctx, s.puzzles)
	if errors.Is(err, puzzles.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// CreateGame starts a session on puzzleID, today's puzzle when empty, or
// the fallback puzzle when nothing is scheduled.
func (s *Store) CreateGame(ctx context.Context, puzzleID string, tracker func(id string) game.Tracker) (*GameSession, error) {
	p, err := s.resolvePuzzle(ctx, puzzleID)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	opts := []game.Option{game.WithLogger(s.logger.With("session", id))}
	if tracker != nil {
		opts = append(opts, game.WithTracker(tracker(id)))
	}
	engine, err := game.NewSession(s.cfg, opts...)
	if err != nil {
		return nil, err
	}

	gs := &GameSession{ID: id, CreatedAt: time.Now(), puzzleID: s.fallback, engine: engine}
	if p != nil {
		if err := engine.Load(p.Clues()); err != nil {
			return nil, fmt.Errorf("load puzzle %s: %w", p.ID, err)
		}
		gs.puzzleID = p.ID
	}
	engine.Start()

	s.mu.Lock()
	s.games[gs.ID] = gs
	s.mu.Unlock()

	return gs, nil
}

// GetGame returns a session by ID, or nil if not found.
func (s *Store) GetGame(id string) *GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[id]
}

// ListGames returns all sessions, oldest first.
func (s *Store) ListGames() []*GameSession {
	s.mu.RLock()
	list := make([]*GameSession, 0, len(s.games))
	for _, g := range s.games {
		list = append(list, g)
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list
}

// Prune removes sessions created before cutoff.
func (s *Store) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, g := range s.games {
		if g.CreatedAt.Before(cutoff) {
			delete(s.games, id)
			n++
		}
	}
	return n
}
