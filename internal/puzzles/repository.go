package puzzles

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Pointer records which puzzle is the puzzle of the day.
type Pointer struct {
	PuzzleID string `json:"puzzle_id"`
	Day      string `json:"day"`
}

// Repository stores puzzles and the puzzle-of-the-day pointer.
type Repository interface {
	Save(ctx context.Context, p *Puzzle) (*Puzzle, error)
	Get(ctx context.Context, id string) (*Puzzle, error)
	// List returns puzzles oldest first.
	List(ctx context.Context) ([]*Puzzle, error)
	Pointer(ctx context.Context) (Pointer, error)
	SetPointer(ctx context.Context, ptr Pointer) error
}

// Today resolves the puzzle of the day.
func Today(ctx context.Context, repo Repository) (*Puzzle, error) {
	ptr, err := repo.Pointer(ctx)
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, ptr.PuzzleID)
}

// MemoryRepository keeps puzzles in memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	puzzles map[string]*Puzzle
	ptr     *Pointer
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{puzzles: make(map[string]*Puzzle)}
}

// Save stores a copy of p, assigning an ID and creation time when missing.
func (m *MemoryRepository) Save(_ context.Context, p *Puzzle) (*Puzzle, error) {
	stamp(p)

	m.mu.Lock()
	m.puzzles[p.ID] = p.Clone()
	m.mu.Unlock()

	return p, nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*Puzzle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.puzzles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *MemoryRepository) List(_ context.Context) ([]*Puzzle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*Puzzle, 0, len(m.puzzles))
	for _, p := range m.puzzles {
		list = append(list, p.Clone())
	}
	sortOldestFirst(list)
	return list, nil
}

func (m *MemoryRepository) Pointer(_ context.Context) (Pointer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ptr == nil {
		return Pointer{}, ErrNotFound
	}
	return *m.ptr, nil
}

func (m *MemoryRepository) SetPointer(_ context.Context, ptr Pointer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.puzzles[ptr.PuzzleID]; !ok {
		return ErrNotFound
	}
	m.ptr = &ptr
	return nil
}

func stamp(p *Puzzle) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
}

func sortOldestFirst(list []*Puzzle) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
