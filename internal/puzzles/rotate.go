package puzzles

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// Rotator advances the puzzle-of-the-day pointer once per day.
type Rotator struct {
	repo     Repository
	logger   *log.Logger
	location *time.Location
}

// NewRotator rotates on day boundaries in loc (UTC when nil).
func NewRotator(repo Repository, logger *log.Logger, loc *time.Location) *Rotator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Rotator{repo: repo, logger: logger, location: loc}
}

// Rotate points the daily pointer at the puzzle for now's day. A puzzle
// dated for that day wins; otherwise the pointer moves to the next stored
// puzzle, wrapping around. It returns the current puzzle and whether the
// pointer moved.
func (r *Rotator) Rotate(ctx context.Context, now time.Time) (*Puzzle, bool, error) {
	day := now.In(r.location).Format(DayLayout)

	ptr, err := r.repo.Pointer(ctx)
	switch {
	case err == nil && ptr.Day == day:
		p, err := r.repo.Get(ctx, ptr.PuzzleID)
		return p, false, err
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	list, err := r.repo.List(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(list) == 0 {
		return nil, false, ErrNotFound
	}

	next := pick(list, ptr.PuzzleID, day)
	if err := r.repo.SetPointer(ctx, Pointer{PuzzleID: next.ID, Day: day}); err != nil {
		return nil, false, err
	}
	r.logger.Info("puzzle du jour", "day", day, "puzzle", next.ID, "title", next.Title)
	return next, true, nil
}

func pick(list []*Puzzle, current, day string) *Puzzle {
	for _, p := range list {
		if p.Date == day {
			return p
		}
	}
	for i, p := range list {
		if p.ID == current {
			return list[(i+1)%len(list)]
		}
	}
	return list[0]
}

// Run rotates immediately and then on every tick until ctx is done.
func (r *Rotator) Run(ctx context.Context, every time.Duration) {
	r.tick(ctx)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Rotator) tick(ctx context.Context) {
	if _, _, err := r.Rotate(ctx, time.Now()); err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("rotation failed", "err", err)
	}
}
