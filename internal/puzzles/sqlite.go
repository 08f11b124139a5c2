package puzzles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bodul/dailyword/internal/game"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so created_ts sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository persists puzzles and the daily pointer in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and ensures the
// schema.
func NewSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLiteRepository{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRepository) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS puzzles (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			day TEXT NOT NULL DEFAULT '',
			clues_json TEXT NOT NULL,
			created_ts TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS daily_pointer (
			slot INTEGER PRIMARY KEY CHECK (slot = 1),
			puzzle_id TEXT NOT NULL,
			day TEXT NOT NULL,
			FOREIGN KEY(puzzle_id) REFERENCES puzzles(id)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Save inserts or replaces p.
func (s *SQLiteRepository) Save(ctx context.Context, p *Puzzle) (*Puzzle, error) {
	stamp(p)
	clues, err := json.Marshal(p.Clues())
	if err != nil {
		return nil, fmt.Errorf("encode clues: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO puzzles(id, title, author, day, clues_json, created_ts)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			day = excluded.day,
			clues_json = excluded.clues_json`,
		p.ID, p.Title, p.Author, p.Date, string(clues), p.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("save puzzle %s: %w", p.ID, err)
	}
	return p, nil
}

func (s *SQLiteRepository) Get(ctx context.Context, id string) (*Puzzle, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, author, day, clues_json, created_ts FROM puzzles WHERE id = ?`, id)
	p, err := scanPuzzle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *SQLiteRepository) List(ctx context.Context) ([]*Puzzle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, author, day, clues_json, created_ts FROM puzzles ORDER BY created_ts ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Puzzle
	for rows.Next() {
		p, err := scanPuzzle(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s *SQLiteRepository) Pointer(ctx context.Context) (Pointer, error) {
	var ptr Pointer
	err := s.db.QueryRowContext(ctx, `SELECT puzzle_id, day FROM daily_pointer WHERE slot = 1`).
		Scan(&ptr.PuzzleID, &ptr.Day)
	if errors.Is(err, sql.ErrNoRows) {
		return Pointer{}, ErrNotFound
	}
	return ptr, err
}

func (s *SQLiteRepository) SetPointer(ctx context.Context, ptr Pointer) error {
	if _, err := s.Get(ctx, ptr.PuzzleID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_pointer(slot, puzzle_id, day) VALUES(1, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET puzzle_id = excluded.puzzle_id, day = excluded.day`,
		ptr.PuzzleID, ptr.Day)
	return err
}

func (s *SQLiteRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPuzzle(sc scanner) (*Puzzle, error) {
	var (
		p       Puzzle
		clues   string
		created string
	)
	if err := sc.Scan(&p.ID, &p.Title, &p.Author, &p.Date, &clues, &created); err != nil {
		return nil, err
	}
	var in game.ClueInput
	if err := json.Unmarshal([]byte(clues), &in); err != nil {
		return nil, fmt.Errorf("decode clues of %s: %w", p.ID, err)
	}
	p.Across, p.Down = in.Across, in.Down
	ts, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("decode created_ts of %s: %w", p.ID, err)
	}
	p.CreatedAt = ts
	return &p, nil
}
