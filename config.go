package main

import (
	"fmt"
	"time"

	"github.com/bodul/dailyword/internal/game"
	"github.com/bodul/dailyword/internal/puzzles"
	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
)

// Config is read from the environment.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	ProjectID   string `env:"GCP_PROJECT_ID"`
	Region      string `env:"GCP_REGION"`
	GeminiModel string `env:"GEMINI_MODEL"`

	// DBPath selects SQLite storage; puzzles stay in memory when empty.
	DBPath    string `env:"DB_PATH"`
	PuzzleDir string `env:"PUZZLE_DIR"`

	DefaultPuzzleFile string `env:"DEFAULT_PUZZLE_FILE"`
	SquareGrid        bool   `env:"SQUARE_GRID"`

	FrameInterval  time.Duration `env:"FRAME_INTERVAL" envDefault:"16ms"`
	RecentHold     time.Duration `env:"RECENT_HOLD" envDefault:"1500ms"`
	RotateInterval time.Duration `env:"ROTATE_INTERVAL" envDefault:"1h"`
	RotateTimezone string        `env:"ROTATE_TZ" envDefault:"UTC"`
	SessionTTL     time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	level    log.Level
	location *time.Location
}

// LoadConfig parses the process environment.
func LoadConfig() (Config, error) {
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks ranges and resolves derived settings.
func (c *Config) Validate() error {
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.FrameInterval <= 0 {
		return fmt.Errorf("invalid frame interval %s", c.FrameInterval)
	}
	if c.RecentHold <= 0 {
		c.RecentHold = game.DefaultRecentHold
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("invalid session ttl %s", c.SessionTTL)
	}
	if c.RotateInterval < time.Minute {
		return fmt.Errorf("rotate interval %s is below one minute", c.RotateInterval)
	}

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	c.level = level

	loc, err := time.LoadLocation(c.RotateTimezone)
	if err != nil {
		return fmt.Errorf("invalid rotation timezone %q: %w", c.RotateTimezone, err)
	}
	c.location = loc
	return nil
}

// DefaultPuzzle returns the fallback puzzle: the configured file, or the
// built-in one.
func (c Config) DefaultPuzzle() (*puzzles.Puzzle, error) {
	if c.DefaultPuzzleFile == "" {
		return puzzles.DefaultPuzzle(), nil
	}
	p, err := puzzles.LoadFile(c.DefaultPuzzleFile)
	if err != nil {
		return nil, fmt.Errorf("default puzzle: %w", err)
	}
	if p.ID == "" {
		p.ID = "default"
	}
	return p, nil
}

// SessionConfig is the template every game session is built from.
func (c Config) SessionConfig() game.Config {
	return game.Config{Square: c.SquareGrid, RecentHold: c.RecentHold}
}
