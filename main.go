package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bodul/dailyword/internal/gemini"
	"github.com/bodul/dailyword/internal/puzzles"
	"github.com/charmbracelet/log"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatal("configuration invalide", "err", err)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "dailyword",
		Level:           cfg.level,
		ReportTimestamp: true,
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal("arrêt", "err", err)
	}
}

func run(cfg Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	if cfg.PuzzleDir != "" {
		n, err := seedPuzzles(ctx, repo, cfg.PuzzleDir)
		if err != nil {
			return err
		}
		logger.Info("puzzles chargés", "dir", cfg.PuzzleDir, "count", n)
	}

	fallback, err := cfg.DefaultPuzzle()
	if err != nil {
		return err
	}

	var extractor Extractor
	if cfg.ProjectID != "" {
		client, err := gemini.NewClient(ctx, gemini.Config{
			ProjectID: cfg.ProjectID,
			Region:    cfg.Region,
			Model:     cfg.GeminiModel,
		})
		if err != nil {
			return fmt.Errorf("impossible d'initialiser Gemini : %w", err)
		}
		defer client.Close()
		extractor = client
		logger.Info("client Gemini initialisé", "project", cfg.ProjectID, "model", client.Model())
	} else {
		logger.Warn("GCP_PROJECT_ID non défini, analyse d'image désactivée")
	}

	store := NewStore(repo, fallback, cfg.SessionConfig(), logger)
	srv := NewServer(store, extractor, logger)
	defer srv.Close()

	rotator := puzzles.NewRotator(repo, logger.With("component", "rotator"), cfg.location)
	go rotator.Run(ctx, cfg.RotateInterval)
	go srv.RunFrames(ctx, cfg.FrameInterval, cfg.SessionTTL)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("serveur démarré", "url", "http://localhost:"+cfg.Port)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("arrêt du serveur")
	return httpServer.Shutdown(shutdownCtx)
}

// openRepository opens SQLite storage when DB_PATH is set, memory otherwise.
func openRepository(ctx context.Context, cfg Config) (puzzles.Repository, func(), error) {
	if cfg.DBPath == "" {
		return puzzles.NewMemoryRepository(), func() {}, nil
	}
	repo, err := puzzles.NewSQLite(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.DBPath, err)
	}
	return repo, func() { _ = repo.Close() }, nil
}

// seedPuzzles saves every puzzle file of dir into repo.
func seedPuzzles(ctx context.Context, repo puzzles.Repository, dir string) (int, error) {
	list, err := puzzles.LoadDir(dir)
	if err != nil {
		return 0, err
	}
	for _, p := range list {
		if _, err := repo.Save(ctx, p); err != nil {
			return 0, fmt.Errorf("save %s: %w", p.Title, err)
		}
	}
	return len(list), nil
}
