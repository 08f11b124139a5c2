package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/bodul/dailyword/internal/game"
	"github.com/bodul/dailyword/internal/gemini"
	"github.com/bodul/dailyword/internal/puzzles"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type options struct {
	dbPath   string
	logLevel string
	logger   *log.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "puzzlectl",
		Short:         "Manage daily crossword puzzles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := log.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q", opts.logLevel)
			}
			opts.logger = log.NewWithOptions(stderr, log.Options{Prefix: "puzzlectl", Level: level})
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.dbPath, "db", envOr("DB_PATH", "puzzles.db"), "SQLite database path")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level")

	root.AddCommand(
		newValidateCmd(opts),
		newUploadCmd(opts),
		newRotateCmd(opts),
		newTodayCmd(opts),
		newExtractCmd(opts),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (o *options) open(ctx context.Context) (*puzzles.SQLiteRepository, error) {
	repo, err := puzzles.NewSQLite(ctx, o.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", o.dbPath, err)
	}
	return repo, nil
}

func newValidateCmd(opts *options) *cobra.Command {
	var square bool
	cmd := &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check that puzzle files build a consistent grid",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				p, err := puzzles.LoadFile(path)
				if err == nil {
					var g *game.Grid
					g, err = game.Build(p.Clues(), game.BuildOptions{Square: square})
					if err == nil {
						fmt.Fprintf(cmd.OutOrStdout(), "ok %s: %q %dx%d, %d words\n", path, p.Title, g.Rows, g.Cols, g.WordCount())
						continue
					}
				}
				failed++
				opts.logger.Error("invalid puzzle", "file", path, "err", err)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&square, "square", false, "pad the grid to a square")
	return cmd
}

func newUploadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE|DIR...",
		Short: "Store puzzle files in the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			repo, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			for _, path := range args {
				list, err := loadPath(path)
				if err != nil {
					return err
				}
				for _, p := range list {
					saved, err := repo.Save(ctx, p)
					if err != nil {
						return fmt.Errorf("save %s: %w", path, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", saved.ID, saved.Title)
				}
			}
			return nil
		},
	}
}

func loadPath(path string) ([]*puzzles.Puzzle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return puzzles.LoadDir(path)
	}
	p, err := puzzles.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []*puzzles.Puzzle{p}, nil
}

func newRotateCmd(opts *options) *cobra.Command {
	var tz, at string
	cmd := &cobra.Command{
		Use:   "rotate",
		Short: "Advance the puzzle of the day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := time.LoadLocation(tz)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", tz, err)
			}
			now := time.Now()
			if at != "" {
				if now, err = time.ParseInLocation(puzzles.DayLayout, at, loc); err != nil {
					return fmt.Errorf("invalid day %q: %w", at, err)
				}
			}

			ctx := cmd.Context()
			repo, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			p, moved, err := puzzles.NewRotator(repo, opts.logger, loc).Rotate(ctx, now)
			if err != nil {
				return err
			}
			state := "unchanged"
			if moved {
				state = "rotated"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", state, p.ID, p.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&tz, "tz", "UTC", "timezone the day boundary is computed in")
	cmd.Flags().StringVar(&at, "day", "", "rotate as if on this day (YYYY-MM-DD)")
	return cmd
}

func newTodayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Print the puzzle of the day as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			p, err := puzzles.Today(ctx, repo)
			if err != nil {
				return fmt.Errorf("today: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
}

func newExtractCmd(opts *options) *cobra.Command {
	var (
		cfg gemini.Config
		out string
	)
	cmd := &cobra.Command{
		Use:   "extract IMAGE",
		Short: "Read a photo of a solved grid with Gemini and print the puzzle as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mimeType := mime.TypeByExtension(filepath.Ext(args[0]))
			if mimeType != "image/jpeg" && mimeType != "image/png" {
				return fmt.Errorf("%s: expected a JPEG or PNG image", args[0])
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := gemini.NewClient(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			opts.logger.Info("extracting", "image", args[0], "model", client.Model())
			p, err := client.ExtractPuzzle(ctx, data, mimeType)
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), out, p)
		},
	}
	cmd.Flags().StringVar(&cfg.ProjectID, "project", os.Getenv("GCP_PROJECT_ID"), "GCP project")
	cmd.Flags().StringVar(&cfg.Region, "region", os.Getenv("GCP_REGION"), "Vertex AI region")
	cmd.Flags().StringVar(&cfg.Model, "model", os.Getenv("GEMINI_MODEL"), "Gemini model")
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func writeYAML(stdout io.Writer, path string, p *puzzles.Puzzle) error {
	b, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = stdout.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
