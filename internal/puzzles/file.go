package puzzles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a puzzle from a YAML or JSON file and validates it.
func LoadFile(path string) (*Puzzle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a puzzle document. JSON is valid YAML, so one
// decoder serves both formats.
func Parse(b []byte) (*Puzzle, error) {
	var p Puzzle
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode puzzle: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadDir loads every .json, .yaml and .yml file in dir, sorted by name.
// A puzzle without an id takes its file name without extension.
func LoadDir(dir string) ([]*Puzzle, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	list := make([]*Puzzle, 0, len(names))
	for _, name := range names {
		p, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if p.ID == "" {
			p.ID = strings.TrimSuffix(name, filepath.Ext(name))
		}
		list = append(list, p)
	}
	return list, nil
}
