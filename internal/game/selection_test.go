package game

import (
	"errors"
	"testing"
)

func TestNavigation(t *testing.T) {
	g, err := Build(praiseInput(), BuildOptions{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	start, ok := g.InitialSelection()
	if !ok {
		t.Fatal("expected an initial selection")
	}

	t.Run("diagonal rejected", func(t *testing.T) {
		got, changed, err := g.MoveRelative(start, 1, 1)
		if !errors.Is(err, ErrDiagonalMove) || changed || got != start {
			t.Fatalf("expected ErrDiagonalMove and no move, got %+v %v %v", got, changed, err)
		}
	})

	t.Run("clamped to grid", func(t *testing.T) {
		got, changed, err := g.MoveRelative(start, 0, -4)
		if err != nil || changed || got != start {
			t.Fatalf("expected clamped no-op, got %+v %v %v", got, changed, err)
		}
		got, _, _ = g.MoveRelative(start, 0, 40)
		if got.Col != 5 {
			t.Fatalf("expected clamp to last column, got %+v", got)
		}
	})

	t.Run("clamped move resolves the axis", func(t *testing.T) {
		// (3,5) carries 1-across and 3-down; a long drop lands on (5,5).
		from := Selection{Row: 3, Col: 5, Direction: Across, Number: "1"}
		got, changed, err := g.MoveRelative(from, 40, 0)
		want := Selection{Row: 5, Col: 5, Direction: Down, Number: "3"}
		if err != nil || !changed || got != want {
			t.Fatalf("expected %+v, got %+v %v %v", want, got, changed, err)
		}

		// From 2-down, a long move right stops on the last column of 1-across.
		from = Selection{Row: 3, Col: 2, Direction: Down, Number: "2"}
		got, changed, err = g.MoveRelative(from, 0, 40)
		want = Selection{Row: 3, Col: 5, Direction: Across, Number: "1"}
		if err != nil || !changed || got != want {
			t.Fatalf("expected %+v, got %+v %v %v", want, got, changed, err)
		}

		// Clamping onto an unused cell keeps the cursor.
		from = Selection{Row: 5, Col: 5, Direction: Down, Number: "3"}
		got, changed, err = g.MoveRelative(from, 0, -40)
		if err != nil || changed || got != from {
			t.Fatalf("expected no move onto (5,0), got %+v %v %v", got, changed, err)
		}
	})

	t.Run("unused target", func(t *testing.T) {
		got, changed := g.SelectCell(start, 0, 0)
		if changed || got != start {
			t.Fatalf("clicking an unused cell must be a no-op, got %+v", got)
		}
	})

	t.Run("click switches axis when needed", func(t *testing.T) {
		got, _ := g.SelectCell(start, 4, 5)
		if got.Direction != Down || got.Number != "3" {
			t.Fatalf("expected 3-down, got %+v", got)
		}
	})

	t.Run("click same cell without crossing keeps axis", func(t *testing.T) {
		got, changed := g.SelectCell(start, 3, 0)
		if changed || got != start {
			t.Fatalf("expected no toggle on (3,0), got %+v", got)
		}
	})

	t.Run("clue start", func(t *testing.T) {
		got, changed := g.MoveToClueStart(start, Down, "2")
		if !changed || got != (Selection{Row: 1, Col: 2, Direction: Down, Number: "2"}) {
			t.Fatalf("unexpected %+v", got)
		}
		got, changed = g.MoveToClueStart(start, Down, "42")
		if changed || got != start {
			t.Fatalf("unknown clue must be a no-op, got %+v", got)
		}
	})

	t.Run("relative cell", func(t *testing.T) {
		if k, ok := g.RelativeCell(3, 0, Across, 5); !ok || k != (CellKey{3, 5}) {
			t.Fatalf("expected 3-5, got %v %v", k, ok)
		}
		if _, ok := g.RelativeCell(3, 5, Across, 1); ok {
			t.Fatal("out of bounds cell must be rejected")
		}
		if _, ok := g.RelativeCell(3, 0, Down, 1); ok {
			t.Fatal("unused cell must be rejected")
		}
	})
}
