package pvpfog

import (
	"context"
	"errors"
	"testing"

	"github.com/park285/fogchess-bot/internal/fogchess"
)

func TestToDTOForViewerPerspectives(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	newWhiteU1Game(t, m)
	g := mustPlay(t, m, "u1", "e2e3")

	dtoW, err := m.ToDTOForViewer(ctx, g, "u1")
	if err != nil || dtoW == nil || len(dtoW.BoardImage) == 0 {
		t.Fatalf("white dto render failed: %v", err)
	}
	dtoB, err := m.ToDTOForViewer(ctx, g, "u2")
	if err != nil || dtoB == nil || len(dtoB.BoardImage) == 0 {
		t.Fatalf("black dto render failed: %v", err)
	}
	if dtoW.Perspective != "white" || dtoB.Perspective != "black" {
		t.Fatalf("perspectives: %s %s", dtoW.Perspective, dtoB.Perspective)
	}
	if string(dtoW.BoardImage) == string(dtoB.BoardImage) {
		t.Fatalf("expected different images for each side")
	}
	if dtoW.Moves[0] != "e2e3" || dtoB.Moves[0] != "????" {
		t.Fatalf("opponent moves must be masked while live: %v / %v", dtoW.Moves, dtoB.Moves)
	}
	if dtoB.HiddenCount == 0 {
		t.Fatalf("black should have fogged squares")
	}

	if _, err := m.ToDTOForViewer(ctx, g, "stranger"); !errors.Is(err, ErrViewForbidden) {
		t.Fatalf("strangers cannot see a live board, got %v", err)
	}

	done, _, err := m.Resign(ctx, "u2")
	if err != nil || done == nil {
		t.Fatalf("Resign: %v", err)
	}
	dtoA, err := m.ToDTOForViewer(ctx, done, "stranger")
	if err != nil || dtoA.Perspective != "audience" || dtoA.HiddenCount != 0 {
		t.Fatalf("finished games are public: %+v %v", dtoA, err)
	}
	dtoB2, err := m.ToDTOForViewer(ctx, done, "u2")
	if err != nil || dtoB2.Moves[0] != "e2e3" {
		t.Fatalf("moves are revealed once the game ends: %v", err)
	}
}

func TestPerspectiveFor(t *testing.T) {
	g := &Game{WhiteID: "w", BlackID: "b", Status: StatusActive}
	if p, err := PerspectiveFor(g, "w"); err != nil || p != fogchess.WhiteView {
		t.Fatalf("white participant: %v %v", p, err)
	}
	if p, err := PerspectiveFor(g, "b"); err != nil || p != fogchess.BlackView {
		t.Fatalf("black participant: %v %v", p, err)
	}
	if _, err := PerspectiveFor(g, ""); err == nil {
		t.Fatalf("anonymous viewers cannot see live games")
	}
}

func TestMoveText(t *testing.T) {
	g := &Game{Moves: []string{"e2e3", "e7e6", "d1e2"}, Outcome: "white"}
	if got := MoveText(g); got != "1. e2e3 e7e6 2. d1e2 1-0" {
		t.Fatalf("MoveText = %q", got)
	}
}
