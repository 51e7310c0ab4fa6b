package fogchess

import "testing"

func rowString(v View, r int) string {
	var s string
	for c := 0; c < Size; c++ {
		s += v[r][c]
	}
	return s
}

func TestInitialPlayerViews(t *testing.T) {
	e := NewEngine()

	w := e.Board(WhiteView)
	if got := rowString(w, 0); got != "*n****n*" {
		t.Fatalf("white view of rank 8: %q", got)
	}
	if got := rowString(w, 1); got != "pppppppp" {
		t.Fatalf("white view of rank 7: %q", got)
	}
	if got := rowString(w, 7); got != "RNBQKBNR" {
		t.Fatalf("own pieces must always be visible, got %q", got)
	}

	b := e.Board(BlackView)
	if got := rowString(b, 7); got != "*N****N*" {
		t.Fatalf("black view of rank 1: %q", got)
	}
	if got := rowString(b, 3); got != "        " {
		t.Fatalf("empty squares must stay empty, got %q", got)
	}
}

func TestVisibilityAsymmetry(t *testing.T) {
	b := mustBoard(t,
		".......k",
		"........",
		"........",
		"r.......",
		"........",
		"........",
		"R.......",
		"...K....",
	)
	e := NewEngineFromBoard(b, White)
	a5, h8 := mustPos(t, "a5"), mustPos(t, "h8")
	a2, d1 := mustPos(t, "a2"), mustPos(t, "d1")

	w := e.Board(WhiteView)
	if w[a5.Row][a5.Col] != "r" {
		t.Fatalf("black rook on an open file with the white rook should be visible, got %q", w[a5.Row][a5.Col])
	}
	if !w.Hidden(h8) {
		t.Fatalf("black king should be hidden from white, got %q", w[h8.Row][h8.Col])
	}

	bl := e.Board(BlackView)
	if bl[a2.Row][a2.Col] != "R" {
		t.Fatalf("white rook should be visible to black, got %q", bl[a2.Row][a2.Col])
	}
	if !bl.Hidden(d1) {
		t.Fatalf("white king should be hidden from black, got %q", bl[d1.Row][d1.Col])
	}

	a := e.Board(Audience)
	if a[h8.Row][h8.Col] != "k" || a[d1.Row][d1.Col] != "K" {
		t.Fatalf("audience sees every piece")
	}
}

func TestRayStopsAtFirstPiece(t *testing.T) {
	b := mustBoard(t,
		".......k",
		"........",
		"........",
		"r.......",
		"n.......",
		"........",
		"R.......",
		"...K....",
	)
	e := NewEngineFromBoard(b, White)
	if e.IsCapturable(mustPos(t, "a5"), White) {
		t.Fatalf("the knight on a4 blocks the rook's ray")
	}
}

// Exposure follows the defending piece's rays, not the attacker's.
func TestCapturabilityUsesDefenderDirections(t *testing.T) {
	b := mustBoard(t,
		".......k",
		"........",
		"..b.....",
		"........",
		"........",
		"........",
		"........",
		"..R...K.",
	)
	e := NewEngineFromBoard(b, White)
	c6 := mustPos(t, "c6")
	if e.IsCapturable(c6, White) {
		t.Fatalf("bishop on c6 only scans diagonals, the rook on its file must not expose it")
	}
	if !e.IsCapturable(mustPos(t, "c1"), Black) {
		t.Fatalf("rook on c1 scans its file up to the black bishop on c6")
	}
}

func TestKnightRaysSlide(t *testing.T) {
	b := mustBoard(t,
		".n.....k",
		"........",
		"........",
		"........",
		"........",
		"........",
		"....P...",
		"K.......",
	)
	e := NewEngineFromBoard(b, White)
	if !e.IsCapturable(mustPos(t, "b8"), White) {
		t.Fatalf("knight ray b8-c6-d4-e2 should reach the white pawn")
	}
}

func TestEmptySquareNeverCapturable(t *testing.T) {
	e := NewEngine()
	if e.IsCapturable(mustPos(t, "e4"), White) || e.IsCapturable(Position{Row: -1}, White) {
		t.Fatalf("empty or off-board squares are never capturable")
	}
}

func TestParsePerspective(t *testing.T) {
	cases := map[string]Perspective{"white": WhiteView, "B": BlackView, "audience": Audience, "": Audience}
	for in, want := range cases {
		got, err := ParsePerspective(in)
		if err != nil || got != want {
			t.Fatalf("ParsePerspective(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePerspective("referee"); err == nil {
		t.Fatalf("unknown perspective should fail")
	}
}
