package fogchess

import (
	"testing"
)

func mustBoard(t *testing.T, rows ...string) Board {
	t.Helper()
	var layout string
	for _, r := range rows {
		layout += r
	}
	b, err := ParseBoard(layout)
	if err != nil {
		t.Fatalf("ParseBoard: %v", err)
	}
	return b
}

func mustPos(t *testing.T, sq string) Position {
	t.Helper()
	p, err := ParseSquare(sq)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", sq, err)
	}
	return p
}

func TestNewEngineInitialState(t *testing.T) {
	e := NewEngine()
	if e.GameState() != Unfinished {
		t.Fatalf("expected UNFINISHED, got %s", e.GameState())
	}
	if e.Turn() != White {
		t.Fatalf("white should move first")
	}
	want := [Size]string{"rnbqkbnr", "pppppppp", "        ", "        ", "        ", "        ", "PPPPPPPP", "RNBQKBNR"}
	v := e.Board(Audience)
	for r := 0; r < Size; r++ {
		var got string
		for c := 0; c < Size; c++ {
			got += v[r][c]
		}
		if got != want[r] {
			t.Fatalf("row %d: got %q want %q", r, got, want[r])
		}
	}
}

func TestMakeMovePawnAdvance(t *testing.T) {
	e := NewEngine()
	if !e.MakeMove("e2", "e3") {
		t.Fatalf("e2e3 should be legal")
	}
	v := e.Board(Audience)
	e2, e3 := mustPos(t, "e2"), mustPos(t, "e3")
	if v[e2.Row][e2.Col] != EmptySymbol {
		t.Fatalf("e2 should be empty, got %q", v[e2.Row][e2.Col])
	}
	if v[e3.Row][e3.Col] != "P" {
		t.Fatalf("e3 should hold a white pawn, got %q", v[e3.Row][e3.Col])
	}
	if e.Turn() != Black {
		t.Fatalf("turn should pass to black")
	}
}

func TestMakeMoveWrongTurnRejected(t *testing.T) {
	e := NewEngine()
	before := e.TrueBoard()
	if e.MakeMove("e7", "e6") {
		t.Fatalf("black cannot move first")
	}
	if e.TrueBoard() != before || e.Turn() != White {
		t.Fatalf("rejected move mutated the game")
	}
}

func TestMakeMoveIllegalVector(t *testing.T) {
	cases := [][2]string{
		{"a1", "b3"}, // rook, knight-shaped
		{"b1", "b3"}, // knight, straight
		{"e2", "e4"}, // no double pawn step
		{"e2", "e2"}, // null move
		{"d4", "d5"}, // empty origin
	}
	for _, tc := range cases {
		e := NewEngine()
		before := e.TrueBoard()
		if e.MakeMove(tc[0], tc[1]) {
			t.Fatalf("%s%s should be rejected", tc[0], tc[1])
		}
		if e.TrueBoard() != before || e.Turn() != White {
			t.Fatalf("%s%s mutated the game", tc[0], tc[1])
		}
	}
}

func TestSlidersMoveSingleStepOnly(t *testing.T) {
	b := mustBoard(t,
		"....k...",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
		"R...K..B",
	)
	e := NewEngineFromBoard(b, White)
	if e.MakeMove("a1", "a3") {
		t.Fatalf("rook moves are limited to one square")
	}
	if e.MakeMove("h1", "f3") {
		t.Fatalf("bishop moves are limited to one square")
	}
	if !e.MakeMove("a1", "a2") {
		t.Fatalf("one-square rook move should be legal")
	}
}

func TestPawnDiagonalNeedsNoCapture(t *testing.T) {
	e := NewEngine()
	if !e.MakeMove("e2", "d3") {
		t.Fatalf("pawn diagonal onto an empty square is legal in this variant")
	}
	if !e.MakeMove("d7", "e6") {
		t.Fatalf("black pawn diagonal should be legal")
	}
}

// Landing on a friendly piece is allowed and removes it.
func TestSelfCaptureIsPermitted(t *testing.T) {
	e := NewEngine()
	if !e.MakeMove("a1", "a2") {
		t.Fatalf("rook onto own pawn should be accepted")
	}
	if got := e.PieceAt(mustPos(t, "a2")); got != (Piece{Kind: Rook, Color: White}) {
		t.Fatalf("a2 should now hold the rook, got %q", got)
	}
}

func TestMalformedSquaresRejected(t *testing.T) {
	for _, sq := range []string{"", "e", "e9", "i2", "e0", "e22", "2e"} {
		e := NewEngine()
		if e.MakeMove(sq, "e3") || e.MakeMove("e2", sq) {
			t.Fatalf("malformed square %q should be rejected", sq)
		}
		if e.Turn() != White {
			t.Fatalf("malformed input flipped the turn")
		}
	}
}

func TestMoveOffBoardRejected(t *testing.T) {
	e := NewEngine()
	if e.Move(mustPos(t, "h2"), Position{Row: 5, Col: 8}) {
		t.Fatalf("destination outside the board must be rejected")
	}
}

func TestRejectionIsIdempotent(t *testing.T) {
	e := NewEngine()
	first := e.MakeMove("a1", "b3")
	snap := e.Snapshot()
	second := e.MakeMove("a1", "b3")
	if first || second {
		t.Fatalf("expected both attempts to fail")
	}
	if e.Snapshot() != snap {
		t.Fatalf("state changed between identical rejections")
	}
}

func TestKingCaptureEndsGame(t *testing.T) {
	b := mustBoard(t,
		"....k...",
		"....Q...",
		"........",
		"........",
		"........",
		"........",
		"r.......",
		"....K...",
	)
	e := NewEngineFromBoard(b, White)
	if !e.MakeMove("e7", "e8") {
		t.Fatalf("queen should capture the king")
	}
	if e.GameState() != WhiteWon {
		t.Fatalf("expected WHITE_WON, got %s", e.GameState())
	}
	if w, ok := e.GameState().Winner(); !ok || w != White {
		t.Fatalf("winner should be white")
	}
	snap := e.Snapshot()
	if e.MakeMove("a2", "a1") || e.MakeMove("e8", "d8") {
		t.Fatalf("no moves are accepted after the game ends")
	}
	if e.Snapshot() != snap {
		t.Fatalf("finished game was mutated")
	}
}

func TestBlackWinsByKingCapture(t *testing.T) {
	b := mustBoard(t,
		"k.......",
		"........",
		"........",
		"........",
		"........",
		"........",
		"........",
		"...rK...",
	)
	e := NewEngineFromBoard(b, Black)
	if !e.MakeMove("d1", "e1") {
		t.Fatalf("rook should capture the king")
	}
	if e.GameState() != BlackWon {
		t.Fatalf("expected BLACK_WON, got %s", e.GameState())
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	e := NewEngine()
	e.MakeMove("g1", "f3")
	restored, err := Restore(e.Snapshot())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.TrueBoard() != e.TrueBoard() || restored.Turn() != Black || restored.GameState() != Unfinished {
		t.Fatalf("restored engine differs: %s", restored.Snapshot())
	}
	board := e.TrueBoard()
	layout := board.Layout()
	for _, bad := range []string{"", "abc/w/U", layout + "/x/U", layout + "/w/Z"} {
		if _, err := Restore(bad); err == nil {
			t.Fatalf("Restore(%q) should fail", bad)
		}
	}
}
