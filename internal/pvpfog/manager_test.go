package pvpfog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	url := fmt.Sprintf("redis://%s/0", mr.Addr())
	m, err := NewManager(url)
	if err != nil {
		t.Fatalf("pvpfog.NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

type recordingSink struct {
	mu      sync.Mutex
	games   []*Game
	methods []string
}

func (s *recordingSink) SaveResult(_ context.Context, g *Game, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games = append(s.games, g)
	s.methods = append(s.methods, method)
	return nil
}

func newWhiteU1Game(t *testing.T, m *Manager) *Game {
	t.Helper()
	g, err := m.CreateGame(context.Background(), "roomA", "roomB", "u1", "Alice", "u2", "Bob", "white")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return g
}

func mustPlay(t *testing.T, m *Manager, userID, mv string) *Game {
	t.Helper()
	g, txt, err := m.PlayMove(context.Background(), userID, mv)
	if err != nil || g == nil {
		t.Fatalf("PlayMove(%s, %s): g=%v err=%v", userID, mv, g, err)
	}
	if IsRejection(txt) {
		t.Fatalf("PlayMove(%s, %s) rejected: %s", userID, mv, txt)
	}
	return g
}

func TestCreateGameColorChoice(t *testing.T) {
	m := newTestManager(t)
	g := newWhiteU1Game(t, m)
	if g.WhiteID != "u1" || g.BlackID != "u2" || g.WhiteName != "Alice" {
		t.Fatalf("unexpected colors: %+v", g)
	}
	if g.Turn != White || g.Status != StatusActive {
		t.Fatalf("new game should be active with white to move")
	}
	ctx := context.Background()
	g2, err := m.CreateGame(ctx, "roomC", "roomC", "u3", "", "u4", "", "black")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if g2.WhiteID != "u4" || g2.BlackName != "u3" {
		t.Fatalf("black choice should hand white to the target: %+v", g2)
	}
	if _, err := m.CreateGame(ctx, "r", "r", "u5", "", "u5", "", "random"); err == nil {
		t.Fatalf("self games must be rejected")
	}
}

func TestPlayMoveTurnsAndRejections(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	newWhiteU1Game(t, m)

	g := mustPlay(t, m, "u1", "e2e3")
	if len(g.Moves) != 1 || g.Turn != Black {
		t.Fatalf("after e2e3: moves=%v turn=%s", g.Moves, g.Turn)
	}

	_, txt, err := m.PlayMove(ctx, "u1", "d2d3")
	if err != nil || txt != TextNotYourTurn {
		t.Fatalf("expected not-your-turn reply, got %q %v", txt, err)
	}

	g = mustPlay(t, m, "u2", "e7 e6")
	if g.Moves[1] != "e7e6" {
		t.Fatalf("moves should be normalised, got %v", g.Moves)
	}

	_, txt, err = m.PlayMove(ctx, "u1", "a1b3")
	if err != nil || txt != TextIllegal {
		t.Fatalf("expected illegal reply, got %q %v", txt, err)
	}
	_, txt, err = m.PlayMove(ctx, "u1", "invalid")
	if err != nil || txt != TextBadInput {
		t.Fatalf("expected bad input reply, got %q %v", txt, err)
	}

	cur, err := m.LoadGame(ctx, g.ID)
	if err != nil || cur == nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if len(cur.Moves) != 2 || cur.Turn != White {
		t.Fatalf("rejected moves must not change the stored game: %+v", cur)
	}
}

func TestStaleGameMoveIsConcurrent(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	stale := newWhiteU1Game(t, m)

	landed := mustPlay(t, m, "u1", "e2e3")

	// u2 is on move now, but the caller still holds the pre-move copy
	g, txt, err := m.playMove(ctx, stale, "u2", "", "e7e6")
	if err != nil || txt != TextConcurrent {
		t.Fatalf("expected concurrent reply, got %q %v", txt, err)
	}
	if !IsRejection(txt) {
		t.Fatalf("concurrent reply must count as a rejection")
	}
	if g == nil || len(g.Moves) != 0 {
		t.Fatalf("stale game should be handed back untouched: %+v", g)
	}

	cur, err := m.LoadGame(ctx, stale.ID)
	if err != nil || cur == nil {
		t.Fatalf("LoadGame: %v", err)
	}
	if cur.Snapshot != landed.Snapshot || len(cur.Moves) != 1 || cur.Turn != Black {
		t.Fatalf("concurrent move must not change the stored game: %+v", cur)
	}

	// a fresh read goes through
	mustPlay(t, m, "u2", "e7e6")
}

func TestKingCaptureFinishesGame(t *testing.T) {
	m := newTestManager(t)
	sink := &recordingSink{}
	m.AttachSink(sink)
	newWhiteU1Game(t, m)

	script := []string{
		"e2e3", "a7a6",
		"d1e2", "a6a5",
		"e2f3", "a5a4",
		"f3f4", "a4a3",
		"f4f5", "h7h6",
		"f5f6", "h6h5",
		"f6f7", "h5h4",
	}
	for i, mv := range script {
		user := "u1"
		if i%2 == 1 {
			user = "u2"
		}
		mustPlay(t, m, user, mv)
	}
	g := mustPlay(t, m, "u1", "f7e8")
	if g.Status != StatusFinished || g.Winner != "u1" || g.Outcome != "white" || g.Method != MethodKingCapture {
		t.Fatalf("king capture should finish the game: %+v", g)
	}
	if len(sink.games) != 1 || sink.methods[0] != MethodKingCapture {
		t.Fatalf("sink should receive the finished game once, got %d", len(sink.games))
	}

	after, txt, err := m.PlayMove(context.Background(), "u2", "h4h3")
	if err != nil || after != nil || txt != "" {
		t.Fatalf("finished games accept no moves: %v %q %v", after, txt, err)
	}
}

func TestResign(t *testing.T) {
	m := newTestManager(t)
	sink := &recordingSink{}
	m.AttachSink(sink)
	ctx := context.Background()
	newWhiteU1Game(t, m)

	g, _, err := m.Resign(ctx, "u2")
	if err != nil || g == nil {
		t.Fatalf("Resign: %v", err)
	}
	if g.Status != StatusResigned || g.Winner != "u1" || g.Outcome != "white" {
		t.Fatalf("unexpected resign result: %+v", g)
	}
	if len(sink.methods) != 1 || sink.methods[0] != MethodResignation {
		t.Fatalf("resignation should reach the sink")
	}
	if g2, _, err := m.Resign(ctx, "u2"); err != nil || g2 != nil {
		t.Fatalf("no active game should remain: %v %v", g2, err)
	}
}

func TestRoomScopedCommands(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	newWhiteU1Game(t, m)

	if g, _, err := m.PlayMoveByRoom(ctx, "u1", "roomZ", "e2e3"); err != nil || g != nil {
		t.Fatalf("move from an unrelated room must not find a game: %v %v", g, err)
	}
	g, txt, err := m.PlayMoveByRoom(ctx, "u1", "roomB", "e2e3")
	if err != nil || g == nil || len(g.Moves) != 1 {
		t.Fatalf("PlayMoveByRoom: %v %q %v", g, txt, err)
	}
	if g, _, err := m.ResignByRoom(ctx, "u2", "roomZ"); err != nil || g != nil {
		t.Fatalf("resign from an unrelated room must be ignored")
	}
	if g, _, err := m.ResignByRoom(ctx, "u2", "roomA"); err != nil || g == nil || g.Status != StatusResigned {
		t.Fatalf("ResignByRoom: %v %v", g, err)
	}
}

func TestLatestActiveGameWins(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	first := newWhiteU1Game(t, m)
	second, err := m.CreateGame(ctx, "roomC", "roomC", "u1", "Alice", "u3", "Carol", "white")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	g, err := m.GetActiveGameByUser(ctx, "u1")
	if err != nil || g == nil || g.ID != second.ID {
		t.Fatalf("expected the newest game, got %v (first=%s)", g, first.ID)
	}
	g, err = m.GetActiveGameByUserInRoom(ctx, "u1", "roomA")
	if err != nil || g == nil || g.ID != first.ID {
		t.Fatalf("room lookup should find the first game")
	}
}

func TestParseMoveInput(t *testing.T) {
	cases := map[string][2]string{
		"e2e3":    {"e2", "e3"},
		" E2 E3 ": {"e2", "e3"},
		"b1-c3":   {"b1", "c3"},
	}
	for in, want := range cases {
		from, to, ok := ParseMoveInput(in)
		if !ok || from != want[0] || to != want[1] {
			t.Fatalf("ParseMoveInput(%q) = %q %q %v", in, from, to, ok)
		}
	}
	for _, bad := range []string{"", "e2", "e2e3e4"} {
		if _, _, ok := ParseMoveInput(bad); ok {
			t.Fatalf("ParseMoveInput(%q) should fail", bad)
		}
	}
}

func TestNewManagerRejectsBadURL(t *testing.T) {
	if _, err := NewManager(""); err == nil {
		t.Fatalf("empty url should fail")
	}
	if _, err := NewManager("http://localhost:6379"); err == nil {
		t.Fatalf("non-redis scheme should fail")
	}
}

func TestMovesOutsideGameAreRejected(t *testing.T) {
	m := newTestManager(t)
	g := newWhiteU1Game(t, m)
	_, _, err := m.playMove(context.Background(), g, "stranger", "", "e2e3")
	if !errors.Is(err, ErrNotInGame) {
		t.Fatalf("expected ErrNotInGame, got %v", err)
	}
}
