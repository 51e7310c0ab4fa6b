package stats

import (
	"context"
	"testing"
	"time"

	"github.com/park285/fogchess-bot/internal/pvpfog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func finished(id, winner, method string) *pvpfog.Game {
	return &pvpfog.Game{
		ID:        id,
		Status:    pvpfog.StatusFinished,
		WhiteID:   "w",
		WhiteName: "Alice",
		BlackID:   "b",
		BlackName: "Bob",
		Winner:    winner,
		Method:    method,
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveResultUpdatesBothPlayers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.SaveResult(ctx, finished("g1", "w", pvpfog.MethodKingCapture), pvpfog.MethodKingCapture); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	w, err := s.Load("w")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w.GamesPlayed != 1 || w.Wins != 1 || w.KingCaptures != 1 || w.CurrentStreak != 1 || w.Name != "Alice" {
		t.Fatalf("unexpected winner stats: %+v", w)
	}
	b, _ := s.Load("b")
	if b.GamesPlayed != 1 || b.Losses != 1 || b.Wins != 0 {
		t.Fatalf("unexpected loser stats: %+v", b)
	}
}

func TestSaveResultIsIdempotentPerGame(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g := finished("g1", "b", pvpfog.MethodResignation)
	for i := 0; i < 3; i++ {
		if err := s.SaveResult(ctx, g, pvpfog.MethodResignation); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}
	b, _ := s.Load("b")
	if b.GamesPlayed != 1 || b.KingCaptures != 0 {
		t.Fatalf("game counted more than once: %+v", b)
	}
}

func TestStreaks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	results := []string{"w", "w", "w", "b", "w"}
	for i, winner := range results {
		g := finished("g"+string(rune('a'+i)), winner, pvpfog.MethodResignation)
		if err := s.SaveResult(ctx, g, pvpfog.MethodResignation); err != nil {
			t.Fatalf("SaveResult: %v", err)
		}
	}
	w, _ := s.Load("w")
	if w.LongestStreak != 3 || w.CurrentStreak != 1 || w.Wins != 4 || w.Losses != 1 {
		t.Fatalf("unexpected streaks: %+v", w)
	}
	if got := WinRate(w); got != 80 {
		t.Fatalf("WinRate = %v", got)
	}
}

func TestActiveGamesIgnored(t *testing.T) {
	s := newTestStore(t)
	g := finished("g1", "", "")
	g.Status = pvpfog.StatusActive
	if err := s.SaveResult(context.Background(), g, ""); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	w, _ := s.Load("w")
	if w.GamesPlayed != 0 {
		t.Fatalf("active game must not count: %+v", w)
	}
}

func TestTopOrdersByWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_ = s.SaveResult(ctx, finished("g1", "b", pvpfog.MethodKingCapture), pvpfog.MethodKingCapture)
	_ = s.SaveResult(ctx, finished("g2", "b", pvpfog.MethodKingCapture), pvpfog.MethodKingCapture)
	_ = s.SaveResult(ctx, finished("g3", "w", pvpfog.MethodKingCapture), pvpfog.MethodKingCapture)
	top, err := s.Top(1)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 1 || top[0].UserID != "b" || top[0].Wins != 2 {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
}

func TestLoadRequiresUser(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load(" "); err != ErrNoUser {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
}
