package spectate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/fogchess-bot/internal/pvpfog"
	"github.com/park285/fogchess-bot/internal/stats"
	"github.com/park285/fogchess-bot/pkg/fogdto"
)

func newFixture(t *testing.T) (*pvpfog.Manager, *pvpfog.Game) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	m, err := pvpfog.NewManager(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("pvpfog.NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	g, err := m.CreateGame(context.Background(), "r1", "r2", "w", "Alice", "b", "Bob", "white")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	return m, g
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	m, _ := newFixture(t)
	rec := get(t, NewServer(m, Options{}).Handler(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
}

func TestGameSummary(t *testing.T) {
	m, g := newFixture(t)
	rec := get(t, NewServer(m, Options{}), "/games/"+g.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var sum fogdto.GameSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.GameID != g.ID || sum.WhiteName != "Alice" || sum.Status != "ACTIVE" {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if rec := get(t, NewServer(m, Options{}), "/games/missing"); rec.Code != http.StatusNotFound {
		t.Fatalf("missing game should 404, got %d", rec.Code)
	}
}

func TestLiveBoardForbiddenByDefault(t *testing.T) {
	m, g := newFixture(t)
	s := NewServer(m, Options{})
	for _, p := range []string{"", "white", "black"} {
		rec := get(t, s, "/games/"+g.ID+"/board?perspective="+p)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("perspective %q: expected 403, got %d", p, rec.Code)
		}
	}
}

func TestLiveBoardWhenAllowed(t *testing.T) {
	m, g := newFixture(t)
	s := NewServer(m, Options{AllowLive: true})
	rec := get(t, s, "/games/"+g.ID+"/board?perspective=white")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var st fogdto.SessionState
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Perspective != "white" || len(st.Board) != 8 || st.Board[0][1] != "n" || st.Board[0][0] != "*" {
		t.Fatalf("unexpected white view: %+v", st.Board)
	}
	if rec := get(t, s, "/games/"+g.ID+"/board?perspective=sideways"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad perspective should 400, got %d", rec.Code)
	}
}

func TestFinishedBoardIsPublic(t *testing.T) {
	m, g := newFixture(t)
	if _, _, err := m.Resign(context.Background(), "b"); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	s := NewServer(m, Options{})
	rec := get(t, s, "/games/"+g.ID+"/board.png")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type %q", ct)
	}
	if _, err := png.Decode(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Fatalf("png decode: %v", err)
	}
}

func TestPlayerRoutes(t *testing.T) {
	m, g := newFixture(t)
	st, err := stats.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	m.AttachSink(st)
	if _, _, err := m.Resign(context.Background(), "b"); err != nil {
		t.Fatalf("Resign: %v", err)
	}
	s := NewServer(m, Options{Stats: st})

	rec := get(t, s, "/players/w")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var ps fogdto.PlayerStats
	if err := json.Unmarshal(rec.Body.Bytes(), &ps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ps.Wins != 1 || ps.GamesPlayed != 1 {
		t.Fatalf("unexpected stats for %s: %+v", g.WhiteID, ps)
	}

	rec = get(t, s, "/players/top")
	var top []fogdto.PlayerStats
	if err := json.Unmarshal(rec.Body.Bytes(), &top); err != nil || len(top) != 2 || top[0].UserID != "w" {
		t.Fatalf("unexpected leaderboard %s (%v)", rec.Body.String(), err)
	}
}
