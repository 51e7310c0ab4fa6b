// Package spectate serves read-only board views over HTTP.
package spectate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/park285/fogchess-bot/internal/fogchess"
	"github.com/park285/fogchess-bot/internal/obslog"
	"github.com/park285/fogchess-bot/internal/pvpfog"
	"github.com/park285/fogchess-bot/pkg/fogdto"
	"go.uber.org/zap"
)

// Games is the slice of pvpfog.Manager the server reads from.
type Games interface {
	LoadGame(ctx context.Context, id string) (*pvpfog.Game, error)
	ToDTO(ctx context.Context, g *pvpfog.Game, p fogchess.Perspective) (*fogdto.SessionState, error)
}

// Stats looks up player records; optional.
type Stats interface {
	Load(userID string) (*fogdto.PlayerStats, error)
	Top(n int) ([]*fogdto.PlayerStats, error)
}

type Options struct {
	// AllowLive exposes unfinished games to the audience and to either side.
	AllowLive bool
	Stats     Stats
}

type Server struct {
	router *mux.Router
	games  Games
	opts   Options
}

func NewServer(games Games, opts Options) *Server {
	s := &Server{router: mux.NewRouter(), games: games, opts: opts}
	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.Use(accessLog)
	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	s.router.HandleFunc("/games/{id}", s.game).Methods(http.MethodGet)
	s.router.HandleFunc("/games/{id}/board", s.board).Methods(http.MethodGet)
	s.router.HandleFunc("/games/{id}/board.png", s.boardPNG).Methods(http.MethodGet)
	if opts.Stats != nil {
		s.router.HandleFunc("/players/top", s.top).Methods(http.MethodGet)
		s.router.HandleFunc("/players/{user}", s.player).Methods(http.MethodGet)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler wraps the router with panic recovery.
func (s *Server) Handler() http.Handler {
	return handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))(s)
}

// ListenAndServe blocks until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	obslog.L().Info("spectate_listen", zap.String("addr", addr), zap.Bool("live", s.opts.AllowLive))
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func accessLog(next http.Handler) http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, next, func(_ io.Writer, p handlers.LogFormatterParams) {
		obslog.L().Info("spectate_request",
			zap.String("method", p.Request.Method),
			zap.String("path", p.URL.Path),
			zap.Int("status", p.StatusCode),
			zap.Int("size", p.Size),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) game(w http.ResponseWriter, r *http.Request) {
	g, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, pvpfog.Summary(g))
}

func (s *Server) board(w http.ResponseWriter, r *http.Request) {
	st, ok := s.render(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) boardPNG(w http.ResponseWriter, r *http.Request) {
	st, ok := s.render(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(st.BoardImage)
}

func (s *Server) top(w http.ResponseWriter, _ *http.Request) {
	list, err := s.opts.Stats.Top(10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "stats_unavailable", err.Error())
		return
	}
	if list == nil {
		list = []*fogdto.PlayerStats{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) player(w http.ResponseWriter, r *http.Request) {
	st, err := s.opts.Stats.Load(mux.Vars(r)["user"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_user", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (*pvpfog.Game, bool) {
	g, err := s.games.LoadGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load_failed", err.Error())
		return nil, false
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "game_not_found", "game not found")
		return nil, false
	}
	return g, true
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) (*fogdto.SessionState, bool) {
	p, err := fogchess.ParsePerspective(r.URL.Query().Get("perspective"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_perspective", err.Error())
		return nil, false
	}
	g, ok := s.load(w, r)
	if !ok {
		return nil, false
	}
	// an HTTP caller is anonymous; no side of a live game is public
	if !g.Over() && !s.opts.AllowLive {
		writeError(w, http.StatusForbidden, "game_in_progress", pvpfog.ErrViewForbidden.Error())
		return nil, false
	}
	st, err := s.games.ToDTO(r.Context(), g, p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return nil, false
	}
	return st, true
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "not found")
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, fogdto.DomainError{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Warn("spectate_encode_error", zap.Error(err))
	}
}
