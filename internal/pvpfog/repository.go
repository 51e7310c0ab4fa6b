package pvpfog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Schema is the table SaveResult writes to.
const Schema = `CREATE TABLE IF NOT EXISTS fog_games (
    game_id        TEXT PRIMARY KEY,
    white_id       TEXT NOT NULL,
    white_name     TEXT NOT NULL,
    black_id       TEXT NOT NULL,
    black_name     TEXT NOT NULL,
    origin_room    TEXT NOT NULL,
    resolve_room   TEXT NOT NULL,
    result         TEXT NOT NULL,
    result_method  TEXT NOT NULL,
    winner_id      TEXT,
    moves          JSONB NOT NULL,
    move_text      TEXT NOT NULL,
    final_board    TEXT NOT NULL,
    started_at     TIMESTAMPTZ NOT NULL,
    ended_at       TIMESTAMPTZ NOT NULL,
    duration_ms    BIGINT NOT NULL
)`

// Repository archives finished games in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// NewRepositoryWithDB wraps an already opened handle.
func NewRepositoryWithDB(db *sql.DB) *Repository { return &Repository{db: db} }

// Migrate creates the results table when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, Schema)
	return err
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const upsertResult = `INSERT INTO fog_games (
    game_id, white_id, white_name, black_id, black_name,
    origin_room, resolve_room, result, result_method, winner_id,
    moves, move_text, final_board, started_at, ended_at, duration_ms
  ) VALUES (
    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
  ) ON CONFLICT (game_id) DO UPDATE SET
    result=EXCLUDED.result,
    result_method=EXCLUDED.result_method,
    winner_id=EXCLUDED.winner_id,
    moves=EXCLUDED.moves,
    move_text=EXCLUDED.move_text,
    final_board=EXCLUDED.final_board,
    ended_at=EXCLUDED.ended_at,
    duration_ms=EXCLUDED.duration_ms`

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, g *Game, method string) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	movesRaw, err := json.Marshal(g.Moves)
	if err != nil {
		return err
	}
	duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	var winner sql.NullString
	if w := strings.TrimSpace(g.Winner); w != "" {
		winner = sql.NullString{String: w, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, upsertResult,
		g.ID,
		g.WhiteID, g.WhiteName,
		g.BlackID, g.BlackName,
		g.OriginRoom, g.ResolveRoom,
		resultToken(g), strings.TrimSpace(method), winner,
		string(movesRaw), MoveText(g), finalBoard(g),
		g.CreatedAt, g.UpdatedAt, duration,
	)
	if err != nil {
		return fmt.Errorf("save result %s: %w", g.ID, err)
	}
	return nil
}

// resultToken maps the outcome onto the usual score notation.
func resultToken(g *Game) string {
	switch g.Outcome {
	case string(White):
		return "1-0"
	case string(Black):
		return "0-1"
	}
	return "*"
}

// MoveText numbers the move list: "1. e2e3 e7e6 2. ...".
func MoveText(g *Game) string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(g.Moves); i += 2 {
		fmt.Fprintf(&b, "%d. %s", i/2+1, g.Moves[i])
		if i+1 < len(g.Moves) {
			b.WriteString(" ")
			b.WriteString(g.Moves[i+1])
		}
		b.WriteString(" ")
	}
	b.WriteString(resultToken(g))
	return b.String()
}

func finalBoard(g *Game) string {
	eng, err := g.Engine()
	if err != nil {
		return ""
	}
	b := eng.TrueBoard()
	return b.Layout()
}
