package pvpfog

import (
	"context"
	"time"

	"github.com/park285/fogchess-bot/internal/fogchess"
)

// Color identifies a side in persisted games.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func colorFrom(c fogchess.Color) Color {
	if c == fogchess.White {
		return White
	}
	return Black
}

// Status represents a PvP game lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusResigned Status = "RESIGNED"
	StatusAborted  Status = "ABORTED"
)

// Result methods recorded with finished games.
const (
	MethodKingCapture = "king_capture"
	MethodResignation = "resignation"
)

// Game is the persisted state of a fog chess match. Snapshot carries the
// engine state; Moves is kept for display and archiving only.
type Game struct {
	ID          string    `json:"id"`
	Snapshot    string    `json:"snapshot"`
	Moves       []string  `json:"moves"`
	Turn        Color     `json:"turn"`
	Status      Status    `json:"status"`
	WhiteID     string    `json:"white_id"`
	WhiteName   string    `json:"white_name"`
	BlackID     string    `json:"black_id"`
	BlackName   string    `json:"black_name"`
	OriginRoom  string    `json:"origin_room"`
	ResolveRoom string    `json:"resolve_room"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Winner      string    `json:"winner,omitempty"`
	Outcome     string    `json:"outcome,omitempty"`
	Method      string    `json:"method,omitempty"`
}

// Over reports whether the game no longer accepts moves.
func (g *Game) Over() bool { return g != nil && g.Status != StatusActive }

// ColorOf returns the side userID plays, or "" for non-participants.
func (g *Game) ColorOf(userID string) Color {
	switch userID {
	case g.WhiteID:
		return White
	case g.BlackID:
		return Black
	}
	return ""
}

// NameOf returns the display name of the player on side c.
func (g *Game) NameOf(c Color) string {
	if c == Black {
		return g.BlackName
	}
	return g.WhiteName
}

// OpponentID returns the other participant, or "" for strangers.
func (g *Game) OpponentID(userID string) string {
	switch userID {
	case g.WhiteID:
		return g.BlackID
	case g.BlackID:
		return g.WhiteID
	}
	return ""
}

// InRoom reports whether the game is bound to room.
func (g *Game) InRoom(room string) bool {
	return room != "" && (g.OriginRoom == room || g.ResolveRoom == room)
}

// Engine rebuilds the rules engine from the stored snapshot.
func (g *Game) Engine() (*fogchess.Engine, error) {
	return fogchess.Restore(g.Snapshot)
}

// ResultSink receives games once they reach a terminal status.
type ResultSink interface {
	SaveResult(ctx context.Context, g *Game, method string) error
}
