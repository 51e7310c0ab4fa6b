package pvpfog

import (
	"context"
	"errors"
	"fmt"

	"github.com/park285/fogchess-bot/internal/fogchess"
	"github.com/park285/fogchess-bot/internal/render"
	"github.com/park285/fogchess-bot/pkg/fogdto"
)

// ErrViewForbidden is returned when a non-participant asks for a live board.
var ErrViewForbidden = errors.New("board hidden while the game is in progress")

// PerspectiveFor picks the projection a viewer is entitled to: their own side
// while playing, the full board for anyone once the game is over.
func PerspectiveFor(g *Game, viewerID string) (fogchess.Perspective, error) {
	if viewerID != "" {
		switch g.ColorOf(viewerID) {
		case White:
			return fogchess.WhiteView, nil
		case Black:
			return fogchess.BlackView, nil
		}
	}
	if g.Over() {
		return fogchess.Audience, nil
	}
	return fogchess.Audience, ErrViewForbidden
}

// ToDTOForViewer renders the board from the viewer's side.
func (m *Manager) ToDTOForViewer(ctx context.Context, g *Game, viewerID string) (*fogdto.SessionState, error) {
	if m == nil || g == nil {
		return nil, nil
	}
	p, err := PerspectiveFor(g, viewerID)
	if err != nil {
		return nil, err
	}
	return m.ToDTO(ctx, g, p)
}

// ToDTO renders the board in perspective p without checking entitlement.
func (m *Manager) ToDTO(ctx context.Context, g *Game, p fogchess.Perspective) (*fogdto.SessionState, error) {
	eng, err := g.Engine()
	if err != nil {
		return nil, fmt.Errorf("restore game %s: %w", g.ID, err)
	}
	view := eng.Board(p)
	opts := render.Options{
		HUDHeader: fmt.Sprintf("%s vs %s", g.WhiteName, g.BlackName),
		HUDTurn:   hudTurn(g),
		Highlight: lastHighlight(g, p),
		Flip:      p == fogchess.BlackView,
	}
	png, err := m.renderer.RenderPNG(ctx, view, opts)
	if err != nil {
		return nil, err
	}
	return &fogdto.SessionState{
		GameID:      g.ID,
		Perspective: p.String(),
		Board:       view.Rows(),
		Turn:        string(g.Turn),
		Status:      string(g.Status),
		Outcome:     g.Outcome,
		WhiteName:   g.WhiteName,
		BlackName:   g.BlackName,
		Moves:       visibleMoves(g, p),
		MoveCount:   len(g.Moves),
		HiddenCount: countHidden(view),
		BoardImage:  png,
	}, nil
}

// Summary returns the public header of g.
func Summary(g *Game) fogdto.GameSummary {
	return fogdto.GameSummary{
		GameID:    g.ID,
		Status:    string(g.Status),
		Turn:      string(g.Turn),
		WhiteName: g.WhiteName,
		BlackName: g.BlackName,
		Winner:    g.Winner,
		Outcome:   g.Outcome,
		MoveCount: len(g.Moves),
	}
}

func hudTurn(g *Game) string {
	if g.Over() {
		switch g.Outcome {
		case string(White):
			return "White won"
		case string(Black):
			return "Black won"
		}
		return string(g.Status)
	}
	n := len(g.Moves)/2 + 1
	if g.Turn == White {
		return fmt.Sprintf("White • %d", n)
	}
	return fmt.Sprintf("Black • %d", n)
}

// moverOf returns the side that played ply i (0-based).
func moverOf(i int) fogchess.Color {
	if i%2 == 0 {
		return fogchess.White
	}
	return fogchess.Black
}

// visibleMoves hides the opponent's move squares from a player while live.
func visibleMoves(g *Game, p fogchess.Perspective) []string {
	viewer, player := p.Color()
	out := make([]string, len(g.Moves))
	for i, mv := range g.Moves {
		if player && !g.Over() && moverOf(i) != viewer {
			out[i] = "????"
			continue
		}
		out[i] = mv
	}
	return out
}

func lastHighlight(g *Game, p fogchess.Perspective) *render.MoveHighlight {
	n := len(g.Moves)
	if n == 0 {
		return nil
	}
	if viewer, player := p.Color(); player && !g.Over() && moverOf(n-1) != viewer {
		return nil
	}
	mv := g.Moves[n-1]
	if len(mv) != 4 {
		return nil
	}
	from, err1 := fogchess.ParseSquare(mv[:2])
	to, err2 := fogchess.ParseSquare(mv[2:])
	if err1 != nil || err2 != nil {
		return nil
	}
	return &render.MoveHighlight{From: render.SquareOf(from), To: render.SquareOf(to)}
}

func countHidden(v fogchess.View) int {
	n := 0
	for r := range v {
		for c := range v[r] {
			if v[r][c] == fogchess.HiddenSymbol {
				n++
			}
		}
	}
	return n
}
