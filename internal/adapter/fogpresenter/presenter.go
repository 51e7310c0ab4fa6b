package fogpresenter

import (
	"context"
	"strings"

	"github.com/park285/fogchess-bot/internal/irisfast"
	"github.com/park285/fogchess-bot/pkg/fogdto"
)

// Presenter delivers formatted messages and board images without coupling to the command layer.
type Presenter struct {
	out irisfast.Egress
}

func NewPresenter(out irisfast.Egress) *Presenter {
	return &Presenter{out: out}
}

// Text sends message to room; blank messages are skipped.
func (p *Presenter) Text(ctx context.Context, room, message string) error {
	if p == nil || p.out == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.out.SendText(ctx, room, message)
}

// Board sends message followed by the rendered board, when one is present.
func (p *Presenter) Board(ctx context.Context, room, message string, state *fogdto.SessionState) error {
	if p == nil || p.out == nil {
		return nil
	}
	if err := p.Text(ctx, room, message); err != nil {
		return err
	}
	if state != nil && len(state.BoardImage) > 0 {
		return p.out.SendImage(ctx, room, irisfast.EncodeImage(state.BoardImage))
	}
	return nil
}
