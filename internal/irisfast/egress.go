package irisfast

import (
	"context"
	"errors"

	"github.com/park285/fogchess-bot/internal/obslog"
	"go.uber.org/zap"
)

// Egress abstracts message/image sending over HTTP or WebSocket.
type Egress interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

// Egress modes.
const (
	ModeHTTP = "http"
	ModeWS   = "ws"
	ModeAuto = "auto"
)

// NewEgress picks the reply transport. Auto prefers the websocket while it
// is connected and falls back to HTTP once per failed send. dryrun logs
// websocket frames instead of writing them.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket) Egress {
	switch mode {
	case ModeWS:
		return &wsEgress{ws: ws, dryrun: dryrun}
	case ModeAuto:
		return &autoEgress{ws: &wsEgress{ws: ws, dryrun: dryrun}, http: &httpEgress{c: c}}
	default:
		return &httpEgress{c: c}
	}
}

// httpEgress delegates to Client.
type httpEgress struct{ c *Client }

func (h *httpEgress) SendText(ctx context.Context, room, message string) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.SendMessage(ctx, room, message)
}

func (h *httpEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.SendImage(ctx, room, imageBase64)
}

// wsEgress writes ReplyRequest frames over the websocket.
type wsEgress struct {
	ws     *WebSocket
	dryrun bool
}

func (w *wsEgress) SendText(ctx context.Context, room, message string) error {
	return w.send(ctx, "text", room, message)
}

func (w *wsEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	return w.send(ctx, "image", room, imageBase64)
}

func (w *wsEgress) send(ctx context.Context, typ, room, data string) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	if w.dryrun {
		obslog.L().Info("ws_egress_dryrun", zap.String("type", typ), zap.String("room", room), zap.Int("bytes", len(data)))
		return nil
	}
	return w.ws.WriteJSON(ctx, &ReplyRequest{Type: typ, Room: room, Data: data})
}

func (w *wsEgress) ready() bool {
	return w != nil && w.ws != nil && w.ws.State() == WSStateConnected
}

type autoEgress struct {
	ws   *wsEgress
	http *httpEgress
}

func (a *autoEgress) SendText(ctx context.Context, room, message string) error {
	if a.ws.ready() {
		if err := a.ws.SendText(ctx, room, message); err == nil {
			return nil
		}
		obslog.L().Warn("egress_fallback", zap.String("type", "text"), zap.String("room", room))
	}
	return a.http.SendText(ctx, room, message)
}

func (a *autoEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	if a.ws.ready() {
		if err := a.ws.SendImage(ctx, room, imageBase64); err == nil {
			return nil
		}
		obslog.L().Warn("egress_fallback", zap.String("type", "image"), zap.String("room", room))
	}
	return a.http.SendImage(ctx, room, imageBase64)
}
