package main

import (
	"context"
	"strings"

	"github.com/park285/fogchess-bot/internal/adapter/fogpresenter"
	"github.com/park285/fogchess-bot/internal/fogchess"
	"github.com/park285/fogchess-bot/internal/irisfast"
	"github.com/park285/fogchess-bot/internal/obslog"
	"github.com/park285/fogchess-bot/internal/pvpchan"
	"github.com/park285/fogchess-bot/internal/pvpfog"
	"github.com/park285/fogchess-bot/internal/stats"
	"go.uber.org/zap"
)

// bot routes prefixed chat commands to the lobby and game managers.
type bot struct {
	prefix    string
	games     *pvpfog.Manager
	lobby     *pvpchan.Manager
	stats     *stats.Store // nil when STATS_DIR is unset
	formatter *fogpresenter.Formatter
	presenter *fogpresenter.Presenter
	allowRoom func(room string) bool
}

func (b *bot) Prefix() string { return b.prefix }

// command splits "<prefix> <sub> <args...>"; ok is false for other chatter.
func command(prefix, text string) (sub string, args []string, ok bool) {
	text = strings.TrimSpace(text)
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return "", nil, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return "help", nil, true
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (b *bot) handle(ctx context.Context, msg *irisfast.Message) {
	if msg == nil || strings.TrimSpace(msg.Msg) == "" {
		return
	}
	sub, args, ok := command(b.prefix, msg.Msg)
	if !ok {
		return
	}
	if b.allowRoom != nil && !b.allowRoom(msg.Room) {
		obslog.L().Debug("room_not_allowed", zap.String("room", msg.Room))
		return
	}
	user := msg.UserID()
	if user == "" {
		return
	}
	name := msg.SenderName()
	room := msg.Room
	obslog.L().Info("command", zap.String("room", room), zap.String("user_id", user), zap.String("sub", sub))

	switch sub {
	case "help", "도움말":
		b.reply(ctx, room, b.formatter.Help())
	case "make", "생성":
		res, err := b.lobby.Make(ctx, room, user, name)
		if err != nil {
			b.reply(ctx, room, b.formatter.LobbyError(err))
			return
		}
		b.reply(ctx, room, b.formatter.LobbyMade(res.Code))
	case "join", "참가":
		if len(args) == 0 {
			b.reply(ctx, room, b.formatter.Help())
			return
		}
		b.join(ctx, room, args[0], user, name)
	case "list", "목록":
		list, err := b.lobby.ListLobby(ctx)
		if err != nil {
			b.fail(ctx, room, "lobby_list", err)
			return
		}
		b.reply(ctx, room, b.formatter.LobbyList(list))
	case "board", "보드":
		b.board(ctx, room, user)
	case "resign", "기권":
		g, _, err := b.games.ResignByRoom(ctx, user, room)
		if err != nil {
			b.fail(ctx, room, "resign", err)
			return
		}
		if g == nil {
			b.reply(ctx, room, b.formatter.NoGame())
			return
		}
		b.announceEnd(ctx, g)
	case "stats", "전적":
		if b.stats == nil {
			b.reply(ctx, room, b.formatter.Stats(name, nil))
			return
		}
		st, err := b.stats.Load(user)
		if err != nil {
			b.fail(ctx, room, "stats", err)
			return
		}
		b.reply(ctx, room, b.formatter.Stats(name, st))
	case "top", "순위":
		if b.stats == nil {
			b.reply(ctx, room, b.formatter.Top(nil))
			return
		}
		list, err := b.stats.Top(10)
		if err != nil {
			b.fail(ctx, room, "top", err)
			return
		}
		b.reply(ctx, room, b.formatter.Top(list))
	default:
		b.move(ctx, room, user, strings.Join(append([]string{sub}, args...), ""))
	}
}

func (b *bot) join(ctx context.Context, room, code, user, name string) {
	res, err := b.lobby.Join(ctx, room, code, user, name)
	if err != nil {
		b.reply(ctx, room, b.formatter.LobbyError(err))
		return
	}
	g, err := b.games.LoadGame(ctx, res.GameID)
	if err != nil || g == nil {
		b.fail(ctx, room, "join_load", err)
		return
	}
	started := b.formatter.GameStarted(g)
	wr, br := b.seats(ctx, g)
	if wr == "" || br == "" || wr == br {
		for _, r := range gameRooms(g) {
			b.reply(ctx, r, started)
		}
		return
	}
	b.sendView(ctx, g, g.WhiteID, wr, started)
	b.sendView(ctx, g, g.BlackID, br, started)
}

func (b *bot) board(ctx context.Context, room, user string) {
	g, err := b.games.GetActiveGameByUserInRoom(ctx, user, room)
	if err != nil {
		b.fail(ctx, room, "board", err)
		return
	}
	if g == nil {
		b.reply(ctx, room, b.formatter.NoGame())
		return
	}
	own, opp := b.seatOf(ctx, g, user)
	if own != room || opp == room {
		st, err := b.games.ToDTOForViewer(ctx, g, user)
		if err != nil {
			b.fail(ctx, room, "board", err)
			return
		}
		// the opponent can read this room: no image
		b.reply(ctx, room, b.formatter.Turn(st))
		return
	}
	b.sendView(ctx, g, user, room, "")
}

func (b *bot) move(ctx context.Context, room, user, input string) {
	g, text, err := b.games.PlayMoveByRoom(ctx, user, room, input)
	if err != nil {
		b.fail(ctx, room, "move", err)
		return
	}
	if g == nil {
		b.reply(ctx, room, b.formatter.NoGame())
		return
	}
	if pvpfog.IsRejection(text) {
		b.reply(ctx, room, text)
		return
	}

	mover := g.NameOf(g.ColorOf(user))
	own, opp := b.seatOf(ctx, g, user)
	if !g.Over() {
		if own == "" || opp == "" || own == opp {
			st, err := b.games.ToDTOForViewer(ctx, g, user)
			if err != nil {
				// the move stands; only the turn line is lost
				obslog.L().Warn("turn_render_failed", zap.String("game_id", g.ID), zap.String("room", room), zap.Error(err))
			}
			for _, r := range gameRooms(g) {
				b.reply(ctx, r, joinLines(b.formatter.MoveForOpponent(mover), b.formatter.Turn(st)))
			}
			return
		}
		b.sendView(ctx, g, user, own, b.formatter.MoveForMover(mover, g.Moves[len(g.Moves)-1]))
		b.sendView(ctx, g, g.OpponentID(user), opp, b.formatter.MoveForOpponent(mover))
		return
	}
	b.announceEnd(ctx, g)
}

// announceEnd reveals the full board in every room bound to the game.
func (b *bot) announceEnd(ctx context.Context, g *pvpfog.Game) {
	st, err := b.games.ToDTO(ctx, g, fogchess.Audience)
	if err != nil {
		obslog.L().Error("final_board_render", zap.String("game_id", g.ID), zap.Error(err))
	}
	for _, r := range gameRooms(g) {
		if err := b.presenter.Board(ctx, r, b.formatter.GameOver(g), st); err != nil {
			obslog.L().Warn("send_final_board", zap.String("room", r), zap.Error(err))
		}
	}
	if code, _ := b.lobby.CodeByUserAndGame(ctx, g.WhiteID, g.ID); code != "" {
		if err := b.lobby.Finish(ctx, code); err != nil {
			obslog.L().Warn("lobby_finish_error", zap.String("code", code), zap.Error(err))
		}
	}
}

// sendView sends viewer's projection of g to room, preceded by message
// and followed by the turn line.
func (b *bot) sendView(ctx context.Context, g *pvpfog.Game, viewer, room, message string) {
	st, err := b.games.ToDTOForViewer(ctx, g, viewer)
	if err != nil {
		b.fail(ctx, room, "render", err)
		return
	}
	if err := b.presenter.Board(ctx, room, joinLines(message, b.formatter.Turn(st)), st); err != nil {
		obslog.L().Warn("send_board", zap.String("room", room), zap.Error(err))
	}
}

// seats returns the rooms white and black joined from.
func (b *bot) seats(ctx context.Context, g *pvpfog.Game) (white, black string) {
	code, err := b.lobby.CodeByUserAndGame(ctx, g.WhiteID, g.ID)
	if err != nil || code == "" {
		return "", ""
	}
	white, _ = b.lobby.RoomFor(ctx, code, g.WhiteID)
	black, _ = b.lobby.RoomFor(ctx, code, g.BlackID)
	return white, black
}

func (b *bot) seatOf(ctx context.Context, g *pvpfog.Game, user string) (own, opp string) {
	white, black := b.seats(ctx, g)
	if g.ColorOf(user) == pvpfog.Black {
		return black, white
	}
	return white, black
}

func gameRooms(g *pvpfog.Game) []string {
	rooms := []string{g.OriginRoom}
	if g.ResolveRoom != "" && g.ResolveRoom != g.OriginRoom {
		rooms = append(rooms, g.ResolveRoom)
	}
	return rooms
}

func (b *bot) reply(ctx context.Context, room, text string) {
	if err := b.presenter.Text(ctx, room, text); err != nil {
		obslog.L().Warn("reply_error", zap.String("room", room), zap.Error(err))
	}
}

func (b *bot) fail(ctx context.Context, room, op string, err error) {
	obslog.L().Error("command_failed", zap.String("op", op), zap.String("room", room), zap.Error(err))
	b.reply(ctx, room, b.formatter.LobbyError(err))
}

func joinLines(parts ...string) string {
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}
