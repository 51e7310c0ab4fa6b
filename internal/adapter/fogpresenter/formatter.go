package fogpresenter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/fogchess-bot/internal/msgcat"
	"github.com/park285/fogchess-bot/internal/pvpchan"
	"github.com/park285/fogchess-bot/internal/pvpfog"
	"github.com/park285/fogchess-bot/internal/stats"
	"github.com/park285/fogchess-bot/internal/util"
	"github.com/park285/fogchess-bot/pkg/fogdto"
)

// PrefixProvider exposes the command prefix replies should quote.
type PrefixProvider interface {
	Prefix() string
}

// foldAfter is the line count past which list replies are folded.
const foldAfter = 8

// Formatter renders game events into chat text through the message catalog.
type Formatter struct {
	prefix PrefixProvider
	cat    *msgcat.Catalog
}

func NewFormatter(provider PrefixProvider, cat *msgcat.Catalog) *Formatter {
	return &Formatter{prefix: provider, cat: cat}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefix == nil {
		return ""
	}
	return strings.TrimSpace(f.prefix.Prefix())
}

func (f *Formatter) text(key string, data map[string]any, fallback string) string {
	if data == nil {
		data = map[string]any{}
	}
	data["Prefix"] = f.Prefix()
	return f.cat.Text(key, data, fallback)
}

func (f *Formatter) Help() string {
	return util.FoldLines(f.text("fog.help", nil, "fog help"), foldAfter)
}

func (f *Formatter) LobbyMade(code string) string {
	return f.text("fog.lobby.made", map[string]any{"Code": code}, "대기방 "+code)
}

func (f *Formatter) GameStarted(g *pvpfog.Game) string {
	return f.text("fog.lobby.started", map[string]any{"White": g.WhiteName, "Black": g.BlackName},
		fmt.Sprintf("%s vs %s", g.WhiteName, g.BlackName))
}

func (f *Formatter) LobbyList(list []*pvpchan.ChannelMeta) string {
	if len(list) == 0 {
		return f.text("fog.lobby.list_empty", nil, "대기 중인 방이 없습니다.")
	}
	lines := []string{f.text("fog.lobby.list_header", nil, "대기방 목록")}
	for _, m := range list {
		creator := m.CreatorName
		if creator == "" {
			creator = m.CreatorID
		}
		lines = append(lines, f.text("fog.lobby.list_item", map[string]any{"Code": m.ID, "Creator": creator}, "- "+m.ID))
	}
	return util.FoldLines(strings.Join(lines, "\n"), foldAfter)
}

// LobbyError maps lobby and game failures to replies.
func (f *Formatter) LobbyError(err error) string {
	key := "fog.error.generic"
	switch {
	case errors.Is(err, pvpchan.ErrChannelGone):
		key = "fog.lobby.gone"
	case errors.Is(err, pvpchan.ErrFull):
		key = "fog.lobby.full"
	case errors.Is(err, pvpchan.ErrChannelActive):
		key = "fog.lobby.active"
	case errors.Is(err, pvpchan.ErrPlayerBusyInRoom):
		key = "fog.lobby.busy"
	case errors.Is(err, pvpchan.ErrCreatorHasLobby):
		key = "fog.lobby.has_lobby"
	case errors.Is(err, pvpchan.ErrSelfJoin):
		key = "fog.lobby.self_join"
	case errors.Is(err, pvpfog.ErrViewForbidden):
		key = "fog.game.forbidden"
	}
	return f.text(key, nil, "오류가 발생했습니다.")
}

// MoveForMover echoes the accepted move to the player who made it.
func (f *Formatter) MoveForMover(name, move string) string {
	from, to, ok := pvpfog.ParseMoveInput(move)
	if !ok {
		return ""
	}
	return f.text("fog.game.move", map[string]any{"Mover": name, "From": from, "To": to}, name+": "+from+"-"+to)
}

// MoveForOpponent announces a move without revealing its squares.
func (f *Formatter) MoveForOpponent(name string) string {
	return f.text("fog.game.hidden_move", map[string]any{"Mover": name}, name)
}

// Turn describes whose move it is.
func (f *Formatter) Turn(st *fogdto.SessionState) string {
	if st == nil || st.Outcome != "" {
		return ""
	}
	name, color := st.WhiteName, "백"
	if st.Turn == string(pvpfog.Black) {
		name, color = st.BlackName, "흑"
	}
	return f.text("fog.game.turn", map[string]any{"Name": name, "Color": color, "Ply": st.MoveCount + 1}, name)
}

// GameOver announces the result of a finished game.
func (f *Formatter) GameOver(g *pvpfog.Game) string {
	if g == nil || !g.Over() {
		return ""
	}
	winner := pvpfog.Color(g.Outcome)
	loser := pvpfog.White
	if winner == pvpfog.White {
		loser = pvpfog.Black
	}
	data := map[string]any{"Winner": g.NameOf(winner), "Loser": g.NameOf(loser)}
	if g.Method == pvpfog.MethodResignation {
		return f.text("fog.game.over_resign", data, "기권")
	}
	return f.text("fog.game.over_capture", data, "승리: "+g.NameOf(winner))
}

func (f *Formatter) NoGame() string {
	return f.text("fog.game.no_game", nil, "진행 중인 대국이 없습니다.")
}

func (f *Formatter) Stats(name string, st *fogdto.PlayerStats) string {
	if st == nil || st.GamesPlayed == 0 {
		return f.text("fog.stats.empty", nil, "아직 전적이 없습니다.")
	}
	if st.Name != "" {
		name = st.Name
	}
	return f.text("fog.stats.line", map[string]any{
		"Name":     name,
		"Games":    st.GamesPlayed,
		"Wins":     st.Wins,
		"Losses":   st.Losses,
		"Rate":     fmt.Sprintf("%.0f", stats.WinRate(st)),
		"Captures": st.KingCaptures,
		"Longest":  st.LongestStreak,
	}, name)
}

func (f *Formatter) Top(list []*fogdto.PlayerStats) string {
	if len(list) == 0 {
		return f.text("fog.stats.empty", nil, "아직 전적이 없습니다.")
	}
	lines := []string{f.text("fog.stats.top_header", nil, "순위")}
	for i, st := range list {
		name := st.Name
		if name == "" {
			name = st.UserID
		}
		lines = append(lines, f.text("fog.stats.top_item", map[string]any{
			"Rank": i + 1, "Name": name, "Wins": st.Wins, "Losses": st.Losses,
		}, name))
	}
	return util.FoldLines(strings.Join(lines, "\n"), foldAfter)
}

func (f *Formatter) Error(key string) string {
	return f.text("fog.error."+key, nil, "오류가 발생했습니다.")
}
