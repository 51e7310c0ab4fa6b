package pvpfog

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/fogchess-bot/internal/fogchess"
	"github.com/park285/fogchess-bot/internal/obslog"
	"github.com/park285/fogchess-bot/internal/render"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultGameTTL = 24 * time.Hour

var (
	ErrNotInitialized = errors.New("pvp manager not initialized")
	ErrInvalidUser    = errors.New("invalid user")
	ErrGameNotFound   = errors.New("game not found")
	ErrNotInGame      = errors.New("user not in game")
	ErrGameNotInRoom  = errors.New("game not in room")
	ErrGameOver       = errors.New("game no longer active")

	// flow-control sentinels inside WATCH callbacks; never returned to callers
	errNotYourTurn = errors.New("not_your_turn")
	errIllegalMove = errors.New("illegal_move")
)

// User-facing replies for rejected commands.
const (
	TextConcurrent  = "동시 명령이 감지되어 처리되지 않았습니다. 다시 시도해주세요."
	TextIllegal     = "유효하지 않은 수입니다."
	TextBadInput    = "잘못된 수 입력입니다. 예: e2e3"
	TextNotYourTurn = "지금은 상대 차례입니다."
)

// IsRejection reports whether a PlayMove reply text means the move was not applied.
func IsRejection(text string) bool {
	switch text {
	case TextConcurrent, TextIllegal, TextBadInput, TextNotYourTurn:
		return true
	}
	return false
}

type Manager struct {
	rdb      *redis.Client
	renderer render.BoardRenderer
	sinks    []ResultSink
	ttl      time.Duration
}

type Option func(*Manager)

// WithTTL overrides how long game keys live in Redis.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

func WithRenderer(r render.BoardRenderer) Option {
	return func(m *Manager) {
		if r != nil {
			m.renderer = r
		}
	}
}

func NewManager(redisURL string, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for PvP manager")
	}
	ropts, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewManagerWithClient(rdb, opts...), nil
}

// NewManagerWithClient wraps an existing client, e.g. one shared with the lobby.
func NewManagerWithClient(rdb *redis.Client, opts ...Option) *Manager {
	m := &Manager{rdb: rdb, renderer: render.NewSVGBoardRenderer(), ttl: defaultGameTTL}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// Client exposes the underlying Redis client for collaborators sharing it.
func (m *Manager) Client() *redis.Client { return m.rdb }

// AttachSink registers a receiver for finished games (database, stats).
func (m *Manager) AttachSink(s ResultSink) {
	if m != nil && s != nil {
		m.sinks = append(m.sinks, s)
	}
}

// CreateGame starts a new game between challenger and target.
// colorChoice is the challenger's preference: white, black or random.
func (m *Manager) CreateGame(ctx context.Context, originRoom, resolveRoom, challengerID, challengerName, targetID, targetName, colorChoice string) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	challengerID, targetID = strings.TrimSpace(challengerID), strings.TrimSpace(targetID)
	if challengerID == "" || targetID == "" || challengerID == targetID {
		return nil, fmt.Errorf("invalid participants")
	}

	whiteID, whiteName := challengerID, challengerName
	blackID, blackName := targetID, targetName
	switch strings.ToLower(strings.TrimSpace(colorChoice)) {
	case "white", "w":
	case "black", "b":
		whiteID, whiteName, blackID, blackName = targetID, targetName, challengerID, challengerName
	default:
		if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
			whiteID, whiteName, blackID, blackName = targetID, targetName, challengerID, challengerName
		}
	}

	now := time.Now()
	eng := fogchess.NewEngine()
	g := &Game{
		ID:          "fog-" + uuid.NewString(),
		Snapshot:    eng.Snapshot(),
		Moves:       []string{},
		Turn:        colorFrom(eng.Turn()),
		Status:      StatusActive,
		WhiteID:     whiteID,
		WhiteName:   displayName(whiteName, whiteID),
		BlackID:     blackID,
		BlackName:   displayName(blackName, blackID),
		OriginRoom:  strings.TrimSpace(originRoom),
		ResolveRoom: strings.TrimSpace(resolveRoom),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.save(ctx, g); err != nil {
		return nil, err
	}
	if err := m.indexParticipants(ctx, g.ID, g.WhiteID, g.BlackID); err != nil {
		return nil, err
	}
	obslog.L().Info("fog_game_create",
		zap.String("game_id", g.ID),
		zap.String("origin_room", g.OriginRoom),
		zap.String("resolve_room", g.ResolveRoom),
		zap.String("white_id", g.WhiteID),
		zap.String("black_id", g.BlackID),
	)
	return g, nil
}

func displayName(name, id string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return id
}

// GetActiveGameByUser returns the most recently updated active game for a user.
func (m *Manager) GetActiveGameByUser(ctx context.Context, userID string) (*Game, error) {
	return m.latestActive(ctx, userID, func(*Game) bool { return true })
}

// GetActiveGameByUserInRoom is GetActiveGameByUser restricted to games bound to room.
// 같은 사용자가 여러 방에서 동시에 대국할 때 다른 방 게임에 수가 적용되지 않도록 사용.
func (m *Manager) GetActiveGameByUserInRoom(ctx context.Context, userID, room string) (*Game, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return nil, nil
	}
	return m.latestActive(ctx, userID, func(g *Game) bool { return g.InRoom(room) })
}

func (m *Manager) latestActive(ctx context.Context, userID string, keep func(*Game) bool) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	var list []*Game
	for _, id := range ids {
		g, gerr := m.get(ctx, id)
		if gerr != nil || g == nil || g.Status != StatusActive || !keep(g) {
			continue
		}
		list = append(list, g)
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list[0], nil
}

// PlayMove applies a move for the user's latest active game. Rule
// rejections come back as reply text with a nil error.
func (m *Manager) PlayMove(ctx context.Context, userID, moveStr string) (*Game, string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, "", ErrInvalidUser
	}
	g, err := m.GetActiveGameByUser(ctx, userID)
	if err != nil || g == nil {
		return nil, "", err
	}
	return m.playMove(ctx, g, userID, "", moveStr)
}

// PlayMoveByRoom is PlayMove scoped to the user's game in roomID.
func (m *Manager) PlayMoveByRoom(ctx context.Context, userID, roomID, moveStr string) (*Game, string, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(roomID) == "" {
		return nil, "", fmt.Errorf("invalid parameters")
	}
	g, err := m.GetActiveGameByUserInRoom(ctx, userID, roomID)
	if err != nil || g == nil {
		return nil, "", err
	}
	return m.playMove(ctx, g, userID, strings.TrimSpace(roomID), moveStr)
}

// playMove runs inside a WATCH on the game key: this is the per-game
// exclusive section, so at most one move per game is applied at a time.
func (m *Manager) playMove(ctx context.Context, g *Game, userID, roomID, moveStr string) (*Game, string, error) {
	userID = strings.TrimSpace(userID)
	gameK := gameKey(g.ID)
	oldLen := len(g.Moves)
	var resultText string

	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := m.loadTx(ctx, tx, gameK)
		if err != nil {
			return err
		}
		if cur.Status != StatusActive || len(cur.Moves) != oldLen {
			return redis.TxFailedErr
		}
		if roomID != "" && !cur.InRoom(roomID) {
			return ErrGameNotInRoom
		}
		side := cur.ColorOf(userID)
		if side == "" {
			return ErrNotInGame
		}
		if cur.Turn != side {
			return errNotYourTurn
		}

		from, to, ok := ParseMoveInput(moveStr)
		if !ok {
			resultText = TextBadInput
			return errIllegalMove
		}
		eng, err := cur.Engine()
		if err != nil {
			return err
		}
		if !eng.MakeMove(from, to) {
			resultText = TextIllegal
			return errIllegalMove
		}

		cur.Snapshot = eng.Snapshot()
		cur.Moves = append(cur.Moves, from+to)
		cur.Turn = colorFrom(eng.Turn())
		cur.UpdatedAt = time.Now()
		if winner, over := eng.GameState().Winner(); over {
			cur.Status = StatusFinished
			cur.Outcome = string(colorFrom(winner))
			cur.Winner = cur.WhiteID
			if winner == fogchess.Black {
				cur.Winner = cur.BlackID
			}
			cur.Method = MethodKingCapture
		}

		if err := m.saveTx(ctx, tx, cur); err != nil {
			return err
		}
		g = cur
		resultText = fmt.Sprintf("%s: %s-%s", g.NameOf(side), from, to)
		return nil
	}, gameK)

	if err != nil {
		switch {
		case errors.Is(err, redis.TxFailedErr):
			return g, TextConcurrent, nil
		case errors.Is(err, errIllegalMove):
			if strings.TrimSpace(resultText) == "" {
				resultText = TextIllegal
			}
			return g, resultText, nil
		case errors.Is(err, errNotYourTurn):
			return g, TextNotYourTurn, nil
		}
		return nil, "", err
	}

	obslog.L().Info("fog_move",
		zap.String("game_id", g.ID),
		zap.String("room_id", roomID),
		zap.String("user_id", userID),
		zap.String("turn", string(g.Turn)),
		zap.Int("ply", len(g.Moves)),
		zap.String("status", string(g.Status)),
		zap.String("outcome", g.Outcome),
	)
	if g.Status == StatusFinished {
		_ = m.persistIfFinal(ctx, g, MethodKingCapture)
	}
	return g, resultText, nil
}

// ParseMoveInput accepts "e2e3", "e2 e3" and "e2-e3". Squares are
// returned lowercased but otherwise unchecked; the engine validates them.
func ParseMoveInput(s string) (from, to string, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", " ", "", "\t", "").Replace(s)
	if len(s) != 4 {
		return "", "", false
	}
	return s[:2], s[2:], true
}

func (m *Manager) Resign(ctx context.Context, userID string) (*Game, string, error) {
	g, err := m.GetActiveGameByUser(ctx, userID)
	if err != nil || g == nil {
		return nil, "", err
	}
	return m.resign(ctx, g, userID, "")
}

// ResignByRoom resigns only the user's game bound to roomID.
func (m *Manager) ResignByRoom(ctx context.Context, userID, roomID string) (*Game, string, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(roomID) == "" {
		return nil, "", fmt.Errorf("invalid parameters")
	}
	g, err := m.GetActiveGameByUserInRoom(ctx, userID, roomID)
	if err != nil || g == nil {
		return nil, "", err
	}
	return m.resign(ctx, g, userID, strings.TrimSpace(roomID))
}

func (m *Manager) resign(ctx context.Context, g *Game, userID, roomID string) (*Game, string, error) {
	userID = strings.TrimSpace(userID)
	gameK := gameKey(g.ID)
	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := m.loadTx(ctx, tx, gameK)
		if err != nil {
			return err
		}
		if cur.Status != StatusActive {
			return redis.TxFailedErr
		}
		if roomID != "" && !cur.InRoom(roomID) {
			return ErrGameNotInRoom
		}
		side := cur.ColorOf(userID)
		if side == "" {
			return ErrNotInGame
		}
		cur.Status = StatusResigned
		cur.Winner = cur.OpponentID(userID)
		cur.Outcome = string(White)
		if side == White {
			cur.Outcome = string(Black)
		}
		cur.Method = MethodResignation
		cur.UpdatedAt = time.Now()
		if err := m.saveTx(ctx, tx, cur); err != nil {
			return err
		}
		g = cur
		return nil
	}, gameK)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, "", ErrGameOver
		}
		return nil, "", err
	}
	obslog.L().Info("fog_resign",
		zap.String("game_id", g.ID),
		zap.String("resigner", userID),
		zap.String("room_id", roomID),
		zap.String("winner", g.Winner),
	)
	_ = m.persistIfFinal(ctx, g, MethodResignation)
	return g, "기권", nil
}

// LoadGame returns the game by ID, or nil when it does not exist.
func (m *Manager) LoadGame(ctx context.Context, id string) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, ErrNotInitialized
	}
	return m.get(ctx, id)
}

func (m *Manager) loadTx(ctx context.Context, tx *redis.Tx, key string) (*Game, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	var cur Game
	if err := json.Unmarshal(raw, &cur); err != nil {
		return nil, err
	}
	return &cur, nil
}

func (m *Manager) saveTx(ctx context.Context, tx *redis.Tx, g *Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(g.ID), raw, m.ttl)
		return nil
	})
	return err
}

func (m *Manager) save(ctx context.Context, g *Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, gameKey(g.ID), raw, m.ttl).Err()
}

func (m *Manager) get(ctx context.Context, id string) (*Game, error) {
	raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (m *Manager) indexParticipants(ctx context.Context, id string, users ...string) error {
	for _, u := range users {
		if strings.TrimSpace(u) == "" {
			continue
		}
		key := idxUserKey(u)
		if err := m.rdb.SAdd(ctx, key, id).Err(); err != nil {
			return err
		}
		// 인덱스 키 TTL도 게임 TTL과 맞춰 누적 방지
		_ = m.rdb.Expire(ctx, key, m.ttl).Err()
	}
	return nil
}

// persistIfFinal hands a terminal game to every attached sink.
func (m *Manager) persistIfFinal(ctx context.Context, g *Game, method string) error {
	if m == nil || g == nil || !g.Over() {
		return nil
	}
	var errs []error
	for _, s := range m.sinks {
		if err := s.SaveResult(ctx, g, method); err != nil {
			obslog.L().Error("fog_result_persist_error", zap.String("game_id", g.ID), zap.String("outcome", g.Outcome), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		obslog.L().Info("fog_result_persist", zap.String("game_id", g.ID), zap.String("outcome", g.Outcome), zap.String("method", method))
	}
	return errors.Join(errs...)
}

func gameKey(id string) string        { return "fog:game:" + strings.TrimSpace(id) }
func idxUserKey(userID string) string { return "fog:index:user:" + strings.TrimSpace(userID) }

// ParseRedisURL turns redis:// or rediss:// URLs into client options.
func ParseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
