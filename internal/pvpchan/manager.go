package pvpchan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/fogchess-bot/internal/obslog"
	"github.com/park285/fogchess-bot/internal/pvpfog"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Games is the part of pvpfog.Manager the lobby starts and checks games with.
type Games interface {
	GetActiveGameByUserInRoom(ctx context.Context, userID, room string) (*pvpfog.Game, error)
	CreateGame(ctx context.Context, originRoom, resolveRoom, challengerID, challengerName, targetID, targetName, colorChoice string) (*pvpfog.Game, error)
}

type Manager struct {
	rdb   *redis.Client
	store *Store
	pvp   Games
}

func NewManager(rdb *redis.Client, pvp Games) *Manager {
	return &Manager{rdb: rdb, store: NewStore(rdb), pvp: pvp}
}

// Make opens a lobby channel in room and returns its join code.
func (m *Manager) Make(ctx context.Context, room, userID, userName string) (*MakeResult, error) {
	room, userID = strings.TrimSpace(room), strings.TrimSpace(userID)
	if room == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	// 동시성: 플레이어가 동일 방에서 이미 진행 중인 대국이 있으면 채널 생성 금지
	if g, err := m.pvp.GetActiveGameByUserInRoom(ctx, userID, room); err != nil {
		return nil, err
	} else if g != nil {
		return nil, ErrPlayerBusyInRoom
	}
	if prev, err := m.store.CreatorLobby(ctx, userID); err != nil {
		return nil, err
	} else if prev != "" {
		if meta, _ := m.store.LoadMeta(ctx, prev); meta != nil && meta.State == StateLobby {
			return nil, ErrCreatorHasLobby
		}
	}

	for i := 0; i < 5; i++ {
		c, err := codeGen()
		if err != nil {
			return nil, err
		}
		// reserve the key first; collisions retry with a fresh code
		ok, err := m.rdb.SetNX(ctx, m.store.keyMeta(c), []byte("{}"), ttlChannel).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		meta := &ChannelMeta{
			ID:          c,
			State:       StateLobby,
			CreatedAt:   time.Now(),
			CreatorID:   userID,
			CreatorName: strings.TrimSpace(userName),
			CreatorRoom: room,
		}
		if err := m.store.SaveMeta(ctx, c, meta); err != nil {
			return nil, err
		}
		if err := m.store.AddRoom(ctx, c, room); err != nil {
			return nil, err
		}
		// record creator as first participant so the second join starts the game
		if err := m.store.AddParticipant(ctx, c, userID); err != nil {
			return nil, err
		}
		if err := m.store.SetSeat(ctx, c, userID, room); err != nil {
			return nil, err
		}
		if err := m.store.SetCreatorLobby(ctx, userID, c); err != nil {
			return nil, err
		}
		if err := m.store.AddLobby(ctx, c); err != nil {
			return nil, err
		}
		obslog.L().Info("lobby_make", zap.String("code", c), zap.String("room", room), zap.String("creator_id", userID))
		return &MakeResult{Code: c, Meta: meta}, nil
	}
	return nil, fmt.Errorf("failed to allocate channel code")
}

// Join seats userID in the channel. The second participant starts the game
// with random colors.
func (m *Manager) Join(ctx context.Context, room, code, userID, userName string) (*JoinResult, error) {
	room, userID = strings.TrimSpace(room), strings.TrimSpace(userID)
	code = NormalizeCode(code)
	if room == "" || code == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil || meta.ID == "" {
		return nil, ErrChannelGone
	}
	if meta.State != StateLobby {
		return nil, ErrChannelActive
	}
	if meta.CreatorID == userID {
		return nil, ErrSelfJoin
	}
	// 방 기준 중복 대국 금지: 참가자/생성자 각각 자신의 방에서 ACTIVE 대국이 있는지 검사
	if busy, err := m.pvp.GetActiveGameByUserInRoom(ctx, userID, room); err != nil {
		return nil, err
	} else if busy != nil {
		return nil, ErrPlayerBusyInRoom
	}
	if busy, err := m.pvp.GetActiveGameByUserInRoom(ctx, meta.CreatorID, meta.CreatorRoom); err != nil {
		return nil, err
	} else if busy != nil {
		return nil, ErrPlayerBusyInRoom
	}

	// WATCH participants to prevent race joins
	partKey := m.store.keyParticipants(code)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cnt, err := tx.SCard(ctx, partKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if cnt >= 2 {
			return ErrFull
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SAdd(ctx, partKey, userID)
			pipe.Expire(ctx, partKey, ttlChannel)
			pipe.SAdd(ctx, m.store.keyRooms(code), room)
			pipe.Expire(ctx, m.store.keyRooms(code), ttlChannel)
			pipe.HSet(ctx, m.store.keySeats(code), userID, room)
			pipe.Expire(ctx, m.store.keySeats(code), ttlChannel)
			pipe.SAdd(ctx, m.store.keyUserIdx(userID), code)
			pipe.Expire(ctx, m.store.keyUserIdx(userID), ttlChannel)
			return nil
		})
		return err
	}, partKey)
	if errors.Is(err, redis.TxFailedErr) {
		// another joiner won the seat
		err = ErrChannelActive
	}
	if err != nil {
		obslog.L().Warn("lobby_join_error", zap.String("code", code), zap.String("room", room), zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	g, err := m.pvp.CreateGame(ctx, meta.CreatorRoom, room, meta.CreatorID, meta.CreatorName, userID, userName, "random")
	if err != nil {
		if rerr := m.releaseSeat(ctx, code, meta, userID, room); rerr != nil {
			obslog.L().Error("lobby_release_seat_error", zap.String("code", code), zap.String("user_id", userID), zap.Error(rerr))
		}
		return nil, err
	}
	meta.WhiteID, meta.WhiteName = g.WhiteID, g.WhiteName
	meta.BlackID, meta.BlackName = g.BlackID, g.BlackName
	meta.State = StateActive
	meta.GameID = g.ID
	if err := m.store.SaveMeta(ctx, code, meta); err != nil {
		return nil, err
	}
	_ = m.store.RemoveLobby(ctx, code)
	_ = m.store.ClearCreatorLobby(ctx, meta.CreatorID)
	obslog.L().Info("lobby_start_game", zap.String("code", code), zap.String("game_id", g.ID), zap.String("white_id", g.WhiteID), zap.String("black_id", g.BlackID))
	return &JoinResult{Started: true, GameID: g.ID, Meta: meta}, nil
}

// releaseSeat undoes the participant bookkeeping of a join whose game could
// not be created, so the lobby stays joinable.
func (m *Manager) releaseSeat(ctx context.Context, code string, meta *ChannelMeta, userID, room string) error {
	// background ctx: the join ctx may be the reason CreateGame failed
	ctx = context.WithoutCancel(ctx)
	_, err := m.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, m.store.keyParticipants(code), userID)
		pipe.HDel(ctx, m.store.keySeats(code), userID)
		if room != meta.CreatorRoom {
			pipe.SRem(ctx, m.store.keyRooms(code), room)
		}
		pipe.SRem(ctx, m.store.keyUserIdx(userID), code)
		return nil
	})
	if err == nil {
		obslog.L().Warn("lobby_seat_released", zap.String("code", code), zap.String("user_id", userID))
	}
	return err
}

func (m *Manager) Rooms(ctx context.Context, code string) ([]string, error) {
	return m.store.Rooms(ctx, code)
}

// RoomFor returns the room userID joined the channel from.
func (m *Manager) RoomFor(ctx context.Context, code, userID string) (string, error) {
	return m.store.Seat(ctx, code, userID)
}

// CodeByUserAndGame finds the channel of userID bound to gameID.
func (m *Manager) CodeByUserAndGame(ctx context.Context, userID, gameID string) (string, error) {
	codes, err := m.store.CodesByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, c := range codes {
		meta, _ := m.store.LoadMeta(ctx, c)
		if meta != nil && meta.GameID == gameID {
			return c, nil
		}
	}
	return "", nil
}

// RoomsByUserAndGame finds channel rooms for a user where its channel binds the given game.
func (m *Manager) RoomsByUserAndGame(ctx context.Context, userID, gameID string) ([]string, error) {
	code, err := m.CodeByUserAndGame(ctx, userID, gameID)
	if err != nil || code == "" {
		return nil, err
	}
	return m.store.Rooms(ctx, code)
}

// ListLobby returns lobby (waiting) channels' metadata for listing.
func (m *Manager) ListLobby(ctx context.Context) ([]*ChannelMeta, error) {
	return m.store.ListLobby(ctx)
}

// Finish closes a channel. Lobbies that never started are marked aborted.
func (m *Manager) Finish(ctx context.Context, code string) error {
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return err
	}
	if meta == nil || meta.ID == "" {
		return ErrChannelGone
	}
	if meta.State == StateFinished || meta.State == StateAborted {
		return nil
	}
	if meta.GameID == "" {
		meta.State = StateAborted
	} else {
		meta.State = StateFinished
	}
	if err := m.store.SaveMeta(ctx, code, meta); err != nil {
		return err
	}
	_ = m.store.RemoveLobby(ctx, code)
	if cur, _ := m.store.CreatorLobby(ctx, meta.CreatorID); cur == meta.ID {
		_ = m.store.ClearCreatorLobby(ctx, meta.CreatorID)
	}
	obslog.L().Info("lobby_finish", zap.String("code", meta.ID), zap.String("state", string(meta.State)))
	return nil
}
