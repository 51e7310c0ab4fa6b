// Package stats keeps per-player records of finished fog chess games in BadgerDB.
package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/park285/fogchess-bot/internal/obslog"
	"github.com/park285/fogchess-bot/internal/pvpfog"
	"github.com/park285/fogchess-bot/pkg/fogdto"
	"go.uber.org/zap"
)

const (
	playerPrefix = "player:"
	gamePrefix   = "game:"
)

var ErrNoUser = errors.New("user id required")

// Store wraps BadgerDB for player statistics.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database under dir.
func Open(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("stats dir required")
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory returns a store that lives only as long as the process.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func playerKey(userID string) []byte { return []byte(playerPrefix + strings.TrimSpace(userID)) }
func gameKey(id string) []byte       { return []byte(gamePrefix + strings.TrimSpace(id)) }

// Load returns the record of userID; unknown players get a zero record.
func (s *Store) Load(userID string) (*fogdto.PlayerStats, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrNoUser
	}
	var out *fogdto.PlayerStats
	err := s.db.View(func(txn *badger.Txn) error {
		st, err := loadTxn(txn, userID)
		out = st
		return err
	})
	return out, err
}

func loadTxn(txn *badger.Txn, userID string) (*fogdto.PlayerStats, error) {
	st := &fogdto.PlayerStats{UserID: strings.TrimSpace(userID)}
	item, err := txn.Get(playerKey(userID))
	if err == badger.ErrKeyNotFound {
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, st)
	})
	return st, err
}

func saveTxn(txn *badger.Txn, st *fogdto.PlayerStats) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return txn.Set(playerKey(st.UserID), data)
}

// SaveResult folds a finished game into both players' records. A game is
// counted once; repeated deliveries are ignored.
func (s *Store) SaveResult(_ context.Context, g *pvpfog.Game, method string) error {
	if s == nil || s.db == nil || g == nil || !g.Over() {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(gameKey(g.ID)); err == nil {
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		at := g.UpdatedAt
		if at.IsZero() {
			at = time.Now()
		}
		for _, side := range []pvpfog.Color{pvpfog.White, pvpfog.Black} {
			id := g.WhiteID
			if side == pvpfog.Black {
				id = g.BlackID
			}
			if strings.TrimSpace(id) == "" {
				continue
			}
			st, err := loadTxn(txn, id)
			if err != nil {
				return err
			}
			apply(st, g.NameOf(side), g.Winner == id, method == pvpfog.MethodKingCapture, at)
			if err := saveTxn(txn, st); err != nil {
				return err
			}
		}
		return txn.Set(gameKey(g.ID), []byte(method))
	})
	if err != nil {
		return err
	}
	obslog.L().Debug("stats_recorded", zap.String("game_id", g.ID), zap.String("winner", g.Winner))
	return nil
}

func apply(st *fogdto.PlayerStats, name string, won, kingCapture bool, at time.Time) {
	if n := strings.TrimSpace(name); n != "" {
		st.Name = n
	}
	st.GamesPlayed++
	st.LastPlayed = at
	if !won {
		st.Losses++
		st.CurrentStreak = 0
		return
	}
	st.Wins++
	if kingCapture {
		st.KingCaptures++
	}
	st.CurrentStreak++
	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}
}

// Top returns up to n players ordered by wins, then win rate.
func (s *Store) Top(n int) ([]*fogdto.PlayerStats, error) {
	var all []*fogdto.PlayerStats
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(playerPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			st := &fogdto.PlayerStats{UserID: string(bytes.TrimPrefix(item.Key(), []byte(playerPrefix)))}
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, st) }); err != nil {
				return err
			}
			all = append(all, st)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Wins != all[j].Wins {
			return all[i].Wins > all[j].Wins
		}
		return WinRate(all[i]) > WinRate(all[j])
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

// WinRate returns the win percentage (0-100).
func WinRate(st *fogdto.PlayerStats) float64 {
	if st == nil || st.GamesPlayed == 0 {
		return 0
	}
	return float64(st.Wins) / float64(st.GamesPlayed) * 100
}
