package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Egress modes for outbound replies.
const (
	EgressHTTP = "http"
	EgressWS   = "ws"
	EgressAuto = "auto"
)

type AppConfig struct {
	IrisBaseURL string
	IrisWSURL   string
	EgressMode  string

	BotPrefix string

	XUserID    string
	XUserEmail string
	XSessionID string

	RedisURL    string
	DatabaseURL string
	StatsDir    string

	SpectateAddr string
	SpectateLive bool

	MsgOverrideDir string
	AllowedRooms   []string
	GameTTL        time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		BotPrefix:  "fog",
		EgressMode: EgressHTTP,
		GameTTL:    24 * time.Hour,
	}

	cfg.IrisBaseURL = env("IRIS_BASE_URL")
	cfg.IrisWSURL = env("IRIS_WS_URL")
	if v := strings.ToLower(env("EGRESS_MODE")); v != "" {
		cfg.EgressMode = v
	}
	if v := env("BOT_PREFIX"); v != "" {
		cfg.BotPrefix = v
	}

	cfg.XUserID = env("X_USER_ID")
	cfg.XUserEmail = env("X_USER_EMAIL")
	cfg.XSessionID = env("X_SESSION_ID")

	cfg.RedisURL = env("REDIS_URL")
	cfg.DatabaseURL = env("DATABASE_URL")
	cfg.StatsDir = env("STATS_DIR")
	cfg.SpectateAddr = env("SPECTATE_ADDR")
	cfg.MsgOverrideDir = env("MSG_OVERRIDE_DIR")

	if v := env("SPECTATE_LIVE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SPECTATE_LIVE: %w", err)
		}
		cfg.SpectateLive = b
	}
	if v := env("GAME_TTL"); v != "" {
		d, err := parseTTL(v)
		if err != nil {
			return nil, fmt.Errorf("GAME_TTL: %w", err)
		}
		cfg.GameTTL = d
	}
	cfg.AllowedRooms = splitList(env("ALLOWED_ROOMS"))

	if cfg.IrisBaseURL == "" {
		return nil, errors.New("IRIS_BASE_URL is required")
	}
	if cfg.IrisWSURL == "" {
		return nil, errors.New("IRIS_WS_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	switch cfg.EgressMode {
	case EgressHTTP, EgressWS, EgressAuto:
	default:
		return nil, fmt.Errorf("EGRESS_MODE must be one of %q, %q, %q", EgressHTTP, EgressWS, EgressAuto)
	}
	return cfg, nil
}

// RoomAllowed reports whether the bot may answer in room. An empty allow
// list permits every room.
func (c *AppConfig) RoomAllowed(room string) bool {
	if len(c.AllowedRooms) == 0 {
		return true
	}
	for _, r := range c.AllowedRooms {
		if r == room {
			return true
		}
	}
	return false
}

func env(k string) string { return strings.TrimSpace(os.Getenv(k)) }

// parseTTL accepts Go durations ("36h") or plain seconds.
func parseTTL(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, errors.New("must be positive")
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
