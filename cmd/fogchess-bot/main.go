package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/fogchess-bot/internal/adapter/fogpresenter"
	appcfg "github.com/park285/fogchess-bot/internal/config"
	"github.com/park285/fogchess-bot/internal/irisfast"
	"github.com/park285/fogchess-bot/internal/msgcat"
	"github.com/park285/fogchess-bot/internal/obslog"
	"github.com/park285/fogchess-bot/internal/pvpchan"
	"github.com/park285/fogchess-bot/internal/pvpfog"
	"github.com/park285/fogchess-bot/internal/spectate"
	"github.com/park285/fogchess-bot/internal/stats"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	headers := irisfast.StaticHeaders(cfg.XUserID, cfg.XUserEmail, cfg.XSessionID)
	client := irisfast.NewClient(cfg.IrisBaseURL, irisfast.WithHeaderProvider(headers))
	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", string(state)))
	})
	egress := irisfast.NewEgress(cfg.EgressMode, false, client, ws)

	games, err := pvpfog.NewManager(cfg.RedisURL, pvpfog.WithTTL(cfg.GameTTL))
	if err != nil {
		logger.Fatal("game manager init error", zap.Error(err))
	}
	defer games.Close()

	if cfg.DatabaseURL != "" {
		repo, err := pvpfog.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("result repository init error", zap.Error(err))
		}
		defer repo.Close()
		if err := repo.Migrate(ctx); err != nil {
			logger.Fatal("result repository migrate error", zap.Error(err))
		}
		games.AttachSink(repo)
	}

	var statsStore *stats.Store
	if cfg.StatsDir != "" {
		statsStore, err = stats.Open(cfg.StatsDir)
		if err != nil {
			logger.Fatal("stats init error", zap.Error(err))
		}
		defer statsStore.Close()
		games.AttachSink(statsStore)
	}

	cat, err := msgcat.New(cfg.MsgOverrideDir)
	if err != nil {
		logger.Fatal("message catalog error", zap.Error(err))
	}

	b := &bot{
		prefix:    cfg.BotPrefix,
		games:     games,
		lobby:     pvpchan.NewManager(games.Client(), games),
		stats:     statsStore,
		presenter: fogpresenter.NewPresenter(egress),
		allowRoom: cfg.RoomAllowed,
	}
	b.formatter = fogpresenter.NewFormatter(b, cat)

	if cfg.SpectateAddr != "" {
		opts := spectate.Options{AllowLive: cfg.SpectateLive}
		if statsStore != nil {
			opts.Stats = statsStore
		}
		srv := spectate.NewServer(games, opts)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.SpectateAddr); err != nil {
				logger.Error("spectate server stopped", zap.Error(err))
			}
		}()
	}

	ws.OnMessage(func(msg *irisfast.Message) {
		// keep the websocket read loop free
		go b.handle(ctx, msg)
	})

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = ws.Connect(cctx)
	cancel()
	if err != nil {
		logger.Fatal("ws connect error", zap.Error(err))
	}
	logger.Info("fogchess_bot_started", zap.String("prefix", cfg.BotPrefix), zap.String("egress", cfg.EgressMode))

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = ws.Close(shutdownCtx)
	logger.Info("fogchess_bot_stopped")
}
