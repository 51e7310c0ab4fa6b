package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/park285/fogchess-bot/internal/irisfast"
	"github.com/park285/fogchess-bot/internal/obslog"
)

// irischeck probes the Iris endpoints the bot depends on: /config over HTTP and
// the message stream over WS. Use -room to also send a test reply.
func main() {
	room := flag.String("room", "", "room id to send a probe message to")
	watch := flag.Duration("watch", 10*time.Second, "how long to observe the WS stream")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	baseURL := os.Getenv("IRIS_BASE_URL")
	wsURL := os.Getenv("IRIS_WS_URL")
	if baseURL == "" {
		logger.Fatal("IRIS_BASE_URL is required")
	}
	headers := irisfast.StaticHeaders(os.Getenv("X_USER_ID"), os.Getenv("X_USER_EMAIL"), os.Getenv("X_SESSION_ID"))

	client := irisfast.NewClient(baseURL,
		irisfast.WithHeaderProvider(headers),
		irisfast.WithTimeout(8*time.Second),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cfg, err := client.GetConfig(ctx)
	if err != nil {
		logger.Error("config_probe_failed", zap.Error(err))
	} else {
		logger.Info("config_probe_ok",
			zap.Int("port", cfg.Port),
			zap.Int("polling", cfg.PollingSpeed),
			zap.Int("rate", cfg.MessageRate),
			zap.String("endpoint", cfg.WebserverEndpoint),
		)
	}

	if *room != "" {
		if err := client.SendMessage(ctx, *room, "fogchess irischeck"); err != nil {
			logger.Error("reply_probe_failed", zap.String("room", *room), zap.Error(err))
		} else {
			logger.Info("reply_probe_ok", zap.String("room", *room))
		}
	}

	if wsURL == "" {
		logger.Info("ws_probe_skipped", zap.String("reason", "IRIS_WS_URL not set"))
		return
	}

	ws := irisfast.NewWebSocket(wsURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		logger.Info("ws_state", zap.String("state", string(state)))
	})
	ws.OnMessage(func(msg *irisfast.Message) {
		fmt.Printf("room=%s user=%s name=%s text=%q\n", msg.Room, msg.UserID(), msg.SenderName(), msg.Msg)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		logger.Error("ws_connect_failed", zap.Error(err))
		return
	}

	t := time.NewTimer(*watch)
	<-t.C

	_ = ws.Close(context.Background())
}
