package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/xiangqi-arena-viewer/internal/arenafast"
	"github.com/park285/xiangqi-arena-viewer/internal/boardrender"
	appcfg "github.com/park285/xiangqi-arena-viewer/internal/config"
	"github.com/park285/xiangqi-arena-viewer/internal/httpview"
	"github.com/park285/xiangqi-arena-viewer/internal/msgcat"
	"github.com/park285/xiangqi-arena-viewer/internal/obslog"
	"github.com/park285/xiangqi-arena-viewer/internal/presenter"
	"github.com/park285/xiangqi-arena-viewer/internal/session"
	"github.com/park285/xiangqi-arena-viewer/internal/transcript"
	"github.com/park285/xiangqi-arena-viewer/internal/viewstore"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Printf("logger init error: %v", err)
	}
	defer obslog.Sync()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.XUserID != "" {
			h["X-User-Id"] = cfg.XUserID
		}
		if cfg.XSessionID != "" {
			h["X-Session-Id"] = cfg.XSessionID
		}
		return h
	}

	client := arenafast.NewClient(cfg.ArenaBaseURL,
		arenafast.WithHeaderProvider(headers),
		arenafast.WithTimeout(cfg.HTTPTimeout()),
	)

	var pub session.Publisher = session.NopPublisher{}
	var loader httpview.ViewLoader
	if cfg.RedisURL != "" {
		rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, rerr := viewstore.NewRedisClient(rctx, cfg.RedisURL)
		rcancel()
		if rerr != nil {
			obslog.L().Warn("view_store_disabled", zap.Error(rerr))
		} else {
			store := viewstore.NewStore(rdb, cfg.ViewTTL())
			defer func() { _ = store.Close() }()
			pub, loader = store, store
		}
	}

	rec := transcript.New(transcript.WithTexts(cat))
	sess := session.New(rec, client, pub, cfg.EventBuffer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := sess.Run(ctx); err != nil && ctx.Err() == nil {
			obslog.L().Error("session_run_stopped", zap.Error(err))
		}
	}()

	sctx, scancel := context.WithTimeout(ctx, cfg.HTTPTimeout())
	if st, err := sess.Resync(sctx); err != nil {
		obslog.L().Warn("initial_resync_failed", zap.Error(err))
	} else {
		obslog.L().Info("initial_resync", zap.String("status", st.Status), zap.Int("move_count", st.MoveCount))
	}
	scancel()

	ws := arenafast.NewEventStream(cfg.ArenaWSURL, cfg.WSMaxReconnect, cfg.ReconnectDelay())
	ws.SetHeaderProvider(headers)
	ws.SetPingInterval(cfg.PingInterval())
	detach := sess.Attach(ws)
	cctx, ccancel := context.WithTimeout(ctx, 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		// reconnect is already scheduled unless retries are disabled
		obslog.L().Warn("ws_connect_failed", zap.Error(err))
	}
	ccancel()

	pres := presenter.NewPresenter(cat, boardrender.NewRenderer())
	var opts []httpview.Option
	if loader != nil {
		opts = append(opts, httpview.WithViewLoader(loader))
	}
	srv := httpview.NewServer(sess, pres, append(opts, httpview.WithRequestTimeout(cfg.HTTPTimeout()+5*time.Second))...)
	if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		obslog.L().Error("http_serve_failed", zap.Error(err))
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer closeCancel()
	detach()
	_ = ws.Close(closeCtx)
	obslog.L().Info("arena_viewer_stopped")
}
