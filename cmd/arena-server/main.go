package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appcfg "github.com/kapu/pong-arena/internal/config"
	"github.com/kapu/pong-arena/internal/history"
	"github.com/kapu/pong-arena/internal/hub"
	"github.com/kapu/pong-arena/internal/match"
	"github.com/kapu/pong-arena/internal/notices"
	"github.com/kapu/pong-arena/internal/obslog"
	"github.com/kapu/pong-arena/internal/profile"
	"github.com/kapu/pong-arena/internal/relay"
	"github.com/kapu/pong-arena/internal/session"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	cat, err := notices.New(cfg.NoticeDir)
	if err != nil {
		log.Fatalf("notice catalog error: %v", err)
	}

	sessions, err := session.NewStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("session store init error: %v", err)
	}
	repo, err := history.NewRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("history repo init error: %v", err)
	}
	profiles := profile.NewClient(cfg.ProfileBaseURL)

	conns := hub.NewRegistry(sessions, cfg.ReconnectGrace, cat)
	rooms := match.NewRegistry(cfg.MaxActiveRooms, profiles, conns)
	orch := match.NewOrchestrator(rooms, conns, repo, cat, cfg.InviteTimeout)
	conns.SetHooks(orch.HandleGone, rooms.Rebind)

	dispatcher := relay.New(conns, rooms, orch, profiles, cat)
	wsServer := hub.NewServer(conns, dispatcher.Handle)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("server_listen", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obslog.L().Fatal("server_error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	obslog.L().Info("server_shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	_ = sessions.Close()
	_ = repo.Close()
}
