package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"receptionist-platform/internal/agents"
	"receptionist-platform/internal/audit"
	"receptionist-platform/internal/auth"
	"receptionist-platform/internal/calls"
	"receptionist-platform/internal/chatsessions"
	"receptionist-platform/internal/config"
	"receptionist-platform/internal/demos"
	"receptionist-platform/internal/httpapi"
	"receptionist-platform/internal/llm"
	"receptionist-platform/internal/scrape"
	"receptionist-platform/internal/voice"
	"receptionist-platform/internal/widgets"
	"receptionist-platform/pkg/logger"
	"receptionist-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Upstream providers.
	researcher := scrape.NewClient(cfg.Scrape)
	synthesizer := llm.NewClient(cfg.LLM, cfg.App.BaseURL)
	platform := voice.NewClient(cfg.Voice)

	// Domain services.
	auditor := audit.NewService(audit.NewPostgresRepo(db))
	agentRepo := agents.NewPostgresRepo(db)
	agentSvc := agents.NewService(agentRepo, researcher, synthesizer, platform, auditor, rdb, agents.ServiceConfig{
		CallbackURL:    cfg.WebhookCallbackURL(),
		CallbackSecret: cfg.Voice.WebhookSecret,
	})
	demoSvc := demos.NewService(demos.NewPostgresRepo(db), researcher, synthesizer)

	h := httpapi.Handlers{
		Auth:          authManager,
		Agents:        agentSvc,
		Calls:         calls.NewService(agentRepo, platform),
		Widgets:       widgets.NewService(widgets.NewPostgresRepo(db), agentRepo, auditor, rdb, cfg.Voice.PublicKey, cfg.App.BaseURL),
		Demos:         demoSvc,
		ChatSessions:  chatsessions.NewService(chatsessions.NewPostgresRepo(db)),
		Platform:      platform,
		WebhookSecret: cfg.Voice.WebhookSecret,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	httpapi.Register(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute, // provisioning waits on rendering-heavy scrapes
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
