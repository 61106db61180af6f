package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/streamingshack/race-api/internal/cache"
	"github.com/streamingshack/race-api/internal/config"
	"github.com/streamingshack/race-api/internal/handlers"
	"github.com/streamingshack/race-api/internal/logic"
	"github.com/streamingshack/race-api/internal/refresh"
	"github.com/streamingshack/race-api/internal/upstream"
	"github.com/streamingshack/race-api/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	var logger *zap.Logger
	if cfg.Env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Redis
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalw("Invalid redis URL", "error", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		sugar.Fatalw("Redis connection failed", "error", err)
	}
	pingCancel()
	defer rdb.Close()

	store := cache.NewRedisStore(rdb)
	lbCache := cache.NewLeaderboard(store, cfg.CacheTTL, logger)

	rangeCfg := logic.RangeConfig{
		From: cfg.WindowFrom,
		To:   cfg.WindowTo,
		Days: cfg.WindowDays,
	}

	fetcher := upstream.NewClient(cfg.UpstreamURL, cfg.UpstreamAPIKey, cfg.UpstreamTimeout, logger)

	controller := refresh.NewController(refresh.Config{
		Fetcher:      fetcher,
		Cache:        lbCache,
		Range:        rangeCfg,
		Prizes:       cfg.PrizeSchedule,
		Rows:         cfg.DisplayRows,
		PollInterval: cfg.PollInterval,
		Cooldown:     cfg.RefreshCooldown,
		Logger:       logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	controller.Start(ctx)
	defer controller.Stop()

	var sender handlers.WebhookSender
	if cfg.WebhookURL != "" {
		sender = webhook.NewClient(cfg.WebhookURL, cfg.UpstreamTimeout, logger)
	} else {
		sugar.Warn("WEBHOOK_URL not set, webhook push disabled")
	}

	h := handlers.New(handlers.Config{
		Provider:      controller,
		Sessions:      store,
		Webhook:       sender,
		Logger:        logger,
		Range:         rangeCfg,
		Prizes:        cfg.PrizeSchedule,
		DisplayRows:   cfg.DisplayRows,
		SnapshotRows:  cfg.SnapshotRows,
		RaceTitle:     cfg.RaceTitle,
		Mask:          logic.MaskByPolicy(cfg.MaskPolicy),
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		SessionTTL:    cfg.SessionTTL,
		SecureCookie:  cfg.Env == "production",
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/leaderboard", h.GetLeaderboard)
		r.Post("/leaderboard/refresh", h.RefreshLeaderboard)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(h.AdminAuthMiddleware)
				r.Post("/logout", h.AdminLogout)
				r.Get("/check", h.AdminCheck)
				r.Get("/snapshot", h.GetSnapshot)
				r.Get("/snapshot/text", h.GetSnapshotText)
				r.Post("/webhook", h.PushWebhook)
			})
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sugar.Infow("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sugar.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Graceful shutdown failed", "error", err)
	}
}
