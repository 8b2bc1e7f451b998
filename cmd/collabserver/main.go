// Command collabserver runs the pipeline-board collaboration server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sisilabsai/nexenairis-collab/internal/config"
	"github.com/sisilabsai/nexenairis-collab/internal/httpapi"
	"github.com/sisilabsai/nexenairis-collab/internal/hub"
	"github.com/sisilabsai/nexenairis-collab/internal/presence"
	"github.com/sisilabsai/nexenairis-collab/internal/room"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := room.Options{
		LockTTL:     cfg.LockTTL,
		PresenceTTL: cfg.PresenceTTL,
		Logger:      logger,
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		defer rdb.Close()
		opts.Presence = presence.NewRedis(rdb)
		logger.Info("presence registry enabled", zap.String("redis_addr", cfg.RedisAddr))
	}

	h := hub.NewHub(ctx, opts)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.SetupRoutes(h, logger),
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	h.Inbox() <- hub.ShutdownHub{}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
