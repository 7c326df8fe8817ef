package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/housechat/internal/app/migrate"
	httpx "github.com/splax/housechat/internal/http"
	"github.com/splax/housechat/internal/repository"
	"github.com/splax/housechat/internal/repository/memory"
	"github.com/splax/housechat/internal/repository/postgres"
	"github.com/splax/housechat/internal/service/auth"
	"github.com/splax/housechat/internal/service/contacts"
	"github.com/splax/housechat/internal/service/messages"
	"github.com/splax/housechat/pkg/config"
	"github.com/splax/housechat/pkg/logger"
)

// store is what the API needs from a storage backend.
type store interface {
	repository.AccountRepository
	repository.ProfileRepository
	repository.MessageRepository
	Ping(ctx context.Context) error
}

func main() {
	bootLog := logger.New("housechat-api", slog.LevelInfo)
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		bootLog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.SlogLevel()
	log := logger.New("housechat-api", level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	authSvc := auth.New(repo, repo, log, cfg)
	contactSvc := contacts.New(repo, log)
	messageSvc := messages.New(repo, repo, log)

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, authSvc, contactSvc, messageSvc, limiter, repo.Ping, cfg.MetricsEnabled)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "driver", cfg.StorageDriver)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

// openStore returns the configured backend. The postgres driver migrates the
// schema before serving.
func openStore(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (store, func(), error) {
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	case config.StorageDriverPostgres:
		runner, err := migrate.New(cfg.DatabaseURL, cfg.MigrationsDir, log)
		if err != nil {
			return nil, nil, err
		}
		if err := runner.Up(ctx); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return postgres.New(pool), pool.Close, nil
	}
	return nil, nil, errors.New("unknown storage driver " + cfg.StorageDriver)
}
