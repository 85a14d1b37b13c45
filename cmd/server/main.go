package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hitunghpp/backend/internal/cache"
	"hitunghpp/backend/internal/config"
	"hitunghpp/backend/internal/httpapi"
	"hitunghpp/backend/internal/logging"
	"hitunghpp/backend/internal/metrics"
	"hitunghpp/backend/internal/service"
	"hitunghpp/backend/internal/store"
	"hitunghpp/backend/internal/store/memory"
	pgstore "hitunghpp/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		if cfg.RunMigrations {
			if err := pg.Migrate(); err != nil {
				logger.Fatalf("migrations failed: %v", err)
			}
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info("repository: in-memory")
	}

	var settingsCache cache.SettingsCache = cache.NoopSettingsCache{}
	var locker cache.Locker = cache.NoopLocker{}
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSettingsCache(cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warnf("redis unavailable (%v), using noop cache", err)
			_ = redisCache.Close()
		} else {
			settingsCache = redisCache
			locker = cache.NewRedisLocker(redisCache.Client(), 5*time.Second)
			closers = append(closers, redisCache.Close)
			logger.Info("cache: redis")
		}
	} else {
		logger.Info("cache: noop")
	}

	m := metrics.New()
	svc := service.New(repo, service.Options{
		SettingsCache: settingsCache,
		SettingsTTL:   time.Duration(cfg.SettingsCacheTTLSeconds) * time.Second,
		Locker:        locker,
		Logger:        logger,
		Metrics:       m,
	})
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo).WithLogger(logger)
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		LoginRate:     cfg.LoginRateLimit,
		Logger:        logger,
		Metrics:       m,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Infof("hitunghpp backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Errorf("close error: %v", err)
		}
	}

	logger.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AccessTokenTTLMinutes < 1 {
		return fmt.Errorf("ACCESS_TOKEN_TTL_MINUTES must be positive")
	}
	return nil
}
