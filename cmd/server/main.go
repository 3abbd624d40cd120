// Package main is the entry point for the cueclub API server.
// Multi-club architecture: Database-per-Club.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"cueclub/internal/core/tenant"
	"cueclub/internal/domain/auth"
	v1 "cueclub/internal/infrastructure/http/v1"
	"cueclub/internal/infrastructure/storage/postgres"
	"cueclub/pkg/config"
	"cueclub/pkg/logger"
)

func main() {
	// .env is a developer convenience; production sets real env vars
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDev(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting cueclub server (multi-club mode)")

	// --- Meta-database connection ---
	metaPoolCfg := postgres.DefaultPoolConfig(cfg.MetaDB.URL)
	metaPool, err := postgres.NewPool(ctx, metaPoolCfg)
	if err != nil {
		log.Fatalw("failed to connect to meta database", "error", err)
	}
	defer metaPool.Close()
	log.Info("meta database connection established")

	// --- Club registry and pool manager ---
	registry := tenant.NewPostgresRegistry(metaPool.Unwrap())

	managerCfg := tenant.DefaultManagerConfig()
	managerCfg.DBUser = cfg.Clubs.DBUser
	managerCfg.DBPassword = cfg.Clubs.DBPassword
	managerCfg.MaxTotalPools = cfg.Clubs.MaxPools
	managerCfg.MaxConnsPerClub = cfg.Clubs.MaxConnsPerClub
	managerCfg.PoolIdleTimeout = cfg.Clubs.PoolIdleTimeout

	clubManager := tenant.NewManager(managerCfg, registry, log)
	defer clubManager.Close()

	log.Infow("club pool manager initialized",
		"max_pools", managerCfg.MaxTotalPools,
		"max_conns_per_club", managerCfg.MaxConnsPerClub,
		"idle_timeout", managerCfg.PoolIdleTimeout,
	)

	if cfg.Clubs.Prewarm {
		log.Info("prewarming club pools...")
		if err := clubManager.PrewarmPools(ctx); err != nil {
			log.Warnw("failed to prewarm some pools", "error", err)
		}
	}

	// --- Redis (rate window cache) ---
	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalw("failed to ping redis", "error", err)
		}
		defer redisClient.Close()
		log.Info("redis connection established")
	} else {
		log.Warn("redis not configured, rate window cache disabled")
	}

	// --- JWT ---
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWT.Secret))

	// --- Router ---
	router, err := v1.NewRouter(v1.RouterConfig{
		TenantManager: clubManager,
		MetaPool:      metaPool.Unwrap(),
		Logger:        log,
		JWTService:    jwtService,
		AuthConfig:    auth.DefaultServiceConfig(),
		Redis:         redisClient,
		RateCacheTTL:  cfg.Redis.CacheTTL,
	})
	if err != nil {
		log.Fatalw("failed to build router", "error", err)
	}

	// --- HTTP server ---
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.App.Port, "mode", "multi-club")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
