// Package v1 provides HTTP API version 1.
package v1

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"cueclub/internal/core/tenant"
	"cueclub/internal/domain/auth"
	"cueclub/internal/domain/catalogs/item"
	"cueclub/internal/domain/catalogs/tabletype"
	"cueclub/internal/domain/discount"
	"cueclub/internal/domain/inventory"
	"cueclub/internal/domain/sessions"
	"cueclub/internal/domain/tariff"
	"cueclub/internal/infrastructure/cache"
	"cueclub/internal/infrastructure/http/v1/handlers"
	"cueclub/internal/infrastructure/http/v1/middleware"
	"cueclub/internal/infrastructure/storage/postgres"
	"cueclub/internal/infrastructure/storage/postgres/auth_repo"
	"cueclub/internal/infrastructure/storage/postgres/catalog_repo"
	"cueclub/internal/infrastructure/storage/postgres/inventory_repo"
	"cueclub/internal/infrastructure/storage/postgres/session_repo"
	"cueclub/pkg/logger"
	"cueclub/pkg/numerator"
)

// RouterConfig holds router configuration for the multi-club setup.
type RouterConfig struct {
	// TenantManager manages database connections for all clubs
	TenantManager *tenant.Manager

	// MetaPool is the connection to the meta-database (club registry,
	// health checks)
	MetaPool *pgxpool.Pool

	// Logger for request logging
	Logger *logger.Logger

	// JWTService validates and mints tokens
	JWTService *auth.JWTService

	// AuthConfig tunes lockout and token lifetimes
	AuthConfig auth.ServiceConfig

	// Redis backs the rate window cache. Nil disables caching and the
	// resolver reads Postgres directly.
	Redis *redis.Client

	// RateCacheTTL bounds rate window cache staleness
	RateCacheTTL time.Duration
}

// NewRouter creates and configures the Gin router.
//
// Repos and services are created once; the TxManager and pool they use
// are resolved from the request context by the ClubDB middleware, so
// the same service instances serve every club.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth, no club required)
	healthHandler := handlers.NewHealthHandler(cfg.MetaPool, cfg.TenantManager)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Domain wiring. nil txManager means each service resolves the
	// TxManager from context per request.
	tableRepo := catalog_repo.NewTableTypeRepo()
	itemRepo := catalog_repo.NewItemRepo()
	discountRepo := catalog_repo.NewDiscountRepo()
	rateRepo := catalog_repo.NewRateWindowRepo()
	stockRepo := inventory_repo.NewRepo()
	sessionRepo := session_repo.NewRepo()
	staffRepo := auth_repo.NewStaffRepo()
	tokenRepo := auth_repo.NewTokenRepo()

	var rateCatalog tariff.Catalog = rateRepo
	var rateInvalidator tariff.CacheInvalidator
	if cfg.Redis != nil {
		rateCache := cache.NewRateWindowCache(cfg.Redis, rateRepo, cfg.RateCacheTTL)
		rateCatalog = rateCache
		rateInvalidator = rateCache
	}

	// The rule engine compiles discount eligibility expressions; a club
	// app that cannot evaluate them must not boot.
	ruleEngine, err := discount.NewRuleEngine()
	if err != nil {
		return nil, fmt.Errorf("build discount rule engine: %w", err)
	}

	tableService := tabletype.NewService(tableRepo, nil)
	itemService := item.NewService(itemRepo, nil)
	discountService := discount.NewService(discountRepo, ruleEngine, nil)
	tariffService := tariff.NewService(rateRepo, rateInvalidator, nil)
	stockService := inventory.NewService(stockRepo, nil, nil)
	resolver := tariff.NewResolver(rateCatalog)
	sessionService := sessions.NewService(
		sessionRepo, tableRepo, itemRepo,
		stockService, resolver, discountService,
		numerator.NewFromContext(), nil, nil,
	)
	authService := auth.NewService(staffRepo, tokenRepo, nil, cfg.JWTService, cfg.AuthConfig)

	// Audit writes resolve the club's TxManager from the request
	// context, so one service instance serves every club. Construction
	// only fails when zstd cannot initialize; run without the trail
	// rather than refusing to start.
	auditService, err := postgres.NewAuditService(nil)
	if err != nil {
		cfg.Logger.Warnw("audit service disabled", "error", err)
		auditService = nil
	}

	baseHandler := handlers.NewBaseHandler(auditService)

	// API v1
	api := router.Group("/api/v1")
	{
		// Auth routes need ClubDB before JWT validation: the staff
		// table lives in the club database.
		authHandler := handlers.NewAuthHandler(baseHandler, authService)
		publicAuth := api.Group("/auth")
		publicAuth.Use(middleware.ClubDB(cfg.TenantManager))
		protectedAuth := api.Group("/auth")
		protectedAuth.Use(middleware.ClubDB(cfg.TenantManager))
		protectedAuth.Use(middleware.Auth(cfg.JWTService))
		authHandler.RegisterRoutes(publicAuth, protectedAuth)

		// Everything else: resolve club, then validate JWT.
		protected := api.Group("")
		protected.Use(middleware.ClubDB(cfg.TenantManager))
		protected.Use(middleware.Auth(cfg.JWTService))

		// Floor operations: any authenticated staff.
		sessionHandler := handlers.NewSessionHandler(baseHandler, sessionService)
		sessionHandler.RegisterRoutes(protected.Group("/sessions"))

		inventoryHandler := handlers.NewInventoryHandler(baseHandler, stockService)
		inventoryHandler.RegisterRoutes(protected.Group("/inventory"))

		// Catalog administration: managers and admins.
		manage := protected.Group("", middleware.RequireRole("manager"))

		tableHandler := handlers.NewTableTypeHandler(baseHandler, tableService)
		tableHandler.RegisterRoutes(
			manage.Group("/catalog/table-types"),
			manage.Group("/catalog/tables"),
		)

		itemHandler := handlers.NewItemHandler(baseHandler, itemService)
		itemHandler.RegisterRoutes(manage.Group("/catalog/items"))

		discountHandler := handlers.NewDiscountHandler(baseHandler, discountService)
		discountHandler.RegisterRoutes(manage.Group("/catalog/discounts"))

		tariffHandler := handlers.NewTariffHandler(baseHandler, tariffService)
		tariffHandler.RegisterRoutes(manage.Group("/tariff"))

		if auditService != nil {
			auditHandler := handlers.NewAuditHandler(baseHandler, auditService)
			auditHandler.RegisterRoutes(manage.Group("/audit"))
		}
	}

	return router, nil
}
