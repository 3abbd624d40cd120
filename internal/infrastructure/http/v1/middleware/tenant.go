package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cueclub/internal/core/apperror"
	"cueclub/internal/core/tenant"
	"cueclub/internal/infrastructure/storage/postgres"
	"cueclub/pkg/logger"
)

// ClubHeader is the HTTP header carrying the club slug.
const ClubHeader = "X-Club"

// ClubDB resolves the club from the X-Club header and injects its
// database pool into the request context. Every club has its own
// database; this middleware MUST run before any database operation.
//
// Flow:
//  1. Extract club slug from X-Club header
//  2. Get pool from the tenant Manager (created lazily per club)
//  3. Create a TxManager bound to that pool
//  4. Inject pool, TxManager, and Club into context
func ClubDB(manager *tenant.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		slug := c.GetHeader(ClubHeader)
		if slug == "" {
			_ = c.Error(
				apperror.NewValidation("club is required").
					WithDetail("header", ClubHeader),
			)
			c.Abort()
			return
		}

		managedPool, err := manager.GetPoolBySlug(ctx, slug)
		if err != nil {
			logger.Warn(ctx, "club pool error", "club", slug, "error", err)

			switch {
			case errors.Is(err, tenant.ErrClubNotFound):
				_ = c.Error(apperror.NewNotFound("club", slug))
			case errors.Is(err, tenant.ErrClubNotActive):
				_ = c.Error(apperror.NewForbidden("club is not active").WithDetail("club", slug))
			case errors.Is(err, tenant.ErrMaxPoolLimit):
				appErr := apperror.NewInternal(err)
				appErr.HTTPStatus = http.StatusServiceUnavailable
				appErr.Message = "service temporarily unavailable"
				_ = c.Error(appErr.WithDetail("club", slug))
			default:
				_ = c.Error(apperror.NewInternal(err).WithDetail("club", slug))
			}
			c.Abort()
			return
		}

		// Track the active request for graceful shutdown
		managedPool.AcquireRef()
		defer managedPool.ReleaseRef()

		txManager := postgres.NewTxManagerFromRawPool(managedPool.Pool())

		ctx = tenant.WithPool(ctx, managedPool.Pool())
		ctx = tenant.WithTxManager(ctx, txManager)
		ctx = tenant.WithClub(ctx, managedPool.Club())

		c.Request = c.Request.WithContext(ctx)

		c.Set("club_id", managedPool.Club().ID)
		c.Set("tx_manager", txManager)

		c.Next()
	}
}

// GetTxManagerFromContext retrieves the TxManager from the Gin context.
// Returns nil if not found.
func GetTxManagerFromContext(c *gin.Context) *postgres.TxManager {
	if v, exists := c.Get("tx_manager"); exists {
		if txm, ok := v.(*postgres.TxManager); ok {
			return txm
		}
	}
	return nil
}
