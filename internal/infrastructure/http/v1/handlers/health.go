package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"cueclub/internal/core/tenant"
	"cueclub/internal/infrastructure/storage/postgres"
)

// HealthHandler provides health check endpoints for the multi-club
// setup. Liveness never touches a database; readiness pings the meta
// database holding the club registry.
type HealthHandler struct {
	metaPool *pgxpool.Pool
	manager  *tenant.Manager
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(metaPool *pgxpool.Pool, manager *tenant.Manager) *HealthHandler {
	return &HealthHandler{metaPool: metaPool, manager: manager}
}

// Live handles the liveness probe.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles the readiness probe.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.metaPool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"meta_database": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"meta_database": "healthy",
		},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	stats := postgres.GetPoolStats(h.metaPool)

	c.JSON(http.StatusOK, gin.H{
		"app":     "cueclub",
		"version": "0.1.0",
		"meta_database": map[string]any{
			"total_conns":    stats.TotalConns,
			"acquired_conns": stats.AcquiredConns,
			"idle_conns":     stats.IdleConns,
			"max_conns":      stats.MaxConns,
		},
	})
}
