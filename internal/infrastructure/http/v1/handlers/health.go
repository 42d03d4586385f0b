package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"salesledger/internal/infrastructure/storage/postgres"
)

// DatabaseProbe is the subset of the pool the health endpoints need.
type DatabaseProbe interface {
	Ping(ctx context.Context) error
	Stats() postgres.PoolStats
}

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	db      DatabaseProbe
	app     string
	version string
}

// NewHealthHandler creates a new health handler. db may be nil when the
// service runs on the in-memory store.
func NewHealthHandler(db DatabaseProbe, app, version string) *HealthHandler {
	return &HealthHandler{db: db, app: app, version: version}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": gin.H{"database": "memory"}})
		return
	}

	if err := h.db.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": gin.H{"database": "unhealthy: " + err.Error()},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": gin.H{"database": "healthy"},
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	info := gin.H{"app": h.app, "version": h.version}
	if h.db != nil {
		stat := h.db.Stats()
		info["database"] = gin.H{
			"total_conns":    stat.TotalConns,
			"acquired_conns": stat.AcquiredConns,
			"idle_conns":     stat.IdleConns,
			"max_conns":      stat.MaxConns,
		}
	}
	c.JSON(http.StatusOK, info)
}
