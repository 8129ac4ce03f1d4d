package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	redisstats "sensorgrid/pkg/redis"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// PoolInspector reports the state of the connection pool.
type PoolInspector interface {
	Stats() (sql.DBStats, bool)
	Driver() string
}

type HealthHandler struct {
	pool        PoolInspector
	redisClient *redis.Client
	components  map[string]bool
}

// NewHealthHandler builds the health endpoint. redisClient may be nil;
// components lists optional subsystems and whether they are enabled.
func NewHealthHandler(pool PoolInspector, redisClient *redis.Client, components map[string]bool) *HealthHandler {
	return &HealthHandler{pool: pool, redisClient: redisClient, components: components}
}

// HealthCheck godoc
// @Summary Service health
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /v1/health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Services:  make(map[string]interface{}, len(h.components)+1),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	// The pool is built lazily, so "not ready" before the first request is
	// not a failure.
	if stats, ok := h.pool.Stats(); ok {
		resp.Database = DatabaseHealth{
			Ready:     true,
			Driver:    h.pool.Driver(),
			MaxOpen:   stats.MaxOpenConnections,
			Open:      stats.OpenConnections,
			InUse:     stats.InUse,
			Idle:      stats.Idle,
			WaitCount: stats.WaitCount,
		}
	}

	for name, enabled := range h.components {
		resp.Services[name] = enabled
	}

	if h.redisClient != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		stats, err := redisstats.GetStats(ctx, h.redisClient)
		if err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = map[string]interface{}{"connected": false, "error": err.Error()}
		} else {
			resp.Services["redis"] = map[string]interface{}{"connected": true, "stats": stats}
		}
	}

	c.JSON(http.StatusOK, resp)
}
