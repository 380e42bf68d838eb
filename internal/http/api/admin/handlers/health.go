package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	redis redis.UniversalClient
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(client redis.UniversalClient) *HealthHandler {
	return &HealthHandler{redis: client}
}

// Healthz checks store connectivity and returns status.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if h.redis == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
