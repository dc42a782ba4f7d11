package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

// PingFunc checks the backing store. nil means there is nothing to check.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	ping  PingFunc
	clock clockwork.Clock
}

func NewHealthHandler(ping PingFunc, clock clockwork.Clock) *HealthHandler {
	return &HealthHandler{ping: ping, clock: clock}
}

// @Summary      Healthcheck
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /healthz [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ts := h.clock.Now().UTC().Format(time.RFC3339)
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "timestamp": ts})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": ts})
}
