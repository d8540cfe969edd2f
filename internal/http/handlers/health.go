package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ping     func(ctx context.Context) error
	draining atomic.Bool
}

// NewHealthHandler takes the store ping used by readiness; nil means always ready.
func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

// SetDraining makes readiness fail so load balancers stop routing here
// while in-flight requests finish.
func (h *HealthHandler) SetDraining() {
	h.draining.Store(true)
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	if h.draining.Load() {
		RespondServiceUnavailable(ctx, "shutting down")
		return
	}

	if h.ping != nil {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), 1*time.Second)
		defer cancel()

		if err := h.ping(cctx); err != nil {
			RespondServiceUnavailable(ctx, "database unreachable")
			return
		}
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready"})
}
