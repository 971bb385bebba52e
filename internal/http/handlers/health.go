package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a named readiness dependency (postgres, redis).
type Pinger struct {
	Name string
	Ping func(ctx context.Context) error
}

type HealthHandler struct {
	deps []Pinger
}

func NewHealthHandler(deps ...Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	ready := true

	for _, d := range h.deps {
		if err := d.Ping(cctx); err != nil {
			slog.Default().WarnContext(cctx, "readyz.dependency_down", "dependency", d.Name, "err", err)
			checks[d.Name] = "down"
			ready = false
			continue
		}
		checks[d.Name] = "up"
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "checks": checks})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
}
