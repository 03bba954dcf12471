package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type routeTable struct {
	mu     sync.RWMutex
	engine *gin.Engine
}

// SetRouter stores the active gin engine for later inspection (e.g., /api/routes).
func (h *Handler) SetRouter(r *gin.Engine) {
	h.routes.mu.Lock()
	defer h.routes.mu.Unlock()
	h.routes.engine = r
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "flightbook running"})
}

func (h *Handler) DBCheck(c *gin.Context) {
	if h.Ping == nil {
		c.JSON(http.StatusOK, gin.H{"message": "storage OK", "driver": "memory"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Ping(ctx); err != nil {
		h.log().Error("storage check failed", "error", err)
		respondError(c, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "storage OK"})
}

func (h *Handler) Routes(c *gin.Context) {
	h.routes.mu.RLock()
	r := h.routes.engine
	h.routes.mu.RUnlock()
	if r == nil {
		respondError(c, http.StatusServiceUnavailable, "not_ready", "router not ready", nil)
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{
			"method": rt.Method,
			"path":   rt.Path,
		})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
