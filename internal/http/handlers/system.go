package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	intdb "vagabond/internal/db"

	"github.com/gin-gonic/gin"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter stores the active gin engine for /api/routes.
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func (h *Handlers) Health(c *gin.Context) {
	providers := []string{}
	if h.Providers != nil {
		providers = h.Providers.Names()
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "providers": providers})
}

func (h *Handlers) DBCheck(c *gin.Context) {
	db := h.db()
	if db == nil {
		respondError(c, http.StatusServiceUnavailable, "db_unavailable", "database not connected", nil)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		respondError(c, http.StatusServiceUnavailable, "db_unavailable", "database ping failed", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "schema": intdb.HasTable(ctx, db, "bookings")})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		respondError(c, http.StatusServiceUnavailable, "not_ready", "router not ready", nil)
		return
	}

	routes := r.Routes()
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		out = append(out, gin.H{"method": rt.Method, "path": rt.Path})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out})
}
