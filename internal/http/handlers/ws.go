package handlers

import (
	"net/http"
	"strings"

	"vagabond/internal/domain"
	"vagabond/internal/http/middleware"
	"vagabond/internal/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/ws?userId=&token=
// Browsers cannot set headers on a websocket handshake, so an admin session
// proves its role with ?token=. Without one the caller joins as a plain user.
func (h *Handlers) WS(c *gin.Context) {
	if h.Hub == nil {
		respondError(c, http.StatusServiceUnavailable, "realtime_unavailable", "realtime hub not running", nil)
		return
	}
	userID := strings.TrimSpace(c.Query("userId"))
	role := domain.RoleUser
	if raw := strings.TrimSpace(c.Query("token")); raw != "" {
		rc, err := h.TokenParser().ParseToken(raw)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		userID, role = rc.UserID, rc.Role
	}
	if err := h.Hub.ServeWS(c.Writer, c.Request, userID, role); err != nil {
		// the upgrader has already written the response
		utils.LogError(middleware.GetRequestID(c), "realtime", "upgrade", err, "websocket upgrade failed")
	}
}
