package middleware

import (
	"net/http"
	"strings"

	"vagabond/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	ParseToken(raw string) (domain.RequestContext, error)
}

func bearer(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// AuthOptional attaches the caller when a valid token is sent and lets
// everyone else through as a guest. A bad token is still rejected.
func AuthOptional(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			c.Next()
			return
		}
		rc, err := p.ParseToken(raw)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Set(userIDKey, rc.UserID)
		c.Set(userRoleKey, rc.Role)
		c.Next()
	}
}

// AuthRequired is AuthOptional without the guest path.
func AuthRequired(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearer(c)
		if raw == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}
		rc, err := p.ParseToken(raw)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		c.Set(userIDKey, rc.UserID)
		c.Set(userRoleKey, rc.Role)
		c.Next()
	}
}

// GetRequestContext returns the authenticated caller, or an anonymous one.
func GetRequestContext(c *gin.Context) domain.RequestContext {
	return domain.RequestContext{
		UserID: c.GetString(userIDKey),
		Role:   c.GetString(userRoleKey),
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      msg,
		"code":       "unauthorized",
		"request_id": GetRequestID(c),
	})
}
