package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vagabond/internal/domain"

	"github.com/gin-gonic/gin"
)

type stubParser struct{}

func (stubParser) ParseToken(raw string) (domain.RequestContext, error) {
	switch raw {
	case "admin-token":
		return domain.RequestContext{UserID: "a1", Role: domain.RoleAdmin}, nil
	case "user-token":
		return domain.RequestContext{UserID: "u1", Role: domain.RoleUser}, nil
	}
	return domain.RequestContext{}, errors.New("bad token")
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/open", AuthOptional(stubParser{}), func(c *gin.Context) {
		rc := GetRequestContext(c)
		c.String(http.StatusOK, rc.UserID)
	})
	r.GET("/admin", AuthRequired(stubParser{}), RequireRoles(domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthOptional(t *testing.T) {
	r := newEngine()
	if w := do(r, "/open", ""); w.Code != http.StatusOK || w.Body.String() != "" {
		t.Fatalf("guest: %d %q", w.Code, w.Body.String())
	}
	if w := do(r, "/open", "user-token"); w.Body.String() != "u1" {
		t.Fatalf("expected u1, got %q", w.Body.String())
	}
	if w := do(r, "/open", "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	r := newEngine()
	cases := map[string]int{
		"":            http.StatusUnauthorized,
		"user-token":  http.StatusForbidden,
		"admin-token": http.StatusNoContent,
	}
	for token, want := range cases {
		if w := do(r, "/admin", token); w.Code != want {
			t.Fatalf("token %q: expected %d, got %d", token, want, w.Code)
		}
	}
}

func TestRequestIDHeader(t *testing.T) {
	r := newEngine()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("request id not echoed: %q", got)
	}
	if got := do(r, "/open", "").Header().Get("X-Request-ID"); len(got) != 36 {
		t.Fatalf("expected generated uuid, got %q", got)
	}
}
