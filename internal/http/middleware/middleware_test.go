package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flightbook/internal/domain"

	"github.com/gin-gonic/gin"
)

type stubAuth struct {
	id  domain.Identity
	err error
}

func (s stubAuth) Authenticate(context.Context, string) (domain.Identity, error) {
	return s.id, s.err
}

func serve(r *gin.Engine, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequestIDKeepsShortClientValue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/x", func(c *gin.Context) { seen = GetRequestID(c) })

	rec := serve(r, map[string]string{"X-Request-ID": "abc-123"})
	if seen != "abc-123" || rec.Header().Get("X-Request-ID") != "abc-123" {
		t.Fatalf("expected abc-123, got ctx=%q header=%q", seen, rec.Header().Get("X-Request-ID"))
	}

	serve(r, map[string]string{"X-Request-ID": strings.Repeat("a", 200)})
	if len(seen) != 36 {
		t.Fatalf("expected a generated uuid for oversized id, got %q", seen)
	}
}

func TestAuthenticateMapsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"auth error", domain.AuthError{Msg: "invalid or expired credential"}, http.StatusUnauthorized},
		{"store failure", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RequestID(), Authenticate(stubAuth{err: tc.err}))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
			if rec := serve(r, nil); rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name string
		role domain.Role
		want int
	}{
		{"admin allowed", domain.RoleAdmin, http.StatusOK},
		{"root allowed", domain.RoleRoot, http.StatusOK},
		{"customer forbidden", domain.RoleCustomer, http.StatusForbidden},
		{"unknown forbidden", domain.RoleUnknown, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(Authenticate(stubAuth{id: domain.Identity{UserID: 1, Role: tc.role}}), RequireRoles(domain.RoleAdmin, domain.RoleRoot))
			r.GET("/x", func(c *gin.Context) {
				if _, ok := GetIdentity(c); !ok {
					t.Fatalf("identity missing in handler")
				}
				c.Status(http.StatusOK)
			})
			if rec := serve(r, nil); rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}

	r := gin.New()
	r.Use(RequireRoles(domain.RoleAdmin))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	if rec := serve(r, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, map[string]string{"Origin": "http://localhost:3000"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("expected allowed origin, got %q", got)
	}
	rec = serve(r, map[string]string{"Origin": "http://evil.example"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected disallowed origin to be rejected, got %d", rec.Code)
	}
}
