package middleware

import (
	"context"
	"errors"
	"net/http"

	"flightbook/internal/domain"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Authenticator resolves a bearer header into a freshly loaded identity.
type Authenticator interface {
	Authenticate(ctx context.Context, header string) (domain.Identity, error)
}

// Authenticate rejects requests without a valid credential and stores the
// resolved identity on the context.
func Authenticate(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			var ae domain.AuthError
			if errors.As(err, &ae) {
				abort(c, http.StatusUnauthorized, "unauthorized", ae.Msg)
				return
			}
			abort(c, http.StatusInternalServerError, "internal_error", "internal error")
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireRoles allows the request only when the identity loaded by
// Authenticate holds one of roles. It must run after Authenticate.
func RequireRoles(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		if r != domain.RoleUnknown {
			allowed[r] = struct{}{}
		}
	}
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "unauthorized", "no credential")
			return
		}
		if _, ok := allowed[id.Role]; !ok {
			abort(c, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		c.Next()
	}
}

// GetIdentity returns the identity stored by Authenticate.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      message,
		"code":       code,
		"message":    message,
		"request_id": GetRequestID(c),
	})
}
