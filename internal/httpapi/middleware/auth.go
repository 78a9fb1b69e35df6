package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fluxaudio/fluxaudio/internal/auth"
	"github.com/fluxaudio/fluxaudio/internal/common"
)

const IdentityKey = "auth.identity"

// AuthRequired validates the Bearer token and stashes the verified
// identity for handlers downstream.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			common.Fail(c, http.StatusUnauthorized, 40101, "authorization header missing")
			c.Abort()
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid authentication scheme")
			c.Abort()
			return
		}

		id, err := auth.VerifyToken(token, secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40103, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(IdentityKey, id)
		c.Next()
	}
}

// AdminOnly gates a route group to admin tokens. Must run after
// AuthRequired.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromContext(c)
		if !ok || !id.IsAdmin() {
			common.Fail(c, http.StatusForbidden, 40301, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
