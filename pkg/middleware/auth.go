package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/docgate/docgate/internal/access"
	"github.com/gin-gonic/gin"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

const callerKey = "caller"

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using
// the provided verifier and resolves the calling identity from its claims:
// `sub` (user id), `account` (home tenant) and `superuser`. Handlers fetch
// the result with CallerFrom and thread it explicitly into every operation.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		// Expect 'Bearer <token>'
		var token string
		if n, _ := fmt.Sscanf(auth, "Bearer %s", &token); n != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		verified, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}

		var claims map[string]interface{}
		if err := verified.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}
		account, _ := claims["account"].(string)
		superuser, _ := claims["superuser"].(bool)

		// claims stay available for the rate limiter's keying
		c.Set("claims", claims)
		c.Set(callerKey, access.Caller{UserID: sub, Account: account, Superuser: superuser})
		c.Next()
	}
}

// CallerFrom returns the caller the auth middleware resolved for this request.
func CallerFrom(c *gin.Context) (access.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return access.Caller{}, false
	}
	caller, ok := v.(access.Caller)
	return caller, ok
}

// WithCaller injects a fixed caller; handler tests use it in place of
// AuthMiddleware.
func WithCaller(caller access.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(callerKey, caller)
		c.Next()
	}
}
