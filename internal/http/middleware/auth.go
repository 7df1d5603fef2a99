// README: Firebase ID token authentication and operator role checks.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"droptaxi/internal/infra"
)

const (
	ctxUID   = "caller_uid"
	ctxRole  = "caller_role"
	ctxEmail = "caller_email"

	RoleAdmin = "admin"
)

// Auth rejects requests without a valid "Authorization: Bearer <idToken>" header.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		setCaller(c, token)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is present; anonymous
// requests pass through. A present but invalid token is still rejected.
func OptionalAuth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		Auth(verifier)(c)
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerRole(c) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func CallerUID(c *gin.Context) string   { return c.GetString(ctxUID) }
func CallerRole(c *gin.Context) string  { return c.GetString(ctxRole) }
func CallerEmail(c *gin.Context) string { return c.GetString(ctxEmail) }

func setCaller(c *gin.Context, token *infra.FirebaseToken) {
	c.Set(ctxUID, token.UID)
	c.Set(ctxRole, token.Role())
	c.Set(ctxEmail, token.Email())
}

func bearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}
