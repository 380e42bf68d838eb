package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victorlau/liuren-quota/internal/security"
)

// AdminAuthMiddleware guards privileged routes. It accepts either a session
// JWT from the admin login endpoint or the configured admin secret itself,
// both carried as a bearer token.
func AdminAuthMiddleware(adminSecret, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}
		if security.CheckAdminSecret(adminSecret, token) {
			c.Next()
			return
		}
		if _, err := security.ParseAdminToken(jwtSecret, token); err == nil {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return header
}
