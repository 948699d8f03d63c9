package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const AuthUserKey = "authUser"

// Authenticator resolves a bearer token to the username it was issued for
type Authenticator interface {
	Authenticate(token string) (string, error)
}

// JWTAuthMiddleware creates a middleware for JWT authentication
func JWTAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		username, err := auth.Authenticate(parts[1])
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Could not validate credentials"})
			return
		}

		c.Set(AuthUserKey, username)
		c.Next()
	}
}

// AuthUser returns the username set by JWTAuthMiddleware, or "" if absent
func AuthUser(c *gin.Context) string {
	return c.GetString(AuthUserKey)
}
