package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AdminChecker reports whether a user holds the admin role
type AdminChecker interface {
	IsAdmin(ctx context.Context, username string) (bool, error)
}

// AdminMiddleware checks if the user is an admin. It must run after
// JWTAuthMiddleware and before any body binding, so non-admins get 403
// no matter what they send.
func AdminMiddleware(checker AdminChecker, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := AuthUser(c)
		if username == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "User not found in context, ensure JWT middleware runs first"})
			return
		}

		isAdmin, err := checker.IsAdmin(c.Request.Context(), username)
		if err != nil {
			logger.Error().Err(err).Str("username", username).Msg("admin check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify permissions"})
			return
		}
		if !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Not enough permissions"})
			return
		}

		c.Next()
	}
}
