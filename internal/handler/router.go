package handler

import (
	"context"
	"net/http"
	"time"

	"sweet_shop/internal/middleware"
	"sweet_shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps is everything the router needs to serve the API
type Deps struct {
	Auth       service.AuthService
	Sweets     service.SweetService
	Categories service.CategoryService
	// RateLimit guards register and login; nil disables limiting
	RateLimit gin.HandlerFunc
	// DB is pinged by /health; nil means in-memory storage
	DB     Pinger
	Logger zerolog.Logger
}

// NewRouter builds the gin engine with every route under /api/v1
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger(d.Logger), middleware.Recovery(d.Logger), middleware.CORS())

	jwtAuthMW := middleware.JWTAuthMiddleware(d.Auth)
	adminMW := middleware.AdminMiddleware(d.Auth, d.Logger)
	limitMW := d.RateLimit
	if limitMW == nil {
		limitMW = func(c *gin.Context) { c.Next() }
	}

	authHandler := NewAuthHandler(d.Auth, d.Logger)
	sweetHandler := NewSweetHandler(d.Sweets, d.Logger)
	categoryHandler := NewCategoryHandler(d.Categories, d.Logger)

	apiGroup := router.Group("/api/v1")
	authHandler.RegisterAuthRoutes(apiGroup, jwtAuthMW, limitMW)
	authHandler.RegisterAdminRoutes(apiGroup, jwtAuthMW, adminMW)
	sweetHandler.RegisterSweetRoutes(apiGroup, jwtAuthMW, adminMW)
	categoryHandler.RegisterCategoryRoutes(apiGroup, jwtAuthMW, adminMW)

	router.GET("/health", healthHandler(d.DB))
	return router
}

func healthHandler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "memory"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	}
}
