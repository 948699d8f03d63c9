package handler

import (
	"net/http"

	"sweet_shop/internal/middleware"
	"sweet_shop/internal/model"
	"sweet_shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{service: s, logger: logger}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "User registered successfully",
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
		"is_admin": user.IsAdmin(),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	token, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.logger, err, "Failed to login")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// Me returns the profile of the authenticated user
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.Profile(c.Request.Context(), middleware.AuthUser(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

// ListUsers is admin only
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to list users")
		return
	}
	profiles := make([]model.UserProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Profile())
	}
	c.JSON(http.StatusOK, profiles)
}

// SetRole grants or revokes admin rights
func (h *AuthHandler) SetRole(c *gin.Context) {
	var req model.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	username := c.Param("username")
	if err := h.service.SetRole(c.Request.Context(), username, req.Role); err != nil {
		respondError(c, h.logger, err, "Failed to update role")
		return
	}
	h.logger.Info().Str("actor", middleware.AuthUser(c)).Str("username", username).Str("role", req.Role).Msg("role updated via api")
	c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully", "username": username, "role": req.Role})
}

// RegisterAuthRoutes registers auth routes. limitMW guards the credential endpoints.
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, authMW, limitMW gin.HandlerFunc) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", limitMW, h.Register)
		authGroup.POST("/login", limitMW, h.Login)
		authGroup.GET("/me", authMW, h.Me)
	}
}

// RegisterAdminRoutes registers user administration routes
func (h *AuthHandler) RegisterAdminRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	adminGroup := rg.Group("/admin", authMW, adminMW)
	{
		adminGroup.GET("/users", h.ListUsers)
		adminGroup.PUT("/users/:username/role", h.SetRole)
	}
}
