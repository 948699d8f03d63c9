package handler

import (
	"net/http"
	"strconv"

	"sweet_shop/internal/middleware"
	"sweet_shop/internal/model"
	"sweet_shop/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type CategoryHandler struct {
	service service.CategoryService
	logger  zerolog.Logger
}

func NewCategoryHandler(s service.CategoryService, logger zerolog.Logger) *CategoryHandler {
	return &CategoryHandler{service: s, logger: logger}
}

func (h *CategoryHandler) ListCategories(c *gin.Context) {
	activeOnly := false
	if v := c.Query("active_only"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid boolean for 'active_only'"})
			return
		}
		activeOnly = parsed
	}

	categories, err := h.service.List(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve categories")
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	category, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve category")
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) GetCategorySweets(c *gin.Context) {
	sweets, err := h.service.SweetsOf(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve sweets in category")
		return
	}
	c.JSON(http.StatusOK, sweets)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req model.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	category, err := h.service.Create(c.Request.Context(), req, middleware.AuthUser(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to create category")
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	var req model.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	category, err := h.service.Update(c.Request.Context(), c.Param("id"), req, middleware.AuthUser(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to update category")
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), middleware.AuthUser(c)); err != nil {
		respondError(c, h.logger, err, "Failed to delete category")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

// RegisterCategoryRoutes registers category routes
func (h *CategoryHandler) RegisterCategoryRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	categoriesGroup := rg.Group("/categories")
	{
		categoriesGroup.GET("", h.ListCategories)
		categoriesGroup.GET("/:id", h.GetCategory)
		categoriesGroup.GET("/:id/sweets", h.GetCategorySweets)

		categoriesGroup.POST("", authMW, adminMW, h.CreateCategory)
		categoriesGroup.PUT("/:id", authMW, adminMW, h.UpdateCategory)
		categoriesGroup.DELETE("/:id", authMW, adminMW, h.DeleteCategory)
	}
}
