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

// SweetHandler handles catalog and stock requests
type SweetHandler struct {
	service service.SweetService
	logger  zerolog.Logger
}

// NewSweetHandler creates a new SweetHandler
func NewSweetHandler(s service.SweetService, logger zerolog.Logger) *SweetHandler {
	return &SweetHandler{service: s, logger: logger}
}

func (h *SweetHandler) ListSweets(c *gin.Context) {
	sweets, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve sweets")
		return
	}
	c.JSON(http.StatusOK, sweets)
}

func (h *SweetHandler) SearchSweets(c *gin.Context) {
	var filters model.SweetFilters
	if name := c.Query("name"); name != "" {
		filters.Name = &name
	}
	if category := c.Query("category"); category != "" {
		filters.Category = &category
	}
	if minParam := c.Query("price_min"); minParam != "" {
		v, err := strconv.ParseFloat(minParam, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid number for 'price_min'"})
			return
		}
		filters.PriceMin = &v
	}
	if maxParam := c.Query("price_max"); maxParam != "" {
		v, err := strconv.ParseFloat(maxParam, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid number for 'price_max'"})
			return
		}
		filters.PriceMax = &v
	}

	sweets, err := h.service.Search(c.Request.Context(), filters)
	if err != nil {
		respondError(c, h.logger, err, "Failed to search sweets")
		return
	}
	c.JSON(http.StatusOK, sweets)
}

func (h *SweetHandler) GetSweet(c *gin.Context) {
	sweet, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to retrieve sweet")
		return
	}
	c.JSON(http.StatusOK, sweet)
}

func (h *SweetHandler) CreateSweet(c *gin.Context) {
	var req model.CreateSweetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	sweet, err := h.service.Create(c.Request.Context(), req, middleware.AuthUser(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to create sweet")
		return
	}
	c.JSON(http.StatusCreated, sweet)
}

func (h *SweetHandler) UpdateSweet(c *gin.Context) {
	var req model.UpdateSweetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	sweet, err := h.service.Update(c.Request.Context(), c.Param("id"), req, middleware.AuthUser(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to update sweet")
		return
	}
	c.JSON(http.StatusOK, sweet)
}

func (h *SweetHandler) DeleteSweet(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), middleware.AuthUser(c)); err != nil {
		respondError(c, h.logger, err, "Failed to delete sweet")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sweet deleted successfully"})
}

func (h *SweetHandler) PurchaseSweet(c *gin.Context) {
	var req model.QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.service.Purchase(c.Request.Context(), c.Param("id"), req.Quantity, middleware.AuthUser(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to purchase sweet")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SweetHandler) RestockSweet(c *gin.Context) {
	var req model.QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.service.Restock(c.Request.Context(), c.Param("id"), req.Quantity, middleware.AuthUser(c))
	if err != nil {
		respondError(c, h.logger, err, "Failed to restock sweet")
		return
	}
	c.JSON(http.StatusOK, result)
}

// RegisterSweetRoutes registers sweet routes. Admin routes run adminMW before
// the handler binds the body.
func (h *SweetHandler) RegisterSweetRoutes(rg *gin.RouterGroup, authMW, adminMW gin.HandlerFunc) {
	sweetsGroup := rg.Group("/sweets")
	{
		sweetsGroup.GET("", h.ListSweets)
		sweetsGroup.GET("/search", h.SearchSweets)
		sweetsGroup.GET("/:id", h.GetSweet)

		sweetsGroup.POST("/:id/purchase", authMW, h.PurchaseSweet)

		sweetsGroup.POST("", authMW, adminMW, h.CreateSweet)
		sweetsGroup.PUT("/:id", authMW, adminMW, h.UpdateSweet)
		sweetsGroup.DELETE("/:id", authMW, adminMW, h.DeleteSweet)
		sweetsGroup.POST("/:id/restock", authMW, adminMW, h.RestockSweet)
	}
}
