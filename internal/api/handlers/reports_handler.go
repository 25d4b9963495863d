package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marketplace-platform/order-service/internal/application"
	"github.com/marketplace-platform/order-service/pkg/errors"
	"github.com/marketplace-platform/order-service/pkg/logging"
	"github.com/marketplace-platform/order-service/pkg/middleware"
)

// ReportsHandler handles HTTP requests for sales and revenue aggregations
type ReportsHandler struct {
	service *application.SalesQueryService
	logger  *logging.Logger
}

// NewReportsHandler creates a new ReportsHandler
func NewReportsHandler(service *application.SalesQueryService, logger *logging.Logger) *ReportsHandler {
	return &ReportsHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the aggregation routes on a router group.
// Global order aggregations live under /reports to stay clear of the
// /orders/:orderId wildcard.
func (h *ReportsHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/reports/orders/top", h.TopOrdersByAmount)
	api.GET("/reports/orders/range", h.OrdersByDateRange)

	shops := api.Group("/shops/:shopId")
	{
		shops.GET("/orders/recent", h.RecentOrdersByShop)
		shops.GET("/reports/sales", h.SalesReport)
		shops.GET("/reports/revenue", h.RevenueReport)
		shops.GET("/products/top", h.TopProductForShop)
	}
}

// RecentOrdersByShop handles GET /api/v1/shops/:shopId/orders/recent
func (h *ReportsHandler) RecentOrdersByShop(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	shopID, ok := h.parseShopID(c, responder)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		responder.RespondWithAppError(errors.ErrValidation("limit must be an integer"))
		return
	}

	result, err := h.service.RecentOrdersByShop(c.Request.Context(), shopID, limit)
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// TopOrdersByAmount handles GET /api/v1/reports/orders/top
func (h *ReportsHandler) TopOrdersByAmount(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	topN, err := strconv.Atoi(c.DefaultQuery("topN", "10"))
	if err != nil {
		responder.RespondWithAppError(errors.ErrValidation("topN must be an integer"))
		return
	}

	result, err := h.service.TopOrdersByAmount(c.Request.Context(), topN)
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// OrdersByDateRange handles GET /api/v1/reports/orders/range
func (h *ReportsHandler) OrdersByDateRange(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	start, end, ok := h.parseDateRange(c, responder)
	if !ok {
		return
	}

	result, err := h.service.OrdersByDateRange(c.Request.Context(), start, end)
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// SalesReport handles GET /api/v1/shops/:shopId/reports/sales
func (h *ReportsHandler) SalesReport(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	shopID, ok := h.parseShopID(c, responder)
	if !ok {
		return
	}
	start, end, ok := h.parseDateRange(c, responder)
	if !ok {
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shop.id": shopID,
	})

	result, err := h.service.SalesReport(c.Request.Context(), shopID, start, end)
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// RevenueReport handles GET /api/v1/shops/:shopId/reports/revenue
func (h *ReportsHandler) RevenueReport(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	shopID, ok := h.parseShopID(c, responder)
	if !ok {
		return
	}
	start, end, ok := h.parseDateRange(c, responder)
	if !ok {
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shop.id": shopID,
	})

	result, err := h.service.RevenueReport(c.Request.Context(), shopID, start, end)
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// TopProductForShop handles GET /api/v1/shops/:shopId/products/top
func (h *ReportsHandler) TopProductForShop(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	shopID, ok := h.parseShopID(c, responder)
	if !ok {
		return
	}

	result, err := h.service.TopProductForShop(c.Request.Context(), shopID)
	if err != nil {
		h.respondError(responder, err)
		return
	}
	if result == nil {
		responder.RespondNotFound("shop orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// parseShopID extracts and validates the shopId path parameter
func (h *ReportsHandler) parseShopID(c *gin.Context, responder *middleware.ErrorResponder) (int64, bool) {
	shopID, err := strconv.ParseInt(c.Param("shopId"), 10, 64)
	if err != nil || shopID <= 0 {
		responder.RespondWithAppError(errors.ErrValidation("shopId must be a positive integer"))
		return 0, false
	}
	return shopID, true
}

// parseDateRange extracts the start and end query parameters
func (h *ReportsHandler) parseDateRange(c *gin.Context, responder *middleware.ErrorResponder) (time.Time, time.Time, bool) {
	startStr := c.Query("start")
	endStr := c.Query("end")

	if startStr == "" || endStr == "" {
		responder.RespondWithAppError(errors.ErrValidation("start and end are required"))
		return time.Time{}, time.Time{}, false
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		responder.RespondWithAppError(errors.ErrValidation("invalid start format, expected RFC3339"))
		return time.Time{}, time.Time{}, false
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		responder.RespondWithAppError(errors.ErrValidation("invalid end format, expected RFC3339"))
		return time.Time{}, time.Time{}, false
	}

	return start, end, true
}

// respondError maps service errors onto HTTP responses
func (h *ReportsHandler) respondError(responder *middleware.ErrorResponder, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		responder.RespondWithAppError(appErr)
		return
	}
	responder.RespondInternalError(err)
}
