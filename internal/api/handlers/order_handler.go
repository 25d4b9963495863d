package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marketplace-platform/order-service/internal/application"
	"github.com/marketplace-platform/order-service/internal/domain"
	"github.com/marketplace-platform/order-service/pkg/api"
	"github.com/marketplace-platform/order-service/pkg/errors"
	"github.com/marketplace-platform/order-service/pkg/logging"
	"github.com/marketplace-platform/order-service/pkg/middleware"
)

// OrderHandler handles HTTP requests for the order lifecycle
type OrderHandler struct {
	service *application.OrderApplicationService
	logger  *logging.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *application.OrderApplicationService, logger *logging.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the order routes on a router group
func (h *OrderHandler) RegisterRoutes(api *gin.RouterGroup) {
	orders := api.Group("/orders")
	{
		orders.POST("", h.CreateOrder)
		orders.GET("", h.ListOrders)
		orders.GET("/:orderId", h.GetOrder)
		orders.PATCH("/:orderId", h.UpdateOrder)
		orders.DELETE("/:orderId", h.DeleteOrder)
		orders.PUT("/:orderId/status", h.TransitionOrder)
		orders.POST("/:orderId/payments", h.AttachPayment)
		orders.POST("/:orderId/refunds", h.AttachRefund)
	}
}

type createOrderRequest struct {
	UserID int64             `json:"userId" binding:"required,gt=0"`
	ShopID int64             `json:"shopId" binding:"required,gt=0"`
	Items  []lineItemRequest `json:"items" binding:"required,min=1,dive"`
}

type lineItemRequest struct {
	ProductID string  `json:"productId" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gte=1"`
	UnitPrice float64 `json:"unitPrice" binding:"required,gt=0"`
}

type updateOrderRequest struct {
	TrackingNumber *string `json:"trackingNumber,omitempty" binding:"omitempty,tracking_number"`
	PaymentRef     *string `json:"paymentRef,omitempty" binding:"omitempty,max=100"`
}

type transitionOrderRequest struct {
	Status string `json:"status" binding:"required,order_status"`
}

type attachPaymentRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Method string  `json:"method" binding:"required,payment_method"`
	Status string  `json:"status" binding:"required,payment_status"`
}

type attachRefundRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Reason string  `json:"reason" binding:"omitempty,max=500"`
	Status string  `json:"status" binding:"required,refund_status"`
}

// CreateOrder handles POST /api/v1/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req createOrderRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	items := make([]application.LineItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, application.LineItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"user.id": req.UserID,
		"shop.id": req.ShopID,
	})

	result, err := h.service.CreateOrder(c.Request.Context(), application.CreateOrderCommand{
		UserID: req.UserID,
		ShopID: req.ShopID,
		Items:  items,
	})
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

// GetOrder handles GET /api/v1/orders/:orderId
func (h *OrderHandler) GetOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID, ok := h.parseOrderID(c, responder)
	if !ok {
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"order.id": orderID,
	})

	result, err := h.service.GetOrder(c.Request.Context(), application.GetOrderQuery{OrderID: orderID})
	if err != nil {
		h.respondError(responder, err)
		return
	}
	if result == nil {
		responder.RespondNotFound("order")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// UpdateOrder handles PATCH /api/v1/orders/:orderId
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID, ok := h.parseOrderID(c, responder)
	if !ok {
		return
	}

	var req updateOrderRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	result, err := h.service.UpdateOrder(c.Request.Context(), application.UpdateOrderCommand{
		OrderID:        orderID,
		TrackingNumber: req.TrackingNumber,
		PaymentRef:     req.PaymentRef,
	})
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// DeleteOrder handles DELETE /api/v1/orders/:orderId
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID, ok := h.parseOrderID(c, responder)
	if !ok {
		return
	}

	force := c.Query("force") == "true"

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"order.id": orderID,
		"forced":   force,
	})

	err := h.service.DeleteOrder(c.Request.Context(), application.DeleteOrderCommand{
		OrderID: orderID,
		Force:   force,
	})
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TransitionOrder handles PUT /api/v1/orders/:orderId/status
func (h *OrderHandler) TransitionOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID, ok := h.parseOrderID(c, responder)
	if !ok {
		return
	}

	var req transitionOrderRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"order.id":      orderID,
		"target.status": req.Status,
	})

	result, err := h.service.TransitionOrder(c.Request.Context(), application.TransitionOrderCommand{
		OrderID: orderID,
		Target:  domain.Status(req.Status),
	})
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// AttachPayment handles POST /api/v1/orders/:orderId/payments
func (h *OrderHandler) AttachPayment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID, ok := h.parseOrderID(c, responder)
	if !ok {
		return
	}

	var req attachPaymentRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"order.id":       orderID,
		"payment.method": req.Method,
	})

	result, err := h.service.AttachPayment(c.Request.Context(), application.AttachPaymentCommand{
		OrderID: orderID,
		Amount:  req.Amount,
		Method:  req.Method,
		Status:  domain.PaymentStatus(req.Status),
	})
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

// AttachRefund handles POST /api/v1/orders/:orderId/refunds
func (h *OrderHandler) AttachRefund(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID, ok := h.parseOrderID(c, responder)
	if !ok {
		return
	}

	var req attachRefundRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"order.id": orderID,
	})

	result, err := h.service.AttachRefund(c.Request.Context(), application.AttachRefundCommand{
		OrderID: orderID,
		Amount:  req.Amount,
		Reason:  req.Reason,
		Status:  domain.RefundStatus(req.Status),
	})
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	pageReq := api.ParsePagination(c)

	query := application.ListOrdersQuery{
		Page:     pageReq.Page,
		PageSize: pageReq.PageSize,
	}

	if s := c.Query("userId"); s != "" {
		userID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			responder.RespondWithAppError(errors.ErrValidation("userId must be an integer"))
			return
		}
		query.UserID = &userID
	}
	if s := c.Query("shopId"); s != "" {
		shopID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			responder.RespondWithAppError(errors.ErrValidation("shopId must be an integer"))
			return
		}
		query.ShopID = &shopID
	}
	if s := c.Query("status"); s != "" {
		query.Status = &s
	}
	if s := c.Query("trackingNumber"); s != "" {
		query.TrackingNumber = &s
	}
	if s := c.Query("from"); s != "" {
		from, err := time.Parse(time.RFC3339, s)
		if err != nil {
			responder.RespondWithAppError(errors.ErrValidation("invalid from date format, expected RFC3339"))
			return
		}
		query.FromDate = &from
	}
	if s := c.Query("to"); s != "" {
		to, err := time.Parse(time.RFC3339, s)
		if err != nil {
			responder.RespondWithAppError(errors.ErrValidation("invalid to date format, expected RFC3339"))
			return
		}
		query.ToDate = &to
	}

	result, err := h.service.ListOrders(c.Request.Context(), query)
	if err != nil {
		h.respondError(responder, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// parseOrderID extracts and validates the orderId path parameter
func (h *OrderHandler) parseOrderID(c *gin.Context, responder *middleware.ErrorResponder) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		responder.RespondWithAppError(errors.ErrValidation("orderId must be a positive integer"))
		return 0, false
	}
	return orderID, true
}

// respondError maps service errors onto HTTP responses
func (h *OrderHandler) respondError(responder *middleware.ErrorResponder, err error) {
	if appErr, ok := err.(*errors.AppError); ok {
		responder.RespondWithAppError(appErr)
		return
	}
	responder.RespondInternalError(err)
}
