package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vintagebeauty/storefront-backend/internal/app/model"
	"github.com/vintagebeauty/storefront-backend/internal/app/repository"
	"github.com/vintagebeauty/storefront-backend/internal/app/service"
	apperrors "github.com/vintagebeauty/storefront-backend/internal/errors"
	"github.com/vintagebeauty/storefront-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type UpdateOrderStatusRequest struct {
	Status         model.OrderStatus `json:"status" binding:"required"`
	TrackingNumber string            `json:"tracking_number"`
}

func respondOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "One of the products is no longer available")
	case errors.Is(err, service.ErrInsufficientStock):
		apperrors.Conflict(c, apperrors.OrderInsufficientStock, "Not enough stock for one of the items")
	case errors.Is(err, service.ErrInvalidStatusTransition):
		apperrors.Conflict(c, apperrors.OrderInvalidStatus, "A cancelled order cannot be reopened")
	default:
		respondServiceError(c, err, "order")
	}
}

// CreateOrder places an order as a guest or as the signed-in user
// POST /api/v1/orders
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var input service.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Warn("Invalid order request", map[string]interface{}{
			"error": err.Error(),
		})
		respondBindError(c, err)
		return
	}

	input.UserID = nil
	if userID, ok := middleware.GetUserID(c); ok {
		input.UserID = &userID
	}

	order, err := ctrl.orderService.CreateOrder(c.Request.Context(), input)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        order.TotalAmount.String(),
	})
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

// TrackOrder looks an order up by order or courier tracking number
// GET /api/v1/orders/track/:number
func (ctrl *OrderController) TrackOrder(c *gin.Context) {
	order, err := ctrl.orderService.TrackOrder(c.Request.Context(), strings.TrimSpace(c.Param("number")))
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetMyOrders returns the signed-in user's orders
// GET /api/v1/orders
func (ctrl *OrderController) GetMyOrders(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(c.Request.Context(), userID)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// ListAllOrders returns a page of every order, optionally by status
// GET /api/v1/orders/all?status=pending
func (ctrl *OrderController) ListAllOrders(c *gin.Context) {
	var filter repository.OrderFilter
	fields := map[string]string{}

	if raw := c.Query("status"); raw != "" {
		status := model.OrderStatus(raw)
		filter.Status = &status
	}
	var err error
	if filter.Limit, err = queryInt(c, "limit", defaultPageSize, 1, maxPageSize); err != nil {
		fields["limit"] = err.Error()
	}
	if filter.Offset, err = queryInt(c, "offset", 0, 0, 0); err != nil {
		fields["offset"] = err.Error()
	}
	if len(fields) > 0 {
		apperrors.RespondWithValidationError(c, fields)
		return
	}

	page, err := ctrl.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// UpdateOrderStatus moves an order along; cancelling restores stock
// PUT /api/v1/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(c.Request.Context(), id, req.Status, req.TrackingNumber)
	if err != nil {
		respondOrderError(c, err)
		return
	}

	log.Info("Order status updated", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})
	c.JSON(http.StatusOK, gin.H{"order": order})
}
