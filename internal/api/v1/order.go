package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wealthhorizon/paybridge/internal/api/dto"
	"github.com/wealthhorizon/paybridge/internal/domain/order"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/service"
	"github.com/wealthhorizon/paybridge/internal/types"
)

type OrderHandler struct {
	service service.OrderService
	log     *logger.Logger
}

func NewOrderHandler(service service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{service: service, log: log}
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateOrder(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOrder handles GET /orders/:order_id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	resp, err := h.service.GetOrder(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := &order.Filter{
		Status:     types.OrderStatus(c.Query("status")),
		CustomerID: c.Query("customer_id"),
	}

	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		c.Error(err)
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPayments handles GET /orders/:order_id/payments
func (h *OrderHandler) GetPayments(c *gin.Context) {
	resp, err := h.service.GetPayments(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": resp})
}

// CreateRefund handles POST /orders/:order_id/refunds
func (h *OrderHandler) CreateRefund(c *gin.Context) {
	var req dto.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateRefund(c.Request.Context(), c.Param("order_id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// SyncOrders handles POST /orders/sync
func (h *OrderHandler) SyncOrders(c *gin.Context) {
	resp, err := h.service.SyncOrders(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, ierr.NewErrorf("invalid %s: %q", key, raw).
			WithHintf("%s must be a non-negative integer", key).
			Mark(ierr.ErrValidation)
	}
	return v, nil
}
