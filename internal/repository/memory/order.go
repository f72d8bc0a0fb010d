package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wealthhorizon/paybridge/internal/domain/order"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/types"
)

type orderRepository struct {
	mu     sync.RWMutex
	orders map[string]*order.Order
	logger *logger.Logger
}

// NewOrderRepository creates an order repository held in process memory.
// Records are copied in and out so callers never share state with the store.
func NewOrderRepository(logger *logger.Logger) order.Repository {
	return &orderRepository{
		orders: make(map[string]*order.Order),
		logger: logger,
	}
}

func (r *orderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.OrderID]; exists {
		return ierr.NewError("order already exists").
			WithHintf("Order %s already exists", o.OrderID).
			Mark(ierr.ErrAlreadyExists)
	}
	r.orders[o.OrderID] = clone(o)
	return nil
}

func (r *orderRepository) Get(_ context.Context, orderID string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderID]
	if !ok {
		return nil, notFound(orderID)
	}
	return clone(o), nil
}

func (r *orderRepository) Update(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.OrderID]; !ok {
		return notFound(o.OrderID)
	}
	r.orders[o.OrderID] = clone(o)
	return nil
}

func (r *orderRepository) List(_ context.Context, filter *order.Filter) ([]*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if filter == nil {
		filter = &order.Filter{}
	}

	result := make([]*order.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			continue
		}
		result = append(result, clone(o))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*order.Order{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *orderRepository) UpdateOrderStatus(_ context.Context, orderID string, status types.OrderStatus, metadata types.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return notFound(orderID)
	}

	previous := o.Status
	if !o.ApplyStatus(status, metadata) {
		r.logger.Debugw("order status unchanged",
			"order_id", orderID,
			"status", previous,
			"requested", status)
		return nil
	}

	r.logger.Infow("order status updated",
		"order_id", orderID,
		"from", previous,
		"to", o.Status)
	return nil
}

func notFound(orderID string) error {
	return ierr.NewError("order not found").
		WithHintf("Order %s was not found", orderID).
		WithReportableDetails(map[string]any{"order_id": orderID}).
		Mark(ierr.ErrNotFound)
}

func clone(o *order.Order) *order.Order {
	c := *o
	c.Metadata = o.Metadata.Clone()
	if o.ExpiresAt != nil {
		t := *o.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}
