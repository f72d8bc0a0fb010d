package order

import (
	"context"

	"github.com/wealthhorizon/paybridge/internal/types"
)

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status     types.OrderStatus
	CustomerID string
	Limit      int
	Offset     int
}

// Repository defines the interface for order persistence
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, orderID string) (*Order, error)
	Update(ctx context.Context, order *Order) error
	List(ctx context.Context, filter *Filter) ([]*Order, error)
	// UpdateOrderStatus applies a status reported by the vendor
	UpdateOrderStatus(ctx context.Context, orderID string, status types.OrderStatus, metadata types.Metadata) error
}
