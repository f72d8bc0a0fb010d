package order

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/types"
)

// Order is a Cashfree order created through this service
type Order struct {
	// OrderID is our identifier, also sent to Cashfree as order_id
	OrderID string `json:"order_id"`
	// CFOrderID is the identifier Cashfree assigned
	CFOrderID        string                   `json:"cf_order_id,omitempty"`
	Amount           decimal.Decimal          `json:"amount"`
	Currency         string                   `json:"currency"`
	Environment      types.PaymentEnvironment `json:"environment"`
	PaymentSessionID string                   `json:"payment_session_id"`
	Status           types.OrderStatus        `json:"status"`
	CustomerID       string                   `json:"customer_id"`
	CustomerName     string                   `json:"customer_name,omitempty"`
	CustomerEmail    string                   `json:"customer_email,omitempty"`
	CustomerPhone    string                   `json:"customer_phone"`
	Note             string                   `json:"note,omitempty"`
	ExpiresAt        *time.Time               `json:"expires_at,omitempty"`
	// Metadata carries the last payment reported for the order
	Metadata  types.Metadata `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FromCashfree builds an order record from the create-order response
func FromCashfree(env types.PaymentEnvironment, cf *cashfree.Order) *Order {
	now := time.Now().UTC()
	o := &Order{
		OrderID:          cf.OrderID,
		CFOrderID:        cf.CFOrderID,
		Amount:           cf.OrderAmount,
		Currency:         cf.OrderCurrency,
		Environment:      env,
		PaymentSessionID: cf.PaymentSessionID,
		Status:           cf.OrderStatus,
		Note:             cf.OrderNote,
		CreatedAt:        now,
		UpdatedAt:        now,
		CustomerID:       cf.CustomerDetails.CustomerID,
		CustomerName:     cf.CustomerDetails.CustomerName,
		CustomerEmail:    cf.CustomerDetails.CustomerEmail,
		CustomerPhone:    cf.CustomerDetails.CustomerPhone,
	}
	if expiry, err := time.Parse(time.RFC3339, cf.OrderExpiryTime); err == nil {
		expiry = expiry.UTC()
		o.ExpiresAt = &expiry
	}
	if o.Status == "" {
		o.Status = types.OrderStatusActive
	}
	return o
}

// ApplyStatus moves the order to status. Once PAID an order never leaves that
// state; a late failure webhook for an earlier attempt is ignored. It reports
// whether anything changed.
func (o *Order) ApplyStatus(status types.OrderStatus, metadata types.Metadata) bool {
	if o.Status == types.OrderStatusPaid && status != types.OrderStatusPaid {
		return false
	}
	changed := o.Status != status
	o.Status = status
	if len(metadata) > 0 {
		if o.Metadata == nil {
			o.Metadata = make(types.Metadata, len(metadata))
		}
		for k, v := range metadata {
			o.Metadata[k] = v
		}
		changed = true
	}
	if changed {
		o.UpdatedAt = time.Now().UTC()
	}
	return changed
}
