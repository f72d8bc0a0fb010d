package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wealthhorizon/paybridge/internal/domain/order"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/validator"
)

// CustomerDetailsRequest identifies who pays for an order
type CustomerDetailsRequest struct {
	CustomerID    string `json:"customer_id" validate:"omitempty,max=50"`
	CustomerName  string `json:"customer_name" validate:"omitempty,max=100"`
	CustomerEmail string `json:"customer_email" validate:"omitempty,email"`
	CustomerPhone string `json:"customer_phone" validate:"required,inphone"`
}

// CreateOrderRequest creates a Cashfree order
type CreateOrderRequest struct {
	// OrderID is optional, one is generated when empty
	OrderID   string                 `json:"order_id" validate:"omitempty,max=45"`
	Amount    decimal.Decimal        `json:"amount"`
	Currency  string                 `json:"currency" validate:"omitempty,len=3"`
	Customer  CustomerDetailsRequest `json:"customer" validate:"required"`
	ReturnURL string                 `json:"return_url" validate:"omitempty,url"`
	Note      string                 `json:"note" validate:"omitempty,max=200"`
	Tags      map[string]string      `json:"tags,omitempty"`
}

func (r *CreateOrderRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if !r.Amount.IsPositive() {
		return ierr.NewError("amount must be positive").
			WithHint("Order amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// OrderResponse is an order as returned to clients
type OrderResponse struct {
	*order.Order
}

func NewOrderResponse(o *order.Order) *OrderResponse {
	return &OrderResponse{Order: o}
}

// ListOrdersResponse is a page of orders
type ListOrdersResponse = ListResponse[*OrderResponse]

// PaymentResponse is a single payment attempt of an order
type PaymentResponse struct {
	CFPaymentID   string                 `json:"cf_payment_id"`
	OrderID       string                 `json:"order_id"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      string                 `json:"currency"`
	Status        cashfree.PaymentStatus `json:"status"`
	Message       string                 `json:"message,omitempty"`
	PaymentGroup  string                 `json:"payment_group,omitempty"`
	BankReference string                 `json:"bank_reference,omitempty"`
	PaymentTime   string                 `json:"payment_time,omitempty"`
	ErrorCode     string                 `json:"error_code,omitempty"`
	ErrorReason   string                 `json:"error_reason,omitempty"`
}

func NewPaymentResponse(p cashfree.Payment) *PaymentResponse {
	resp := &PaymentResponse{
		CFPaymentID:   p.CFPaymentID.String(),
		OrderID:       p.OrderID,
		Amount:        p.PaymentAmount,
		Currency:      p.PaymentCurrency,
		Status:        p.PaymentStatus,
		Message:       p.PaymentMessage,
		PaymentGroup:  p.PaymentGroup,
		BankReference: p.BankReference,
		PaymentTime:   p.PaymentTime,
	}
	if p.ErrorDetails != nil {
		resp.ErrorCode = p.ErrorDetails.ErrorCode
		resp.ErrorReason = p.ErrorDetails.ErrorReason
	}
	return resp
}

// CreateRefundRequest refunds part or all of a paid order
type CreateRefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	// RefundID is optional; when empty one is derived from the order, amount
	// and idempotency key so retries do not refund twice
	RefundID       string `json:"refund_id" validate:"omitempty,max=40"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=100"`
	Note           string `json:"note" validate:"omitempty,max=100"`
}

func (r *CreateRefundRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return ierr.NewError("refund amount must be positive").
			WithHint("Refund amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RefundResponse is a refund as returned to clients
type RefundResponse struct {
	RefundID    string          `json:"refund_id"`
	CFRefundID  string          `json:"cf_refund_id"`
	CFPaymentID string          `json:"cf_payment_id,omitempty"`
	OrderID     string          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
}

func NewRefundResponse(r *cashfree.Refund) *RefundResponse {
	return &RefundResponse{
		RefundID:    r.RefundID,
		CFRefundID:  r.CFRefundID,
		CFPaymentID: r.CFPaymentID.String(),
		OrderID:     r.OrderID,
		Amount:      r.RefundAmount,
		Currency:    r.RefundCurrency,
		Status:      r.RefundStatus,
		Note:        r.RefundNote,
		CreatedAt:   r.CreatedAt,
	}
}

// SyncOrdersResponse summarises a status sync against Cashfree
type SyncOrdersResponse struct {
	Total    int       `json:"total"`
	Updated  int       `json:"updated"`
	Failed   int       `json:"failed"`
	SyncedAt time.Time `json:"synced_at"`
}
