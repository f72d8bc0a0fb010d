package cashfree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wealthhorizon/paybridge/internal/types"
)

const (
	// SandboxBaseURL is the PG host for test credentials
	SandboxBaseURL = "https://sandbox.cashfree.com/pg"
	// ProductionBaseURL is the PG host for live credentials
	ProductionBaseURL = "https://api.cashfree.com/pg"

	// SDKScriptURL is the hosted checkout script loaded by the web checkout page
	SDKScriptURL = "https://sdk.cashfree.com/js/v3/cashfree.js"
)

// BaseURLFor returns the PG host for an environment
func BaseURLFor(env types.PaymentEnvironment) string {
	if env == types.PaymentEnvironmentProduction {
		return ProductionBaseURL
	}
	return SandboxBaseURL
}

// CustomerDetails is the customer block of an order
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

// OrderMeta carries the return and notify URLs of an order
type OrderMeta struct {
	ReturnURL      string `json:"return_url,omitempty"`
	NotifyURL      string `json:"notify_url,omitempty"`
	PaymentMethods string `json:"payment_methods,omitempty"`
}

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     float64           `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails CustomerDetails   `json:"customer_details"`
	OrderMeta       *OrderMeta        `json:"order_meta,omitempty"`
	OrderNote       string            `json:"order_note,omitempty"`
	OrderTags       map[string]string `json:"order_tags,omitempty"`
}

// Order is the order entity returned by the PG API
type Order struct {
	CFOrderID        string            `json:"cf_order_id"`
	OrderID          string            `json:"order_id"`
	Entity           string            `json:"entity"`
	OrderAmount      decimal.Decimal   `json:"order_amount"`
	OrderCurrency    string            `json:"order_currency"`
	OrderStatus      types.OrderStatus `json:"order_status"`
	PaymentSessionID string            `json:"payment_session_id"`
	OrderExpiryTime  string            `json:"order_expiry_time"`
	OrderNote        string            `json:"order_note"`
	CreatedAt        string            `json:"created_at"`
	CustomerDetails  CustomerDetails   `json:"customer_details"`
	OrderMeta        OrderMeta         `json:"order_meta"`
	OrderTags        map[string]string `json:"order_tags"`
}

// PaymentStatus is the payment_status of a single payment attempt
type PaymentStatus string

const (
	PaymentStatusSuccess     PaymentStatus = "SUCCESS"
	PaymentStatusNotAttempt  PaymentStatus = "NOT_ATTEMPTED"
	PaymentStatusFailed      PaymentStatus = "FAILED"
	PaymentStatusUserDropped PaymentStatus = "USER_DROPPED"
	PaymentStatusVoid        PaymentStatus = "VOID"
	PaymentStatusCancelled   PaymentStatus = "CANCELLED"
	PaymentStatusPending     PaymentStatus = "PENDING"
)

// IsFailure reports whether the attempt ended without collecting money
func (s PaymentStatus) IsFailure() bool {
	switch s {
	case PaymentStatusFailed, PaymentStatusUserDropped, PaymentStatusVoid, PaymentStatusCancelled:
		return true
	}
	return false
}

// Payment is a single payment attempt against an order
type Payment struct {
	CFPaymentID     FlexibleID      `json:"cf_payment_id"`
	OrderID         string          `json:"order_id"`
	Entity          string          `json:"entity"`
	PaymentAmount   decimal.Decimal `json:"payment_amount"`
	PaymentCurrency string          `json:"payment_currency"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentMessage  string          `json:"payment_message"`
	PaymentTime     string          `json:"payment_time"`
	PaymentGroup    string          `json:"payment_group"`
	BankReference   string          `json:"bank_reference"`
	ErrorDetails    *ErrorDetails   `json:"error_details,omitempty"`
}

func (p Payment) attemptTime() time.Time {
	t, err := time.Parse(time.RFC3339, p.PaymentTime)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ErrorDetails explains a failed payment attempt
type ErrorDetails struct {
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
	ErrorReason      string `json:"error_reason"`
	ErrorSource      string `json:"error_source"`
}

// CreateRefundRequest is the body of POST /orders/{id}/refunds
type CreateRefundRequest struct {
	RefundAmount float64 `json:"refund_amount"`
	RefundID     string  `json:"refund_id"`
	RefundNote   string  `json:"refund_note,omitempty"`
}

// Refund is the refund entity returned by the PG API
type Refund struct {
	CFRefundID     string          `json:"cf_refund_id"`
	CFPaymentID    FlexibleID      `json:"cf_payment_id"`
	RefundID       string          `json:"refund_id"`
	OrderID        string          `json:"order_id"`
	RefundAmount   decimal.Decimal `json:"refund_amount"`
	RefundCurrency string          `json:"refund_currency"`
	RefundStatus   string          `json:"refund_status"`
	RefundNote     string          `json:"refund_note"`
	CreatedAt      string          `json:"created_at"`
}

// OrderPayRequest is the body of POST /orders/sessions
type OrderPayRequest struct {
	PaymentSessionID string         `json:"payment_session_id"`
	PaymentMethod    OrderPayMethod `json:"payment_method"`
}

// OrderPayMethod selects the payment instrument for an order pay call
type OrderPayMethod struct {
	UPI *UPIMethod `json:"upi,omitempty"`
}

// UPIMethod selects how a UPI payment is collected
type UPIMethod struct {
	Channel string `json:"channel"`
	UPIID   string `json:"upi_id,omitempty"`
}

// UPIChannelLink asks the PG for intent links instead of a collect request
const UPIChannelLink = "link"

// OrderPayResponse is returned by POST /orders/sessions
type OrderPayResponse struct {
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	CFPaymentID   FlexibleID      `json:"cf_payment_id"`
	PaymentMethod string          `json:"payment_method"`
	Channel       string          `json:"channel"`
	Action        string          `json:"action"`
	Data          OrderPayData    `json:"data"`
}

// OrderPayData holds the intent links, keyed by app ("default", "gpay", "phonepe", ...)
type OrderPayData struct {
	URL     string            `json:"url"`
	Payload map[string]string `json:"payload"`
}

// APIError is the error body returned by the PG API
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// FlexibleID handles IDs Cashfree sends either as a JSON number or a string
type FlexibleID string

// UnmarshalJSON accepts 5114917039, "5114917039" and null
func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = FlexibleID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = FlexibleID(n.String())
		return nil
	}

	return fmt.Errorf("id must be either string or number")
}

func (id FlexibleID) String() string {
	return string(id)
}
