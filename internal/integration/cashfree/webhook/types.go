package webhook

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
)

// CashfreeEventType represents the type of a Cashfree webhook event
type CashfreeEventType string

const (
	EventPaymentSuccess        CashfreeEventType = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed         CashfreeEventType = "PAYMENT_FAILED_WEBHOOK"
	EventPaymentUserDropped    CashfreeEventType = "PAYMENT_USER_DROPPED_WEBHOOK"
	EventPaymentSuccessLegacy  CashfreeEventType = "PAYMENT_SUCCESS"
	EventPaymentFailedLegacy   CashfreeEventType = "PAYMENT_FAILED"
	EventPaymentDroppedLegacy  CashfreeEventType = "PAYMENT_USER_DROPPED"
	EventPaymentPendingLegacy  CashfreeEventType = "PAYMENT_PENDING"
	EventRefundStatus          CashfreeEventType = "REFUND_STATUS_WEBHOOK"
	EventPaymentChargesWebhook CashfreeEventType = "PAYMENT_CHARGES_WEBHOOK"
)

// EventOutcome is what an event means for the order it belongs to
type EventOutcome string

const (
	OutcomeSuccess EventOutcome = "success"
	OutcomeFailed  EventOutcome = "failed"
	OutcomeDropped EventOutcome = "dropped"
	OutcomeIgnored EventOutcome = "ignored"
)

// Outcome maps an event type onto an order outcome. Unknown types are ignored.
func (t CashfreeEventType) Outcome() EventOutcome {
	s := strings.ToUpper(string(t))
	switch {
	case strings.HasPrefix(s, "PAYMENT_SUCCESS"):
		return OutcomeSuccess
	case strings.HasPrefix(s, "PAYMENT_FAILED"):
		return OutcomeFailed
	case strings.HasPrefix(s, "PAYMENT_USER_DROPPED"):
		return OutcomeDropped
	default:
		return OutcomeIgnored
	}
}

// CashfreeWebhookEvent is the body Cashfree posts to notify_url
type CashfreeWebhookEvent struct {
	Type      string      `json:"type"`
	EventType string      `json:"event_type,omitempty"`
	EventTime string      `json:"event_time"`
	Data      WebhookData `json:"data"`
}

// GetType returns the event type, accepting the older event_type field
func (e *CashfreeWebhookEvent) GetType() CashfreeEventType {
	if e.Type != "" {
		return CashfreeEventType(e.Type)
	}
	return CashfreeEventType(e.EventType)
}

// OrderID returns the merchant order the event belongs to
func (e *CashfreeWebhookEvent) OrderID() string {
	if e.Data.Order != nil && e.Data.Order.OrderID != "" {
		return e.Data.Order.OrderID
	}
	return e.Data.OrderID
}

// WebhookData is the data block of a webhook event
type WebhookData struct {
	Order           *WebhookOrder             `json:"order,omitempty"`
	Payment         *WebhookPayment           `json:"payment,omitempty"`
	CustomerDetails *cashfree.CustomerDetails `json:"customer_details,omitempty"`
	ErrorDetails    *cashfree.ErrorDetails    `json:"error_details,omitempty"`

	// flat fields sent by older API versions
	OrderID      string `json:"order_id,omitempty"`
	PaymentID    string `json:"payment_id,omitempty"`
	PaymentError string `json:"payment_error,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
}

// WebhookOrder is the order block of a payment webhook
type WebhookOrder struct {
	OrderID       string            `json:"order_id"`
	OrderAmount   decimal.Decimal   `json:"order_amount"`
	OrderCurrency string            `json:"order_currency"`
	OrderTags     map[string]string `json:"order_tags"`
}

// WebhookPayment is the payment block of a payment webhook
type WebhookPayment struct {
	CFPaymentID     cashfree.FlexibleID    `json:"cf_payment_id"`
	PaymentStatus   cashfree.PaymentStatus `json:"payment_status"`
	PaymentAmount   decimal.Decimal        `json:"payment_amount"`
	PaymentCurrency string                 `json:"payment_currency"`
	PaymentMessage  string                 `json:"payment_message"`
	PaymentTime     string                 `json:"payment_time"`
	BankReference   string                 `json:"bank_reference"`
	PaymentGroup    string                 `json:"payment_group"`
}
