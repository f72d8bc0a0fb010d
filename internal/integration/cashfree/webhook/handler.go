package webhook

import (
	"context"

	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/types"
)

// OrderStatusUpdater records what a webhook says about an order
type OrderStatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, orderID string, status types.OrderStatus, metadata types.Metadata) error
}

// Handler handles Cashfree webhook events
type Handler struct {
	gateway cashfree.PaymentGatewayService
	logger  *logger.Logger
}

// NewHandler creates a new Cashfree webhook handler
func NewHandler(gateway cashfree.PaymentGatewayService, logger *logger.Logger) *Handler {
	return &Handler{
		gateway: gateway,
		logger:  logger,
	}
}

// HandleWebhookEvent processes a verified Cashfree webhook event and returns
// how it was classified. It cannot fail: the webhook is always acknowledged
// and processing errors are only logged so Cashfree does not retry.
func (h *Handler) HandleWebhookEvent(ctx context.Context, event *CashfreeWebhookEvent, orders OrderStatusUpdater) EventOutcome {
	eventType := event.GetType()
	orderID := event.OrderID()
	outcome := eventType.Outcome()

	h.logger.Infow("processing Cashfree webhook event",
		"event_type", eventType,
		"order_id", orderID,
		"event_time", event.EventTime,
		"outcome", outcome)

	if outcome == OutcomeIgnored {
		h.logger.Infow("unhandled Cashfree webhook event type", "type", eventType)
		return OutcomeIgnored
	}

	if orderID == "" {
		h.logger.Warnw("payment webhook without order id", "type", eventType)
		return OutcomeIgnored
	}

	switch outcome {
	case OutcomeSuccess:
		h.handlePaymentSuccess(ctx, event, orderID, orders)
	case OutcomeFailed:
		h.handlePaymentFailed(ctx, event, orderID, orders)
	case OutcomeDropped:
		h.handleUserDropped(ctx, event, orderID, orders)
	}
	return outcome
}

func (h *Handler) handlePaymentSuccess(ctx context.Context, event *CashfreeWebhookEvent, orderID string, orders OrderStatusUpdater) {
	metadata := paymentMetadata(event)
	h.updateOrder(ctx, orders, orderID, types.OrderStatusPaid, metadata)

	h.logger.Infow("payment succeeded",
		"order_id", orderID,
		"cf_payment_id", metadata["cf_payment_id"],
		"amount", metadata["payment_amount"])

	h.gateway.ReportVerified(orderID)
}

func (h *Handler) handlePaymentFailed(ctx context.Context, event *CashfreeWebhookEvent, orderID string, orders OrderStatusUpdater) {
	cfErr := failureFromEvent(event, cashfree.CFErrorCodePaymentFailed, "Payment failed")
	metadata := paymentMetadata(event)
	metadata["error_code"] = cfErr.Code
	metadata["error_description"] = cfErr.Message
	h.updateOrder(ctx, orders, orderID, types.OrderStatusFailed, metadata)

	h.logger.Infow("payment failed",
		"order_id", orderID,
		"error_code", cfErr.Code,
		"error_description", cfErr.Message)

	h.gateway.ReportFailure(cfErr, orderID)
}

func (h *Handler) handleUserDropped(ctx context.Context, event *CashfreeWebhookEvent, orderID string, orders OrderStatusUpdater) {
	cfErr := failureFromEvent(event, cashfree.CFErrorCodeUserDropped, "Payment was abandoned")
	cfErr.Status = string(cashfree.PaymentStatusUserDropped)
	h.updateOrder(ctx, orders, orderID, types.OrderStatusDropped, paymentMetadata(event))

	h.logger.Infow("shopper dropped the payment", "order_id", orderID)

	h.gateway.ReportFailure(cfErr, orderID)
}

func (h *Handler) updateOrder(ctx context.Context, orders OrderStatusUpdater, orderID string, status types.OrderStatus, metadata types.Metadata) {
	if orders == nil {
		return
	}
	if err := orders.UpdateOrderStatus(ctx, orderID, status, metadata); err != nil {
		// orders created outside paybridge are still reported to the bridge
		h.logger.Warnw("failed to update order from webhook",
			"error", err,
			"order_id", orderID,
			"status", status)
	}
}

func failureFromEvent(event *CashfreeWebhookEvent, defaultCode, defaultMessage string) *cashfree.CFError {
	code, message := defaultCode, defaultMessage
	if d := event.Data.ErrorDetails; d != nil {
		if d.ErrorCode != "" {
			code = d.ErrorCode
		}
		if d.ErrorDescription != "" {
			message = d.ErrorDescription
		}
	}
	if event.Data.ErrorCode != "" {
		code = event.Data.ErrorCode
	}
	if event.Data.PaymentError != "" {
		message = event.Data.PaymentError
	}
	if p := event.Data.Payment; p != nil && message == defaultMessage && p.PaymentMessage != "" {
		message = p.PaymentMessage
	}
	return cashfree.NewCFError(code, message)
}

func paymentMetadata(event *CashfreeWebhookEvent) types.Metadata {
	metadata := types.Metadata{
		"webhook_type": string(event.GetType()),
		"event_time":   event.EventTime,
	}
	if p := event.Data.Payment; p != nil {
		metadata["cf_payment_id"] = p.CFPaymentID.String()
		metadata["payment_status"] = string(p.PaymentStatus)
		metadata["payment_amount"] = p.PaymentAmount.String()
		metadata["payment_currency"] = p.PaymentCurrency
		metadata["payment_group"] = p.PaymentGroup
		metadata["bank_reference"] = p.BankReference
	} else if event.Data.PaymentID != "" {
		metadata["cf_payment_id"] = event.Data.PaymentID
	}
	return metadata
}
