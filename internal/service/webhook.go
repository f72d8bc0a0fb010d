package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/wealthhorizon/paybridge/internal/api/dto"
	"github.com/wealthhorizon/paybridge/internal/cache"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/idempotency"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree/webhook"
)

// WebhookService processes inbound vendor webhooks
type WebhookService interface {
	// HandleCashfreeWebhook verifies, dedupes and applies one delivery. Once
	// the signature is valid it never fails, so Cashfree stops retrying.
	HandleCashfreeWebhook(ctx context.Context, payload []byte, signature, timestamp string) (*dto.WebhookResponse, error)
}

type webhookService struct {
	ServiceParams
	handler  *webhook.Handler
	idempGen *idempotency.Generator
}

// NewWebhookService creates a new webhook service
func NewWebhookService(params ServiceParams) WebhookService {
	return &webhookService{
		ServiceParams: params,
		handler:       webhook.NewHandler(params.Gateway, params.Logger),
		idempGen:      idempotency.NewGenerator(),
	}
}

func (s *webhookService) HandleCashfreeWebhook(ctx context.Context, payload []byte, signature, timestamp string) (*dto.WebhookResponse, error) {
	if err := s.Client.VerifyWebhookSignature(ctx, payload, signature, timestamp); err != nil {
		return nil, err
	}
	if err := s.checkFreshness(timestamp); err != nil {
		return nil, err
	}

	var event webhook.CashfreeWebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.Logger.Errorw("failed to parse Cashfree webhook payload",
			"error", err,
			"payload_length", len(payload))
		return &dto.WebhookResponse{Received: true, Outcome: webhook.OutcomeIgnored}, nil
	}

	eventType := event.GetType()
	orderID := event.OrderID()
	resp := &dto.WebhookResponse{Received: true, EventType: eventType}

	s.Sentry.AddBreadcrumb("webhook", "cashfree webhook received", map[string]interface{}{
		"event_type": string(eventType),
		"order_id":   orderID,
	})

	key := s.deliveryKey(&event)
	claimed, err := s.IdempotencyStore.Claim(ctx, key, s.Config.Webhook.DedupeTTL)
	if err != nil {
		// processing twice is safe, settlement is exactly once
		s.Logger.Warnw("webhook dedupe unavailable, processing anyway",
			"order_id", orderID,
			"error", err)
	} else if !claimed {
		s.Logger.Infow("duplicate Cashfree webhook delivery",
			"event_type", eventType,
			"order_id", orderID,
			"key", key)
		resp.Duplicate = true
		return resp, nil
	}

	resp.Outcome = s.handler.HandleWebhookEvent(ctx, &event, s.OrderRepo)
	if orderID != "" {
		s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixOrder, orderID))
		s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixOrderPayments, orderID))
	}
	return resp, nil
}

func (s *webhookService) deliveryKey(event *webhook.CashfreeWebhookEvent) string {
	params := map[string]interface{}{
		"type":       string(event.GetType()),
		"order_id":   event.OrderID(),
		"event_time": event.EventTime,
	}
	if event.Data.Payment != nil {
		params["cf_payment_id"] = event.Data.Payment.CFPaymentID.String()
		params["payment_status"] = string(event.Data.Payment.PaymentStatus)
	} else if event.Data.PaymentID != "" {
		params["cf_payment_id"] = event.Data.PaymentID
	}
	return s.idempGen.GenerateKey(idempotency.ScopeWebhook, params)
}

// checkFreshness refuses replays of old signed deliveries. Cashfree sends
// the timestamp in milliseconds, older senders in seconds; deliveries
// without a timestamp use the legacy body-only signature and are not checked.
func (s *webhookService) checkFreshness(timestamp string) error {
	maxAge := s.Config.Webhook.MaxAge
	timestamp = strings.TrimSpace(timestamp)
	if maxAge <= 0 || timestamp == "" {
		return nil
	}

	raw, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Webhook timestamp is invalid").
			Mark(ierr.ErrPermissionDenied)
	}

	var sentAt time.Time
	if raw > 1e12 {
		sentAt = time.UnixMilli(raw)
	} else {
		sentAt = time.Unix(raw, 0)
	}

	age := time.Since(sentAt)
	if age > maxAge || age < -maxAge {
		s.Logger.Warnw("stale Cashfree webhook refused",
			"sent_at", sentAt.UTC(),
			"age", age)
		return ierr.NewError("webhook timestamp outside tolerance").
			WithHintf("Webhook timestamp is older than %s", maxAge).
			WithReportableDetails(map[string]any{"timestamp": timestamp}).
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}
