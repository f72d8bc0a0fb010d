package dto

import "github.com/wealthhorizon/paybridge/internal/integration/cashfree/webhook"

// WebhookResponse acknowledges a vendor webhook
type WebhookResponse struct {
	Received  bool                      `json:"received"`
	Duplicate bool                      `json:"duplicate,omitempty"`
	Outcome   webhook.EventOutcome      `json:"outcome,omitempty"`
	EventType webhook.CashfreeEventType `json:"event_type,omitempty"`
}
