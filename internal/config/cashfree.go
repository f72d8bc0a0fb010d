package config

import (
	"time"

	"github.com/wealthhorizon/paybridge/internal/types"
)

// DefaultCashfreeAPIVersion is sent as x-api-version on every PG call
const DefaultCashfreeAPIVersion = "2023-08-01"

// CashfreeConfig holds the merchant credentials and transport knobs for the PG API
type CashfreeConfig struct {
	AppID         string                   `mapstructure:"app_id"`
	SecretKey     string                   `mapstructure:"secret_key"`
	WebhookSecret string                   `mapstructure:"webhook_secret"`
	APIVersion    string                   `mapstructure:"api_version" validate:"required"`
	Environment   types.PaymentEnvironment `mapstructure:"environment" validate:"required,oneof=SANDBOX PRODUCTION"`
	ReturnURL     string                   `mapstructure:"return_url"`
	NotifyURL     string                   `mapstructure:"notify_url"`
	// CheckoutURL is the hosted checkout page handed to the front end, {order_id} is substituted
	CheckoutURL string        `mapstructure:"checkout_url"`
	CheckoutTTL time.Duration `mapstructure:"checkout_ttl"`
	// BaseURL overrides the environment derived API host, used by tests
	BaseURL            string        `mapstructure:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	RetryMax           int           `mapstructure:"retry_max"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
}

// GetWebhookSecret returns the secret used to sign webhooks. Cashfree signs
// with the client secret unless a dedicated one is configured.
func (c CashfreeConfig) GetWebhookSecret() string {
	if c.WebhookSecret != "" {
		return c.WebhookSecret
	}
	return c.SecretKey
}

// BridgeConfig tunes the pending call registry and the owning loop
type BridgeConfig struct {
	// CallWait is how long an HTTP caller blocks before getting a 202 with the call ID
	CallWait time.Duration `mapstructure:"call_wait"`
	// SettledTTL is how long settled calls stay queryable
	SettledTTL        time.Duration `mapstructure:"settled_ttl"`
	ReconcileAfter    time.Duration `mapstructure:"reconcile_after"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	LoopQueueSize     int           `mapstructure:"loop_queue_size"`
}

// WebhookConfig controls inbound vendor webhooks
type WebhookConfig struct {
	RateLimit float64       `mapstructure:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst"`
	DedupeTTL time.Duration `mapstructure:"dedupe_ttl"`
	// MaxAge rejects deliveries whose x-webhook-timestamp is older than this.
	// Zero disables the check.
	MaxAge time.Duration `mapstructure:"max_age"`
	// MaxBodyBytes caps the accepted payload size
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}
