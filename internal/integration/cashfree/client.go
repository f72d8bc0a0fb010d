package cashfree

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/httpclient"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/types"
)

// CashfreeClient defines the Cashfree PG API operations used by paybridge
type CashfreeClient interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	GetPayments(ctx context.Context, orderID string) ([]Payment, error)
	GetPayment(ctx context.Context, orderID, paymentID string) (*Payment, error)
	CreateRefund(ctx context.Context, orderID string, req *CreateRefundRequest) (*Refund, error)
	PayOrder(ctx context.Context, env types.PaymentEnvironment, req *OrderPayRequest) (*OrderPayResponse, error)
	VerifyWebhookSignature(ctx context.Context, payload []byte, signature, timestamp string) error
}

// Client talks to the Cashfree PG REST API
type Client struct {
	httpClient httpclient.Client
	breaker    *gobreaker.CircuitBreaker
	config     config.CashfreeConfig
	logger     *logger.Logger
}

// NewClient creates a new Cashfree client
func NewClient(
	httpClient httpclient.Client,
	cfg *config.Configuration,
	logger *logger.Logger,
) CashfreeClient {
	cf := cfg.Cashfree
	maxFailures := cf.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "cashfree",
		Timeout: cf.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// vendor side rejections (4xx) say nothing about vendor health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			if httpErr, ok := httpclient.IsHTTPError(err); ok {
				return httpErr.StatusCode < http.StatusInternalServerError
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnw("cashfree circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return &Client{
		httpClient: httpClient,
		breaker:    breaker,
		config:     cf,
		logger:     logger,
	}
}

func (c *Client) baseURL(env types.PaymentEnvironment) string {
	if c.config.BaseURL != "" {
		return strings.TrimRight(c.config.BaseURL, "/")
	}
	if env == "" {
		env = c.config.Environment
	}
	return BaseURLFor(env)
}

func (c *Client) headers() map[string]string {
	version := c.config.APIVersion
	if version == "" {
		version = config.DefaultCashfreeAPIVersion
	}
	return map[string]string{
		"Accept":          "application/json",
		"x-api-version":   version,
		"x-client-id":     c.config.AppID,
		"x-client-secret": c.config.SecretKey,
	}
}

// do sends one PG request through the breaker and decodes the response into out
func (c *Client) do(ctx context.Context, env types.PaymentEnvironment, method, path string, body, out any) error {
	if c.config.AppID == "" || c.config.SecretKey == "" {
		return ierr.NewError("missing Cashfree credentials").
			WithHint("Configure cashfree.app_id and cashfree.secret_key").
			Mark(ierr.ErrSetup)
	}

	req := &httpclient.Request{
		Method:  method,
		URL:     c.baseURL(env) + path,
		Headers: c.headers(),
	}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return ierr.WithError(err).
				WithHint("Failed to encode Cashfree request").
				Mark(ierr.ErrInternal)
		}
		req.Body = raw
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.httpClient.Send(ctx, req)
	})
	if err != nil {
		return c.translateError(ctx, err, method, path)
	}

	resp := result.(*httpclient.Response)
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		c.logger.Errorw("failed to decode Cashfree response",
			"error", err,
			"method", method,
			"path", path)
		return ierr.WithError(err).
			WithHint("Unexpected response from Cashfree").
			Mark(ierr.ErrHTTPClient)
	}
	return nil
}

func (c *Client) translateError(ctx context.Context, err error, method, path string) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		c.logger.Warnw("cashfree circuit open, request rejected", "method", method, "path", path)
		return ierr.WithError(err).
			WithHint("Payment provider is temporarily unavailable").
			Mark(ierr.ErrHTTPClient)
	}

	httpErr, ok := httpclient.IsHTTPError(err)
	if !ok {
		c.logger.Errorw("cashfree request failed",
			"error", err,
			"method", method,
			"path", path,
			"call_id", types.GetCallID(ctx))
		return err
	}

	var apiErr APIError
	_ = json.Unmarshal(httpErr.Response, &apiErr)
	message := apiErr.Message
	if message == "" {
		message = http.StatusText(httpErr.StatusCode)
	}

	c.logger.Errorw("cashfree api returned an error",
		"status_code", httpErr.StatusCode,
		"code", apiErr.Code,
		"type", apiErr.Type,
		"message", apiErr.Message,
		"method", method,
		"path", path,
		"call_id", types.GetCallID(ctx))

	details := map[string]any{
		"status_code": httpErr.StatusCode,
		"code":        apiErr.Code,
		"type":        apiErr.Type,
	}

	// build a fresh error so the mark below is the only sentinel in the chain
	b := ierr.NewErrorf("cashfree %s %s: %s", method, path, message).
		WithHint(message).
		WithReportableDetails(details)

	switch {
	case httpErr.StatusCode == http.StatusNotFound:
		return b.Mark(ierr.ErrNotFound)
	case httpErr.StatusCode == http.StatusConflict:
		return b.Mark(ierr.ErrAlreadyExists)
	case httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden:
		return b.Mark(ierr.ErrSetup)
	case httpErr.StatusCode < http.StatusInternalServerError:
		return b.Mark(ierr.ErrValidation)
	default:
		return b.Mark(ierr.ErrHTTPClient)
	}
}

// CreateOrder creates an order and returns it with its payment session ID
func (c *Client) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, "", http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}

	c.logger.Infow("created order in Cashfree",
		"order_id", order.OrderID,
		"cf_order_id", order.CFOrderID,
		"status", order.OrderStatus)
	return &order, nil
}

// GetOrder fetches an order by merchant order ID
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, "", http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetPayments lists every payment attempt made against an order
func (c *Client) GetPayments(ctx context.Context, orderID string) ([]Payment, error) {
	var payments []Payment
	path := fmt.Sprintf("/orders/%s/payments", url.PathEscape(orderID))
	if err := c.do(ctx, "", http.MethodGet, path, nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// GetPayment fetches a single payment attempt
func (c *Client) GetPayment(ctx context.Context, orderID, paymentID string) (*Payment, error) {
	var payment Payment
	path := fmt.Sprintf("/orders/%s/payments/%s", url.PathEscape(orderID), url.PathEscape(paymentID))
	if err := c.do(ctx, "", http.MethodGet, path, nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreateRefund refunds part or all of a paid order
func (c *Client) CreateRefund(ctx context.Context, orderID string, req *CreateRefundRequest) (*Refund, error) {
	var refund Refund
	path := fmt.Sprintf("/orders/%s/refunds", url.PathEscape(orderID))
	if err := c.do(ctx, "", http.MethodPost, path, req, &refund); err != nil {
		return nil, err
	}

	c.logger.Infow("created refund in Cashfree",
		"order_id", orderID,
		"refund_id", refund.RefundID,
		"cf_refund_id", refund.CFRefundID,
		"status", refund.RefundStatus)
	return &refund, nil
}

// PayOrder starts a payment for a session. The environment comes from the
// session, not from config, so a sandbox session always hits the sandbox host.
func (c *Client) PayOrder(ctx context.Context, env types.PaymentEnvironment, req *OrderPayRequest) (*OrderPayResponse, error) {
	var resp OrderPayResponse
	if err := c.do(ctx, env, http.MethodPost, "/orders/sessions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyWebhookSignature checks a webhook body against x-webhook-signature.
// With a timestamp the signature is base64(HMAC-SHA256(timestamp + body)),
// without one it is the hex HMAC-SHA256 of the body.
func (c *Client) VerifyWebhookSignature(ctx context.Context, payload []byte, signature, timestamp string) error {
	secret := c.config.GetWebhookSecret()
	if secret == "" {
		c.logger.Errorw("no webhook secret configured, rejecting webhook")
		return ierr.NewError("webhook secret not configured").
			WithHint("Unable to verify Cashfree webhook signature").
			Mark(ierr.ErrSetup)
	}

	if signature == "" {
		return ierr.NewError("missing webhook signature").
			WithHint("Missing signature header").
			Mark(ierr.ErrPermissionDenied)
	}

	if !ValidSignature(secret, payload, signature, timestamp) {
		c.logger.Errorw("webhook signature mismatch",
			"received_signature_length", len(signature),
			"payload_length", len(payload),
			"has_timestamp", timestamp != "",
			"using_webhook_secret", c.config.WebhookSecret != "")
		return ierr.NewError("webhook signature verification failed").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrPermissionDenied)
	}

	c.logger.Debugw("webhook signature verified", "has_timestamp", timestamp != "")
	return nil
}

// ValidSignature reports whether signature matches payload under secret
func ValidSignature(secret string, payload []byte, signature, timestamp string) bool {
	expected := Sign(secret, payload, timestamp)
	if timestamp == "" {
		// hex digests are compared case-insensitively
		signature = strings.ToLower(signature)
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces the signature Cashfree would send for payload
func Sign(secret string, payload []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	if timestamp != "" {
		mac.Write([]byte(timestamp))
		mac.Write(payload)
		return base64.StdEncoding.EncodeToString(mac.Sum(nil))
	}
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
