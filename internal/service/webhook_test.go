package service

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/wealthhorizon/paybridge/internal/api/dto"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree/webhook"
	"github.com/wealthhorizon/paybridge/internal/types"
)

type WebhookServiceSuite struct {
	serviceSuite
	service WebhookService
	orders  OrderService
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceSuite))
}

func (s *WebhookServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.service = NewWebhookService(s.params)
	s.orders = NewOrderService(s.params)

	_, err := s.orders.CreateOrder(s.GetContext(), dto.CreateOrderRequest{
		OrderID:  "o1",
		Amount:   decimal.RequireFromString("100"),
		Customer: dto.CustomerDetailsRequest{CustomerPhone: "9876543210"},
	})
	s.Require().NoError(err)
}

func (s *WebhookServiceSuite) event(eventType string, data map[string]any) []byte {
	raw, err := json.Marshal(map[string]any{
		"type":       eventType,
		"event_time": "2024-05-01T10:00:00+05:30",
		"data":       data,
	})
	s.Require().NoError(err)
	return raw
}

func paymentBlock(orderID, cfPaymentID, status string) map[string]any {
	return map[string]any{
		"order": map[string]any{
			"order_id":       orderID,
			"order_amount":   100,
			"order_currency": "INR",
		},
		"payment": map[string]any{
			"cf_payment_id":  cfPaymentID,
			"payment_status": status,
			"payment_amount": 100,
			"payment_group":  "upi",
		},
	}
}

func (s *WebhookServiceSuite) deliver(payload []byte) (*dto.WebhookResponse, error) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := cashfree.Sign(s.GetClient().Secret, payload, ts)
	return s.service.HandleCashfreeWebhook(s.GetContext(), payload, sig, ts)
}

func (s *WebhookServiceSuite) TestRejectsBadSignature() {
	payload := s.event(string(webhook.EventPaymentSuccess), paymentBlock("o1", "p1", "SUCCESS"))

	_, err := s.service.HandleCashfreeWebhook(s.GetContext(), payload, "forged", "1714540000")
	s.True(ierr.IsPermissionDenied(err))

	_, err = s.service.HandleCashfreeWebhook(s.GetContext(), payload, "", "")
	s.True(ierr.IsPermissionDenied(err))

	s.Empty(s.callback.Verified())
}

func (s *WebhookServiceSuite) TestPaymentSuccess() {
	resp, err := s.deliver(s.event(string(webhook.EventPaymentSuccess), paymentBlock("o1", "p1", "SUCCESS")))
	s.Require().NoError(err)
	s.True(resp.Received)
	s.False(resp.Duplicate)
	s.Equal(webhook.OutcomeSuccess, resp.Outcome)
	s.Equal(webhook.EventPaymentSuccess, resp.EventType)

	s.Equal([]string{"o1"}, s.callback.Verified())

	stored, err := s.GetStores().OrderRepo.Get(s.GetContext(), "o1")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusPaid, stored.Status)
	s.Equal("p1", stored.Metadata["cf_payment_id"])
}

func (s *WebhookServiceSuite) TestHexSignatureWithoutTimestamp() {
	payload := s.event(string(webhook.EventPaymentSuccessLegacy), map[string]any{"order_id": "o1", "payment_id": "p9"})
	sig := cashfree.Sign(s.GetClient().Secret, payload, "")

	resp, err := s.service.HandleCashfreeWebhook(s.GetContext(), payload, sig, "")
	s.Require().NoError(err)
	s.Equal(webhook.OutcomeSuccess, resp.Outcome)
	s.Equal([]string{"o1"}, s.callback.Verified())
}

func (s *WebhookServiceSuite) TestDuplicateDeliveryIsAcknowledged() {
	payload := s.event(string(webhook.EventPaymentSuccess), paymentBlock("o1", "p1", "SUCCESS"))

	first, err := s.deliver(payload)
	s.Require().NoError(err)
	s.False(first.Duplicate)

	second, err := s.deliver(payload)
	s.Require().NoError(err)
	s.True(second.Received)
	s.True(second.Duplicate)

	s.Len(s.callback.Verified(), 1)
}

func (s *WebhookServiceSuite) TestPaymentFailed() {
	data := paymentBlock("o1", "p2", "FAILED")
	data["error_details"] = map[string]any{
		"error_code":        "TRANSACTION_DECLINED",
		"error_description": "Transaction declined by bank",
	}

	resp, err := s.deliver(s.event(string(webhook.EventPaymentFailed), data))
	s.Require().NoError(err)
	s.Equal(webhook.OutcomeFailed, resp.Outcome)

	failure := s.callback.Failure("o1")
	s.Require().NotNil(failure)
	s.Equal("TRANSACTION_DECLINED", failure.Code)
	s.Equal("Transaction declined by bank", failure.Message)

	stored, err := s.GetStores().OrderRepo.Get(s.GetContext(), "o1")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusFailed, stored.Status)
}

func (s *WebhookServiceSuite) TestUserDropped() {
	resp, err := s.deliver(s.event(string(webhook.EventPaymentUserDropped), paymentBlock("o1", "p3", "USER_DROPPED")))
	s.Require().NoError(err)
	s.Equal(webhook.OutcomeDropped, resp.Outcome)

	failure := s.callback.Failure("o1")
	s.Require().NotNil(failure)
	s.Equal(cashfree.CFErrorCodeUserDropped, failure.Code)
	s.Equal(string(cashfree.PaymentStatusUserDropped), failure.Status)
}

func (s *WebhookServiceSuite) TestLateFailureDoesNotUnpay() {
	_, err := s.deliver(s.event(string(webhook.EventPaymentSuccess), paymentBlock("o1", "p1", "SUCCESS")))
	s.Require().NoError(err)
	_, err = s.deliver(s.event(string(webhook.EventPaymentFailed), paymentBlock("o1", "p0", "FAILED")))
	s.Require().NoError(err)

	stored, err := s.GetStores().OrderRepo.Get(s.GetContext(), "o1")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusPaid, stored.Status)
}

func (s *WebhookServiceSuite) TestIgnoredEvents() {
	testCases := []struct {
		name    string
		payload []byte
	}{
		{"refund_event", s.event(string(webhook.EventRefundStatus), map[string]any{"order_id": "o1"})},
		{"charges_event", s.event(string(webhook.EventPaymentChargesWebhook), paymentBlock("o1", "p1", "SUCCESS"))},
		{"missing_order", s.event(string(webhook.EventPaymentSuccess), map[string]any{})},
		{"invalid_json", []byte(`{"type": "PAYMENT_SUCCESS_WEBHOOK", `)},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			resp, err := s.deliver(tc.payload)
			s.Require().NoError(err)
			s.True(resp.Received)
			s.Equal(webhook.OutcomeIgnored, resp.Outcome)
		})
	}
	s.Empty(s.callback.Verified())
}

func (s *WebhookServiceSuite) TestUnknownOrderStillReported() {
	resp, err := s.deliver(s.event(string(webhook.EventPaymentSuccess), paymentBlock("created_elsewhere", "p1", "SUCCESS")))
	s.Require().NoError(err)
	s.Equal(webhook.OutcomeSuccess, resp.Outcome)
	s.Equal([]string{"created_elsewhere"}, s.callback.Verified())
}

func (s *WebhookServiceSuite) TestTimestampFreshness() {
	payload := s.event(string(webhook.EventPaymentSuccess), paymentBlock("o1", "p1", "SUCCESS"))
	now := time.Now()

	testCases := []struct {
		name      string
		timestamp string
		wantErr   bool
	}{
		{name: "seconds_now", timestamp: strconv.FormatInt(now.Unix(), 10)},
		{name: "millis_now", timestamp: strconv.FormatInt(now.UnixMilli(), 10)},
		{name: "stale_seconds", timestamp: strconv.FormatInt(now.Add(-time.Hour).Unix(), 10), wantErr: true},
		{name: "stale_millis", timestamp: strconv.FormatInt(now.Add(-time.Hour).UnixMilli(), 10), wantErr: true},
		{name: "far_future", timestamp: strconv.FormatInt(now.Add(time.Hour).Unix(), 10), wantErr: true},
		{name: "not_a_number", timestamp: "yesterday", wantErr: true},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			sig := cashfree.Sign(s.GetClient().Secret, payload, tc.timestamp)

			_, err := s.service.HandleCashfreeWebhook(s.GetContext(), payload, sig, tc.timestamp)
			if tc.wantErr {
				s.True(ierr.IsPermissionDenied(err))
				s.Empty(s.callback.Verified())
				return
			}
			s.Require().NoError(err)
			s.Equal([]string{"o1"}, s.callback.Verified())
		})
	}
}

func (s *WebhookServiceSuite) TestFreshnessCheckDisabled() {
	s.GetConfig().Webhook.MaxAge = 0
	payload := s.event(string(webhook.EventPaymentSuccess), paymentBlock("o1", "p1", "SUCCESS"))
	sig := cashfree.Sign(s.GetClient().Secret, payload, "1714540000")

	_, err := s.service.HandleCashfreeWebhook(s.GetContext(), payload, sig, "1714540000")
	s.Require().NoError(err)
	s.Equal([]string{"o1"}, s.callback.Verified())
}
