package cashfree_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/testutil"
	"github.com/wealthhorizon/paybridge/internal/types"
)

type callbackRecorder struct {
	mu       sync.Mutex
	verified []string
	failures []*cashfree.CFError
}

func (r *callbackRecorder) OnPaymentVerify(orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verified = append(r.verified, orderID)
}

func (r *callbackRecorder) OnPaymentFailure(cfErr *cashfree.CFError, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, cfErr)
}

type GatewaySuite struct {
	suite.Suite
	ctx      context.Context
	cfg      *config.Configuration
	client   *testutil.FakeCashfreeClient
	gateway  cashfree.PaymentGatewayService
	callback *callbackRecorder
	session  *cashfree.Session
}

func TestGateway(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	s.cfg = testConfig()
	s.client = testutil.NewFakeCashfreeClient()
	s.client.SeedOrder("o1", types.OrderStatusActive, decimal.RequireFromString("100"))
	s.gateway = cashfree.NewGateway(s.client, s.cfg, logger.NewNopLogger())
	s.callback = &callbackRecorder{}
	s.gateway.SetCheckoutCallback(s.callback)

	var err error
	s.session, err = cashfree.NewSessionBuilder().
		SetEnvironment(types.PaymentEnvironmentSandbox).
		SetOrderID("o1").
		SetPaymentSessionID("s1").
		Build()
	s.Require().NoError(err)
}

func (s *GatewaySuite) TestWebCheckout() {
	descriptor, err := s.gateway.DoWebCheckout(s.ctx, s.session, nil)
	s.Require().NoError(err)
	s.Equal(types.CheckoutModeWeb, descriptor.Mode)
	s.Equal("http://localhost:8080/v1/checkout/web/o1", descriptor.CheckoutURL)
	s.Equal(cashfree.SDKScriptURL, descriptor.SDKURL)
	s.Equal("sandbox", descriptor.SDKMode)
	s.Require().NotNil(descriptor.Theme)
	s.Equal(cashfree.DefaultButtonBackgroundColor, descriptor.Theme.ButtonBackgroundColor)

	stored, ok := s.gateway.GetWebCheckout("o1")
	s.Require().True(ok)
	s.Equal("s1", stored.Session.PaymentSessionID)

	_, ok = s.gateway.GetWebCheckout("o2")
	s.False(ok)

	// web checkout does not touch the PG API
	s.Zero(s.client.TotalCalls())
}

func (s *GatewaySuite) TestWebCheckoutWithoutURL() {
	s.cfg.Cashfree.CheckoutURL = ""
	gateway := cashfree.NewGateway(s.client, s.cfg, logger.NewNopLogger())

	_, err := gateway.DoWebCheckout(s.ctx, s.session, nil)
	s.True(ierr.IsSetup(err))
}

func (s *GatewaySuite) TestUPIIntentCheckout() {
	descriptor, err := s.gateway.DoUPIIntentCheckout(s.ctx, s.session, nil)
	s.Require().NoError(err)
	s.Equal(types.CheckoutModeUPIIntent, descriptor.Mode)
	s.Contains(descriptor.IntentLinks, "default")
	s.Contains(descriptor.IntentLinks, "gpay")
	s.Equal(1, s.client.Calls("PayOrder"))
}

func (s *GatewaySuite) TestUPIIntentWithoutLinks() {
	s.client.PayOrderResponse = &cashfree.OrderPayResponse{
		Action: "custom",
		Data:   cashfree.OrderPayData{Payload: map[string]string{"gpay": ""}},
	}
	_, err := s.gateway.DoUPIIntentCheckout(s.ctx, s.session, nil)
	s.True(ierr.IsSetup(err))
}

func (s *GatewaySuite) TestUPIIntentVendorError() {
	s.client.SetError("PayOrder", ierr.NewError("upi not enabled").
		WithHint("UPI is not enabled for this merchant").
		Mark(ierr.ErrValidation))

	_, err := s.gateway.DoUPIIntentCheckout(s.ctx, s.session, nil)
	s.True(ierr.IsSetup(err))
	s.Contains(ierr.DisplayMessage(err), "UPI is not enabled")
}

func (s *GatewaySuite) TestHandleResult() {
	testCases := []struct {
		name        string
		setup       func()
		data        cashfree.ResultData
		wantStatus  types.OutcomeStatus
		wantVerify  bool
		wantFailure string
	}{
		{
			name:       "order_paid",
			setup:      func() { s.client.SetOrderStatus("o1", types.OrderStatusPaid) },
			data:       cashfree.ResultData{"order_id": "o1"},
			wantStatus: types.OutcomeStatusSuccess,
			wantVerify: true,
		},
		{
			name:        "order_expired",
			setup:       func() { s.client.SetOrderStatus("o1", types.OrderStatusExpired) },
			data:        cashfree.ResultData{"orderId": "o1"},
			wantStatus:  types.OutcomeStatusFailed,
			wantFailure: cashfree.CFErrorCodeOrderExpired,
		},
		{
			name: "successful_attempt_ahead_of_order",
			setup: func() {
				s.client.AddPayment("o1", cashfree.Payment{PaymentStatus: cashfree.PaymentStatusSuccess})
			},
			data:       cashfree.ResultData{"order_id": "o1"},
			wantStatus: types.OutcomeStatusSuccess,
			wantVerify: true,
		},
		{
			name: "failed_attempt",
			setup: func() {
				s.client.AddPayment("o1", cashfree.Payment{
					PaymentStatus: cashfree.PaymentStatusFailed,
					ErrorDetails:  &cashfree.ErrorDetails{ErrorCode: "DECLINED", ErrorDescription: "Declined by bank"},
				})
			},
			data:        cashfree.ResultData{"order_id": "o1"},
			wantStatus:  types.OutcomeStatusFailed,
			wantFailure: "DECLINED",
		},
		{
			name:       "app_reported_cancel_needs_pg_confirmation",
			data:       cashfree.ResultData{"order_id": "o1", "status": "cancelled"},
			wantStatus: types.OutcomeStatusPending,
		},
		{
			name: "newest_attempt_decides",
			setup: func() {
				s.client.AddPayment("o1", cashfree.Payment{
					PaymentStatus: cashfree.PaymentStatusPending,
					PaymentTime:   "2024-05-01T10:05:00+05:30",
				})
				s.client.AddPayment("o1", cashfree.Payment{
					PaymentStatus: cashfree.PaymentStatusFailed,
					PaymentTime:   "2024-05-01T10:00:00+05:30",
				})
			},
			data:       cashfree.ResultData{"order_id": "o1"},
			wantStatus: types.OutcomeStatusPending,
		},
		{
			name: "newest_attempt_failed",
			setup: func() {
				s.client.AddPayment("o1", cashfree.Payment{
					PaymentStatus:  cashfree.PaymentStatusFailed,
					PaymentTime:    "2024-05-01T10:05:00+05:30",
					PaymentMessage: "Insufficient funds",
				})
				s.client.AddPayment("o1", cashfree.Payment{
					PaymentStatus: cashfree.PaymentStatusPending,
					PaymentTime:   "2024-05-01T10:00:00+05:30",
				})
			},
			data:        cashfree.ResultData{"order_id": "o1"},
			wantStatus:  types.OutcomeStatusFailed,
			wantFailure: cashfree.CFErrorCodePaymentFailed,
		},
		{
			name:       "still_open",
			data:       cashfree.ResultData{"order_id": "o1", "status": "SUBMITTED"},
			wantStatus: types.OutcomeStatusPending,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			if tc.setup != nil {
				tc.setup()
			}

			status, err := s.gateway.HandleResult(s.ctx, tc.data)
			s.Require().NoError(err)
			s.Equal(tc.wantStatus, status)

			if tc.wantVerify {
				s.Equal([]string{"o1"}, s.callback.verified)
			} else {
				s.Empty(s.callback.verified)
			}
			if tc.wantFailure != "" {
				s.Require().Len(s.callback.failures, 1)
				s.Equal(tc.wantFailure, s.callback.failures[0].Code)
			} else {
				s.Empty(s.callback.failures)
			}
		})
	}
}

func (s *GatewaySuite) TestHandleResultErrors() {
	_, err := s.gateway.HandleResult(s.ctx, cashfree.ResultData{})
	s.True(ierr.IsValidation(err))

	_, err = s.gateway.HandleResult(s.ctx, cashfree.ResultData{"order_id": "unknown"})
	s.True(ierr.IsNotFound(err))
	s.Empty(s.callback.verified)
}

func (s *GatewaySuite) TestReportWithoutCallback() {
	gateway := cashfree.NewGateway(s.client, s.cfg, logger.NewNopLogger())
	s.NotPanics(func() {
		gateway.ReportVerified("o1")
		gateway.ReportFailure(cashfree.NewCFError("x", "y"), "o1")
	})
}
