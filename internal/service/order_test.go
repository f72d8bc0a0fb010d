package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/wealthhorizon/paybridge/internal/api/dto"
	"github.com/wealthhorizon/paybridge/internal/domain/order"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/types"
)

type OrderServiceSuite struct {
	serviceSuite
	service OrderService
}

func TestOrderService(t *testing.T) {
	suite.Run(t, new(OrderServiceSuite))
}

func (s *OrderServiceSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.service = NewOrderService(s.params)
}

func (s *OrderServiceSuite) createOrder(orderID string, amount string) *dto.OrderResponse {
	resp, err := s.service.CreateOrder(s.GetContext(), dto.CreateOrderRequest{
		OrderID: orderID,
		Amount:  decimal.RequireFromString(amount),
		Customer: dto.CustomerDetailsRequest{
			CustomerPhone: "9876543210",
		},
	})
	s.Require().NoError(err)
	return resp
}

func (s *OrderServiceSuite) TestCreateOrder() {
	testCases := []struct {
		name      string
		request   dto.CreateOrderRequest
		wantError func(error) bool
	}{
		{
			name: "successful_creation",
			request: dto.CreateOrderRequest{
				OrderID:  "order_1",
				Amount:   decimal.RequireFromString("499.00"),
				Currency: "INR",
				Customer: dto.CustomerDetailsRequest{
					CustomerID:    "cust_1",
					CustomerName:  "Asha",
					CustomerEmail: "asha@example.com",
					CustomerPhone: "+919876543210",
				},
				Note: "first order",
			},
		},
		{
			name: "generated_ids",
			request: dto.CreateOrderRequest{
				Amount:   decimal.RequireFromString("1"),
				Customer: dto.CustomerDetailsRequest{CustomerPhone: "9876543210"},
			},
		},
		{
			name: "zero_amount",
			request: dto.CreateOrderRequest{
				Amount:   decimal.Zero,
				Customer: dto.CustomerDetailsRequest{CustomerPhone: "9876543210"},
			},
			wantError: ierr.IsValidation,
		},
		{
			name: "invalid_phone",
			request: dto.CreateOrderRequest{
				Amount:   decimal.RequireFromString("10"),
				Customer: dto.CustomerDetailsRequest{CustomerPhone: "12345"},
			},
			wantError: ierr.IsValidation,
		},
		{
			name: "missing_phone",
			request: dto.CreateOrderRequest{
				Amount: decimal.RequireFromString("10"),
			},
			wantError: ierr.IsValidation,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			calls := s.GetClient().Calls("CreateOrder")
			resp, err := s.service.CreateOrder(s.GetContext(), tc.request)

			if tc.wantError != nil {
				s.Error(err)
				s.True(tc.wantError(err), "unexpected error %v", err)
				s.Equal(calls, s.GetClient().Calls("CreateOrder"))
				return
			}

			s.Require().NoError(err)
			s.NotEmpty(resp.OrderID)
			s.NotEmpty(resp.PaymentSessionID)
			s.Equal(types.OrderStatusActive, resp.Status)
			s.True(resp.Amount.Equal(tc.request.Amount))
			s.Equal(types.DefaultCurrency, resp.Currency)
			s.NotEmpty(resp.CustomerID)
			if tc.request.Customer.CustomerName == "" {
				s.Equal(defaultCustomerName, resp.CustomerName)
			}

			stored, err := s.GetStores().OrderRepo.Get(s.GetContext(), resp.OrderID)
			s.Require().NoError(err)
			s.Equal(resp.PaymentSessionID, stored.PaymentSessionID)
		})
	}
}

func (s *OrderServiceSuite) TestCreateOrderDuplicate() {
	s.createOrder("order_1", "10")

	_, err := s.service.CreateOrder(s.GetContext(), dto.CreateOrderRequest{
		OrderID:  "order_1",
		Amount:   decimal.RequireFromString("10"),
		Customer: dto.CustomerDetailsRequest{CustomerPhone: "9876543210"},
	})
	s.True(ierr.IsAlreadyExists(err))
}

func (s *OrderServiceSuite) TestGetOrderRefreshesOpenOrders() {
	s.createOrder("order_1", "10")
	s.GetClient().SetOrderStatus("order_1", types.OrderStatusPaid)

	resp, err := s.service.GetOrder(s.GetContext(), "order_1")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusPaid, resp.Status)

	// terminal orders are served from the cache and repository
	before := s.GetClient().Calls("GetOrder")
	resp, err = s.service.GetOrder(s.GetContext(), "order_1")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusPaid, resp.Status)
	s.Equal(before, s.GetClient().Calls("GetOrder"))
}

func (s *OrderServiceSuite) TestGetOrderAdoptsUnknownOrder() {
	s.GetClient().SeedOrder("external_1", types.OrderStatusActive, decimal.RequireFromString("25"))

	resp, err := s.service.GetOrder(s.GetContext(), "external_1")
	s.Require().NoError(err)
	s.Equal("external_1", resp.OrderID)

	stored, err := s.GetStores().OrderRepo.Get(s.GetContext(), "external_1")
	s.Require().NoError(err)
	s.True(stored.Amount.Equal(decimal.RequireFromString("25")))
}

func (s *OrderServiceSuite) TestGetOrderNotFound() {
	_, err := s.service.GetOrder(s.GetContext(), "missing")
	s.True(ierr.IsNotFound(err))
}

func (s *OrderServiceSuite) TestGetOrderServesStaleOnVendorFailure() {
	s.createOrder("order_1", "10")
	s.GetClient().SetError("GetOrder", ierr.NewError("timeout").Mark(ierr.ErrHTTPClient))

	resp, err := s.service.GetOrder(s.GetContext(), "order_1")
	s.Require().NoError(err)
	s.Equal(types.OrderStatusActive, resp.Status)
}

func (s *OrderServiceSuite) TestListOrders() {
	s.createOrder("order_1", "10")
	s.createOrder("order_2", "20")
	s.createOrder("order_3", "30")
	s.Require().NoError(s.GetStores().OrderRepo.UpdateOrderStatus(s.GetContext(), "order_2", types.OrderStatusPaid, nil))

	all, err := s.service.ListOrders(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Equal(3, all.Total)

	paid, err := s.service.ListOrders(s.GetContext(), &order.Filter{Status: types.OrderStatusPaid})
	s.Require().NoError(err)
	s.Require().Len(paid.Items, 1)
	s.Equal("order_2", paid.Items[0].OrderID)

	page, err := s.service.ListOrders(s.GetContext(), &order.Filter{Limit: 2})
	s.Require().NoError(err)
	s.Len(page.Items, 2)
	s.Equal(2, page.Limit)
}

func (s *OrderServiceSuite) TestGetPayments() {
	s.createOrder("order_1", "10")
	s.GetClient().AddPayment("order_1", cashfree.Payment{
		PaymentAmount: decimal.RequireFromString("10"),
		PaymentStatus: cashfree.PaymentStatusFailed,
		ErrorDetails:  &cashfree.ErrorDetails{ErrorCode: "card_declined", ErrorReason: "insufficient_funds"},
	})

	payments, err := s.service.GetPayments(s.GetContext(), "order_1")
	s.Require().NoError(err)
	s.Require().Len(payments, 1)
	s.Equal(cashfree.PaymentStatusFailed, payments[0].Status)
	s.Equal("card_declined", payments[0].ErrorCode)

	// cached
	_, err = s.service.GetPayments(s.GetContext(), "order_1")
	s.Require().NoError(err)
	s.Equal(1, s.GetClient().Calls("GetPayments"))
}

func (s *OrderServiceSuite) TestCreateRefund() {
	s.createOrder("order_1", "100")

	_, err := s.service.CreateRefund(s.GetContext(), "order_1", dto.CreateRefundRequest{
		Amount: decimal.RequireFromString("10"),
	})
	s.True(ierr.IsInvalidOperation(err), "unpaid orders cannot be refunded")

	s.Require().NoError(s.GetStores().OrderRepo.UpdateOrderStatus(s.GetContext(), "order_1", types.OrderStatusPaid, nil))

	_, err = s.service.CreateRefund(s.GetContext(), "order_1", dto.CreateRefundRequest{
		Amount: decimal.RequireFromString("100.01"),
	})
	s.True(ierr.IsValidation(err))

	_, err = s.service.CreateRefund(s.GetContext(), "order_1", dto.CreateRefundRequest{
		Amount: decimal.Zero,
	})
	s.True(ierr.IsValidation(err))

	refund, err := s.service.CreateRefund(s.GetContext(), "order_1", dto.CreateRefundRequest{
		Amount: decimal.RequireFromString("40"),
		Note:   "partial",
	})
	s.Require().NoError(err)
	s.Equal("order_1", refund.OrderID)
	s.NotEmpty(refund.RefundID)
	s.True(refund.Amount.Equal(decimal.RequireFromString("40")))
}

func (s *OrderServiceSuite) TestCreateRefundIdempotencyKey() {
	s.createOrder("order_1", "100")
	s.Require().NoError(s.GetStores().OrderRepo.UpdateOrderStatus(s.GetContext(), "order_1", types.OrderStatusPaid, nil))

	req := dto.CreateRefundRequest{
		Amount:         decimal.RequireFromString("40"),
		IdempotencyKey: "client-retry-1",
	}
	first, err := s.service.CreateRefund(s.GetContext(), "order_1", req)
	s.Require().NoError(err)

	// the retry derives the same refund id, so Cashfree refuses a second refund
	_, err = s.service.CreateRefund(s.GetContext(), "order_1", req)
	s.True(ierr.IsAlreadyExists(err))
	s.Equal(2, s.GetClient().Calls("CreateRefund"))
	s.NotEmpty(first.RefundID)
}

func (s *OrderServiceSuite) TestSyncOrders() {
	s.createOrder("order_paid", "10")
	s.createOrder("order_expired", "10")
	s.createOrder("order_open", "10")
	s.GetClient().SetOrderStatus("order_paid", types.OrderStatusPaid)
	s.GetClient().SetOrderStatus("order_expired", types.OrderStatusExpired)

	resp, err := s.service.SyncOrders(s.GetContext())
	s.Require().NoError(err)
	s.Equal(3, resp.Total)
	s.Equal(2, resp.Updated)
	s.Equal(0, resp.Failed)
	s.False(resp.SyncedAt.IsZero())

	s.Equal([]string{"order_paid"}, s.callback.Verified())
	failure := s.callback.Failure("order_expired")
	s.Require().NotNil(failure)
	s.Equal(cashfree.CFErrorCodeOrderExpired, failure.Code)
	s.Nil(s.callback.Failure("order_open"))

	// terminal orders are no longer synced
	resp, err = s.service.SyncOrders(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, resp.Total)
	s.Equal(0, resp.Updated)
}

func (s *OrderServiceSuite) TestSyncOrdersCountsFailures() {
	s.createOrder("order_1", "10")
	s.GetClient().SetError("GetOrder", ierr.NewError("timeout").Mark(ierr.ErrHTTPClient))

	resp, err := s.service.SyncOrders(s.GetContext())
	s.Require().NoError(err)
	s.Equal(1, resp.Failed)
	s.Empty(s.callback.Verified())
}
