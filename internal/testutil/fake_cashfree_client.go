package testutil

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/types"
)

// FakeCashfreeClient is an in-memory cashfree.CashfreeClient. Orders and
// payments can be seeded and inspected; any call can be made to fail.
type FakeCashfreeClient struct {
	mu       sync.Mutex
	orders   map[string]*cashfree.Order
	payments map[string][]cashfree.Payment
	refunds  map[string][]cashfree.Refund
	calls    map[string]int

	// Secret signs webhooks when set
	Secret string
	// Errors makes the named operation fail, e.g. Errors["PayOrder"]
	Errors map[string]error
	// PayOrderResponse is returned by PayOrder
	PayOrderResponse *cashfree.OrderPayResponse
}

func NewFakeCashfreeClient() *FakeCashfreeClient {
	return &FakeCashfreeClient{
		orders:   make(map[string]*cashfree.Order),
		payments: make(map[string][]cashfree.Payment),
		refunds:  make(map[string][]cashfree.Refund),
		calls:    make(map[string]int),
		Errors:   make(map[string]error),
	}
}

func (f *FakeCashfreeClient) record(op string) error {
	f.calls[op]++
	return f.Errors[op]
}

// Calls returns how many times op was invoked
func (f *FakeCashfreeClient) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of API operations invoked
func (f *FakeCashfreeClient) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// SetError makes op fail with err, or succeed again when err is nil
func (f *FakeCashfreeClient) SetError(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Errors, op)
		return
	}
	f.Errors[op] = err
}

// SeedOrder stores an order as if it had been created in Cashfree
func (f *FakeCashfreeClient) SeedOrder(orderID string, status types.OrderStatus, amount decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[orderID] = &cashfree.Order{
		CFOrderID:        "cf_" + orderID,
		OrderID:          orderID,
		OrderAmount:      amount,
		OrderCurrency:    types.DefaultCurrency,
		OrderStatus:      status,
		PaymentSessionID: "session_" + orderID,
	}
}

// SetOrderStatus changes a seeded order's status
func (f *FakeCashfreeClient) SetOrderStatus(orderID string, status types.OrderStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok {
		o.OrderStatus = status
	}
}

// AddPayment appends a payment attempt to an order
func (f *FakeCashfreeClient) AddPayment(orderID string, p cashfree.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.OrderID = orderID
	f.payments[orderID] = append(f.payments[orderID], p)
}

func (f *FakeCashfreeClient) CreateOrder(_ context.Context, req *cashfree.CreateOrderRequest) (*cashfree.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateOrder"); err != nil {
		return nil, err
	}
	if _, exists := f.orders[req.OrderID]; exists {
		return nil, ierr.NewError("order already exists").
			WithHint("order_id is already in use").
			Mark(ierr.ErrAlreadyExists)
	}

	o := &cashfree.Order{
		CFOrderID:        "cf_" + req.OrderID,
		OrderID:          req.OrderID,
		Entity:           "order",
		OrderAmount:      decimal.NewFromFloat(req.OrderAmount),
		OrderCurrency:    req.OrderCurrency,
		OrderStatus:      types.OrderStatusActive,
		PaymentSessionID: "session_" + req.OrderID,
		OrderNote:        req.OrderNote,
		CustomerDetails:  req.CustomerDetails,
		OrderTags:        req.OrderTags,
	}
	if req.OrderMeta != nil {
		o.OrderMeta = *req.OrderMeta
	}
	f.orders[req.OrderID] = o
	copied := *o
	return &copied, nil
}

func (f *FakeCashfreeClient) GetOrder(_ context.Context, orderID string) (*cashfree.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetOrder"); err != nil {
		return nil, err
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, ierr.NewError("order not found").
			WithHintf("Order %s was not found", orderID).
			Mark(ierr.ErrNotFound)
	}
	copied := *o
	return &copied, nil
}

func (f *FakeCashfreeClient) GetPayments(_ context.Context, orderID string) ([]cashfree.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetPayments"); err != nil {
		return nil, err
	}
	return append([]cashfree.Payment(nil), f.payments[orderID]...), nil
}

func (f *FakeCashfreeClient) GetPayment(_ context.Context, orderID, paymentID string) (*cashfree.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetPayment"); err != nil {
		return nil, err
	}
	for _, p := range f.payments[orderID] {
		if p.CFPaymentID.String() == paymentID {
			copied := p
			return &copied, nil
		}
	}
	return nil, ierr.NewError("payment not found").
		WithHintf("Payment %s was not found", paymentID).
		Mark(ierr.ErrNotFound)
}

func (f *FakeCashfreeClient) CreateRefund(_ context.Context, orderID string, req *cashfree.CreateRefundRequest) (*cashfree.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateRefund"); err != nil {
		return nil, err
	}
	for _, r := range f.refunds[orderID] {
		if r.RefundID == req.RefundID {
			return nil, ierr.NewError("refund already exists").
				WithHint("refund_id is already in use").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	refund := cashfree.Refund{
		CFRefundID:     "cf_" + req.RefundID,
		RefundID:       req.RefundID,
		OrderID:        orderID,
		RefundAmount:   decimal.NewFromFloat(req.RefundAmount),
		RefundCurrency: types.DefaultCurrency,
		RefundStatus:   "PENDING",
		RefundNote:     req.RefundNote,
	}
	f.refunds[orderID] = append(f.refunds[orderID], refund)
	return &refund, nil
}

func (f *FakeCashfreeClient) PayOrder(_ context.Context, _ types.PaymentEnvironment, req *cashfree.OrderPayRequest) (*cashfree.OrderPayResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PayOrder"); err != nil {
		return nil, err
	}
	if f.PayOrderResponse != nil {
		resp := *f.PayOrderResponse
		return &resp, nil
	}
	return &cashfree.OrderPayResponse{
		PaymentMethod: "upi",
		Channel:       cashfree.UPIChannelLink,
		Action:        "custom",
		Data: cashfree.OrderPayData{
			Payload: map[string]string{
				"default": "upi://pay?tr=" + req.PaymentSessionID,
				"gpay":    "tez://upi/pay?tr=" + req.PaymentSessionID,
			},
		},
	}, nil
}

func (f *FakeCashfreeClient) VerifyWebhookSignature(_ context.Context, payload []byte, signature, timestamp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("VerifyWebhookSignature"); err != nil {
		return err
	}
	if signature == "" || !cashfree.ValidSignature(f.Secret, payload, signature, timestamp) {
		return ierr.NewError("invalid webhook signature").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}
