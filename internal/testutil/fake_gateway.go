package testutil

import (
	"context"
	"sync"

	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/types"
)

// FakeGateway is a scriptable cashfree.PaymentGatewayService. Checkouts
// succeed unless an error is configured; Verify and Fail drive the
// registered callback the way a webhook or a checkout result would.
type FakeGateway struct {
	mu       sync.Mutex
	callback cashfree.ResponseCallback
	web      map[string]*cashfree.CheckoutDescriptor

	WebErr error
	UPIErr error
	// Block, when set, holds every checkout until it is closed
	Block chan struct{}

	WebCalls    int
	UPICalls    int
	ResultCalls []cashfree.ResultData
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{web: make(map[string]*cashfree.CheckoutDescriptor)}
}

func (g *FakeGateway) SetCheckoutCallback(cb cashfree.ResponseCallback) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callback = cb
}

func (g *FakeGateway) wait(ctx context.Context) {
	if g.Block == nil {
		return
	}
	select {
	case <-g.Block:
	case <-ctx.Done():
	}
}

func (g *FakeGateway) DoWebCheckout(ctx context.Context, session *cashfree.Session, theme *cashfree.Theme) (*cashfree.CheckoutDescriptor, error) {
	g.wait(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.WebCalls++
	if g.WebErr != nil {
		return nil, g.WebErr
	}
	d := &cashfree.CheckoutDescriptor{
		Mode:        types.CheckoutModeWeb,
		Session:     *session,
		Theme:       theme,
		CheckoutURL: "http://localhost/v1/checkout/web/" + session.OrderID,
	}
	g.web[session.OrderID] = d
	return d, nil
}

func (g *FakeGateway) DoUPIIntentCheckout(ctx context.Context, session *cashfree.Session, theme *cashfree.Theme) (*cashfree.CheckoutDescriptor, error) {
	g.wait(ctx)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.UPICalls++
	if g.UPIErr != nil {
		return nil, g.UPIErr
	}
	return &cashfree.CheckoutDescriptor{
		Mode:        types.CheckoutModeUPIIntent,
		Session:     *session,
		Theme:       theme,
		IntentLinks: map[string]string{"default": "upi://pay?tr=" + session.OrderID},
	}, nil
}

func (g *FakeGateway) HandleResult(_ context.Context, data cashfree.ResultData) (types.OutcomeStatus, error) {
	g.mu.Lock()
	g.ResultCalls = append(g.ResultCalls, data)
	g.mu.Unlock()

	switch data.Status() {
	case "SUCCESS":
		g.ReportVerified(data.OrderID())
		return types.OutcomeStatusSuccess, nil
	case "FAILED":
		g.ReportFailure(cashfree.NewCFError(cashfree.CFErrorCodePaymentFailed, "Payment failed"), data.OrderID())
		return types.OutcomeStatusFailed, nil
	}
	return types.OutcomeStatusPending, nil
}

func (g *FakeGateway) ReportVerified(orderID string) {
	g.mu.Lock()
	cb := g.callback
	g.mu.Unlock()
	if cb != nil {
		cb.OnPaymentVerify(orderID)
	}
}

func (g *FakeGateway) ReportFailure(cfErr *cashfree.CFError, orderID string) {
	g.mu.Lock()
	cb := g.callback
	g.mu.Unlock()
	if cb != nil {
		cb.OnPaymentFailure(cfErr, orderID)
	}
}

func (g *FakeGateway) GetWebCheckout(orderID string) (*cashfree.CheckoutDescriptor, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.web[orderID]
	return d, ok
}

// Calls returns the number of checkouts dispatched so far
func (g *FakeGateway) Calls() (web, upi int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.WebCalls, g.UPICalls
}
