package cashfree

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/types"
)

// PaymentGatewayService is the checkout capability: dispatch a checkout for a
// session and report the terminal outcome through the registered callback.
type PaymentGatewayService interface {
	SetCheckoutCallback(cb ResponseCallback)
	DoWebCheckout(ctx context.Context, session *Session, theme *Theme) (*CheckoutDescriptor, error)
	DoUPIIntentCheckout(ctx context.Context, session *Session, theme *Theme) (*CheckoutDescriptor, error)
	// HandleResult interprets data returned when the shopper comes back from
	// a checkout (UPI app or hosted page) and fires the callback if the order
	// reached a terminal outcome.
	HandleResult(ctx context.Context, data ResultData) (types.OutcomeStatus, error)
	ReportVerified(orderID string)
	ReportFailure(cfErr *CFError, orderID string)
	GetWebCheckout(orderID string) (*CheckoutDescriptor, bool)
}

// ResultData is the opaque data returned by a checkout presentation
type ResultData map[string]string

// OrderID returns the order the result belongs to
func (d ResultData) OrderID() string {
	for _, key := range []string{"order_id", "orderId"} {
		if v := strings.TrimSpace(d[key]); v != "" {
			return v
		}
	}
	return ""
}

// Status returns the app reported status, upper cased. It is informational
// only; outcomes come from the PG.
func (d ResultData) Status() string {
	for _, key := range []string{"status", "Status", "txnStatus"} {
		if v := strings.TrimSpace(d[key]); v != "" {
			return strings.ToUpper(v)
		}
	}
	return ""
}

// Gateway implements PaymentGatewayService on top of the PG API
type Gateway struct {
	client   CashfreeClient
	config   config.CashfreeConfig
	logger   *logger.Logger
	checkout *cache.Cache

	mu       sync.RWMutex
	callback ResponseCallback
}

// NewGateway creates a new Cashfree gateway
func NewGateway(client CashfreeClient, cfg *config.Configuration, logger *logger.Logger) PaymentGatewayService {
	ttl := cfg.Cashfree.CheckoutTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Gateway{
		client:   client,
		config:   cfg.Cashfree,
		logger:   logger,
		checkout: cache.New(ttl, 2*ttl),
	}
}

func (g *Gateway) SetCheckoutCallback(cb ResponseCallback) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.callback = cb
}

func (g *Gateway) getCallback() ResponseCallback {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.callback
}

// DoWebCheckout registers the session for the hosted checkout page and
// returns where the shopper should be sent
func (g *Gateway) DoWebCheckout(ctx context.Context, session *Session, theme *Theme) (*CheckoutDescriptor, error) {
	if session == nil {
		return nil, ierr.NewError("web checkout without session").
			WithHint("A payment session is required for web checkout").
			Mark(ierr.ErrSetup)
	}
	if g.config.CheckoutURL == "" {
		return nil, ierr.NewError("checkout url not configured").
			WithHint("Configure cashfree.checkout_url to enable web checkout").
			Mark(ierr.ErrSetup)
	}
	if theme == nil {
		var err error
		if theme, err = NewThemeBuilder().Build(); err != nil {
			return nil, err
		}
	}

	descriptor := &CheckoutDescriptor{
		Mode:        types.CheckoutModeWeb,
		Session:     *session,
		Theme:       theme,
		CheckoutURL: checkoutURL(g.config.CheckoutURL, session.OrderID),
		SDKURL:      SDKScriptURL,
		SDKMode:     sdkMode(session.Environment),
	}
	g.checkout.SetDefault(session.OrderID, descriptor)

	g.logger.Infow("dispatched web checkout",
		"order_id", session.OrderID,
		"environment", session.Environment,
		"checkout_url", descriptor.CheckoutURL)
	return descriptor, nil
}

// DoUPIIntentCheckout asks the PG for UPI intent links for the session
func (g *Gateway) DoUPIIntentCheckout(ctx context.Context, session *Session, theme *Theme) (*CheckoutDescriptor, error) {
	if session == nil {
		return nil, ierr.NewError("upi intent checkout without session").
			WithHint("A payment session is required for UPI checkout").
			Mark(ierr.ErrSetup)
	}

	resp, err := g.client.PayOrder(ctx, session.Environment, &OrderPayRequest{
		PaymentSessionID: session.PaymentSessionID,
		PaymentMethod: OrderPayMethod{
			UPI: &UPIMethod{Channel: UPIChannelLink},
		},
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Unable to start UPI intent checkout: %s", ierr.DisplayMessage(err)).
			Mark(ierr.ErrSetup)
	}

	links := lo.PickBy(resp.Data.Payload, func(_ string, v string) bool { return v != "" })
	if len(links) == 0 && resp.Data.URL != "" {
		links = map[string]string{"default": resp.Data.URL}
	}
	if len(links) == 0 {
		return nil, ierr.NewError("no upi intent links returned").
			WithHint("Cashfree did not return any UPI app links").
			WithReportableDetails(map[string]any{
				"order_id": session.OrderID,
				"action":   resp.Action,
				"channel":  resp.Channel,
			}).
			Mark(ierr.ErrSetup)
	}

	g.logger.Infow("dispatched upi intent checkout",
		"order_id", session.OrderID,
		"environment", session.Environment,
		"apps", lo.Keys(links))

	return &CheckoutDescriptor{
		Mode:        types.CheckoutModeUPIIntent,
		Session:     *session,
		Theme:       theme,
		IntentLinks: links,
		CFPaymentID: resp.CFPaymentID,
	}, nil
}

// GetWebCheckout returns the descriptor of a web checkout dispatched earlier
func (g *Gateway) GetWebCheckout(orderID string) (*CheckoutDescriptor, bool) {
	v, ok := g.checkout.Get(orderID)
	if !ok {
		return nil, false
	}
	return v.(*CheckoutDescriptor), true
}

// HandleResult asks the PG for the order state and reports it
func (g *Gateway) HandleResult(ctx context.Context, data ResultData) (types.OutcomeStatus, error) {
	orderID := data.OrderID()
	if orderID == "" {
		return "", ierr.NewError("result without order id").
			WithHint("Result data must contain order_id").
			Mark(ierr.ErrValidation)
	}

	order, err := g.client.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}

	switch order.OrderStatus {
	case types.OrderStatusPaid:
		g.ReportVerified(orderID)
		return types.OutcomeStatusSuccess, nil
	case types.OrderStatusExpired:
		g.ReportFailure(NewCFError(CFErrorCodeOrderExpired, "Order has expired"), orderID)
		return types.OutcomeStatusFailed, nil
	case types.OrderStatusTerminated:
		g.ReportFailure(NewCFError(CFErrorCodeOrderTerminated, "Order was terminated"), orderID)
		return types.OutcomeStatusFailed, nil
	}

	// order still ACTIVE: the attempts tell us whether the shopper gave up
	payments, err := g.client.GetPayments(ctx, orderID)
	if err != nil {
		return "", err
	}

	if lo.ContainsBy(payments, func(p Payment) bool { return p.PaymentStatus == PaymentStatusSuccess }) {
		// order status lags the payment by a few seconds
		g.ReportVerified(orderID)
		return types.OutcomeStatusSuccess, nil
	}

	if latest, ok := latestAttempt(payments); ok && latest.PaymentStatus.IsFailure() {
		g.ReportFailure(cfErrorFromPayment(latest), orderID)
		return types.OutcomeStatusFailed, nil
	}

	g.logger.Debugw("order has no terminal outcome yet",
		"order_id", orderID,
		"order_status", order.OrderStatus,
		"reported_status", data.Status(),
		"attempts", len(payments))
	return types.OutcomeStatusPending, nil
}

// latestAttempt picks the attempt with the newest payment_time. The PG does
// not promise any order for the list; attempts without a parseable time
// count as oldest, and ties go to the later entry.
func latestAttempt(payments []Payment) (Payment, bool) {
	if len(payments) == 0 {
		return Payment{}, false
	}
	return lo.MaxBy(payments, func(item, latest Payment) bool {
		return !item.attemptTime().Before(latest.attemptTime())
	}), true
}

func cfErrorFromPayment(p Payment) *CFError {
	code := CFErrorCodePaymentFailed
	if p.PaymentStatus == PaymentStatusUserDropped {
		code = CFErrorCodeUserDropped
	}
	message := p.PaymentMessage
	if p.ErrorDetails != nil {
		if p.ErrorDetails.ErrorCode != "" {
			code = p.ErrorDetails.ErrorCode
		}
		if p.ErrorDetails.ErrorDescription != "" {
			message = p.ErrorDetails.ErrorDescription
		}
	}
	if message == "" {
		message = "Payment failed"
	}
	return &CFError{
		Status:  string(p.PaymentStatus),
		Code:    code,
		Message: message,
	}
}

// ReportVerified fires OnPaymentVerify on the registered callback
func (g *Gateway) ReportVerified(orderID string) {
	cb := g.getCallback()
	if cb == nil {
		g.logger.Warnw("payment verified but no checkout callback registered", "order_id", orderID)
		return
	}
	cb.OnPaymentVerify(orderID)
}

// ReportFailure fires OnPaymentFailure on the registered callback
func (g *Gateway) ReportFailure(cfErr *CFError, orderID string) {
	cb := g.getCallback()
	if cb == nil {
		g.logger.Warnw("payment failed but no checkout callback registered",
			"order_id", orderID,
			"code", cfErr.Code)
		return
	}
	cb.OnPaymentFailure(cfErr, orderID)
}
