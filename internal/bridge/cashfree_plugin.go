package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/sentry"
	"github.com/wealthhorizon/paybridge/internal/types"
	"github.com/wealthhorizon/paybridge/internal/validator"
)

const (
	CashfreePluginName = "CashfreePayment"

	MethodInitiateWebCheckout = "initiateWebCheckout"
	MethodInitiateUPICheckout = "initiateUPICheckout"
	// aliases kept for older application builds
	MethodDoWebPayment = "doWebPayment"
	MethodDoUPIPayment = "doUPIPayment"

	// ProgressCheckout is the progress key holding the CheckoutDescriptor to open
	ProgressCheckout = "checkout"
	ProgressStatus   = "status"
	ProgressFallback = "fallback"
)

// PaymentRequest is the payload of the checkout methods
type PaymentRequest struct {
	OrderID          string           `json:"orderId" validate:"required"`
	PaymentSessionID string           `json:"paymentSessionId" validate:"required"`
	Environment      string           `json:"environment,omitempty"`
	CustomerName     string           `json:"customerName,omitempty"`
	CustomerEmail    string           `json:"customerEmail,omitempty" validate:"omitempty,email"`
	CustomerPhone    string           `json:"customerPhone,omitempty" validate:"omitempty,inphone"`
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	Theme            *ThemeRequest    `json:"theme,omitempty"`
}

// ThemeRequest overrides checkout colors
type ThemeRequest struct {
	NavigationBarBackgroundColor string `json:"navigationBarBackgroundColor,omitempty"`
	NavigationBarTextColor       string `json:"navigationBarTextColor,omitempty"`
	ButtonBackgroundColor        string `json:"buttonBackgroundColor,omitempty"`
	ButtonTextColor              string `json:"buttonTextColor,omitempty"`
	PrimaryTextColor             string `json:"primaryTextColor,omitempty"`
	SecondaryTextColor           string `json:"secondaryTextColor,omitempty"`
}

// CashfreePlugin exposes Cashfree checkout to application code. A call stays
// pending after dispatch and settles when the gateway reports the outcome.
type CashfreePlugin struct {
	gateway  cashfree.PaymentGatewayService
	registry *Registry
	executor Executor
	config   config.CashfreeConfig
	logger   *logger.Logger
	sentry   *sentry.Service

	inflight sync.WaitGroup
}

// NewCashfreePlugin creates the plugin and registers it as the gateway's callback
func NewCashfreePlugin(
	gateway cashfree.PaymentGatewayService,
	registry *Registry,
	executor Executor,
	cfg *config.Configuration,
	logger *logger.Logger,
	sentry *sentry.Service,
) *CashfreePlugin {
	p := &CashfreePlugin{
		gateway:  gateway,
		registry: registry,
		executor: executor,
		config:   cfg.Cashfree,
		logger:   logger,
		sentry:   sentry,
	}
	gateway.SetCheckoutCallback(p)
	return p
}

func (p *CashfreePlugin) Name() string {
	return CashfreePluginName
}

func (p *CashfreePlugin) Methods() map[string]Method {
	return map[string]Method{
		MethodInitiateWebCheckout: p.InitiateWebCheckout,
		MethodDoWebPayment:        p.InitiateWebCheckout,
		MethodInitiateUPICheckout: p.InitiateUPICheckout,
		MethodDoUPIPayment:        p.InitiateUPICheckout,
	}
}

// InitiateWebCheckout validates the request and dispatches a hosted web checkout
func (p *CashfreePlugin) InitiateWebCheckout(ctx context.Context, call *Call) {
	session, theme, ok := p.prepare(call)
	if !ok {
		return
	}

	p.dispatch(ctx, call, func(ctx context.Context) (*cashfree.CheckoutDescriptor, error) {
		return p.gateway.DoWebCheckout(ctx, session, theme)
	})
}

// InitiateUPICheckout validates the request and dispatches a UPI intent
// checkout, falling back to web checkout with the same session when the
// intent cannot be set up
func (p *CashfreePlugin) InitiateUPICheckout(ctx context.Context, call *Call) {
	session, theme, ok := p.prepare(call)
	if !ok {
		return
	}

	p.dispatch(ctx, call, func(ctx context.Context) (*cashfree.CheckoutDescriptor, error) {
		descriptor, err := p.gateway.DoUPIIntentCheckout(ctx, session, theme)
		if err == nil {
			return descriptor, nil
		}

		p.logger.Warnw("upi intent checkout failed, falling back to web checkout",
			"error", err,
			"call_id", call.ID,
			"order_id", session.OrderID)

		descriptor, webErr := p.gateway.DoWebCheckout(ctx, session, theme)
		if webErr != nil {
			return nil, webErr
		}
		call.SetProgress(ProgressFallback, map[string]any{
			"from":   types.CheckoutModeUPIIntent,
			"to":     types.CheckoutModeWeb,
			"reason": ierr.DisplayMessage(err),
		})
		return descriptor, nil
	})
}

// prepare validates the payload, binds the call to its order and builds
// the session and theme. It rejects the call and returns false on failure,
// before the gateway is touched.
func (p *CashfreePlugin) prepare(call *Call) (*cashfree.Session, *cashfree.Theme, bool) {
	req, err := p.parseRequest(call.Data)
	if err != nil {
		p.logger.Infow("rejecting invalid checkout request",
			"call_id", call.ID,
			"method", call.Method,
			"error", err)
		call.Reject(err)
		return nil, nil, false
	}

	env, err := types.ParsePaymentEnvironment(req.Environment, p.config.Environment)
	if err != nil {
		call.Reject(ierr.WithError(err).
			WithHintf("Unsupported environment %q, use SANDBOX or PRODUCTION", req.Environment).
			Mark(ierr.ErrValidation))
		return nil, nil, false
	}

	if err := p.registry.BindOrder(call, req.OrderID); err != nil {
		call.Reject(err)
		return nil, nil, false
	}

	session, err := cashfree.NewSessionBuilder().
		SetEnvironment(env).
		SetOrderID(req.OrderID).
		SetPaymentSessionID(req.PaymentSessionID).
		Build()
	if err != nil {
		call.Reject(setupError(err))
		return nil, nil, false
	}

	theme, err := buildTheme(req.Theme)
	if err != nil {
		call.Reject(setupError(err))
		return nil, nil, false
	}

	p.logger.Infow("checkout requested",
		"call_id", call.ID,
		"method", call.Method,
		"order_id", session.OrderID,
		"environment", session.Environment,
		"amount", amountString(req.Amount))
	return session, theme, true
}

func (p *CashfreePlugin) parseRequest(data CallData) (*PaymentRequest, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid payment request").
			Mark(ierr.ErrValidation)
	}

	var req PaymentRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid payment request").
			Mark(ierr.ErrValidation)
	}

	req.OrderID = strings.TrimSpace(req.OrderID)
	req.PaymentSessionID = strings.TrimSpace(req.PaymentSessionID)

	if err := validator.ValidateRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func buildTheme(req *ThemeRequest) (*cashfree.Theme, error) {
	b := cashfree.NewThemeBuilder()
	if req != nil {
		if req.NavigationBarBackgroundColor != "" {
			b.SetNavigationBarBackgroundColor(req.NavigationBarBackgroundColor)
		}
		if req.NavigationBarTextColor != "" {
			b.SetNavigationBarTextColor(req.NavigationBarTextColor)
		}
		if req.ButtonBackgroundColor != "" {
			b.SetButtonBackgroundColor(req.ButtonBackgroundColor)
		}
		if req.ButtonTextColor != "" {
			b.SetButtonTextColor(req.ButtonTextColor)
		}
		if req.PrimaryTextColor != "" {
			b.SetPrimaryTextColor(req.PrimaryTextColor)
		}
		if req.SecondaryTextColor != "" {
			b.SetSecondaryTextColor(req.SecondaryTextColor)
		}
	}
	return b.Build()
}

// dispatch runs the vendor checkout off the loop. Success publishes the
// checkout descriptor and leaves the call pending; failure rejects it on
// the loop.
func (p *CashfreePlugin) dispatch(ctx context.Context, call *Call, checkout func(ctx context.Context) (*cashfree.CheckoutDescriptor, error)) {
	timeout := p.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	// the HTTP request that started the call may return before the vendor answers
	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*timeout)

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				err := ierr.NewErrorf("panic during checkout dispatch: %v", r).
					WithHint(genericFailureHint).
					Mark(ierr.ErrSystem)
				p.logger.Errorw("checkout dispatch panicked",
					"call_id", call.ID,
					"panic", fmt.Sprintf("%v", r))
				p.sentry.CaptureExceptionWithTags(err, map[string]string{
					"plugin":  CashfreePluginName,
					"method":  call.Method,
					"call_id": call.ID,
				})
				p.rejectOnLoop(call, err)
			}
		}()

		descriptor, err := checkout(dispatchCtx)
		if err != nil {
			p.logger.Errorw("checkout setup failed",
				"error", err,
				"call_id", call.ID,
				"order_id", call.OrderID())
			p.rejectOnLoop(call, setupError(err))
			return
		}

		call.SetProgress(ProgressCheckout, descriptor)
		call.SetProgress(ProgressStatus, types.OutcomeStatusOpened)
		p.logger.Infow("checkout opened",
			"call_id", call.ID,
			"order_id", call.OrderID(),
			"mode", descriptor.Mode)
	}()
}

// Wait blocks until every in-flight dispatch has returned
func (p *CashfreePlugin) Wait() {
	p.inflight.Wait()
}

func (p *CashfreePlugin) rejectOnLoop(call *Call, err error) {
	if !p.executor.Post(func() { call.Reject(err) }) {
		p.logger.Warnw("loop stopped, rejecting call in place", "call_id", call.ID)
		call.Reject(err)
	}
}

// OnVerified settles the order's pending call successfully on the loop
func (p *CashfreePlugin) OnVerified(orderID string) {
	p.settleOnLoop(orderID, "verified", func(call *Call) bool {
		return call.Resolve(Outcome{
			Status:  types.OutcomeStatusSuccess,
			OrderID: orderID,
		})
	})
}

// OnFailed rejects the order's pending call with the vendor error on the loop
func (p *CashfreePlugin) OnFailed(cfErr *cashfree.CFError, orderID string) {
	p.settleOnLoop(orderID, "failed", func(call *Call) bool {
		return call.Reject(NewPaymentError(cfErr))
	})
}

func (p *CashfreePlugin) settleOnLoop(orderID, outcome string, settle func(call *Call) bool) {
	posted := p.executor.Post(func() {
		call, ok := p.registry.ByOrder(orderID)
		if !ok {
			p.logger.Debugw("no pending call for order",
				"order_id", orderID,
				"outcome", outcome)
			return
		}
		if !settle(call) {
			return
		}
		p.logger.Infow("call settled by payment callback",
			"call_id", call.ID,
			"order_id", orderID,
			"outcome", outcome)
	})
	if !posted {
		p.logger.Warnw("loop stopped, dropping payment callback",
			"order_id", orderID,
			"outcome", outcome)
	}
}

// OnPaymentVerify implements cashfree.ResponseCallback
func (p *CashfreePlugin) OnPaymentVerify(orderID string) {
	p.OnVerified(orderID)
}

// OnPaymentFailure implements cashfree.ResponseCallback
func (p *CashfreePlugin) OnPaymentFailure(cfErr *cashfree.CFError, orderID string) {
	p.OnFailed(cfErr, orderID)
}

// HandleActivityResult hands returned checkout data to the gateway. The
// gateway reports the outcome through the callbacks, so errors stop here.
func (p *CashfreePlugin) HandleActivityResult(ctx context.Context, data cashfree.ResultData) {
	status, err := p.gateway.HandleResult(ctx, data)
	if err != nil {
		p.logger.Errorw("failed to handle checkout result",
			"error", err,
			"order_id", data.OrderID())
		return
	}
	p.logger.Debugw("checkout result handled",
		"order_id", data.OrderID(),
		"status", status)
}

func setupError(err error) error {
	if ierr.IsSetup(err) {
		return err
	}
	return ierr.WithError(err).
		WithHintf("Checkout setup failed: %s", ierr.DisplayMessage(err)).
		Mark(ierr.ErrSetup)
}

func amountString(amount *decimal.Decimal) string {
	if amount == nil {
		return ""
	}
	return amount.StringFixed(2)
}
