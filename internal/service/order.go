package service

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/wealthhorizon/paybridge/internal/api/dto"
	"github.com/wealthhorizon/paybridge/internal/cache"
	"github.com/wealthhorizon/paybridge/internal/domain/order"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/idempotency"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/sentry"
	"github.com/wealthhorizon/paybridge/internal/types"
)

const (
	defaultCustomerName = "Customer"
	paymentsCacheTTL    = 5 * time.Second

	syncOrdersConcurrency = 4
)

// OrderService defines the interface for order operations
type OrderService interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*dto.OrderResponse, error)
	ListOrders(ctx context.Context, filter *order.Filter) (*dto.ListOrdersResponse, error)
	GetPayments(ctx context.Context, orderID string) ([]*dto.PaymentResponse, error)
	CreateRefund(ctx context.Context, orderID string, req dto.CreateRefundRequest) (*dto.RefundResponse, error)
	// SyncOrders refreshes every open order from Cashfree and reports terminal
	// states to the gateway so pending calls settle
	SyncOrders(ctx context.Context) (*dto.SyncOrdersResponse, error)
}

type orderService struct {
	ServiceParams
	idempGen *idempotency.Generator
}

// NewOrderService creates a new order service
func NewOrderService(params ServiceParams) OrderService {
	return &orderService{
		ServiceParams: params,
		idempGen:      idempotency.NewGenerator(),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg := s.Config.Cashfree
	orderID := req.OrderID
	if orderID == "" {
		orderID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ORDER)
	}

	currency := req.Currency
	if currency == "" {
		currency = types.DefaultCurrency
	}

	customer := cashfree.CustomerDetails{
		CustomerID:    req.Customer.CustomerID,
		CustomerName:  req.Customer.CustomerName,
		CustomerEmail: req.Customer.CustomerEmail,
		CustomerPhone: req.Customer.CustomerPhone,
	}
	if customer.CustomerID == "" {
		customer.CustomerID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER)
	}
	if customer.CustomerName == "" {
		customer.CustomerName = defaultCustomerName
	}

	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = cfg.ReturnURL
	}

	cfReq := &cashfree.CreateOrderRequest{
		OrderID:         orderID,
		OrderAmount:     req.Amount.Round(2).InexactFloat64(),
		OrderCurrency:   currency,
		CustomerDetails: customer,
		OrderNote:       req.Note,
		OrderTags:       req.Tags,
	}
	if returnURL != "" || cfg.NotifyURL != "" {
		cfReq.OrderMeta = &cashfree.OrderMeta{
			ReturnURL: returnURL,
			NotifyURL: cfg.NotifyURL,
		}
	}

	span, spanCtx := s.Sentry.StartVendorSpan(ctx, "cashfree.create_order", map[string]interface{}{
		"order_id": orderID,
		"amount":   req.Amount.String(),
		"currency": currency,
	})
	cfOrder, err := s.Client.CreateOrder(spanCtx, cfReq)
	sentry.FinishSpan(span)
	if err != nil {
		s.Logger.Errorw("failed to create Cashfree order",
			"order_id", orderID,
			"error", err)
		return nil, err
	}

	o := order.FromCashfree(cfg.Environment, cfOrder)
	if err := s.OrderRepo.Create(ctx, o); err != nil {
		return nil, err
	}

	s.Logger.Infow("order created",
		"order_id", o.OrderID,
		"cf_order_id", o.CFOrderID,
		"amount", o.Amount.String(),
		"currency", o.Currency)

	return dto.NewOrderResponse(o), nil
}

// GetOrder returns the local record, refreshed from Cashfree while the order
// is still open. Results are cached for cache.order_ttl.
func (s *orderService) GetOrder(ctx context.Context, orderID string) (*dto.OrderResponse, error) {
	key := cache.GenerateKey(cache.PrefixOrder, orderID)

	span := cache.StartCacheSpan(ctx, "order", "get", map[string]interface{}{"order_id": orderID})
	cached, hit := s.Cache.Get(ctx, key)
	cache.SetSpanHit(span, hit)
	cache.FinishSpan(span)
	if hit {
		if o, ok := cached.(*order.Order); ok {
			return dto.NewOrderResponse(o), nil
		}
	}

	local, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	if local != nil && local.Status.IsTerminal() {
		s.Cache.Set(ctx, key, local, 0)
		return dto.NewOrderResponse(local), nil
	}

	o, err := s.refreshOrder(ctx, orderID, local)
	if err != nil {
		if local == nil {
			return nil, err
		}
		s.Logger.Warnw("serving stale order after refresh failure",
			"order_id", orderID,
			"error", err)
		return dto.NewOrderResponse(local), nil
	}

	s.Cache.Set(ctx, key, o, 0)
	return dto.NewOrderResponse(o), nil
}

// refreshOrder pulls the order from Cashfree into the repository. Orders
// created elsewhere are adopted on first sight.
func (s *orderService) refreshOrder(ctx context.Context, orderID string, local *order.Order) (*order.Order, error) {
	span, spanCtx := s.Sentry.StartVendorSpan(ctx, "cashfree.get_order", map[string]interface{}{
		"order_id": orderID,
	})
	cfOrder, err := s.Client.GetOrder(spanCtx, orderID)
	sentry.FinishSpan(span)
	if err != nil {
		return nil, err
	}

	if local == nil {
		adopted := order.FromCashfree(s.Config.Cashfree.Environment, cfOrder)
		if err := s.OrderRepo.Create(ctx, adopted); err != nil && !ierr.IsAlreadyExists(err) {
			return nil, err
		}
		return s.OrderRepo.Get(ctx, orderID)
	}

	if cfOrder.OrderStatus != "" && cfOrder.OrderStatus != local.Status {
		if err := s.OrderRepo.UpdateOrderStatus(ctx, orderID, cfOrder.OrderStatus, nil); err != nil {
			return nil, err
		}
	}
	return s.OrderRepo.Get(ctx, orderID)
}

func (s *orderService) ListOrders(ctx context.Context, filter *order.Filter) (*dto.ListOrdersResponse, error) {
	if filter == nil {
		filter = &order.Filter{}
	}

	orders, err := s.OrderRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.OrderResponse, len(orders))
	for i, o := range orders {
		items[i] = dto.NewOrderResponse(o)
	}

	return &dto.ListOrdersResponse{
		Items:  items,
		Total:  len(items),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (s *orderService) GetPayments(ctx context.Context, orderID string) ([]*dto.PaymentResponse, error) {
	key := cache.GenerateKey(cache.PrefixOrderPayments, orderID)
	if cached, ok := s.Cache.Get(ctx, key); ok {
		if payments, ok := cached.([]*dto.PaymentResponse); ok {
			return payments, nil
		}
	}

	span, spanCtx := s.Sentry.StartVendorSpan(ctx, "cashfree.get_payments", map[string]interface{}{
		"order_id": orderID,
	})
	payments, err := s.Client.GetPayments(spanCtx, orderID)
	sentry.FinishSpan(span)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.PaymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = dto.NewPaymentResponse(p)
	}

	s.Cache.Set(ctx, key, resp, paymentsCacheTTL)
	return resp, nil
}

func (s *orderService) CreateRefund(ctx context.Context, orderID string, req dto.CreateRefundRequest) (*dto.RefundResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	local, err := s.OrderRepo.Get(ctx, orderID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if local != nil {
		if local.Status != types.OrderStatusPaid {
			return nil, ierr.NewError("order is not paid").
				WithHintf("Only paid orders can be refunded, order %s is %s", orderID, local.Status).
				Mark(ierr.ErrInvalidOperation)
		}
		if req.Amount.GreaterThan(local.Amount) {
			return nil, ierr.NewError("refund exceeds order amount").
				WithHintf("Refund amount cannot exceed %s", local.Amount.String()).
				Mark(ierr.ErrValidation)
		}
	}

	refundID := req.RefundID
	if refundID == "" {
		if req.IdempotencyKey != "" {
			refundID = s.idempGen.GenerateKey(idempotency.ScopeRefund, map[string]interface{}{
				"order_id":        orderID,
				"amount":          req.Amount.String(),
				"idempotency_key": req.IdempotencyKey,
			})
		} else {
			refundID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REFUND)
		}
	}

	span, spanCtx := s.Sentry.StartVendorSpan(ctx, "cashfree.create_refund", map[string]interface{}{
		"order_id":  orderID,
		"refund_id": refundID,
		"amount":    req.Amount.String(),
	})
	refund, err := s.Client.CreateRefund(spanCtx, orderID, &cashfree.CreateRefundRequest{
		RefundAmount: req.Amount.Round(2).InexactFloat64(),
		RefundID:     refundID,
		RefundNote:   req.Note,
	})
	sentry.FinishSpan(span)
	if err != nil {
		s.Logger.Errorw("failed to create Cashfree refund",
			"order_id", orderID,
			"refund_id", refundID,
			"error", err)
		return nil, err
	}

	s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixOrderPayments, orderID))
	return dto.NewRefundResponse(refund), nil
}

func (s *orderService) SyncOrders(ctx context.Context) (*dto.SyncOrdersResponse, error) {
	orders, err := s.OrderRepo.List(ctx, &order.Filter{Status: types.OrderStatusActive})
	if err != nil {
		return nil, err
	}

	resp := &dto.SyncOrdersResponse{Total: len(orders)}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(syncOrdersConcurrency)
	for _, o := range orders {
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}

			refreshed, err := s.refreshOrder(ctx, o.OrderID, o)
			if err != nil {
				s.Logger.Warnw("failed to sync order",
					"order_id", o.OrderID,
					"error", err)
				mu.Lock()
				resp.Failed++
				mu.Unlock()
				return
			}

			if refreshed.Status == o.Status {
				return
			}

			mu.Lock()
			resp.Updated++
			mu.Unlock()
			s.Cache.Delete(ctx, cache.GenerateKey(cache.PrefixOrder, o.OrderID))
			s.reportStatus(refreshed)
		})
	}
	p.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	resp.SyncedAt = time.Now().UTC()
	s.Logger.Infow("order sync completed",
		"total", resp.Total,
		"updated", resp.Updated,
		"failed", resp.Failed)
	return resp, nil
}

func (s *orderService) reportStatus(o *order.Order) {
	switch o.Status {
	case types.OrderStatusPaid:
		s.Gateway.ReportVerified(o.OrderID)
	case types.OrderStatusExpired:
		s.Gateway.ReportFailure(cashfree.NewCFError(cashfree.CFErrorCodeOrderExpired, "Order has expired"), o.OrderID)
	case types.OrderStatusTerminated:
		s.Gateway.ReportFailure(cashfree.NewCFError(cashfree.CFErrorCodeOrderTerminated, "Order was terminated"), o.OrderID)
	}
}
