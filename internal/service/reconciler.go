package service

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/types"
)

const (
	reconcileMaxRetries     = 3
	reconcileInitialBackoff = 500 * time.Millisecond
)

// ReconcileResult summarises one reconciliation pass
type ReconcileResult struct {
	Checked int
	Settled int
	Failed  int
}

// Reconciler asks Cashfree about calls that have been pending for a while.
// It never times a call out locally; only a vendor verdict settles it.
type Reconciler struct {
	ServiceParams
	orders OrderService

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewReconciler creates a stopped reconciler
func NewReconciler(params ServiceParams, orders OrderService) *Reconciler {
	return &Reconciler{
		ServiceParams: params,
		orders:        orders,
	}
}

// Start runs a pass every bridge.reconcile_interval until Stop
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}

	interval := r.Config.Bridge.ReconcileInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		r.Logger.Infow("reconciler started",
			"interval", interval,
			"reconcile_after", r.Config.Bridge.ReconcileAfter)

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.ReconcileOnce(runCtx)
			}
		}
	}()
}

// Stop cancels the current pass and waits for the goroutine to exit
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
		r.Logger.Info("reconciler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReconcileOnce checks every call pending longer than bridge.reconcile_after
// and then syncs open orders
func (r *Reconciler) ReconcileOnce(ctx context.Context) ReconcileResult {
	var result ReconcileResult
	cutoff := time.Now().UTC().Add(-r.Config.Bridge.ReconcileAfter)

	for _, call := range r.Registry.Pending() {
		if ctx.Err() != nil {
			break
		}
		orderID := call.OrderID()
		if orderID == "" || call.CreatedAt.After(cutoff) {
			continue
		}

		result.Checked++
		status, err := r.checkOrder(types.SetCallID(ctx, call.ID), orderID)
		if err != nil {
			result.Failed++
			r.Logger.Warnw("failed to reconcile pending call",
				"call_id", call.ID,
				"order_id", orderID,
				"error", err)
			continue
		}
		if status == types.OutcomeStatusSuccess || status == types.OutcomeStatusFailed {
			result.Settled++
		}
	}

	if ctx.Err() == nil {
		if _, err := r.orders.SyncOrders(ctx); err != nil {
			r.Logger.Warnw("order sync failed", "error", err)
			r.Sentry.CaptureException(err)
		}
	}

	if result.Checked > 0 {
		r.Logger.Infow("reconciliation pass completed",
			"checked", result.Checked,
			"settled", result.Settled,
			"failed", result.Failed)
	}
	return result
}

// checkOrder retries transport failures with exponential backoff. Vendor
// rejections are final.
func (r *Reconciler) checkOrder(ctx context.Context, orderID string) (types.OutcomeStatus, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = reconcileInitialBackoff

	var status types.OutcomeStatus
	op := func() error {
		var err error
		status, err = r.Gateway.HandleResult(ctx, cashfree.ResultData{"order_id": orderID})
		if err == nil {
			return nil
		}
		if ierr.IsHTTPClient(err) || ierr.IsSystem(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, reconcileMaxRetries), ctx))
	return status, err
}
