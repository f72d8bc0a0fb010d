package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/wealthhorizon/paybridge/internal/bridge"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/types"
)

type ReconcilerSuite struct {
	serviceSuite
	reconciler *Reconciler
}

func TestReconciler(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.reconciler = NewReconciler(s.params, NewOrderService(s.params))
}

func (s *ReconcilerSuite) pendingCall(orderID string) *bridge.Call {
	call := bridge.NewCall(bridge.CashfreePluginName, bridge.MethodInitiateWebCheckout, nil)
	call.CreatedAt = time.Now().Add(-time.Minute)
	s.Require().NoError(s.GetRegistry().Register(call))
	s.Require().NoError(s.GetRegistry().BindOrder(call, orderID))
	return call
}

func (s *ReconcilerSuite) TestSettlesPaidOrders() {
	s.GetClient().SeedOrder("o1", types.OrderStatusPaid, decimal.RequireFromString("10"))
	s.GetClient().SeedOrder("o2", types.OrderStatusActive, decimal.RequireFromString("10"))
	s.pendingCall("o1")
	s.pendingCall("o2")

	result := s.reconciler.ReconcileOnce(s.GetContext())
	s.Equal(2, result.Checked)
	s.Equal(1, result.Settled)
	s.Equal(0, result.Failed)
	s.Equal([]string{"o1"}, s.callback.Verified())
}

func (s *ReconcilerSuite) TestSkipsRecentCalls() {
	s.GetConfig().Bridge.ReconcileAfter = time.Hour
	s.GetClient().SeedOrder("o1", types.OrderStatusPaid, decimal.RequireFromString("10"))
	s.pendingCall("o1")

	result := s.reconciler.ReconcileOnce(s.GetContext())
	s.Equal(0, result.Checked)
	s.Empty(s.callback.Verified())
}

func (s *ReconcilerSuite) TestVendorRejectionIsNotRetried() {
	s.pendingCall("unknown")

	result := s.reconciler.ReconcileOnce(s.GetContext())
	s.Equal(1, result.Checked)
	s.Equal(1, result.Failed)
	s.Equal(1, s.GetClient().Calls("GetOrder"))
}

func (s *ReconcilerSuite) TestTransportFailureIsRetried() {
	s.GetClient().SeedOrder("o1", types.OrderStatusActive, decimal.RequireFromString("10"))
	s.GetClient().SetError("GetOrder", ierr.NewError("timeout").Mark(ierr.ErrHTTPClient))
	s.pendingCall("o1")

	result := s.reconciler.ReconcileOnce(s.GetContext())
	s.Equal(1, result.Failed)
	s.Equal(reconcileMaxRetries+1, s.GetClient().Calls("GetOrder"))
}

func (s *ReconcilerSuite) TestStartStop() {
	s.GetConfig().Bridge.ReconcileInterval = 10 * time.Millisecond
	s.GetClient().SeedOrder("o1", types.OrderStatusPaid, decimal.RequireFromString("10"))
	s.pendingCall("o1")

	s.reconciler.Start(s.GetContext())
	s.Eventually(func() bool {
		return len(s.callback.Verified()) > 0
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.NoError(s.reconciler.Stop(ctx))
	s.NoError(s.reconciler.Stop(ctx))
}
