package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wealthhorizon/paybridge/internal/bridge"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/sentry"
	"github.com/wealthhorizon/paybridge/internal/testutil"
	"github.com/wealthhorizon/paybridge/internal/types"
)

type ActivityHostSuite struct {
	suite.Suite
	ctx     context.Context
	host    *ActivityHost
	gateway *testutil.FakeGateway
	plugin  *bridge.CashfreePlugin
}

func TestActivityHost(t *testing.T) {
	suite.Run(t, new(ActivityHostSuite))
}

func (s *ActivityHostSuite) SetupTest() {
	cfg := config.GetDefaultConfig()
	log := logger.NewNopLogger()
	reporter := sentry.NewSentryService(cfg, log)

	s.ctx = testutil.SetupContext()
	loop := NewLoop(cfg, log)
	registry := bridge.NewRegistry(cfg, log)
	s.host = NewActivityHost(loop, registry, log, reporter)
	s.gateway = testutil.NewFakeGateway()
	s.plugin = bridge.NewCashfreePlugin(s.gateway, registry, loop, cfg, log, reporter)
	s.Require().NoError(s.host.RegisterPlugin(s.plugin))
	s.host.Start()
}

func (s *ActivityHostSuite) TearDownTest() {
	s.plugin.Wait()
	s.Require().NoError(s.host.Stop(context.Background()))
}

func (s *ActivityHostSuite) TestRegisterPlugin() {
	s.Equal([]string{bridge.CashfreePluginName}, s.host.Plugins())
	s.True(ierr.IsAlreadyExists(s.host.RegisterPlugin(s.plugin)))
}

func (s *ActivityHostSuite) TestDispatchUnknownTargets() {
	_, err := s.host.Dispatch(s.ctx, "Stripe", bridge.MethodInitiateWebCheckout, nil)
	s.True(ierr.IsNotFound(err))

	_, err = s.host.Dispatch(s.ctx, bridge.CashfreePluginName, "refund", nil)
	s.True(ierr.IsNotFound(err))
}

func (s *ActivityHostSuite) TestDispatchValidationFailureSettlesImmediately() {
	call, err := s.host.Dispatch(s.ctx, bridge.CashfreePluginName, bridge.MethodInitiateWebCheckout, bridge.CallData{})
	s.Require().NoError(err)
	s.Equal(types.CallStateRejected, call.State())

	got, ok := s.host.Call(call.ID)
	s.Require().True(ok)
	s.Equal(call.ID, got.ID)
}

func (s *ActivityHostSuite) TestActivityResultSettlesCall() {
	call, err := s.host.Dispatch(s.ctx, bridge.CashfreePluginName, bridge.MethodInitiateWebCheckout, bridge.CallData{
		"orderId":          "o1",
		"paymentSessionId": "s1",
	})
	s.Require().NoError(err)
	s.Equal(types.CallStatePending, call.State())

	s.Eventually(func() bool {
		web, _ := s.gateway.Calls()
		return web == 1
	}, time.Second, 5*time.Millisecond)

	delivered := s.host.OnActivityResult(s.ctx, cashfree.ResultData{"order_id": "o1", "status": "SUCCESS"})
	s.Equal(1, delivered)

	ctx, cancel := context.WithTimeout(s.ctx, time.Second)
	defer cancel()
	outcome, err := call.Wait(ctx)
	s.Require().NoError(err)
	s.Equal(types.OutcomeStatusSuccess, outcome.Status)
}

func (s *ActivityHostSuite) TestDispatchAfterStop() {
	s.Require().NoError(s.host.Stop(context.Background()))

	_, err := s.host.Dispatch(s.ctx, bridge.CashfreePluginName, bridge.MethodInitiateWebCheckout, bridge.CallData{
		"orderId":          "o1",
		"paymentSessionId": "s1",
	})
	s.True(ierr.IsSystem(err))
	s.Zero(s.host.registry.Len())
}
