package bridge

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wealthhorizon/paybridge/internal/config"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/sentry"
	"github.com/wealthhorizon/paybridge/internal/types"
)

// goroutineID reads the current goroutine number from the stack header
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	buf = buf[:bytes.IndexByte(buf, ' ')]
	id, _ := strconv.ParseUint(string(buf), 10, 64)
	return id
}

// callbackGateway only records the callback; settlement tests drive the
// plugin callbacks directly
type callbackGateway struct {
	cashfree.PaymentGatewayService
}

func (callbackGateway) SetCheckoutCallback(cashfree.ResponseCallback) {}

func TestCallbacksSettleOnLoopGoroutine(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log := logger.NewNopLogger()
	loop := NewLoop(16, log)
	loop.Start()
	defer loop.Stop(context.Background())

	var loopID uint64
	require.NoError(t, loop.Do(context.Background(), func() { loopID = goroutineID() }))

	registry := NewRegistry(cfg, log)
	plugin := NewCashfreePlugin(callbackGateway{}, registry, loop, cfg, log, sentry.NewSentryService(cfg, log))

	const n = 50
	var (
		mu        sync.Mutex
		settledOn = make(map[string]uint64, n)
		settles   = make(map[string]int, n)
	)

	calls := make([]*Call, n)
	for i := range calls {
		call := NewCall(CashfreePluginName, MethodInitiateWebCheckout, nil)
		require.NoError(t, registry.Register(call))
		require.NoError(t, registry.BindOrder(call, fmt.Sprintf("o%d", i)))

		remove := call.onSettle
		call.onSettle = func(c *Call) {
			mu.Lock()
			settledOn[c.ID] = goroutineID()
			settles[c.ID]++
			mu.Unlock()
			remove(c)
		}
		calls[i] = call
	}

	// verify and fail race each other from separate goroutines
	var wg sync.WaitGroup
	for i := range calls {
		orderID := fmt.Sprintf("o%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			plugin.OnPaymentVerify(orderID)
		}()
		go func() {
			defer wg.Done()
			plugin.OnPaymentFailure(cashfree.NewCFError(cashfree.CFErrorCodePaymentFailed, "declined"), orderID)
		}()
	}
	wg.Wait()

	for _, call := range calls {
		select {
		case <-call.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("call %s did not settle", call.ID)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, call := range calls {
		assert.Equal(t, loopID, settledOn[call.ID], "call %s settled off the loop", call.ID)
		assert.Equal(t, 1, settles[call.ID])
		assert.Contains(t, []types.CallState{types.CallStateResolved, types.CallStateRejected}, call.State())
	}
	assert.Zero(t, registry.Len())
}

func TestRegistryGetDuringSettle(t *testing.T) {
	registry := newTestRegistry()

	for i := 0; i < 200; i++ {
		call := NewCall(CashfreePluginName, MethodInitiateWebCheckout, nil)
		require.NoError(t, registry.Register(call))

		missed := make(chan bool, 1)
		go func() {
			for {
				if _, ok := registry.Get(call.ID); !ok {
					missed <- true
					return
				}
				if call.Settled() {
					missed <- false
					return
				}
			}
		}()

		call.Resolve(Outcome{Status: types.OutcomeStatusSuccess})
		require.False(t, <-missed, "call %s was not readable while settling", call.ID)

		_, ok := registry.Get(call.ID)
		require.True(t, ok)
	}
}
