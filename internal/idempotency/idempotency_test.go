package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wealthhorizon/paybridge/internal/config"
	"github.com/wealthhorizon/paybridge/internal/logger"
)

func TestGenerateKey(t *testing.T) {
	g := NewGenerator()
	params := map[string]interface{}{"order_id": "o1", "type": "PAYMENT_SUCCESS_WEBHOOK"}

	key := g.GenerateKey(ScopeWebhook, params)
	assert.Regexp(t, `^webhook-[0-9a-f]{16}$`, key)
	assert.Equal(t, key, g.GenerateKey(ScopeWebhook, map[string]interface{}{"type": "PAYMENT_SUCCESS_WEBHOOK", "order_id": "o1"}))
	assert.NotEqual(t, key, g.GenerateKey(ScopeRefund, params))
	assert.NotEqual(t, key, g.GenerateKey(ScopeWebhook, map[string]interface{}{"order_id": "o2", "type": "PAYMENT_SUCCESS_WEBHOOK"}))

	assert.True(t, g.ValidateKey(ScopeWebhook, params, key))
	assert.False(t, g.ValidateKey(ScopeWebhook, params, "webhook-0000000000000000"))
}

func TestInMemoryStoreClaim(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(time.Hour)

	ok, err := store.Claim(ctx, "k1", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "k1", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Claim(ctx, "k2", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInMemoryStoreClaimExpires(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(time.Hour)

	ok, _ := store.Claim(ctx, "k1", 20*time.Millisecond)
	require.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	ok, _ = store.Claim(ctx, "k1", time.Hour)
	assert.True(t, ok)
}

func TestInMemoryStoreConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore(time.Hour)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Claim(ctx, "shared", 0); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestNewStoreFallsBackToMemory(t *testing.T) {
	store := NewStore(nil, config.GetDefaultConfig(), logger.NewNopLogger())
	_, ok := store.(*InMemoryStore)
	assert.True(t, ok)
}
