package bridge

import (
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/logger"
)

// Registry tracks pending calls by call ID with a secondary index by order
// ID. Settled calls are dropped from the index and kept read-only for
// SettledTTL so callers can still poll their result.
type Registry struct {
	mu      sync.Mutex
	calls   map[string]*Call
	byOrder map[string]string
	settled *cache.Cache
	logger  *logger.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(cfg *config.Configuration, logger *logger.Logger) *Registry {
	ttl := cfg.Bridge.SettledTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Registry{
		calls:   make(map[string]*Call),
		byOrder: make(map[string]string),
		settled: cache.New(ttl, 2*ttl),
		logger:  logger,
	}
}

// Register adds a pending call
func (r *Registry) Register(call *Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calls[call.ID]; exists {
		return ierr.NewError("call already registered").
			WithHintf("Call %s is already registered", call.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	if call.Settled() {
		return ierr.NewError("cannot register a settled call").
			Mark(ierr.ErrInvalidOperation)
	}

	call.onSettle = r.remove
	r.calls[call.ID] = call
	return nil
}

// BindOrder associates a pending call with an order. A second call for an
// order that already has a call in flight is rejected.
func (r *Registry) BindOrder(call *Call, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.calls[call.ID]; !ok {
		return ierr.NewError("call is not pending").
			WithHintf("Call %s is not pending", call.ID).
			Mark(ierr.ErrNotFound)
	}

	if existing, ok := r.byOrder[orderID]; ok && existing != call.ID {
		return ierr.NewError("order already has a call in flight").
			WithHintf("A payment for order %s is already in progress", orderID).
			WithReportableDetails(map[string]any{
				"order_id": orderID,
				"call_id":  existing,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	r.byOrder[orderID] = call.ID
	call.setOrderID(orderID)
	return nil
}

// remove runs once per call, when it settles. The call is readable from
// settled before it leaves calls so Get never misses it.
func (r *Registry) remove(call *Call) {
	r.settled.SetDefault(call.ID, call)

	r.mu.Lock()
	delete(r.calls, call.ID)
	if orderID := call.OrderID(); orderID != "" && r.byOrder[orderID] == call.ID {
		delete(r.byOrder, orderID)
	}
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Debugw("call settled",
			"call_id", call.ID,
			"order_id", call.OrderID(),
			"state", call.State())
	}
}

// Get returns a pending or recently settled call
func (r *Registry) Get(callID string) (*Call, bool) {
	r.mu.Lock()
	call, ok := r.calls[callID]
	r.mu.Unlock()
	if ok {
		return call, true
	}

	if v, ok := r.settled.Get(callID); ok {
		return v.(*Call), true
	}
	return nil, false
}

// ByOrder returns the pending call bound to an order
func (r *Registry) ByOrder(orderID string) (*Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	callID, ok := r.byOrder[orderID]
	if !ok {
		return nil, false
	}
	call, ok := r.calls[callID]
	return call, ok
}

// Pending returns the pending calls, oldest first
func (r *Registry) Pending() []*Call {
	r.mu.Lock()
	calls := make([]*Call, 0, len(r.calls))
	for _, call := range r.calls {
		calls = append(calls, call)
	}
	r.mu.Unlock()

	sort.Slice(calls, func(i, j int) bool {
		return calls[i].CreatedAt.Before(calls[j].CreatedAt)
	})
	return calls
}

// Len returns the number of pending calls
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
