package bridge

import (
	"context"
	"sync"
	"time"

	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/types"
)

// CallData is the structured payload an application sends with a call
type CallData map[string]any

// GetString returns the string value at key, or "" when absent or not a string
func (d CallData) GetString(key string) string {
	if v, ok := d[key].(string); ok {
		return v
	}
	return ""
}

// Outcome is the value a call resolves with
type Outcome struct {
	Status  types.OutcomeStatus `json:"status"`
	OrderID string              `json:"orderId"`
	Message string              `json:"message,omitempty"`
	Code    string              `json:"code,omitempty"`
}

// Rejection is the application facing view of a rejected call
type Rejection struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Call is one application request awaiting a terminal outcome. It settles
// exactly once, either resolved with an Outcome or rejected with an error.
type Call struct {
	ID        string
	Plugin    string
	Method    string
	Data      CallData
	CreatedAt time.Time

	mu        sync.RWMutex
	orderID   string
	state     types.CallState
	outcome   *Outcome
	err       error
	rejection *Rejection
	progress  map[string]any
	settledAt time.Time

	once     sync.Once
	done     chan struct{}
	onSettle func(*Call)
}

// NewCall creates a pending call
func NewCall(plugin, method string, data CallData) *Call {
	if data == nil {
		data = CallData{}
	}
	return &Call{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CALL),
		Plugin:    plugin,
		Method:    method,
		Data:      data,
		CreatedAt: time.Now().UTC(),
		state:     types.CallStatePending,
		progress:  make(map[string]any),
		done:      make(chan struct{}),
	}
}

// OrderID returns the order this call is bound to, if any
func (c *Call) OrderID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.orderID
}

func (c *Call) setOrderID(orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderID = orderID
}

// State returns the current lifecycle state
func (c *Call) State() types.CallState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetProgress publishes intermediate data (such as the checkout to open)
// without settling the call
func (c *Call) SetProgress(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress[key] = value
}

// Progress returns a copy of the published progress data
func (c *Call) Progress() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.progress))
	for k, v := range c.progress {
		out[k] = v
	}
	return out
}

// Resolve settles the call successfully. It returns false if the call was
// already settled.
func (c *Call) Resolve(outcome Outcome) bool {
	settled := false
	c.once.Do(func() {
		c.mu.Lock()
		c.state = types.CallStateResolved
		c.outcome = &outcome
		c.settledAt = time.Now().UTC()
		c.mu.Unlock()
		settled = true
		c.finish()
	})
	return settled
}

// Reject settles the call with an error. It returns false if the call was
// already settled.
func (c *Call) Reject(err error) bool {
	if err == nil {
		err = ierr.NewError("call rejected without error").Mark(ierr.ErrSystem)
	}
	settled := false
	c.once.Do(func() {
		c.mu.Lock()
		c.state = types.CallStateRejected
		c.err = err
		c.rejection = rejectionFor(err)
		c.settledAt = time.Now().UTC()
		c.mu.Unlock()
		settled = true
		c.finish()
	})
	return settled
}

func (c *Call) finish() {
	close(c.done)
	if c.onSettle != nil {
		c.onSettle(c)
	}
}

// Done is closed once the call settles
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Settled reports whether the call has been resolved or rejected
func (c *Call) Settled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Result returns the outcome or the rejection error of a settled call
func (c *Call) Result() (*Outcome, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.outcome, c.err
}

// Wait blocks until the call settles or ctx is done. A ctx error means the
// call is still pending, not that it failed.
func (c *Call) Wait(ctx context.Context) (*Outcome, error) {
	select {
	case <-c.done:
		return c.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CallSnapshot is a point in time view of a call for the API
type CallSnapshot struct {
	ID        string          `json:"id"`
	Plugin    string          `json:"plugin"`
	Method    string          `json:"method"`
	OrderID   string          `json:"orderId,omitempty"`
	State     types.CallState `json:"state"`
	Outcome   *Outcome        `json:"outcome,omitempty"`
	Error     *Rejection      `json:"error,omitempty"`
	Progress  map[string]any  `json:"progress,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	SettledAt *time.Time      `json:"settledAt,omitempty"`
}

// Snapshot returns a copy of the call state
func (c *Call) Snapshot() CallSnapshot {
	progress := c.Progress()

	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := CallSnapshot{
		ID:        c.ID,
		Plugin:    c.Plugin,
		Method:    c.Method,
		OrderID:   c.orderID,
		State:     c.state,
		Outcome:   c.outcome,
		Error:     c.rejection,
		CreatedAt: c.CreatedAt,
	}
	if len(progress) > 0 {
		snap.Progress = progress
	}
	if !c.settledAt.IsZero() {
		settledAt := c.settledAt
		snap.SettledAt = &settledAt
	}
	return snap
}

func rejectionFor(err error) *Rejection {
	var payErr *PaymentError
	if ierr.As(err, &payErr) {
		return &Rejection{Message: payErr.Message, Code: payErr.Code}
	}
	return &Rejection{
		Message: ierr.DisplayMessage(err),
		Code:    ierr.CodeFromErr(err),
	}
}
