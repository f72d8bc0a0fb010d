package host

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/wealthhorizon/paybridge/internal/bridge"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/sentry"
	"github.com/wealthhorizon/paybridge/internal/types"
	"go.uber.org/fx"
)

// Module provides the owning loop, the call registry and the host
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewLoop,
			bridge.NewRegistry,
			NewActivityHost,
			func(loop *bridge.Loop) bridge.Executor { return loop },
		),
		fx.Invoke(RegisterHooks),
	)
}

// NewLoop creates the owning loop from config
func NewLoop(cfg *config.Configuration, logger *logger.Logger) *bridge.Loop {
	return bridge.NewLoop(cfg.Bridge.LoopQueueSize, logger)
}

// RegisterHooks starts the loop with the app and drains it on shutdown
func RegisterHooks(lc fx.Lifecycle, h *ActivityHost) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			h.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return h.Stop(ctx)
		},
	})
}

// ActivityHost owns the loop, routes application calls to plugin methods
// and forwards result events to plugins that handle them
type ActivityHost struct {
	loop     *bridge.Loop
	registry *bridge.Registry
	logger   *logger.Logger
	sentry   *sentry.Service

	mu      sync.RWMutex
	plugins map[string]bridge.Plugin
	order   []string
}

// NewActivityHost creates a host with no plugins
func NewActivityHost(
	loop *bridge.Loop,
	registry *bridge.Registry,
	logger *logger.Logger,
	sentry *sentry.Service,
) *ActivityHost {
	return &ActivityHost{
		loop:     loop,
		registry: registry,
		logger:   logger,
		sentry:   sentry,
		plugins:  make(map[string]bridge.Plugin),
	}
}

func (h *ActivityHost) Start() {
	h.loop.Start()
	h.logger.Infow("activity host started", "plugins", h.Plugins())
}

func (h *ActivityHost) Stop(ctx context.Context) error {
	h.logger.Infow("activity host stopping", "pending_calls", h.registry.Len())
	return h.loop.Stop(ctx)
}

// RegisterPlugin makes a plugin's methods callable. Names are unique.
func (h *ActivityHost) RegisterPlugin(p bridge.Plugin) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	name := p.Name()
	if _, exists := h.plugins[name]; exists {
		return ierr.NewError("plugin already registered").
			WithHintf("Plugin %s is already registered", name).
			Mark(ierr.ErrAlreadyExists)
	}

	h.plugins[name] = p
	h.order = append(h.order, name)
	h.logger.Infow("registered bridge plugin", "plugin", name, "methods", methodNames(p))
	return nil
}

// Plugins returns the registered plugin names in registration order
func (h *ActivityHost) Plugins() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.order...)
}

func (h *ActivityHost) plugin(name string) (bridge.Plugin, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.plugins[name]
	return p, ok
}

// Dispatch creates a call, runs the plugin method on the loop and returns
// the call. Validation failures have already settled the call when Dispatch
// returns; otherwise it stays pending until a callback arrives.
func (h *ActivityHost) Dispatch(ctx context.Context, pluginName, methodName string, data bridge.CallData) (*bridge.Call, error) {
	p, ok := h.plugin(pluginName)
	if !ok {
		return nil, ierr.NewError("plugin not found").
			WithHintf("Plugin %s is not registered", pluginName).
			Mark(ierr.ErrNotFound)
	}

	method, ok := p.Methods()[methodName]
	if !ok {
		return nil, ierr.NewError("plugin method not found").
			WithHintf("Plugin %s has no method %s", pluginName, methodName).
			Mark(ierr.ErrNotFound)
	}

	call := bridge.NewCall(pluginName, methodName, data)
	if err := h.registry.Register(call); err != nil {
		return nil, err
	}

	callCtx := types.SetCallID(ctx, call.ID)
	err := h.loop.Do(ctx, func() {
		bridge.Invoke(callCtx, method, call, h.logger, h.sentry)
	})
	if err != nil {
		if ctx.Err() != nil {
			// the method still runs on the loop, the caller can poll the call
			return call, nil
		}
		call.Reject(err)
		return nil, err
	}

	h.logger.Debugw("dispatched bridge call",
		"call_id", call.ID,
		"plugin", pluginName,
		"method", methodName,
		"state", call.State())
	return call, nil
}

// Call returns a pending or recently settled call
func (h *ActivityHost) Call(callID string) (*bridge.Call, bool) {
	return h.registry.Get(callID)
}

// OnActivityResult forwards result data to every plugin that handles
// results and returns how many received it
func (h *ActivityHost) OnActivityResult(ctx context.Context, data cashfree.ResultData) int {
	h.mu.RLock()
	handlers := make([]bridge.ResultHandler, 0, len(h.order))
	for _, name := range h.order {
		if rh, ok := h.plugins[name].(bridge.ResultHandler); ok {
			handlers = append(handlers, rh)
		}
	}
	h.mu.RUnlock()

	for _, rh := range handlers {
		rh.HandleActivityResult(ctx, data)
	}
	return len(handlers)
}

func methodNames(p bridge.Plugin) []string {
	names := lo.Keys(p.Methods())
	sort.Strings(names)
	return names
}
