package bridge

import (
	"context"
	"fmt"
	"runtime/debug"

	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/sentry"
)

// Method is a plugin entry point. It runs on the owning loop and must not
// block; it either settles the call or leaves it pending for a callback.
type Method func(ctx context.Context, call *Call)

// Plugin exposes named methods to application code
type Plugin interface {
	Name() string
	Methods() map[string]Method
}

// ResultHandler is implemented by plugins interested in result events
// returned from a checkout presentation
type ResultHandler interface {
	HandleActivityResult(ctx context.Context, data cashfree.ResultData)
}

// Invoke runs method for call, turning a panic into a generic rejection
func Invoke(ctx context.Context, method Method, call *Call, log *logger.Logger, reporter *sentry.Service) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		err := ierr.NewErrorf("panic in %s.%s: %v", call.Plugin, call.Method, r).
			WithHint(genericFailureHint).
			Mark(ierr.ErrSystem)

		log.Errorw("plugin method panicked",
			"plugin", call.Plugin,
			"method", call.Method,
			"call_id", call.ID,
			"panic", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()))

		reporter.CaptureExceptionWithTags(err, map[string]string{
			"plugin":  call.Plugin,
			"method":  call.Method,
			"call_id": call.ID,
		})

		call.Reject(err)
	}()

	method(ctx, call)
}
