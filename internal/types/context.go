package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxCallID    ContextKey = "ctx_call_id"

	HeaderRequestID = "X-Request-ID"
)

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

func GetCallID(ctx context.Context) string {
	if callID, ok := ctx.Value(CtxCallID).(string); ok {
		return callID
	}
	return ""
}

// SetCallID sets the bridge call ID in the context
func SetCallID(ctx context.Context, callID string) context.Context {
	return context.WithValue(ctx, CtxCallID, callID)
}
