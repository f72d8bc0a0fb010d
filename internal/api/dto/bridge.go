package dto

import (
	"github.com/wealthhorizon/paybridge/internal/bridge"
)

// CallResponse is returned by the bridge call endpoints. Pending is true when
// the call has not settled yet and should be polled.
type CallResponse struct {
	Pending bool `json:"pending"`
	bridge.CallSnapshot
}

func NewCallResponse(call *bridge.Call) *CallResponse {
	snap := call.Snapshot()
	return &CallResponse{
		Pending:      !call.Settled(),
		CallSnapshot: snap,
	}
}

// ActivityResultRequest carries result data returned from a checkout
// presentation, forwarded unchanged to plugins
type ActivityResultRequest struct {
	Data map[string]string `json:"data" validate:"required"`
}

// ActivityResultResponse reports how many plugins received the result
type ActivityResultResponse struct {
	Delivered int `json:"delivered"`
}
