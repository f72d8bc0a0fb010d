package v1

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wealthhorizon/paybridge/internal/api/dto"
	"github.com/wealthhorizon/paybridge/internal/bridge"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/host"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/types"
	"github.com/wealthhorizon/paybridge/internal/validator"
)

// BridgeHandler exposes plugin methods to application code over HTTP
type BridgeHandler struct {
	host   *host.ActivityHost
	config *config.Configuration
	log    *logger.Logger
}

func NewBridgeHandler(host *host.ActivityHost, config *config.Configuration, log *logger.Logger) *BridgeHandler {
	return &BridgeHandler{host: host, config: config, log: log}
}

// CallPlugin handles POST /bridge/:plugin/:method. The request blocks until
// the call settles or bridge.call_wait passes; a call still pending then is
// returned with 202 and can be polled through GetCall.
func (h *BridgeHandler) CallPlugin(c *gin.Context) {
	data := bridge.CallData{}
	if err := c.ShouldBindJSON(&data); err != nil && err != io.EOF {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	call, err := h.host.Dispatch(ctx, c.Param("plugin"), c.Param("method"), data)
	if err != nil {
		c.Error(err)
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, h.config.Bridge.CallWait)
	defer cancel()
	_, _ = call.Wait(waitCtx)

	h.respondWithCall(c, call)
}

// GetCall handles GET /bridge/calls/:id
func (h *BridgeHandler) GetCall(c *gin.Context) {
	id := c.Param("id")
	call, ok := h.host.Call(id)
	if !ok {
		c.Error(ierr.NewError("call not found").
			WithHintf("Call %s was not found or has expired", id).
			Mark(ierr.ErrNotFound))
		return
	}

	c.JSON(http.StatusOK, dto.NewCallResponse(call))
}

// ActivityResult handles POST /bridge/activity-result
func (h *BridgeHandler) ActivityResult(c *gin.Context) {
	var req dto.ActivityResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}
	if err := validator.ValidateRequest(&req); err != nil {
		c.Error(err)
		return
	}

	delivered := h.host.OnActivityResult(c.Request.Context(), cashfree.ResultData(req.Data))
	c.JSON(http.StatusOK, dto.ActivityResultResponse{Delivered: delivered})
}

func (h *BridgeHandler) respondWithCall(c *gin.Context, call *bridge.Call) {
	resp := dto.NewCallResponse(call)
	switch resp.State {
	case types.CallStatePending:
		c.JSON(http.StatusAccepted, resp)
	case types.CallStateRejected:
		_, err := call.Result()
		c.JSON(ierr.HTTPStatusFromErr(err), resp)
	default:
		c.JSON(http.StatusOK, resp)
	}
}
