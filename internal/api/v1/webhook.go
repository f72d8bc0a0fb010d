package v1

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/wealthhorizon/paybridge/internal/config"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/rest/middleware"
	"github.com/wealthhorizon/paybridge/internal/service"
)

const (
	headerWebhookTimestamp = "x-webhook-timestamp"

	defaultWebhookMaxBodyBytes = 1 << 20
)

// signature headers in lookup order; the last two are sent by older integrations
var webhookSignatureHeaders = []string{
	"x-webhook-signature",
	"x-cashfree-signature",
	"x-signature",
}

// WebhookHandler handles vendor webhook endpoints
type WebhookHandler struct {
	service service.WebhookService
	config  *config.Configuration
	logger  *logger.Logger
}

func NewWebhookHandler(service service.WebhookService, config *config.Configuration, logger *logger.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, config: config, logger: logger}
}

// HandleCashfreeWebhook handles POST /webhooks/cashfree. Requests with a bad
// signature are refused; anything that verifies is acknowledged with 200.
func (h *WebhookHandler) HandleCashfreeWebhook(c *gin.Context) {
	limit := h.config.Webhook.MaxBodyBytes
	if limit <= 0 {
		limit = defaultWebhookMaxBodyBytes
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warnw("webhook body too large", "limit", limit)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, middleware.ErrorResponse{
				Success: false,
				Error:   middleware.ErrorDetail{Display: "Request body too large"},
			})
			return
		}

		h.logger.Errorw("failed to read webhook body", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Could not read request body").
			Mark(ierr.ErrValidation))
		return
	}

	signature := signatureHeader(c)
	timestamp := c.GetHeader(headerWebhookTimestamp)

	h.logger.Infow("received Cashfree webhook",
		"payload_length", len(body),
		"has_signature", signature != "",
		"has_timestamp", timestamp != "")

	resp, err := h.service.HandleCashfreeWebhook(c.Request.Context(), body, signature, timestamp)
	if err != nil {
		h.logger.Warnw("rejected Cashfree webhook", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func signatureHeader(c *gin.Context) string {
	v, _ := lo.Find(lo.Map(webhookSignatureHeaders, func(h string, _ int) string {
		return c.GetHeader(h)
	}), func(v string) bool { return v != "" })
	return v
}
