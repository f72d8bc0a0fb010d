package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wealthhorizon/paybridge/internal/config"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"golang.org/x/time/rate"
)

// WebhookRateLimitMiddleware caps inbound webhook deliveries with a token
// bucket shared by all senders. A zero rate disables the limit.
func WebhookRateLimitMiddleware(cfg *config.Configuration, log *logger.Logger) gin.HandlerFunc {
	if cfg.Webhook.RateLimit <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	burst := cfg.Webhook.RateBurst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.Webhook.RateLimit), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			log.Warnw("webhook rate limit exceeded",
				"path", c.FullPath(),
				"client_ip", c.ClientIP())
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Success: false,
				Error:   ErrorDetail{Display: "Too many requests"},
			})
			return
		}
		c.Next()
	}
}
