package api

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/wealthhorizon/paybridge/internal/api/v1"
	"github.com/wealthhorizon/paybridge/internal/config"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/rest/middleware"
	"github.com/wealthhorizon/paybridge/internal/types"
)

type Handlers struct {
	Health   *v1.HealthHandler
	Bridge   *v1.BridgeHandler
	Order    *v1.OrderHandler
	Webhook  *v1.WebhookHandler
	Checkout *v1.CheckoutHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(logger),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers, cfg, logger)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers, cfg *config.Configuration, logger *logger.Logger) {
	bridge := router.Group("/bridge")
	{
		bridge.GET("/calls/:id", handlers.Bridge.GetCall)
		bridge.POST("/activity-result", handlers.Bridge.ActivityResult)
		bridge.POST("/:plugin/:method", handlers.Bridge.CallPlugin)
	}

	orders := router.Group("/orders")
	{
		orders.POST("", handlers.Order.CreateOrder)
		orders.GET("", handlers.Order.ListOrders)
		orders.POST("/sync", handlers.Order.SyncOrders)
		orders.GET("/:order_id", handlers.Order.GetOrder)
		orders.GET("/:order_id/payments", handlers.Order.GetPayments)
		orders.POST("/:order_id/refunds", handlers.Order.CreateRefund)
	}

	checkout := router.Group("/checkout")
	{
		checkout.GET("/web/:order_id", handlers.Checkout.WebCheckout)
		checkout.GET("/return", handlers.Checkout.CheckoutReturn)
	}

	webhooks := router.Group("/webhooks")
	webhooks.Use(middleware.WebhookRateLimitMiddleware(cfg, logger))
	{
		webhooks.POST("/cashfree", handlers.Webhook.HandleCashfreeWebhook)
	}
}
