package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wealthhorizon/paybridge/internal/api"
	v1 "github.com/wealthhorizon/paybridge/internal/api/v1"
	"github.com/wealthhorizon/paybridge/internal/bridge"
	"github.com/wealthhorizon/paybridge/internal/cache"
	"github.com/wealthhorizon/paybridge/internal/config"
	"github.com/wealthhorizon/paybridge/internal/host"
	"github.com/wealthhorizon/paybridge/internal/httpclient"
	"github.com/wealthhorizon/paybridge/internal/idempotency"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/repository/memory"
	"github.com/wealthhorizon/paybridge/internal/sentry"
	"github.com/wealthhorizon/paybridge/internal/service"
	"github.com/wealthhorizon/paybridge/internal/types"
	"github.com/wealthhorizon/paybridge/internal/validator"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			provideCache,
			cache.NewRedisClient,
			idempotency.NewStore,

			// HTTP Client
			httpclient.NewDefaultClient,

			// Repositories
			memory.NewOrderRepository,

			// Cashfree
			cashfree.NewClient,
			cashfree.NewGateway,
		),
	)

	// Validator
	opts = append(opts, fx.Invoke(func() { validator.NewValidator() }))

	// Monitoring
	opts = append(opts, sentry.Module())

	// Owning loop, call registry and activity host
	opts = append(opts, host.Module())

	// Bridge plugins
	opts = append(opts,
		fx.Provide(bridge.NewCashfreePlugin),
		fx.Invoke(registerPlugins),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewOrderService,
			service.NewWebhookService,
			service.NewReconciler,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideCache(cfg *config.Configuration, logger *logger.Logger) cache.Cache {
	return cache.NewInMemoryCache(cfg, logger)
}

func registerPlugins(lc fx.Lifecycle, h *host.ActivityHost, cashfreePlugin *bridge.CashfreePlugin, log *logger.Logger) error {
	if err := h.RegisterPlugin(cashfreePlugin); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				cashfreePlugin.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				log.Warn("gave up waiting for in-flight checkouts")
				return ctx.Err()
			}
		},
	})
	return nil
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	activityHost *host.ActivityHost,
	gateway cashfree.PaymentGatewayService,
	orderService service.OrderService,
	webhookService service.WebhookService,
) api.Handlers {
	return api.Handlers{
		Health:   v1.NewHealthHandler(activityHost, logger),
		Bridge:   v1.NewBridgeHandler(activityHost, cfg, logger),
		Order:    v1.NewOrderHandler(orderService, logger),
		Webhook:  v1.NewWebhookHandler(webhookService, cfg, logger),
		Checkout: v1.NewCheckoutHandler(gateway, activityHost, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration, logger *logger.Logger) *gin.Engine {
	return api.NewRouter(handlers, cfg, logger)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	reconciler *service.Reconciler,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal:
		startAPIServer(lc, r, cfg, log)
		startReconciler(lc, reconciler, log)
	case types.ModeAPI:
		startAPIServer(lc, r, cfg, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	log.Info("Registering API server start hook")
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}

func startReconciler(lc fx.Lifecycle, reconciler *service.Reconciler, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			reconciler.Start(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping reconciler...")
			return reconciler.Stop(ctx)
		},
	})
}
