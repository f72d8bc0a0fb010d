package service

import (
	"github.com/wealthhorizon/paybridge/internal/bridge"
	"github.com/wealthhorizon/paybridge/internal/cache"
	"github.com/wealthhorizon/paybridge/internal/config"
	"github.com/wealthhorizon/paybridge/internal/domain/order"
	"github.com/wealthhorizon/paybridge/internal/idempotency"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/sentry"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Sentry *sentry.Service

	// Repositories
	OrderRepo order.Repository

	// Cashfree
	Client  cashfree.CashfreeClient
	Gateway cashfree.PaymentGatewayService

	Registry         *bridge.Registry
	Cache            cache.Cache
	IdempotencyStore idempotency.Store
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	sentry *sentry.Service,
	orderRepo order.Repository,
	client cashfree.CashfreeClient,
	gateway cashfree.PaymentGatewayService,
	registry *bridge.Registry,
	cache cache.Cache,
	idempotencyStore idempotency.Store,
) ServiceParams {
	return ServiceParams{
		Logger:           logger,
		Config:           config,
		Sentry:           sentry,
		OrderRepo:        orderRepo,
		Client:           client,
		Gateway:          gateway,
		Registry:         registry,
		Cache:            cache,
		IdempotencyStore: idempotencyStore,
	}
}
