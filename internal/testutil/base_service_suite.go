package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wealthhorizon/paybridge/internal/bridge"
	"github.com/wealthhorizon/paybridge/internal/cache"
	"github.com/wealthhorizon/paybridge/internal/config"
	"github.com/wealthhorizon/paybridge/internal/domain/order"
	"github.com/wealthhorizon/paybridge/internal/idempotency"
	"github.com/wealthhorizon/paybridge/internal/integration/cashfree"
	"github.com/wealthhorizon/paybridge/internal/logger"
	"github.com/wealthhorizon/paybridge/internal/repository/memory"
	"github.com/wealthhorizon/paybridge/internal/sentry"
)

// Stores holds the repositories used by service tests
type Stores struct {
	OrderRepo order.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx         context.Context
	stores      Stores
	logger      *logger.Logger
	config      *config.Configuration
	sentry      *sentry.Service
	client      *FakeCashfreeClient
	gateway     cashfree.PaymentGatewayService
	registry    *bridge.Registry
	cache       cache.Cache
	idempotency idempotency.Store
	now         time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	s.now = time.Now().UTC()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupConfig()
	s.setupDependencies()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.cache.Flush(s.ctx)
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupConfig() {
	s.config = config.GetDefaultConfig()
	s.config.Cashfree.AppID = "test_app"
	s.config.Cashfree.SecretKey = "test_secret"
	s.config.Cashfree.ReturnURL = "http://localhost/v1/checkout/return"
	s.config.Cashfree.NotifyURL = "http://localhost/v1/webhooks/cashfree"
	s.config.Bridge.ReconcileAfter = 0
}

func (s *BaseServiceTestSuite) setupDependencies() {
	s.logger = logger.NewNopLogger()
	s.sentry = sentry.NewSentryService(s.config, s.logger)
	s.stores = Stores{
		OrderRepo: memory.NewOrderRepository(s.logger),
	}
	s.client = NewFakeCashfreeClient()
	s.client.Secret = s.config.Cashfree.GetWebhookSecret()
	s.gateway = cashfree.NewGateway(s.client, s.config, s.logger)
	s.registry = bridge.NewRegistry(s.config, s.logger)
	s.cache = cache.NewInMemoryCache(s.config, s.logger)
	s.idempotency = idempotency.NewInMemoryStore(s.config.Webhook.DedupeTTL)
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetSentry returns a disabled sentry service
func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetClient returns the fake Cashfree client
func (s *BaseServiceTestSuite) GetClient() *FakeCashfreeClient {
	return s.client
}

// GetGateway returns the gateway built on the fake client
func (s *BaseServiceTestSuite) GetGateway() cashfree.PaymentGatewayService {
	return s.gateway
}

// GetRegistry returns the call registry
func (s *BaseServiceTestSuite) GetRegistry() *bridge.Registry {
	return s.registry
}

// GetCache returns the in-memory cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetIdempotencyStore returns the in-memory webhook dedupe store
func (s *BaseServiceTestSuite) GetIdempotencyStore() idempotency.Store {
	return s.idempotency
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
