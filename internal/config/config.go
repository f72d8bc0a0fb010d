package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/wealthhorizon/paybridge/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment" validate:"required"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Logging    LoggingConfig    `mapstructure:"logging" validate:"required"`
	Cashfree   CashfreeConfig   `mapstructure:"cashfree" validate:"required"`
	Bridge     BridgeConfig     `mapstructure:"bridge" validate:"required"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `mapstructure:"level" validate:"required"`
}

type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	OrderTTL time.Duration `mapstructure:"order_ttl"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func NewConfig() (*Configuration, error) {
	// a missing .env is fine, the environment may already carry the values
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paybridge")

	v.SetEnvPrefix("PAYBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override values that
// are absent from config.yaml
func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", types.LogLevelInfo)

	v.SetDefault("cashfree.app_id", "")
	v.SetDefault("cashfree.secret_key", "")
	v.SetDefault("cashfree.webhook_secret", "")
	v.SetDefault("cashfree.api_version", DefaultCashfreeAPIVersion)
	v.SetDefault("cashfree.environment", types.PaymentEnvironmentSandbox)
	v.SetDefault("cashfree.return_url", "")
	v.SetDefault("cashfree.notify_url", "")
	v.SetDefault("cashfree.checkout_url", "http://localhost:8080/v1/checkout/web/{order_id}")
	v.SetDefault("cashfree.checkout_ttl", time.Hour)
	v.SetDefault("cashfree.timeout", 30*time.Second)
	v.SetDefault("cashfree.retry_max", 2)
	v.SetDefault("cashfree.breaker_max_failures", 5)
	v.SetDefault("cashfree.breaker_open_timeout", 30*time.Second)

	v.SetDefault("bridge.call_wait", 25*time.Second)
	v.SetDefault("bridge.settled_ttl", 10*time.Minute)
	v.SetDefault("bridge.reconcile_after", 2*time.Minute)
	v.SetDefault("bridge.reconcile_interval", 30*time.Second)
	v.SetDefault("bridge.loop_queue_size", 256)

	v.SetDefault("webhook.rate_limit", 50)
	v.SetDefault("webhook.rate_burst", 100)
	v.SetDefault("webhook.dedupe_ttl", 24*time.Hour)
	v.SetDefault("webhook.max_age", 10*time.Minute)
	v.SetDefault("webhook.max_body_bytes", 1<<20)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.order_ttl", 10*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or other non-web applications
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Cashfree: CashfreeConfig{
			APIVersion:         DefaultCashfreeAPIVersion,
			Environment:        types.PaymentEnvironmentSandbox,
			CheckoutURL:        "http://localhost:8080/v1/checkout/web/{order_id}",
			CheckoutTTL:        time.Hour,
			Timeout:            30 * time.Second,
			RetryMax:           2,
			BreakerMaxFailures: 5,
			BreakerOpenTimeout: 30 * time.Second,
		},
		Bridge: BridgeConfig{
			CallWait:          25 * time.Second,
			SettledTTL:        10 * time.Minute,
			ReconcileAfter:    2 * time.Minute,
			ReconcileInterval: 30 * time.Second,
			LoopQueueSize:     256,
		},
		Webhook: WebhookConfig{
			RateLimit:    50,
			RateBurst:    100,
			DedupeTTL:    24 * time.Hour,
			MaxAge:       10 * time.Minute,
			MaxBodyBytes: 1 << 20,
		},
		Cache: CacheConfig{Enabled: true, OrderTTL: 10 * time.Second},
	}
}
