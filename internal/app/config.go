package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/vitrine/internal/domain/checkout"
	"github.com/xenking/vitrine/internal/domain/money"
)

// Delivery modes.
const (
	DeliveryLink  = "link"
	DeliveryKafka = "kafka"
)

// Config holds the complete application configuration, loadable from
// environment variables (VITRINE_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (VITRINE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Currency    string `default:"BRL" usage:"ISO 4217 currency of order messages"`
	Checkout    CheckoutConfig
	Delivery    DeliveryConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// CheckoutConfig bounds the external calls made during checkout.
type CheckoutConfig struct {
	CouponTimeout     time.Duration `default:"3s" usage:"Coupon lookup timeout"`
	PersistTimeout    time.Duration `default:"5s" usage:"Timeout of one order insert attempt"`
	PersistAttempts   int           `default:"2" usage:"Order insert attempts"`
	PersistRetryDelay time.Duration `default:"200ms" usage:"Delay between order insert attempts"`
	DeliveryTimeout   time.Duration `default:"5s" usage:"Order message hand-off timeout"`
	BackgroundTimeout time.Duration `default:"5s" usage:"Timeout of usage counting and analytics writes"`
}

// DeliveryConfig selects how order messages leave the system.
type DeliveryConfig struct {
	Mode            string `default:"link" usage:"Order message channel: link or kafka"`
	WhatsAppBaseURL string `default:"https://wa.me" usage:"Click-to-chat base URL" flag:"whatsapp-base-url"`
}

// KafkaConfig configures the optional Kafka publishers. Empty Brokers
// disables Kafka.
type KafkaConfig struct {
	Brokers     string `default:"" usage:"Comma separated Kafka brokers"`
	OrdersTopic string `default:"vitrine.orders" usage:"Topic of order messages" flag:"kafka-orders-topic"`
	EventsTopic string `default:"vitrine.events" usage:"Topic of store analytics events" flag:"kafka-events-topic"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then validates it.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "VITRINE",
		Files:     []string{"config.yaml", "/etc/vitrine/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration that cannot start the server.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set VITRINE_DATABASE_URL or DATABASE_URL")
	}
	if _, err := money.Parse(c.Currency); err != nil {
		return errors.Wrap(err, "currency")
	}
	switch c.Delivery.Mode {
	case DeliveryLink:
	case DeliveryKafka:
		if c.Kafka.Brokers == "" {
			return errors.New("kafka delivery requires VITRINE_KAFKA_BROKERS")
		}
	default:
		return errors.Errorf("unknown delivery mode %q", c.Delivery.Mode)
	}
	return nil
}

// CheckoutServiceConfig converts the loaded settings to a checkout.Config.
func (c *Config) CheckoutServiceConfig() (checkout.Config, error) {
	cur, err := money.Parse(c.Currency)
	if err != nil {
		return checkout.Config{}, errors.Wrap(err, "currency")
	}
	return checkout.Config{
		Currency:          cur,
		CouponTimeout:     c.Checkout.CouponTimeout,
		PersistTimeout:    c.Checkout.PersistTimeout,
		PersistAttempts:   c.Checkout.PersistAttempts,
		PersistRetryDelay: c.Checkout.PersistRetryDelay,
		DeliveryTimeout:   c.Checkout.DeliveryTimeout,
		BackgroundTimeout: c.Checkout.BackgroundTimeout,
	}, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
