package service

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	tcommon "github.com/getAlby/tokenhub.go/common"
)

type Config struct {
	DatabaseUri             string  `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns        int     `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns    int     `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime int     `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	SentryDSN               string  `envconfig:"SENTRY_DSN"`
	DatadogAgentUrl         string  `envconfig:"DATADOG_AGENT_URL"`
	SentryTracesSampleRate  float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	LogFilePath             string  `envconfig:"LOG_FILE_PATH"`
	AdminToken              string  `envconfig:"ADMIN_TOKEN"`
	Host                    string  `envconfig:"HOST" default:"localhost:3000"`
	Port                    int     `envconfig:"PORT" default:"3000"`
	DefaultRateLimit        int     `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit         int     `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit          int     `envconfig:"BURST_RATE_LIMIT" default:"1"`
	EnablePrometheus        bool    `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort          int     `envconfig:"PROMETHEUS_PORT" default:"9092"`
	WebhookUrl              string  `envconfig:"WEBHOOK_URL"`
	RabbitMQUri             string  `envconfig:"RABBITMQ_URI"`
	RabbitMQInvoiceExchange string  `envconfig:"RABBITMQ_INVOICE_EXCHANGE" default:"tokenhub_invoice"`
	SaleConfig
}

// SaleConfig describes the one market the gateway sells on. The fee tier must
// match the pool buyers are priced against, the quoter has no other way to
// find it. It is embedded so envconfig reads its keys without a prefix.
type SaleConfig struct {
	ReceiverAddress       string `envconfig:"RECEIVER_ADDRESS" required:"true"`
	PaymentTokenAddress   string `envconfig:"PAYMENT_TOKEN_ADDRESS" default:"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"` // USDC on Base
	PaymentTokenDecimals  int32  `envconfig:"PAYMENT_TOKEN_DECIMALS" default:"6"`
	SaleTokenAddress      string `envconfig:"SALE_TOKEN_ADDRESS" required:"true"`
	DefaultFeeTier        int64  `envconfig:"DEFAULT_FEE_TIER" default:"3000"`
	DeliveryConfirmations uint64 `envconfig:"DELIVERY_CONFIRMATIONS" default:"1"`
	DeliveryTimeout       int    `envconfig:"DELIVERY_TIMEOUT" default:"120"` // in seconds
	PaymentNote           string `envconfig:"PAYMENT_NOTE" default:"Send USDC (on Base) to receiver then call /api/verify-payment"`
}

// Validate catches configuration that envconfig cannot, it must pass before
// any request is served.
func (c *Config) Validate() error {
	addresses := map[string]string{
		"RECEIVER_ADDRESS":      c.ReceiverAddress,
		"PAYMENT_TOKEN_ADDRESS": c.PaymentTokenAddress,
		"SALE_TOKEN_ADDRESS":    c.SaleTokenAddress,
	}
	for name, value := range addresses {
		if !common.IsHexAddress(value) {
			return fmt.Errorf("%s %q is not a valid address", name, value)
		}
	}
	if c.DefaultFeeTier <= 0 || c.DefaultFeeTier > tcommon.MaxFeeTier {
		return fmt.Errorf("DEFAULT_FEE_TIER %d out of range", c.DefaultFeeTier)
	}
	if c.PaymentTokenDecimals < 0 || c.PaymentTokenDecimals > 255 {
		return fmt.Errorf("PAYMENT_TOKEN_DECIMALS %d out of range", c.PaymentTokenDecimals)
	}
	if c.DeliveryConfirmations == 0 {
		return fmt.Errorf("DELIVERY_CONFIRMATIONS must be at least 1")
	}
	if c.DeliveryTimeout <= 0 {
		return fmt.Errorf("DELIVERY_TIMEOUT must be positive")
	}
	return nil
}
