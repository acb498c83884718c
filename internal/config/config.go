package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Gateways GatewaysConfig `koanf:"gateways"`
	Retry    RetryConfig    `koanf:"retry"`
	Logger   LoggerConfig   `koanf:"logger"`
	Worker   WorkerConfig   `koanf:"worker"`
	Kafka    KafkaConfig    `koanf:"kafka"`
	Checkout CheckoutConfig `koanf:"checkout"`
	Admin    AdminConfig    `koanf:"admin"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
	MigrationsPath  string        `koanf:"migrations_path"`
}

// GatewaysConfig holds per-provider credentials. Every live provider
// carries two distinct secrets: a request key used for API calls and a
// webhook/signing secret used to authenticate inbound events. A
// provider configured with only one of the pair is a startup error,
// not a runtime surprise.
type GatewaysConfig struct {
	Paystack     PaystackConfig     `koanf:"paystack"`
	Opay         OpayConfig         `koanf:"opay"`
	BankTransfer BankTransferConfig `koanf:"bank_transfer"`
}

type PaystackConfig struct {
	BaseURL       string        `koanf:"base_url"`
	SecretKey     string        `koanf:"secret_key"`
	WebhookSecret string        `koanf:"webhook_secret"`
	ConnTimeout   time.Duration `koanf:"conn_timeout"`
}

func (c PaystackConfig) Configured() bool {
	return c.SecretKey != "" || c.WebhookSecret != ""
}

func (c PaystackConfig) check() error {
	if !c.Configured() {
		return nil
	}
	if c.SecretKey == "" || c.WebhookSecret == "" || c.BaseURL == "" {
		return fmt.Errorf("paystack requires base_url, secret_key and webhook_secret together")
	}
	return nil
}

type OpayConfig struct {
	BaseURL     string        `koanf:"base_url"`
	MerchantID  string        `koanf:"merchant_id"`
	PublicKey   string        `koanf:"public_key"`
	PrivateKey  string        `koanf:"private_key"`
	ConnTimeout time.Duration `koanf:"conn_timeout"`
}

func (c OpayConfig) Configured() bool {
	return c.PublicKey != "" || c.PrivateKey != ""
}

func (c OpayConfig) check() error {
	if !c.Configured() {
		return nil
	}
	if c.PublicKey == "" || c.PrivateKey == "" || c.BaseURL == "" || c.MerchantID == "" {
		return fmt.Errorf("opay requires base_url, merchant_id, public_key and private_key together")
	}
	return nil
}

type BankTransferConfig struct {
	BankName      string `koanf:"bank_name"`
	AccountName   string `koanf:"account_name"`
	AccountNumber string `koanf:"account_number"`
}

func (c BankTransferConfig) Configured() bool {
	return c.AccountNumber != ""
}

type RetryConfig struct {
	BaseDelay  int32 `koanf:"base_delay"`
	MaxRetries int32 `koanf:"max_retries"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// NewLogger builds the process logger from the configured level.
func (c LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
	StaleAge  time.Duration `koanf:"stale_age"`
}

type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

func (c KafkaConfig) Configured() bool {
	return len(c.Brokers) > 0
}

type CheckoutConfig struct {
	Currency    string `koanf:"currency" validate:"required"`
	CallbackURL string `koanf:"callback_url"`
	TaxRate     string `koanf:"tax_rate"`
}

type AdminConfig struct {
	Token string `koanf:"token"`
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("CHECKOUT_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "CHECKOUT_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if err := mainConfig.Gateways.Paystack.check(); err != nil {
		logger.Error("gateway configuration invalid", "error", err)
		return nil, err
	}
	if err := mainConfig.Gateways.Opay.check(); err != nil {
		logger.Error("gateway configuration invalid", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
