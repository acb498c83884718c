package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayKeyPairing(t *testing.T) {
	t.Run("unconfigured provider passes", func(t *testing.T) {
		assert.NoError(t, PaystackConfig{}.check())
		assert.NoError(t, OpayConfig{}.check())
	})

	t.Run("fully configured provider passes", func(t *testing.T) {
		cfg := PaystackConfig{BaseURL: "https://api.paystack.co", SecretKey: "sk", WebhookSecret: "wh"}
		assert.NoError(t, cfg.check())
	})

	t.Run("request key without webhook secret fails at startup", func(t *testing.T) {
		cfg := PaystackConfig{BaseURL: "https://api.paystack.co", SecretKey: "sk"}
		assert.Error(t, cfg.check())
	})

	t.Run("webhook secret without request key fails at startup", func(t *testing.T) {
		cfg := PaystackConfig{BaseURL: "https://api.paystack.co", WebhookSecret: "wh"}
		assert.Error(t, cfg.check())
	})

	t.Run("opay with only one key fails at startup", func(t *testing.T) {
		cfg := OpayConfig{BaseURL: "https://api.opaycheckout.com", MerchantID: "m", PublicKey: "pk"}
		assert.Error(t, cfg.check())
	})
}

func TestNewLoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", ""} {
		cfg := LoggerConfig{Level: level}
		assert.NotNil(t, cfg.NewLogger())
	}
}
