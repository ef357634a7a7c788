package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mx-paylink/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PORT":                "",
		"NODE_ENV":            "",
		"MX_BASE_URL":         "",
		"MX_PAYMENT_PAGE_URL": "",
		"MX_MERCHANT_ID":      "",
		"MX_REQUEST_TIMEOUT":  "",
		"TWILIO_ACCOUNT_SID":  "",
		"AWS_ACCESS_KEY_ID":   "",
	})
	require.NoError(t, err)
	require.Equal(t, ":3000", cfg.HTTPAddr())
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "https://api.mxmerchant.com/checkout/v3", cfg.MX.BaseURL)
	require.Equal(t, "https://pay.mxmerchant.com", cfg.MX.PaymentPageURL)
	require.Equal(t, 30*time.Second, cfg.MX.RequestTimeout)
	require.False(t, cfg.Twilio.Configured())
	require.False(t, cfg.SES.Configured())
}

func TestLoadChannelFlags(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"MX_API_KEY":            "key",
		"MX_API_SECRET":         "secret",
		"MX_MERCHANT_ID":        "1000",
		"MX_PAYMENT_PAGE_URL":   "https://pay.example/",
		"TWILIO_ACCOUNT_SID":    "AC123",
		"TWILIO_AUTH_TOKEN":     "token",
		"TWILIO_PHONE_NUMBER":   "",
		"AWS_ACCESS_KEY_ID":     "AKIA",
		"AWS_SECRET_ACCESS_KEY": "shh",
		"AWS_REGION":            "us-east-1",
		"SES_FROM_EMAIL":        "billing@example.com",
	})
	require.NoError(t, err)
	require.True(t, cfg.MX.Configured())
	require.Equal(t, "https://pay.example", cfg.MX.PaymentPageURL)
	require.False(t, cfg.Twilio.Configured(), "twilio needs all three settings")
	require.True(t, cfg.SES.Configured())
}

func TestLoadRejectsNonNumericMerchant(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"MX_MERCHANT_ID": "abc"})
	require.Error(t, err)
}
