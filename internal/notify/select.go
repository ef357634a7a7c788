package notify

import (
	"github.com/rs/zerolog"

	"github.com/noah-isme/mx-paylink/internal/config"
)

// NewSMSNotifier returns the Twilio notifier when cfg is complete and the
// disabled variant otherwise.
func NewSMSNotifier(cfg config.Twilio, logger zerolog.Logger) Notifier {
	if !cfg.Configured() {
		return Disabled{Name: ChannelSMS, Logger: logger}
	}
	return NewTwilioSMS(cfg.AccountSID, cfg.AuthToken, cfg.PhoneNumber, logger)
}

// NewEmailNotifier returns the SES notifier when cfg is complete and the
// disabled variant otherwise.
func NewEmailNotifier(cfg config.SES, logger zerolog.Logger) Notifier {
	if !cfg.Configured() {
		return Disabled{Name: ChannelEmail, Logger: logger}
	}
	return NewSESEmail(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.Region, cfg.FromEmail, logger)
}
