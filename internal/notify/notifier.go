// Package notify delivers payment links to customers over SMS and email.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mx-paylink/internal/common"
	"github.com/noah-isme/mx-paylink/internal/obs"
)

// Channel names used in logs, metrics and response messages.
const (
	ChannelSMS   = "SMS"
	ChannelEmail = "Email"
)

// ReasonNotConfigured is reported by channels started without credentials.
const ReasonNotConfigured = "not configured"

// LineItem is one row of the invoice shown to the customer.
type LineItem struct {
	Description string
	Amount      common.Amount
	Quantity    int
}

// Message is everything a channel may need to notify a customer.
type Message struct {
	To            string
	CustomerName  string
	PaymentURL    string
	InvoiceNumber string
	Amount        common.Amount
	LineItems     []LineItem
}

// Result reports what happened on one channel. Failures are carried here and
// never returned as errors.
type Result struct {
	Sent       bool   `json:"sent"`
	MessageSID string `json:"messageSid,omitempty"`
	MessageID  string `json:"messageId,omitempty"`
	To         string `json:"to,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Notifier sends one message on one channel.
type Notifier interface {
	Channel() string
	Notify(ctx context.Context, msg Message) *Result
}

// Disabled is the Notifier used when a channel has no credentials.
type Disabled struct {
	Name   string
	Logger zerolog.Logger
}

// Channel implements Notifier.
func (d Disabled) Channel() string { return d.Name }

// Notify implements Notifier.
func (d Disabled) Notify(context.Context, Message) *Result {
	d.Logger.Debug().Str("channel", d.Name).Msg("notification_skipped_not_configured")
	obs.Inc(obs.NotificationTotal, d.Name, "disabled")
	return &Result{Sent: false, Reason: ReasonNotConfigured}
}

func failed(logger zerolog.Logger, channel, to string, err error) *Result {
	logger.Error().Err(err).Str("channel", channel).Str("to", to).Msg("notification_failed")
	obs.Inc(obs.NotificationTotal, channel, "failed")
	return &Result{Sent: false, Error: err.Error()}
}
