package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/noah-isme/mx-paylink/internal/obs"
)

// MessageCreator is the Twilio messages API.
type MessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMS sends payment links as Twilio text messages.
type SMS struct {
	API    MessageCreator
	From   string
	Logger zerolog.Logger
}

// NewTwilioSMS builds an SMS notifier using the Twilio REST client.
func NewTwilioSMS(accountSID, authToken, from string, logger zerolog.Logger) *SMS {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMS{API: client.Api, From: from, Logger: logger}
}

// Channel implements Notifier.
func (s *SMS) Channel() string { return ChannelSMS }

// Notify implements Notifier. The Twilio client does not accept a context, so
// cancellation is not propagated once the call starts.
func (s *SMS) Notify(_ context.Context, msg Message) *Result {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(s.From)
	params.SetBody(SMSBody(msg))

	resp, err := s.API.CreateMessage(params)
	if err != nil {
		return failed(s.Logger, ChannelSMS, msg.To, err)
	}
	if resp == nil || resp.Sid == nil {
		return failed(s.Logger, ChannelSMS, msg.To, errors.New("twilio returned no message sid"))
	}
	s.Logger.Info().Str("to", msg.To).Str("sid", *resp.Sid).Msg("sms_sent")
	obs.Inc(obs.NotificationTotal, ChannelSMS, "sent")
	return &Result{Sent: true, MessageSID: *resp.Sid, To: msg.To}
}

// SMSBody renders the text message for msg.
func SMSBody(msg Message) string {
	return fmt.Sprintf("Payment Link for Invoice %s\n\nAmount: $%s\n\nPay here: %s\n\nThank you!",
		msg.InvoiceNumber, msg.Amount.Fixed2(), msg.PaymentURL)
}
