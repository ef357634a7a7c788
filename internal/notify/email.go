package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/mx-paylink/internal/obs"
)

const charsetUTF8 = "UTF-8"

// SESAPI is the subset of the SES client used to send mail.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Email sends payment links through Amazon SES.
type Email struct {
	API    SESAPI
	From   string
	Logger zerolog.Logger
}

// NewSESEmail builds an Email notifier with static credentials.
func NewSESEmail(accessKeyID, secretAccessKey, region, from string, logger zerolog.Logger) *Email {
	client := ses.New(ses.Options{
		Region:      region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
		HTTPClient:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	})
	return &Email{API: client, From: from, Logger: logger}
}

// Channel implements Notifier.
func (e *Email) Channel() string { return ChannelEmail }

// Notify implements Notifier.
func (e *Email) Notify(ctx context.Context, msg Message) *Result {
	html, text, err := RenderEmail(msg)
	if err != nil {
		return failed(e.Logger, ChannelEmail, msg.To, fmt.Errorf("render email: %w", err))
	}

	out, err := e.API.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(e.From),
		Destination: &types.Destination{ToAddresses: []string{msg.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(EmailSubject(msg.InvoiceNumber)), Charset: aws.String(charsetUTF8)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html), Charset: aws.String(charsetUTF8)},
				Text: &types.Content{Data: aws.String(text), Charset: aws.String(charsetUTF8)},
			},
		},
	})
	if err != nil {
		return failed(e.Logger, ChannelEmail, msg.To, err)
	}
	if out == nil || out.MessageId == nil {
		return failed(e.Logger, ChannelEmail, msg.To, errors.New("ses returned no message id"))
	}
	e.Logger.Info().Str("to", msg.To).Str("message_id", *out.MessageId).Msg("email_sent")
	obs.Inc(obs.NotificationTotal, ChannelEmail, "sent")
	return &Result{Sent: true, MessageID: *out.MessageId, To: msg.To}
}
