package paylink

import (
	"context"
	"fmt"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/mx-paylink/internal/common"
	"github.com/noah-isme/mx-paylink/internal/notify"
	"github.com/noah-isme/mx-paylink/internal/obs"
)

const (
	msgAmountRequired   = "Amount is required"
	msgInvoiceRequired  = "Invoice number is required"
	msgCustomerRequired = "Customer name and email are required"
)

// DeviceResolver yields the Link2Pay device UDID links are issued under.
type DeviceResolver interface {
	Resolve(ctx context.Context) (string, error)
}

type Options struct {
	PaymentPageURL string
	Validator      *validator.Validate
	Logger         zerolog.Logger
	Tracer         trace.Tracer
}

// Service orchestrates payment link creation.
type Service struct {
	devices  DeviceResolver
	sms      notify.Notifier
	email    notify.Notifier
	pageURL  string
	validate *validator.Validate
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewService wires a Service. Nil notifiers are treated as unconfigured.
func NewService(devices DeviceResolver, sms, email notify.Notifier, opts Options) *Service {
	if sms == nil {
		sms = notify.Disabled{Name: notify.ChannelSMS, Logger: opts.Logger}
	}
	if email == nil {
		email = notify.Disabled{Name: notify.ChannelEmail, Logger: opts.Logger}
	}
	if opts.Validator == nil {
		opts.Validator = validator.New(validator.WithRequiredStructEnabled())
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/noah-isme/mx-paylink/internal/paylink")
	}
	return &Service{
		devices:  devices,
		sms:      sms,
		email:    email,
		pageURL:  opts.PaymentPageURL,
		validate: opts.Validator,
		logger:   opts.Logger,
		tracer:   opts.Tracer,
	}
}

// Validate checks req and returns the first failing rule as a validation error.
func (s *Service) Validate(req Request) error {
	if !req.Amount.Positive() {
		return common.ValidationError(msgAmountRequired)
	}
	if err := s.validate.Struct(req.Invoice); err != nil {
		return common.ValidationError(msgInvoiceRequired)
	}
	if err := s.validate.Struct(req.Customer); err != nil {
		return common.ValidationError(msgCustomerRequired)
	}
	return nil
}

// Create validates req, issues the hosted payment URL and notifies the
// customer on every requested channel. Notification failures are reported in
// the result; only validation and device errors are returned.
func (s *Service) Create(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "PaylinkService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.number", req.Invoice.Number))

	if err := s.Validate(req); err != nil {
		obs.Inc(obs.PaylinkCreateTotal, "invalid")
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	udid, err := s.devices.Resolve(ctx)
	if err != nil {
		obs.Inc(obs.PaylinkCreateTotal, "device_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "device resolution failed")
		zerolog.Ctx(ctx).Error().Err(err).Str("invoice", req.Invoice.Number).Msg("paylink_device_failed")
		return nil, fmt.Errorf("resolve device: %w", err)
	}

	memo := Memo(req.Invoice)
	paymentURL := BuildPaymentURL(s.pageURL, udid, req, memo)

	res := &Result{
		PaymentURL: paymentURL,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Invoice:    Invoice{Number: req.Invoice.Number, Description: memo},
		Customer:   req.Customer,
		LineItems:  req.LineItems,
	}
	if res.Currency == "" {
		res.Currency = defaultCurrency
	}
	if res.LineItems == nil {
		res.LineItems = []LineItem{}
	}

	msg := notify.Message{
		CustomerName:  req.Customer.Name,
		PaymentURL:    paymentURL,
		InvoiceNumber: req.Invoice.Number,
		Amount:        req.Amount,
		LineItems:     notifyItems(req.LineItems),
	}
	// Notifications run to completion even if the caller disconnects.
	notifyCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	if req.wantsSMS() {
		g.Go(func() error {
			m := msg
			m.To = req.Customer.Phone
			res.SMS = s.sms.Notify(notifyCtx, m)
			return nil
		})
	}
	if req.wantsEmail() {
		g.Go(func() error {
			m := msg
			m.To = req.Customer.Email
			res.Email = s.email.Notify(notifyCtx, m)
			return nil
		})
	}
	_ = g.Wait()

	res.Message = SummaryMessage(res.SMS, res.Email)
	obs.Inc(obs.PaylinkCreateTotal, "created")
	span.SetAttributes(
		attribute.String("device.udid", udid),
		attribute.Bool("sms.sent", res.SMS != nil && res.SMS.Sent),
		attribute.Bool("email.sent", res.Email != nil && res.Email.Sent),
	)
	s.logger.Info().
		Str("invoice", req.Invoice.Number).
		Str("amount", req.Amount.Fixed2()).
		Bool("sms_attempted", res.SMS != nil).
		Bool("email_attempted", res.Email != nil).
		Msg("paylink_created")
	return res, nil
}
