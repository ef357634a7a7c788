package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mx-paylink/internal/config"
	"github.com/noah-isme/mx-paylink/internal/device"
	"github.com/noah-isme/mx-paylink/internal/health"
	"github.com/noah-isme/mx-paylink/internal/lock"
	"github.com/noah-isme/mx-paylink/internal/mx"
	"github.com/noah-isme/mx-paylink/internal/notify"
	"github.com/noah-isme/mx-paylink/internal/paylink"
	"github.com/noah-isme/mx-paylink/internal/ratelimit"
	"github.com/noah-isme/mx-paylink/internal/resilience"
)

// Dependencies enumerates the services shared by the HTTP surface.
type Dependencies struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Redis     redis.UniversalClient
	Validator *validator.Validate
	Limiter   ratelimit.Allower
	MX        *mx.Client
	Devices   *device.Resolver
	SMS       notify.Notifier
	Email     notify.Notifier
	Paylink   *paylink.Service
	Upstream  *resilience.Monitor
}

const upstreamDegradedAfter = 5

// Options override collaborators, mostly for tests.
type Options struct {
	// Redis is used instead of dialing cfg.RedisURL when set.
	Redis     redis.UniversalClient
	Transport http.RoundTripper
	SMS       notify.Notifier
	Email     notify.Notifier
}

// Build wires every collaborator from cfg.
func Build(cfg *config.Config, logger zerolog.Logger, opts Options) (*Dependencies, error) {
	rdb := opts.Redis
	if rdb == nil && cfg.RedisURL != "" {
		client, err := NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb = client
	}

	monitor := resilience.NewMonitor("mx", upstreamDegradedAfter, logger)
	client := mx.NewClient(mx.Config{
		BaseURL:   cfg.MX.BaseURL,
		APIKey:    cfg.MX.APIKey,
		APISecret: cfg.MX.APISecret,
		Timeout:   cfg.MX.RequestTimeout,
		Monitor:   monitor,
		Transport: opts.Transport,
	})

	devCfg := device.Config{
		MerchantID: cfg.MX.MerchantID,
		SuccessURL: cfg.MX.SuccessURL,
		FailureURL: cfg.MX.FailureURL,
		Logger:     logger,
	}
	if rdb != nil {
		devCfg.Guard = lock.Locker{R: rdb, Prefix: "paylink:lock:"}
	}
	resolver := device.NewResolver(client, devCfg)

	sms := opts.SMS
	if sms == nil {
		sms = notify.NewSMSNotifier(cfg.Twilio, logger)
	}
	email := opts.Email
	if email == nil {
		email = notify.NewEmailNotifier(cfg.SES, logger)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := paylink.NewService(resolver, sms, email, paylink.Options{
		PaymentPageURL: cfg.MX.PaymentPageURL,
		Validator:      validate,
		Logger:         logger,
	})

	return &Dependencies{
		Config:    cfg,
		Logger:    logger,
		Redis:     rdb,
		Validator: validate,
		Limiter:   NewLimiter(rdb),
		MX:        client,
		Devices:   resolver,
		SMS:       sms,
		Email:     email,
		Paylink:   svc,
		Upstream:  monitor,
	}, nil
}

// NewRedis parses url and returns an instrumented client.
func NewRedis(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("instrument redis: %w", err)
	}
	return client, nil
}

// NewLimiter shares counters through Redis when available and falls back to
// per-process counting.
func NewLimiter(rdb redis.UniversalClient) ratelimit.Allower {
	if rdb == nil {
		return ratelimit.NewMemory()
	}
	return ratelimit.SlidingWindow{Client: rdb, Prefix: "paylink:ratelimit:"}
}

// Integrations reports which integrations have complete settings.
func (d *Dependencies) Integrations() health.Integrations {
	return health.Integrations{
		MX:     d.Config.MX.Configured(),
		Twilio: d.Config.Twilio.Configured(),
		SES:    d.Config.SES.Configured(),
	}
}

// PingRedis implements health.Checker.
func (d *Dependencies) PingRedis(ctx context.Context, timeout time.Duration) error {
	if d.Redis == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Redis.Ping(ctx).Err()
}

// Close releases network resources.
func (d *Dependencies) Close() error {
	if d.Redis == nil {
		return nil
	}
	return d.Redis.Close()
}

// LogChannels records which notification channels are live.
func (d *Dependencies) LogChannels() {
	d.Logger.Info().
		Bool("mx_configured", d.Config.MX.Configured()).
		Bool("sms_enabled", d.Config.Twilio.Configured()).
		Bool("email_enabled", d.Config.SES.Configured()).
		Bool("redis_enabled", d.Redis != nil).
		Msg("integrations")
}
