// Package device keeps the process-wide Link2Pay device slot.
package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/mx-paylink/internal/mx"
	"github.com/noah-isme/mx-paylink/internal/obs"
)

const (
	deviceDescription = "Hosted payment page for API"
	lockTTL           = 30 * time.Second
	resolveTimeout    = 2 * lockTTL
)

// API is the subset of the checkout client used for device provisioning.
type API interface {
	ListDevices(ctx context.Context, merchantID, deviceType string) ([]mx.Device, error)
	CreateDevice(ctx context.Context, req mx.DeviceRequest) (mx.Device, error)
}

// Guard serialises provisioning across processes.
type Guard interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Config configures a Resolver.
type Config struct {
	MerchantID string
	SuccessURL string
	FailureURL string
	// Guard is optional. Without it only in-process deduplication applies.
	Guard  Guard
	Now    func() time.Time
	Logger zerolog.Logger
}

// Resolver is a single-slot cache for the Link2Pay device UDID. Once a UDID is
// stored it is returned for the rest of the process lifetime without being
// re-validated. Concurrent first calls share one resolution.
type Resolver struct {
	api        API
	merchantID string
	successURL string
	failureURL string
	guard      Guard
	now        func() time.Time
	logger     zerolog.Logger

	mu    sync.RWMutex
	udid  string
	group singleflight.Group
}

// NewResolver builds an empty Resolver.
func NewResolver(api API, cfg Config) *Resolver {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Resolver{
		api:        api,
		merchantID: strings.TrimSpace(cfg.MerchantID),
		successURL: cfg.SuccessURL,
		failureURL: cfg.FailureURL,
		guard:      cfg.Guard,
		now:        now,
		logger:     cfg.Logger,
	}
}

// Cached returns the stored UDID, if any.
func (r *Resolver) Cached() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.udid, r.udid != ""
}

// Resolve returns the cached UDID or looks one up, creating a device when the
// merchant has no enabled Link2Pay device. Errors leave the slot empty.
// The shared lookup does not inherit cancellation from the caller that started
// it. Each caller stops waiting when its own ctx ends.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	if udid, ok := r.Cached(); ok {
		obs.Inc(obs.DeviceResolveTotal, "cache")
		return udid, nil
	}
	ch := r.group.DoChan("udid", func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resolveTimeout)
		defer cancel()
		return r.resolveShared(flightCtx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (r *Resolver) resolveShared(ctx context.Context) (string, error) {
	if udid, ok := r.Cached(); ok {
		return udid, nil
	}
	udid, err := r.guarded(ctx)
	if err != nil {
		obs.Inc(obs.DeviceResolveTotal, "error")
		return "", err
	}
	r.mu.Lock()
	r.udid = udid
	r.mu.Unlock()
	return udid, nil
}

// guarded runs the lookup under the cross-process guard. When the guard itself
// fails the lookup still runs in-process.
func (r *Resolver) guarded(ctx context.Context) (string, error) {
	if r.guard == nil {
		return r.lookupOrCreate(ctx)
	}
	var (
		udid string
		ran  bool
	)
	err := r.guard.WithLock(ctx, "device:"+r.merchantID, lockTTL, func(ctx context.Context) error {
		ran = true
		var err error
		udid, err = r.lookupOrCreate(ctx)
		return err
	})
	if ran || ctx.Err() != nil {
		return udid, err
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("device_lock_unavailable")
	}
	return r.lookupOrCreate(ctx)
}

func (r *Resolver) lookupOrCreate(ctx context.Context) (string, error) {
	devices, err := r.api.ListDevices(ctx, r.merchantID, mx.DeviceTypeLink2Pay)
	if err != nil {
		return "", fmt.Errorf("list devices: %w", err)
	}
	if device, ok := FirstEnabled(devices); ok {
		obs.Inc(obs.DeviceResolveTotal, "existing")
		r.logger.Info().Str("udid", device.UDID).Msg("device_reused")
		return device.UDID, nil
	}

	merchantNum, err := strconv.ParseInt(r.merchantID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("merchant id %q is not numeric: %w", r.merchantID, err)
	}
	created, err := r.api.CreateDevice(ctx, mx.DeviceRequest{
		Name:         fmt.Sprintf("Payment Link API %d", r.now().UnixMilli()),
		Description:  deviceDescription,
		DeviceType:   mx.DeviceTypeLink2Pay,
		MerchantID:   merchantNum,
		Enabled:      true,
		OnSuccessURL: r.successURL,
		OnFailureURL: r.failureURL,
	})
	if err != nil {
		return "", fmt.Errorf("create device: %w", err)
	}
	obs.Inc(obs.DeviceResolveTotal, "created")
	r.logger.Info().Str("udid", created.UDID).Msg("device_created")
	return created.UDID, nil
}

// FirstEnabled picks the first enabled Link2Pay device in list order.
func FirstEnabled(devices []mx.Device) (mx.Device, bool) {
	for _, d := range devices {
		if d.Enabled && d.DeviceType == mx.DeviceTypeLink2Pay && d.UDID != "" {
			return d, true
		}
	}
	return mx.Device{}, false
}
