// Package mx talks to the MX Merchant checkout REST API.
package mx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/mx-paylink/internal/obs"
	"github.com/noah-isme/mx-paylink/internal/resilience"
)

// DeviceTypeLink2Pay is the only device type this service provisions or accepts.
const DeviceTypeLink2Pay = "Link2Pay"

const maxErrorBody = 64 << 10

// Device is a processor-side device record.
type Device struct {
	UDID       string `json:"UDID"`
	Name       string `json:"name,omitempty"`
	Enabled    bool   `json:"enabled"`
	DeviceType string `json:"deviceType"`
}

// DeviceRequest is the body of a create-device call.
type DeviceRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DeviceType   string `json:"deviceType"`
	MerchantID   int64  `json:"merchantId"`
	Enabled      bool   `json:"enabled"`
	OnSuccessURL string `json:"onSuccessUrl"`
	OnFailureURL string `json:"onFailureUrl"`
}

// Config carries the settings needed to build a Client.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	// Monitor records call outcomes. It never blocks a call.
	Monitor   *resilience.Monitor
	Transport http.RoundTripper
}

// Client is an authenticated checkout API client. Every call is attempted once.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      resilience.HTTPClient
}

// NewClient builds a Client. A nil Transport uses an OpenTelemetry-instrumented
// default transport.
func NewClient(cfg Config) *Client {
	transport := cfg.Transport
	if transport == nil {
		transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		http: resilience.HTTPClient{
			Client:  &http.Client{Transport: transport},
			Monitor: cfg.Monitor,
			Timeout: cfg.Timeout,
		},
	}
}

// ListDevices returns the merchant's devices of the given type in the order
// the API returned them.
func (c *Client) ListDevices(ctx context.Context, merchantID, deviceType string) ([]Device, error) {
	q := url.Values{}
	q.Set("merchantId", merchantID)
	q.Set("deviceType", deviceType)
	raw, err := c.do(ctx, "list_devices", http.MethodGet, "/device", q, nil)
	if err != nil {
		return nil, err
	}
	return decodeDevices(raw)
}

// CreateDevice provisions a device and returns the echoed record.
func (c *Client) CreateDevice(ctx context.Context, req DeviceRequest) (Device, error) {
	q := url.Values{}
	q.Set("echo", "true")
	raw, err := c.do(ctx, "create_device", http.MethodPost, "/device", q, req)
	if err != nil {
		return Device{}, err
	}
	var device Device
	if err := json.Unmarshal(raw, &device); err != nil {
		return Device{}, fmt.Errorf("mx: decode created device: %w", err)
	}
	if strings.TrimSpace(device.UDID) == "" {
		return Device{}, errors.New("mx: created device has no UDID")
	}
	return device, nil
}

// GetPayment returns the raw payment payload.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (json.RawMessage, error) {
	return c.do(ctx, "get_payment", http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, nil)
}

// ListPayments returns the raw payments page.
func (c *Client) ListPayments(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return c.do(ctx, "list_payments", http.MethodGet, "/payments", q, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) (json.RawMessage, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("mx: encode %s: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("mx: build %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		observe(op, "error", start)
		return nil, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()
	observe(op, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newStatusError(op, resp.StatusCode, data)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("null")
	}
	return json.RawMessage(data), nil
}

func decodeDevices(raw json.RawMessage) ([]Device, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var devices []Device
		if err := json.Unmarshal(trimmed, &devices); err != nil {
			return nil, fmt.Errorf("mx: decode devices: %w", err)
		}
		return devices, nil
	}
	var page struct {
		Records []Device `json:"records"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("mx: decode devices: %w", err)
	}
	return page.Records, nil
}

func observe(op, status string, start time.Time) {
	if obs.UpstreamLatency == nil {
		return
	}
	obs.UpstreamLatency.WithLabelValues(op, status).Observe(obs.DurationMillis(time.Since(start)))
}
