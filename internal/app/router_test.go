package app_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mx-paylink/internal/app"
	"github.com/noah-isme/mx-paylink/internal/config"
	"github.com/noah-isme/mx-paylink/internal/ratelimit"
)

const createBody = `{"amount":150,"invoice":{"number":"INV-1"},"customer":{"name":"John","email":"j@x.com"}}`

func newMXServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/device":
			_, _ = io.WriteString(w, `[{"UDID":"dev-1","enabled":true,"deviceType":"Link2Pay"}]`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"not here"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(mxURL string) *config.Config {
	return &config.Config{
		AppEnv:                "test",
		BodyLimitBytes:        1 << 20,
		RateLimitCreatePerMin: 30,
		MX: config.MX{
			APIKey:         "key",
			APISecret:      "secret",
			MerchantID:     "1000",
			BaseURL:        mxURL,
			PaymentPageURL: "https://pay.example",
			RequestTimeout: time.Second,
		},
	}
}

func newApp(t *testing.T, cfg *config.Config, opts app.Options) (*app.Dependencies, http.Handler) {
	t.Helper()
	opts.Transport = http.DefaultTransport
	deps, err := app.Build(cfg, zerolog.Nop(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })
	return deps, app.NewRouter(deps, app.RouterOptions{})
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.10:4000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	_, h := newApp(t, testConfig(newMXServer(t).URL), app.Options{})
	rr := serve(h, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error":"Route not found","path":"/nope"}`, rr.Body.String())

	rr = serve(h, http.MethodDelete, "/api/health", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error":"Route not found","path":"/api/health"}`, rr.Body.String())
}

func TestPanicsBecomeGeneric500(t *testing.T) {
	_, h := newApp(t, testConfig(newMXServer(t).URL), app.Options{})
	h.(*chi.Mux).Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	rr := serve(h, http.MethodGet, "/boom", "")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.JSONEq(t, `{"error":"Something went wrong!","message":"kaboom"}`, rr.Body.String())
}

func TestHealthAndDescriptor(t *testing.T) {
	_, h := newApp(t, testConfig(newMXServer(t).URL), app.Options{})

	rr := serve(h, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, "test", body["environment"])
	require.Equal(t, true, body["mxConfigured"])
	require.Equal(t, false, body["twilioConfigured"])
	require.Equal(t, false, body["sesConfigured"])

	rr = serve(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Hosted Payment Links")
}

func TestCreateThroughFullStack(t *testing.T) {
	_, h := newApp(t, testConfig(newMXServer(t).URL), app.Options{})

	rr := serve(h, http.MethodPost, "/api/payments/create", createBody)
	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Success bool `json:"success"`
		Data    struct {
			PaymentURL string          `json:"paymentUrl"`
			SMS        json.RawMessage `json:"sms"`
			Email      json.RawMessage `json:"email"`
			Message    string          `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.True(t, out.Success)
	require.True(t, strings.HasPrefix(out.Data.PaymentURL, "https://pay.example/Link2Pay/dev-1?Amt=150.00&"))
	require.JSONEq(t, `null`, string(out.Data.SMS))
	require.JSONEq(t, `{"sent":false,"reason":"not configured"}`, string(out.Data.Email))
	require.Equal(t, "Payment link created. Redirect customer to paymentUrl to complete payment", out.Data.Message)
}

func TestPassthroughMirrorsUpstream(t *testing.T) {
	_, h := newApp(t, testConfig(newMXServer(t).URL), app.Options{})
	rr := serve(h, http.MethodGet, "/api/payments/123", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"success":false,"error":"not here","details":{"message":"not here"}}`, rr.Body.String())
}

func TestCreateKeepsReachingFailingUpstream(t *testing.T) {
	var hits atomic.Int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"Processor unavailable"}`)
	}))
	t.Cleanup(upstream.Close)
	cfg := testConfig(upstream.URL)
	cfg.RateLimitCreatePerMin = 0
	deps, h := newApp(t, cfg, app.Options{})

	const attempts = 12
	for i := 0; i < attempts; i++ {
		rr := serve(h, http.MethodPost, "/api/payments/create", createBody)
		require.Equal(t, http.StatusInternalServerError, rr.Code)
		require.JSONEq(t, `{"success":false,"error":"Processor unavailable","details":{"message":"Processor unavailable"}}`, rr.Body.String())
	}
	require.Equal(t, int32(attempts), hits.Load())
	require.True(t, deps.Upstream.Degraded())
	_, cached := deps.Devices.Cached()
	require.False(t, cached)
}

func TestCreateIsRateLimited(t *testing.T) {
	cfg := testConfig(newMXServer(t).URL)
	cfg.RateLimitCreatePerMin = 1
	_, h := newApp(t, cfg, app.Options{})

	require.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/api/payments/create", createBody).Code)
	rr := serve(h, http.MethodPost, "/api/payments/create", createBody)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.JSONEq(t, `{"success":false,"error":"Rate limit exceeded"}`, rr.Body.String())

	// Passthrough reads are not limited.
	require.Equal(t, http.StatusNotFound, serve(h, http.MethodGet, "/api/payments/1", "").Code)
}

func TestBodyLimitApplies(t *testing.T) {
	cfg := testConfig(newMXServer(t).URL)
	cfg.BodyLimitBytes = 16
	_, h := newApp(t, cfg, app.Options{})
	rr := serve(h, http.MethodPost, "/api/payments/create", createBody)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestRedisBackedDependencies(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	deps, h := newApp(t, testConfig(newMXServer(t).URL), app.Options{Redis: client})
	_, ok := deps.Limiter.(ratelimit.SlidingWindow)
	require.True(t, ok)

	rr := serve(h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, http.StatusOK, serve(h, http.MethodPost, "/api/payments/create", createBody).Code)

	mr.Close()
	rr = serve(h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestBuildRejectsBadRedisURL(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.RedisURL = "not a url"
	_, err := app.Build(cfg, zerolog.Nop(), app.Options{})
	require.Error(t, err)
}
