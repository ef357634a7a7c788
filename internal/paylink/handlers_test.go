package paylink_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mx-paylink/internal/device"
	"github.com/noah-isme/mx-paylink/internal/mx"
	"github.com/noah-isme/mx-paylink/internal/notify"
	"github.com/noah-isme/mx-paylink/internal/paylink"
)

type fakeMX struct {
	lists   atomic.Int32
	creates atomic.Int32
	devices string
	status  int
}

func (f *fakeMX) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"message":"Merchant not found"}`)
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/device":
		f.lists.Add(1)
		_, _ = io.WriteString(w, f.devices)
	case r.Method == http.MethodPost && r.URL.Path == "/device":
		f.creates.Add(1)
		_, _ = io.WriteString(w, `{"UDID":"new-udid","enabled":true,"deviceType":"Link2Pay"}`)
	case r.Method == http.MethodGet && r.URL.Path == "/payments":
		_, _ = io.WriteString(w, `{"recordCount":1,"limit":`+r.URL.Query().Get("limit")+`,"offset":`+r.URL.Query().Get("offset")+`}`)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/payments/"):
		if r.URL.Path == "/payments/missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Payment not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"`+strings.TrimPrefix(r.URL.Path, "/payments/")+`","status":"Approved"}`)
	default:
		http.NotFound(w, r)
	}
}

func newRouter(t *testing.T, upstream *fakeMX, sms, email notify.Notifier) http.Handler {
	t.Helper()
	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	client := mx.NewClient(mx.Config{
		BaseURL:   srv.URL,
		APIKey:    "key",
		APISecret: "secret",
		Timeout:   time.Second,
		Transport: http.DefaultTransport,
	})
	resolver := device.NewResolver(client, device.Config{MerchantID: "1000"})
	svc := paylink.NewService(resolver, sms, email, paylink.Options{
		PaymentPageURL: "https://pay.example",
		Logger:         zerolog.Nop(),
	})
	h := &paylink.Handler{Svc: svc, Payments: client}
	r := chi.NewRouter()
	r.Route("/api/payments", h.Routes)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestCreateEndToEndWithoutChannels(t *testing.T) {
	upstream := &fakeMX{devices: `[]`}
	h := newRouter(t, upstream, nil, nil)

	body := `{"amount":150,"invoice":{"number":"INV-1"},"customer":{"name":"John","email":"j@x.com"}}`
	rec, out := do(t, h, http.MethodPost, "/api/payments/create", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, out["success"])

	data := out["data"].(map[string]any)
	require.Equal(t, "https://pay.example/Link2Pay/new-udid?Amt=150.00&InvoiceNo=INV-1&CustomerName=John&CustomerEmail=j%40x.com&Memo=Payment+for+INV-1", data["paymentUrl"])
	require.Equal(t, float64(150), data["amount"])
	require.Equal(t, "USD", data["currency"])
	require.Nil(t, data["sms"])
	require.Equal(t, map[string]any{"sent": false, "reason": "not configured"}, data["email"])
	require.Equal(t, []any{}, data["lineItems"])
	require.True(t, strings.HasSuffix(data["message"].(string), "Redirect customer to paymentUrl to complete payment"))

	// The created device is reused by later requests.
	rec, _ = do(t, h, http.MethodPost, "/api/payments/create", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int32(1), upstream.lists.Load())
	require.Equal(t, int32(1), upstream.creates.Load())
}

func TestCreateReusesExistingDevice(t *testing.T) {
	upstream := &fakeMX{devices: `[{"UDID":"old","enabled":false,"deviceType":"Link2Pay"},{"UDID":"live","enabled":true,"deviceType":"Link2Pay"}]`}
	h := newRouter(t, upstream, nil, nil)

	body := `{"amount":"20","invoice":{"number":"INV-2"},"customer":{"name":"Ann","email":"a@x.com"},"lineItems":[{"description":"A","amount":5},{"description":"B","amount":15,"quantity":3}]}`
	rec, out := do(t, h, http.MethodPost, "/api/payments/create", body)
	require.Equal(t, http.StatusOK, rec.Code)
	url := out["data"].(map[string]any)["paymentUrl"].(string)
	require.True(t, strings.HasPrefix(url, "https://pay.example/Link2Pay/live?Amt=20.00&"))
	require.True(t, strings.HasSuffix(url, "&Item1Description=A&Item1Amount=5.00&Item2Description=B&Item2Amount=15.00&Item2Quantity=3"))
	require.Equal(t, int32(0), upstream.creates.Load())
}

func TestCreateValidationErrors(t *testing.T) {
	h := newRouter(t, &fakeMX{devices: `[]`}, nil, nil)
	cases := []struct {
		body string
		want string
	}{
		{`{"invoice":{"number":"1"},"customer":{"name":"a","email":"b"}}`, "Amount is required"},
		{`{"amount":"abc","invoice":{"number":"1"},"customer":{"name":"a","email":"b"}}`, "Amount is required"},
		{`{"amount":5,"customer":{"name":"a","email":"b"}}`, "Invoice number is required"},
		{`{"amount":5,"invoice":{"number":"1"},"customer":{"name":"a"}}`, "Customer name and email are required"},
		{`{"amount":5,"invoice":{"number":"1"}}`, "Customer name and email are required"},
	}
	for _, tc := range cases {
		rec, out := do(t, h, http.MethodPost, "/api/payments/create", tc.body)
		require.Equal(t, http.StatusBadRequest, rec.Code, tc.body)
		require.Equal(t, map[string]any{"success": false, "error": tc.want}, out)
	}
}

func TestCreateMalformedBody(t *testing.T) {
	h := newRouter(t, &fakeMX{devices: `[]`}, nil, nil)
	rec, out := do(t, h, http.MethodPost, "/api/payments/create", `{"amount":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid request body", out["error"])
}

func TestCreateUpstreamFailureMirrorsStatus(t *testing.T) {
	h := newRouter(t, &fakeMX{status: http.StatusUnauthorized}, nil, nil)
	body := `{"amount":150,"invoice":{"number":"INV-1"},"customer":{"name":"John","email":"j@x.com"}}`
	rec, out := do(t, h, http.MethodPost, "/api/payments/create", body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, false, out["success"])
	require.Equal(t, "Merchant not found", out["error"])
	require.Equal(t, map[string]any{"message": "Merchant not found"}, out["details"])
}

func TestPaymentPassthrough(t *testing.T) {
	h := newRouter(t, &fakeMX{}, nil, nil)

	rec, out := do(t, h, http.MethodGet, "/api/payments/p-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"id": "p-9", "status": "Approved"}, out["data"])

	rec, out = do(t, h, http.MethodGet, "/api/payments/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Payment not found", out["error"])

	rec, out = do(t, h, http.MethodGet, "/api/payments", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(10), out["data"].(map[string]any)["limit"])
	require.Equal(t, float64(0), out["data"].(map[string]any)["offset"])

	rec, out = do(t, h, http.MethodGet, "/api/payments?limit=25&offset=50", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(25), out["data"].(map[string]any)["limit"])
	require.Equal(t, float64(50), out["data"].(map[string]any)["offset"])
}

func TestListFailureUsesFallbackMessage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(upstream.Close)
	client := mx.NewClient(mx.Config{BaseURL: upstream.URL, Transport: http.DefaultTransport})
	r := chi.NewRouter()
	r.Route("/api/payments", (&paylink.Handler{Payments: client}).Routes)

	rec, out := do(t, r, http.MethodGet, "/api/payments", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "Failed to retrieve payments", out["error"])
}
