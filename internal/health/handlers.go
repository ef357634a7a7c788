package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness. The server flips it off when draining.
func SetReady(v bool) { ready.Store(v) }

// Checker probes an optional dependency for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Integrations reports which external channels have settings present. It says
// nothing about live connectivity.
type Integrations struct {
	MX     bool
	Twilio bool
	SES    bool
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Environment  string
	Integrations Integrations
	// Checker is nil when the service runs without Redis.
	Checker      Checker
	RedisTimeout time.Duration
	Now          func() time.Time
}

// Status is the body of GET /api/health.
type Status struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	Environment      string `json:"environment"`
	MXConfigured     bool   `json:"mxConfigured"`
	TwilioConfigured bool   `json:"twilioConfigured"`
	SESConfigured    bool   `json:"sesConfigured"`
}

// Health reports the configured flags for each integration.
func (h Handler) Health(w http.ResponseWriter, _ *http.Request) {
	env := h.Environment
	if env == "" {
		env = "development"
	}
	writeJSON(w, http.StatusOK, Status{
		Status:           "healthy",
		Timestamp:        h.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Environment:      env,
		MXConfigured:     h.Integrations.MX,
		TwilioConfigured: h.Integrations.Twilio,
		SESConfigured:    h.Integrations.SES,
	})
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness. It fails while draining or when a configured Redis
// does not answer.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	if h.Checker != nil {
		status["redis"] = "ok"
		if err := h.Checker.PingRedis(r.Context(), h.redisTimeout()); err != nil {
			status["redis"] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, status)
}

func (h Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
