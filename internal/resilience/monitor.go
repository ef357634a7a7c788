// Package resilience tracks the health of outbound dependencies. Nothing here
// refuses or retries a call: every request reaches the upstream and its
// response is returned untouched.
package resilience

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var (
	upstreamFailureStreak = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "upstream_failure_streak",
		Help: "Consecutive failed calls per upstream.",
	}, []string{"target"})
	upstreamDegraded = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "upstream_degraded",
		Help: "1 while an upstream has failed at least the configured number of calls in a row.",
	}, []string{"target"})
	upstreamOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_call_total",
		Help: "Outbound calls by upstream and outcome.",
	}, []string{"target", "outcome"})
)

// RegisterMetrics registers the monitor collectors with reg. Collectors that
// are already registered are reused.
func RegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	upstreamFailureStreak = reuse(reg, upstreamFailureStreak)
	upstreamDegraded = reuse(reg, upstreamDegraded)
	upstreamOutcomes = reuse(reg, upstreamOutcomes)
}

func reuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// Monitor counts consecutive failures of one upstream and logs when it turns
// degraded or recovers.
type Monitor struct {
	target    string
	threshold int
	logger    zerolog.Logger

	mu       sync.Mutex
	streak   int
	degraded bool
}

// NewMonitor builds a Monitor that reports the upstream degraded after
// threshold failures in a row.
func NewMonitor(target string, threshold int, logger zerolog.Logger) *Monitor {
	target = strings.TrimSpace(target)
	if target == "" {
		target = "default"
	}
	if threshold <= 0 {
		threshold = 5
	}
	return &Monitor{target: target, threshold: threshold, logger: logger}
}

// Record stores the outcome of one call.
func (m *Monitor) Record(ctx context.Context, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	upstreamOutcomes.WithLabelValues(m.target, outcome).Inc()

	m.mu.Lock()
	if success {
		m.streak = 0
	} else {
		m.streak++
	}
	streak := m.streak
	was := m.degraded
	m.degraded = streak >= m.threshold
	now := m.degraded
	m.mu.Unlock()

	upstreamFailureStreak.WithLabelValues(m.target).Set(float64(streak))
	if was == now {
		return
	}
	gauge := 0.0
	msg := "upstream_recovered"
	if now {
		gauge = 1
		msg = "upstream_degraded"
	}
	upstreamDegraded.WithLabelValues(m.target).Set(gauge)

	evt := m.loggerFor(ctx).Warn().Str("target", m.target).Int("failure_streak", streak)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg(msg)
}

// Degraded reports whether the latest calls all failed.
func (m *Monitor) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// Streak returns the current number of consecutive failures.
func (m *Monitor) Streak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streak
}

func (m *Monitor) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &m.logger
}
