package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/noah-isme/mx-paylink/internal/common"
	"github.com/noah-isme/mx-paylink/internal/health"
	"github.com/noah-isme/mx-paylink/internal/obs"
	"github.com/noah-isme/mx-paylink/internal/paylink"
	"github.com/noah-isme/mx-paylink/internal/ratelimit"
	"github.com/noah-isme/mx-paylink/internal/security"
)

// RouterOptions toggles the observability surface.
type RouterOptions struct {
	Tracing        bool
	Metrics        *obs.HTTPMetrics
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// Pprof is mounted at /debug/pprof when set.
	Pprof          http.Handler
	Headers        security.Headers
}

type notFoundBody struct {
	Error string `json:"error"`
	Path  string `json:"path"`
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusNotFound, notFoundBody{Error: "Route not found", Path: r.URL.Path})
}

// NewRouter builds the HTTP surface over deps.
func NewRouter(deps *Dependencies, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if opts.Tracing {
		r.Use(obs.Tracing())
	}
	if opts.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: deps.Logger}.Middleware)
	r.Use(obs.Recoverer{Logger: deps.Logger}.Middleware)
	r.Use(security.CORS(deps.Config.CORSAllowedOrigins))
	r.Use(opts.Headers.Middleware)
	r.Use(security.BodyLimit{Max: deps.Config.BodyLimitBytes}.Middleware)

	r.NotFound(routeNotFound)
	r.MethodNotAllowed(routeNotFound)

	if opts.MetricsHandler != nil {
		r.Handle("/metrics", opts.MetricsHandler)
	}
	if opts.Pprof != nil {
		r.Mount("/debug/pprof", opts.Pprof)
	}

	healthHandler := health.Handler{
		Environment:  deps.Config.AppEnv,
		Integrations: deps.Integrations(),
	}
	if deps.Redis != nil {
		healthHandler.Checker = deps
	}
	r.Get("/", healthHandler.Root)
	r.Get("/api/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	limit := ratelimit.Handler{
		Limiter: deps.Limiter,
		Config: ratelimit.Config{
			Key:    ratelimit.ClientIP,
			Window: time.Minute,
			Max:    deps.Config.RateLimitCreatePerMin,
		},
		OnError: func(err error) {
			deps.Logger.Warn().Err(err).Msg("rate_limiter_unavailable")
		},
	}
	payments := &paylink.Handler{
		Svc:         deps.Paylink,
		Payments:    deps.MX,
		CreateLimit: limit.Middleware,
	}
	r.Route("/api/payments", payments.Routes)

	return r
}
