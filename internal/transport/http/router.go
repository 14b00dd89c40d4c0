package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"barangay/pkg/platform/middleware/auth"
	"barangay/pkg/platform/middleware/device"
	"barangay/pkg/platform/middleware/metadata"
	request "barangay/pkg/platform/middleware/request"
	"barangay/pkg/platform/middleware/requesttime"
	"barangay/pkg/platform/validation"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxBodyBytes   = validation.MaxBodySize
)

// RouteRegistrar mounts a handler's routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Config collects what the router needs. Public routes are mounted without
// authentication; Protected routes require a valid actor token.
type Config struct {
	Logger         *slog.Logger
	Tokens         auth.TokenValidator
	Metrics        *request.Metrics
	MetricsHandler http.Handler
	Public         []RouteRegistrar
	Protected      []RouteRegistrar
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// NewRouter wires all endpoints with the middleware stack. Handlers stay thin
// and delegate to services, so transport concerns remain isolated here.
func NewRouter(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(request.RequestID)
	r.Use(request.Recovery(cfg.Logger))
	r.Use(metadata.NewMiddleware(metadata.DefaultConfig()).Handler)
	r.Use(device.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.LatencyMiddleware(cfg.Metrics))
	r.Use(request.Timeout(cfg.RequestTimeout))
	r.Use(request.BodyLimit(cfg.MaxBodyBytes))
	r.Use(request.ContentTypeJSON)

	for _, h := range cfg.Public {
		h.Register(r)
	}
	r.Handle("/metrics", cfg.MetricsHandler)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireActor(cfg.Tokens, cfg.Logger))
		for _, h := range cfg.Protected {
			h.Register(r)
		}
	})

	return r
}
