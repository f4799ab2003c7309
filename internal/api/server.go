// Package api is the HTTP adapter over a Decider. It translates requests into
// Choose calls and decider errors into status codes; it makes no decisions.
package api

import (
	"net/http"
	"time"

	"github.com/TimurManjosov/godecider/internal/decider"
	"github.com/TimurManjosov/godecider/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

type Server struct {
	decider        *decider.Decider
	log            zerolog.Logger
	metrics        *telemetry.Metrics
	rateLimitPerIP int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for exposure events and dropped context keys.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithMetrics instruments every route.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRateLimit limits each client IP to n requests per minute. 0 disables limiting.
func WithRateLimit(n int) Option {
	return func(s *Server) { s.rateLimitPerIP = n }
}

func NewServer(d *decider.Decider, opts ...Option) *Server {
	s := &Server{decider: d, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(s.metrics.Middleware)

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		if s.rateLimitPerIP > 0 {
			r.Use(httprate.Limit(s.rateLimitPerIP, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(RateLimitedError),
			))
		}

		r.Post("/choose", s.handleChoose)
		r.Post("/choose/all", s.handleChooseAll)
		r.Post("/expose", s.handleExpose)
		r.Get("/features", s.handleListFeatures)
		r.Get("/features/{name}", s.handleGetFeature)
		r.Get("/dynamic", s.handleDynamicConfigs)
		r.Get("/dynamic/{name}", s.handleDynamicConfig)
	})

	return r
}
