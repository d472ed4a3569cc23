// Package server exposes the diff, rewrite, and redline operations over HTTP as JSON endpoints for a document add-in or other remote callers.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codalotl/redline/internal/redline"
	"github.com/codalotl/redline/internal/rewrite"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 4 << 20

type Options struct {
	Addr           string
	AllowOrigin    string            // Access-Control-Allow-Origin; empty means "*"
	Rewriter       *rewrite.Rewriter // nil makes /api/rewrite fail with 500
	Redline        redline.Options   // Logger and Metrics are filled in by New when nil
	Registry       *prom.Registry    // nil means a new registry
	Logger         *slog.Logger      // nil discards logs
	RequestTimeout time.Duration     // 0 means 2 minutes
}

// Server serves the JSON API.
type Server struct {
	Addr     string
	router   *chi.Mux
	server   *http.Server
	opts     Options
	logger   *slog.Logger
	registry *prom.Registry
	requests *prom.CounterVec
}

// New builds a Server and registers its metrics (and the redline metrics, unless opts.Redline.Metrics is set) with opts.Registry.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Registry == nil {
		opts.Registry = prom.NewRegistry()
	}
	if opts.AllowOrigin == "" {
		opts.AllowOrigin = "*"
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 2 * time.Minute
	}
	if opts.Redline.Logger == nil {
		opts.Redline.Logger = opts.Logger
	}
	if opts.Redline.Metrics == nil {
		opts.Redline.Metrics = redline.NewMetrics(opts.Registry)
	}

	s := &Server{
		Addr:     opts.Addr,
		router:   chi.NewRouter(),
		opts:     opts,
		logger:   opts.Logger,
		registry: opts.Registry,
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "redline",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
	s.registry.MustRegister(s.requests)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.cors)
	s.router.Use(middleware.Timeout(s.opts.RequestTimeout))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	s.router.Post("/api/diff", s.handleDiff)
	s.router.Post("/api/rewrite", s.handleRewrite)
	s.router.Post("/api/redline", s.handleRedline)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.Addr)
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// cors mirrors the add-in backend's headers and answers preflight requests.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.opts.AllowOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		s.logger.Info("http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
