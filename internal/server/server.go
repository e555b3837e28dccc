package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"deplog/internal/channel"
	"deplog/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/slack-go/slack/slackevents"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 10 * time.Second
	HTTPIdleTimeout  = 60 * time.Second

	// Request timeout for middleware
	RequestTimeout = 60 * time.Second

	// ShutdownTimeout bounds the graceful shutdown on cancellation
	ShutdownTimeout = 10 * time.Second

	// Per-IP request budgets for the monitoring routes, per minute
	DefaultHealthRateLimit = 120
	DefaultStatusRateLimit = 30
)

// RateLimits sets per-IP budgets, in requests per minute, for the
// monitoring routes. Zero selects the default and a negative value
// disables the limit.
type RateLimits struct {
	Health int
	Status int
}

// StatusSource provides the data behind the status endpoint.
type StatusSource interface {
	Channel() string
	Summary(ctx context.Context, channelID string) (string, *channel.Record, error)
	History(ctx context.Context, channelID, env string, limit int) ([]store.DeploymentRecord, error)
}

// EventDispatcher processes verified Events API payloads.
type EventDispatcher interface {
	Dispatch(ctx context.Context, apiEvent slackevents.EventsAPIEvent) error
}

// Options configures a Server.
type Options struct {
	Status        StatusSource
	Dispatcher    EventDispatcher // nil disables POST /slack/events
	SigningSecret string
	Connected     func() bool // optional socket mode connection state
	OnError       func(error) // called when async event processing fails
	Logger        *slog.Logger
	RateLimits    RateLimits
	TestMode      bool // disables rate limiting
}

// Server represents the HTTP server
type Server struct {
	Status        StatusSource
	Dispatcher    EventDispatcher
	SigningSecret string
	Connected     func() bool
	OnError       func(error)
	Logger        *slog.Logger
	RateLimits    RateLimits
	TestMode      bool
	eventWg       sync.WaitGroup // Tracks in-flight event processing
}

// NewServer creates a new server instance
func NewServer(opts Options) *Server {
	s := &Server{
		Status:        opts.Status,
		Dispatcher:    opts.Dispatcher,
		SigningSecret: opts.SigningSecret,
		Connected:     opts.Connected,
		OnError:       opts.OnError,
		Logger:        opts.Logger,
		RateLimits:    opts.RateLimits,
		TestMode:      opts.TestMode,
	}
	if s.RateLimits.Health == 0 {
		s.RateLimits.Health = DefaultHealthRateLimit
	}
	if s.RateLimits.Status == 0 {
		s.RateLimits.Status = DefaultStatusRateLimit
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.OnError == nil {
		s.OnError = func(err error) {
			s.Logger.Error("Event processing failed", "error", err)
		}
	}
	return s
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(RequestTimeout))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds())
			}()

			next.ServeHTTP(ww, r)
		})
	})

	// Monitoring routes, each with its own per-IP budget
	r.With(s.limitPerIP("health", s.RateLimits.Health)).Get("/health", s.HandleHealth)
	r.With(s.limitPerIP("status", s.RateLimits.Status)).Get("/status/{channel}", s.HandleStatus)

	// Slack retries failed deliveries itself, so the events route is only
	// guarded by signature verification
	if s.Dispatcher != nil {
		r.Post("/slack/events", s.HandleEvents)
	}

	return r
}

// Run serves on host:port until ctx is cancelled, then shuts down
// gracefully and waits for in-flight events.
func (s *Server) Run(ctx context.Context, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.Logger.Info("Starting server", "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: HTTPWriteTimeout,
		IdleTimeout:  HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	s.WaitForEvents()
	return err
}

// WaitForEvents waits for all in-flight event processing to complete.
func (s *Server) WaitForEvents() {
	s.eventWg.Wait()
}
