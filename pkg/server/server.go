package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ledgerworks/closeflow/pkg/closeops"
	"github.com/ledgerworks/closeflow/pkg/engine"
)

// maxRequestBytes caps the size of an invocation envelope.
const maxRequestBytes = 1 << 20

// Handler runs one invocation envelope.
type Handler interface {
	Handle(ctx context.Context, req *closeops.Request) *closeops.Response
}

// HealthChecker reports whether the backing store is usable.
type HealthChecker func(ctx context.Context) error

// Config holds server configuration
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Log            zerolog.Logger
	Handler        Handler
	Health         HealthChecker
	Metrics        http.Handler
}

// Server exposes the close operations over HTTP.
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	handler Handler
	health  HealthChecker
	metrics http.Handler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		handler: cfg.Handler,
		health:  cfg.Health,
		metrics: cfg.Metrics,
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s.setupMiddleware(cfg.AllowedOrigins, timeout)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Router returns the request router.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware(origins []string, timeout time.Duration) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(timeout))

	if len(origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/operations", s.handleListOperations)
		r.Post("/operations", s.handleInvoke)
	})
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListOperations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"operations": closeops.Operations})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	req, err := closeops.ReadRequest(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		resp := closeops.Failure(err)
		writeJSON(w, statusFor(resp), resp)
		return
	}

	// Store addressing comes from server configuration only.
	if req.APIURL != "" || req.APIToken != "" {
		s.log.Warn().Str("remote_addr", r.RemoteAddr).Msg("Rejected envelope carrying store settings")
		resp := closeops.Failure(engine.NewValidationError(
			"api_url and api_token are not accepted by the server; it uses its configured store", nil))
		writeJSON(w, statusFor(resp), resp)
		return
	}

	resp := s.handler.Handle(r.Context(), req)
	writeJSON(w, statusFor(resp), resp)
}

// statusFor maps an envelope error type onto an HTTP status.
func statusFor(resp *closeops.Response) int {
	if !resp.Failed() {
		return http.StatusOK
	}
	switch engine.ErrorClass(resp.Type) {
	case engine.ErrorClassValidation:
		return http.StatusBadRequest
	case engine.ErrorClassNotFound:
		return http.StatusNotFound
	case engine.ErrorClassExecution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
