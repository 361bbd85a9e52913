package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/fanpulse/fanpulse/internal/application"
)

// Server is the read-only scoring API.
type Server struct {
	router *mux.Router
	server *http.Server
	config application.ServerConfig
}

// NewServer creates the HTTP server over the scoring service.
func NewServer(config application.ServerConfig, service *application.ScoringService, health *HealthHandler) *Server {
	router := mux.NewRouter()
	handlers := NewHandlers(service)

	s := &Server{
		router: router,
		config: config,
	}
	s.setupRoutes(handlers, health)

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// setupRoutes wires all endpoints and middleware.
func (s *Server) setupRoutes(h *Handlers, health *HealthHandler) {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.HandleFunc("/health", health.Health).Methods("GET")

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(jsonContentTypeMiddleware)

	api.HandleFunc("/artists/{id}/fvs/latest", h.LatestFVS).Methods("GET")
	api.HandleFunc("/artists/{id}/fvs/history", h.FVSHistory).Methods("GET")
	api.HandleFunc("/artists/{id}/momentum/latest", h.LatestMomentum).Methods("GET")
	api.HandleFunc("/artists/{id}/momentum/history", h.MomentumHistory).Methods("GET")
	api.HandleFunc("/artists/{id}/breakout", h.Breakout).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(notFound)
}

// requestIDMiddleware tags every request with a short id.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLoggingMiddleware logs each request with its status and duration.
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Debug().
			Str("request_id", requestID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Start runs the server until it errors or Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.config.Addr).Msg("http server starting")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}

// Router exposes the mux for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// responseWrapper captures the status code for logging.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
