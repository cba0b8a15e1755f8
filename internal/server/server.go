// Package server hosts the HTTP side of corrgate: a gorilla/mux router whose
// middleware chain gives every request a correlation identifier, a correlated
// logger, a single access-log line and Prometheus metrics, plus a handful of
// demonstration endpoints including an HTTP→Kafka publish bridge that
// propagates the identifier into message headers.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/corrgate/internal/auth"
	"github.com/corrgate/internal/correlation"
)

// maxBodyBytes is the maximum request body size accepted by the echo and
// publish handlers (1 MiB).
const maxBodyBytes = 1 << 20

// publishTimeout is the per-request deadline for broker publish calls.
const publishTimeout = 10 * time.Second

// Publisher is the interface the server requires from a message publisher.
// It returns the correlation identifier stamped on the outgoing message.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) (string, error)
	IsConnected() bool
	Close()
}

// Server is the HTTP host for the correlation middleware chain.
type Server struct {
	httpServer *http.Server
	publisher  Publisher // nil when no broker is configured
	auth       *auth.MultiAuth
	logger     *zap.Logger
	accessLog  *correlation.AccessLogger
	metrics    *Metrics
	limiter    *rate.Limiter
	header     string
}

// Config holds all dependencies and configuration needed to build a Server.
type Config struct {
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	CorrelationHeader string
	RateLimit         float64 // requests per second, 0 disables
	RateBurst         int
	Publisher         Publisher
	Auth              *auth.MultiAuth
	Logger            *zap.Logger
}

// ErrorResponse is the JSON body returned on errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// New constructs and configures the HTTP server.
func New(cfg Config) *Server {
	header := cfg.CorrelationHeader
	if header == "" {
		header = correlation.DefaultHeader
	}

	authenticator := cfg.Auth
	if authenticator == nil {
		authenticator = auth.NewMultiAuth(nil, nil)
	}

	s := &Server{
		publisher: cfg.Publisher,
		auth:      authenticator,
		logger:    cfg.Logger,
		accessLog: correlation.NewAccessLogger(cfg.Logger),
		metrics:   NewMetrics(),
		header:    header,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	router := mux.NewRouter()

	// Outermost to innermost. The correlation middleware is last so its
	// Prepare step runs after every upstream stage and right before the
	// handler.
	router.Use(s.accessLogMiddleware)
	if s.limiter != nil {
		router.Use(s.rateLimitMiddleware)
	}
	router.Use(s.correlationMiddleware)

	// mux runs Use middleware only for matched routes, so unmatched paths
	// and disallowed methods get the same chain explicitly. Without this,
	// 404 and 405 responses would carry no correlation header and emit no
	// access-log line.
	router.NotFoundHandler = s.chain(http.HandlerFunc(s.notFoundHandler))
	router.MethodNotAllowedHandler = s.chain(http.HandlerFunc(s.methodNotAllowedHandler))

	router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/ready", s.readyHandler).Methods(http.MethodGet)
	router.HandleFunc("/status/{code:[0-9]+}", s.statusHandler).Methods(http.MethodGet)
	router.HandleFunc("/echo", s.echoHandler).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/publish/{topic}", s.publishHandler).Methods(http.MethodPost)
	router.Handle("/metrics", s.requireAuth(s.metrics.Handler())).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// chain applies the same middleware stack mux applies to matched routes,
// outermost first.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.correlationMiddleware(h)
	if s.limiter != nil {
		h = s.rateLimitMiddleware(h)
	}
	return s.accessLogMiddleware(h)
}

// Handler exposes the fully assembled middleware chain and routes.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("addr", s.httpServer.Addr),
		zap.String("correlation_header", s.header),
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "not_found", "no route matches the requested path")
}

func (s *Server) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed for this route")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.publisher != nil && !s.publisher.IsConnected() {
		s.writeError(w, http.StatusServiceUnavailable, "not_ready", "broker not available")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// statusHandler responds with the requested status code, which makes the
// error-path header behavior observable from the outside.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(mux.Vars(r)["code"])
	if err != nil || code < 100 || code > 599 {
		s.writeError(w, http.StatusBadRequest, "invalid_status", "status code must be between 100 and 599")
		return
	}

	if code >= 400 {
		log := correlation.LoggerFromContext(r.Context())
		log.Warn("returning error status", zap.Int("status", code))
	}

	w.WriteHeader(code)
	fmt.Fprintf(w, "status %d", code)
}

// echoHandler reports the request back to the caller together with the
// correlation identifier in effect.
func (s *Server) echoHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBodyBytes))
			return
		}
		s.writeError(w, http.StatusBadRequest, "read_error", "failed to read request body")
		return
	}
	defer r.Body.Close()

	id := ""
	if p, ok := correlation.FromContext(r.Context()); ok {
		id = p.ID()
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"method":         r.Method,
		"path":           r.URL.Path,
		"correlation_id": id,
		"body":           string(body),
	})
}

// publishHandler bridges an HTTP request onto the broker, carrying the
// request's correlation identifier along in the message headers.
func (s *Server) publishHandler(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authenticate(r) {
		s.writeUnauthorized(w, r)
		return
	}

	if s.publisher == nil {
		s.writeError(w, http.StatusServiceUnavailable, "publishing_disabled", "no broker configured")
		return
	}

	topic := mux.Vars(r)["topic"]
	if topic == "" || strings.Contains(topic, "/") {
		s.writeError(w, http.StatusBadRequest, "invalid_topic", "topic name must be a single path segment")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "body_too_large",
				fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBodyBytes))
			return
		}
		s.writeError(w, http.StatusBadRequest, "read_error", "failed to read request body")
		return
	}
	defer r.Body.Close()

	if len(body) == 0 {
		s.writeError(w, http.StatusBadRequest, "empty_body", "request body cannot be empty")
		return
	}

	headers := make(map[string]string)
	if p, ok := correlation.FromContext(r.Context()); ok {
		// Hand the HTTP request's identifier to the broker side so the
		// message property matches the response header.
		headers[p.Header()] = p.ID()
	}

	publishCtx, cancel := context.WithTimeout(r.Context(), publishTimeout)
	defer cancel()

	log := correlation.LoggerFromContext(r.Context())

	id, err := s.publisher.Publish(publishCtx, topic, nil, body, headers)
	if err != nil {
		log.Error("failed to publish message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		s.writeError(w, http.StatusInternalServerError, "publish_error", "failed to publish message")
		return
	}

	log.Info("message published",
		zap.String("topic", topic),
		zap.Int("size", len(body)),
	)

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":         "accepted",
		"topic":          topic,
		"correlation_id": id,
	})
}

// requireAuth guards a handler with the configured authenticator.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Authenticate(r) {
			s.writeUnauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeUnauthorized sends a 401 with the correct WWW-Authenticate header
// (RFC 7235), choosing the challenge from the request's Authorization scheme.
func (s *Server) writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)

	scheme := ""
	if len(parts) >= 1 {
		scheme = strings.ToLower(parts[0])
	}

	switch scheme {
	case "bearer":
		w.Header().Set("WWW-Authenticate", `Bearer realm="corrgate"`)
	default:
		w.Header().Set("WWW-Authenticate", `Basic realm="corrgate"`)
	}
	s.writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing credentials")
}

func (s *Server) writeError(w http.ResponseWriter, code int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
