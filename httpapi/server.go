package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	ordernotify "github.com/goliatone/go-order-notify"
	"github.com/goliatone/go-order-notify/core"
)

type Option func(*Server)

func WithLogger(logger glog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithErrorMapper(mapper core.ErrorMapper) Option {
	return func(s *Server) {
		if mapper != nil {
			s.mapError = mapper
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, origin := range origins {
			if origin = strings.TrimSpace(origin); origin != "" {
				s.allowedOrigins = append(s.allowedOrigins, origin)
			}
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// Server exposes the operational routes over a command/query facade.
type Server struct {
	facade         *ordernotify.Facade
	serviceName    string
	logger         glog.Logger
	mapError       core.ErrorMapper
	allowedOrigins []string
	now            func() time.Time
	startedAt      time.Time
	pid            int
}

func NewServer(facade *ordernotify.Facade, serviceName string, opts ...Option) *Server {
	s := &Server{
		facade:      facade,
		serviceName: strings.TrimSpace(serviceName),
		logger:      glog.Nop(),
		mapError:    core.MapError,
		now:         func() time.Time { return time.Now().UTC() },
		pid:         os.Getpid(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.startedAt = s.now()
	return s
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	if len(s.allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}
	RegisterRoutes(r, s)
	return r
}

func RegisterRoutes(r chi.Router, s *Server) {
	r.Get("/", s.rootHandler)
	r.Get("/ping", pingHandler)
	r.Get("/health", s.healthHandler)
	r.Get("/status", s.statusHandler)
	r.Get("/logs", s.logsHandler)
	r.Get("/orders/{id}", s.orderHandler)
	r.Post("/check-now", s.checkNowHandler)
	r.Post("/process-queue", s.processQueueHandler)
	r.Post("/test-whatsapp", s.testMessageHandler)
	r.Post("/cleanup", s.cleanupHandler)
}

// Serve listens on addr until ctx ends, then drains in-flight requests for
// at most shutdownTimeout.
func (s *Server) Serve(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		startedAt := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info(r.Method+" "+r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Success  bool   `json:"success"`
	Error    string `json:"error"`
	TextCode string `json:"text_code"`
}

// writeError answers 400 or 404 for caller mistakes and 500 for everything
// else.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	mapped := s.mapError(err)
	if mapped == nil {
		mapped = goerrors.New(err.Error(), goerrors.CategoryInternal).WithTextCode(core.ErrorInternal)
	}
	status := http.StatusInternalServerError
	switch mapped.TextCode {
	case core.ErrorBadInput:
		status = http.StatusBadRequest
	case core.ErrorNotFound:
		status = http.StatusNotFound
	}
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"text_code", mapped.TextCode,
		"error", err.Error(),
	)
	writeJSON(w, status, errorBody{Error: err.Error(), TextCode: mapped.TextCode})
}

func parseLimit(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return limit, true
}
