// internal/monitoring/server.go
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/valpere/klresults/internal/utils"
)

// Controller is the run surface exposed over HTTP.
type Controller interface {
	// TriggerRun starts a run in the background. It returns false when a
	// run is already in progress.
	TriggerRun() bool
	// Status returns a JSON-encodable snapshot of the last run.
	Status() any
}

// ServerConfig configures the status server
type ServerConfig struct {
	Listen string
	// Token, when set, is required as a bearer token on POST /run.
	Token string
}

// Server serves health, metrics and run control
type Server struct {
	config  ServerConfig
	metrics *MetricsManager
	health  *HealthManager
	control Controller
	logger  utils.Logger
	srv     *http.Server
}

// NewServer creates the status server
func NewServer(config ServerConfig, metrics *MetricsManager, health *HealthManager, control Controller, logger utils.Logger) *Server {
	if config.Listen == "" {
		config.Listen = ":9090"
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if health == nil {
		health = NewHealthManager(0)
	}
	s := &Server{config: config, metrics: metrics, health: health, control: control, logger: logger}
	s.srv = &http.Server{
		Addr:              config.Listen,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the router
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.MetricsHandler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)

	run := http.Handler(http.HandlerFunc(s.runHandler))
	run = rateLimitMiddleware(run)
	if s.config.Token != "" {
		run = authMiddleware(s.config.Token, run)
	}
	r.Handle("/run", run).Methods(http.MethodPost)

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("status server listening on %s", s.config.Listen)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.health.Check(r.Context())
	code := http.StatusOK
	if health.Status == HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func (s *Server) statusHandler(w http.ResponseWriter, _ *http.Request) {
	if s.control == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "idle"})
		return
	}
	writeJSON(w, http.StatusOK, s.control.Status())
}

func (s *Server) runHandler(w http.ResponseWriter, _ *http.Request) {
	if s.control == nil {
		http.Error(w, "run control not configured", http.StatusNotImplemented)
		return
	}
	if !s.control.TriggerRun() {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "busy"})
		return
	}
	s.logger.Info("run triggered over HTTP")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func authMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || strings.TrimPrefix(authHeader, "Bearer ") != token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimitMiddleware(next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Every(time.Second), 3)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
