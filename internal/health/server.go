// Package health provides HTTP endpoints for liveness, readiness, pass status
// and Prometheus metrics.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gitlab.bluewillows.net/root/dnsshift/internal/reconciler"
)

// Health status values.
const (
	StatusReady    = "ready"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"
)

// HealthChecker is a function that checks the health of a component.
// Returns an error if the component is unhealthy.
type HealthChecker func(ctx context.Context) error

// DegradedChecker reports whether a component is functional but not fully
// healthy, with a message explaining why.
type DegradedChecker func(ctx context.Context) (degraded bool, message string)

// PassReporter exposes the outcome of the most recent reconciliation pass.
type PassReporter interface {
	LastResult() (*reconciler.Result, error)
}

// HealthStatus represents the health status of a component.
type HealthStatus struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// DegradedStatus represents a degraded component.
type DegradedStatus struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Response represents a health check response.
type Response struct {
	Status     string           `json:"status"`
	Components []HealthStatus   `json:"components,omitempty"`
	Degraded   []DegradedStatus `json:"degraded,omitempty"`
}

// PassStatus is the /status view of the last reconciliation pass.
type PassStatus struct {
	Status           string    `json:"status"`
	Desired          string    `json:"desired,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	DurationSeconds  float64   `json:"duration_seconds"`
	DryRun           bool      `json:"dry_run"`
	DeclaredUpdated  int       `json:"declared_updated"`
	DiscoveryUpdated int       `json:"discovery_updated"`
	DiscoverySkipped bool      `json:"discovery_skipped"`
	Skipped          int       `json:"skipped"`
	Failed           []string  `json:"failed,omitempty"`
	Error            string    `json:"error,omitempty"`
}

// Server provides /health, /ready, /status and /metrics endpoints.
type Server struct {
	port    int
	mux     *http.ServeMux
	server  *http.Server
	logger  *slog.Logger
	timeout time.Duration

	mu               sync.RWMutex
	checkers         map[string]HealthChecker
	degradedCheckers map[string]DegradedChecker
	passes           PassReporter
}

// Option is a functional option for configuring the Server.
type Option func(*Server)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTimeout sets the timeout for health checks.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.timeout = timeout
	}
}

// New creates a new health server on the specified port.
func New(port int, opts ...Option) *Server {
	s := &Server{
		port:             port,
		mux:              http.NewServeMux(),
		logger:           slog.Default(),
		timeout:          5 * time.Second,
		checkers:         make(map[string]HealthChecker),
		degradedCheckers: make(map[string]DegradedChecker),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// RegisterChecker adds a health checker for the /ready endpoint.
func (s *Server) RegisterChecker(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
	s.logger.Debug("registered health checker", slog.String("name", name))
}

// RegisterDegradedChecker adds a degraded state checker for the /ready endpoint.
func (s *Server) RegisterDegradedChecker(name string, checker DegradedChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degradedCheckers[name] = checker
	s.logger.Debug("registered degraded checker", slog.String("name", name))
}

// WatchPasses reports the last pass on /status and marks /ready degraded
// while the last pass failed or had failed units.
func (s *Server) WatchPasses(reporter PassReporter) {
	s.mu.Lock()
	s.passes = reporter
	s.mu.Unlock()

	s.RegisterDegradedChecker("reconciler", func(context.Context) (bool, string) {
		result, err := reporter.LastResult()
		switch {
		case err != nil:
			return true, "last pass failed: " + err.Error()
		case result != nil && result.HasErrors():
			return true, fmt.Sprintf("last pass had %d failed unit(s)", result.FailedCount())
		default:
			return false, ""
		}
	})
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	checkers := make(map[string]HealthChecker, len(s.checkers))
	for name, checker := range s.checkers {
		checkers[name] = checker
	}
	degradedCheckers := make(map[string]DegradedChecker, len(s.degradedCheckers))
	for name, checker := range s.degradedCheckers {
		degradedCheckers[name] = checker
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	var components []HealthStatus
	var degradedList []DegradedStatus
	allHealthy := true

	for _, name := range sortedKeys(checkers) {
		status := HealthStatus{Name: name, Healthy: true}
		if err := checkers[name](ctx); err != nil {
			status.Healthy = false
			status.Error = err.Error()
			allHealthy = false
			s.logger.Warn("health check failed",
				slog.String("component", name),
				slog.String("error", err.Error()),
			)
		}
		components = append(components, status)
	}

	for _, name := range sortedKeys(degradedCheckers) {
		if degraded, message := degradedCheckers[name](ctx); degraded {
			degradedList = append(degradedList, DegradedStatus{Name: name, Message: message})
			s.logger.Debug("degraded state detected",
				slog.String("component", name),
				slog.String("message", message),
			)
		}
	}

	resp := Response{Components: components, Degraded: degradedList}
	code := http.StatusOK
	switch {
	case !allHealthy:
		resp.Status = StatusNotReady
		code = http.StatusServiceUnavailable
	case len(degradedList) > 0:
		// Still functional, so 200.
		resp.Status = StatusDegraded
	default:
		resp.Status = StatusReady
	}

	writeJSON(w, code, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	reporter := s.passes
	s.mu.RUnlock()

	if reporter == nil {
		writeJSON(w, http.StatusNotFound, PassStatus{Status: "unknown"})
		return
	}

	result, err := reporter.LastResult()
	status := PassStatus{Status: "pending"}

	if result != nil {
		status = PassStatus{
			Status:           "ok",
			Desired:          result.Desired,
			StartedAt:        result.StartTime,
			DurationSeconds:  result.Duration().Seconds(),
			DryRun:           result.DryRun,
			DeclaredUpdated:  result.Declared.UpdatedCount(),
			DiscoveryUpdated: result.Discovery.UpdatedCount(),
			DiscoverySkipped: result.DiscoverySkipped(),
			Skipped:          result.SkippedCount(),
		}
		for _, u := range result.Failures() {
			status.Failed = append(status.Failed, u.Name)
		}
		if len(status.Failed) > 0 {
			status.Status = StatusDegraded
		}
	}
	if err != nil {
		status.Status = "error"
		status.Error = err.Error()
	}

	writeJSON(w, http.StatusOK, status)
}

// Start binds the port and serves in a goroutine.
// Bind errors are returned immediately.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("health server listen: %w", err)
	}

	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.logger.Info("health server starting", slog.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("health server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
