// internal/common/health/server.go
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"afh-workers/internal/common/logger"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Check probes one dependency. A nil error means healthy.
type Check func(ctx context.Context) error

type checkResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

type readyResponse struct {
	Status string                 `json:"status"`
	Time   string                 `json:"time"`
	Checks map[string]checkResult `json:"checks"`
}

// Server exposes /health, /ready and /metrics.
type Server struct {
	version      string
	checks       map[string]Check
	checkTimeout time.Duration
	logger       logger.Logger
	now          func() time.Time
	srv          *http.Server
}

func NewServer(version string, log logger.Logger) *Server {
	return &Server{
		version:      version,
		checks:       map[string]Check{},
		checkTimeout: 3 * time.Second,
		logger:       log.WithFields(map[string]interface{}{"component": "health"}),
		now:          time.Now,
	}
}

// AddCheck registers a readiness probe under name.
func (s *Server) AddCheck(name string, check Check) {
	s.checks[name] = check
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.healthCheck)
	r.Get("/ready", s.readinessCheck)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": s.version,
		"time":    s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.checkTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make(map[string]checkResult, len(names))
	for _, name := range names {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			start := time.Now()
			err := check(ctx)
			res := checkResult{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "down"
				res.Error = err.Error()
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}(name, s.checks[name])
	}
	wg.Wait()

	resp := readyResponse{Status: "ready", Time: s.now().UTC().Format(time.RFC3339), Checks: results}
	code := http.StatusOK
	for _, name := range names {
		if results[name].Status != "up" {
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
			s.logger.Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": results[name].Error,
			})
		}
	}
	writeJSON(w, code, resp)
}

// Start serves on port in the background.
func (s *Server) Start(port int) {
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.logger.Info("health server listening", map[string]interface{}{"port": port})
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("health server failed", map[string]interface{}{"error": err.Error()})
		}
	}()
}

// Shutdown stops the listener started by Start.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
