// Package debughttp provides the satellite's debug/status HTTP surface:
// liveness and readiness probes plus a human-readable status snapshot and
// Swagger UI, adapted from the daemon's original bare health-check server.
package debughttp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// StatusSource reports a live snapshot of the satellite for /status. Its
// fields are read under the satellite's own locking, not this package's.
type StatusSource interface {
	Status() Status
}

// Status is the JSON body served at /status.
type Status struct {
	Mode          string `json:"mode"`
	Connected     bool   `json:"connected"`
	Streaming     bool   `json:"streaming"`
	WakeComponent string `json:"wake_component,omitempty"`
}

// Server is a lightweight HTTP server exposing /healthz, /readyz, /status,
// and a Swagger UI for the swag annotations on the /status handler.
type Server struct {
	port   int
	ready  atomic.Bool
	status StatusSource
	server *http.Server
}

// New creates a new debug HTTP server. status may be nil, in which case
// /status reports 503 until SetStatusSource is called.
func New(port int, status StatusSource) *Server {
	return &Server{port: port, status: status}
}

// SetReady marks the daemon as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// SetStatusSource wires the live status snapshot provider.
func (s *Server) SetStatusSource(status StatusSource) {
	s.status = status
}

// ListenAndServe starts the debug HTTP server. It blocks until the context
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// @Summary     Satellite status snapshot
	// @Description Returns the active mode, connection state, and streaming state.
	// @Produce     json
	// @Success     200  {object}  Status
	// @Failure     503  {string}  string  "status source not yet wired"
	// @Router      /status [get]
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		if s.status == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.status.Status())
	})

	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("debug http server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("debug http server: %w", err)
	}
	return nil
}
