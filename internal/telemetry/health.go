// Package telemetry exposes run statistics over HTTP and, optionally, MQTT.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/e7canasta/pxpaint/internal/pipeline"
)

// SnapshotProvider is implemented by *pipeline.Pipeline.
type SnapshotProvider interface {
	Snapshot() pipeline.Snapshot
}

// HealthStatus represents the health state of the painter
type HealthStatus struct {
	Status        string  `json:"status"` // "healthy", "degraded", "unhealthy"
	RunID         string  `json:"run_id"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	WorkersTotal  int     `json:"workers_total"`
	Cycles        uint64  `json:"cycles"`
	MQTTEnabled   bool    `json:"mqtt_enabled"`
	MQTTConnected bool    `json:"mqtt_connected"`
}

// Server serves /health, /readiness and /stats.
type Server struct {
	provider SnapshotProvider
	started  time.Time

	mu       sync.RWMutex
	mqtt     *MQTTPublisher
	srv      *http.Server
	listener net.Listener
}

// NewServer creates a health server for provider.
func NewServer(provider SnapshotProvider) *Server {
	return &Server{
		provider: provider,
		started:  time.Now(),
	}
}

// SetMQTT makes readiness report the publisher's connection state.
func (s *Server) SetMQTT(p *MQTTPublisher) {
	s.mu.Lock()
	s.mqtt = p
	s.mu.Unlock()
}

// HealthCheck returns the current health status
func (s *Server) HealthCheck() HealthStatus {
	snap := s.provider.Snapshot()

	status := HealthStatus{
		Status:        "healthy",
		RunID:         snap.RunID,
		UptimeSeconds: snap.UptimeSeconds,
		WorkersTotal:  len(snap.Workers),
		Cycles:        snap.Cycles,
	}

	s.mu.RLock()
	if s.mqtt != nil {
		status.MQTTEnabled = true
		status.MQTTConnected = s.mqtt.IsConnected()
	}
	s.mu.RUnlock()

	switch {
	case !snap.Running:
		status.Status = "unhealthy"
	case status.MQTTEnabled && !status.MQTTConnected:
		status.Status = "degraded"
	}

	return status
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.livenessHandler)
	mux.HandleFunc("/readiness", s.readinessHandler)
	mux.HandleFunc("/stats", s.statsHandler)
	return mux
}

// livenessHandler returns 200 while the process is alive
func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "alive",
		"uptime": int64(time.Since(s.started).Seconds()),
	})
}

// readinessHandler returns 503 until the pipeline is running
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.HealthCheck()

	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.provider.Snapshot())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("telemetry: response write failed", "error", err)
	}
}

// Start listens on addr and serves in the background.
// Bind errors are returned immediately.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("telemetry: listen %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.mu.Lock()
	s.srv = srv
	s.listener = ln
	s.mu.Unlock()

	slog.Info("telemetry: health server started",
		"addr", ln.Addr().String(),
		"endpoints", []string{"/health", "/readiness", "/stats"},
	)

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("telemetry: health server failed", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.srv
	s.mu.RUnlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
