package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"git.home.luguber.info/inful/larder/internal/calendar"
	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/logfields"
	"git.home.luguber.info/inful/larder/internal/monitor"
)

// HTTPServer exposes the daemon's admin surface: health, inventory and
// statistics reads, manual triggers, and Prometheus metrics.
type HTTPServer struct {
	addr     string
	service  *Service
	monitor  *monitor.Monitor
	registry *prom.Registry
	daemon   *Daemon

	server *http.Server
}

func NewHTTPServer(addr string, d *Daemon) *HTTPServer {
	return &HTTPServer{
		addr:     addr,
		service:  d.service,
		monitor:  d.monitor,
		registry: d.registry,
		daemon:   d,
	}
}

// Start binds the port and begins serving. Binding happens up front so a
// taken port fails startup instead of logging asynchronously.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "bind admin port").
			WithContext("addr", s.addr).Build()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/items", s.handleItems)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/trend", s.handleTrend)
	mux.HandleFunc("/api/check", s.handleCheck)
	mux.HandleFunc("/api/sweep", s.handleSweep)
	mux.HandleFunc("/api/status", s.handleStatus)
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Admin server error", logfields.Error(err))
		}
	}()

	slog.Info("Admin server started", slog.String("addr", s.addr))
	return nil
}

// Stop gracefully shuts down the server.
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	if err := s.server.Shutdown(ctx); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "admin server shutdown").Build()
	}
	slog.Info("Admin server stopped")
	return nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.daemon.StartTime()).Round(time.Second).String(),
	})
}

func (s *HTTPServer) handleItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	items, err := s.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tf, ok := timeframeParam(w, r)
	if !ok {
		return
	}
	summary, err := s.service.Stats(r.Context(), tf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *HTTPServer) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	tf, ok := timeframeParam(w, r)
	if !ok {
		return
	}
	points, err := s.service.Trend(r.Context(), tf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeframe": tf, "points": points})
}

func (s *HTTPServer) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.monitor == nil {
		http.Error(w, "monitor not running", http.StatusServiceUnavailable)
		return
	}
	changes, err := s.monitor.CheckNow(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changes": changes, "count": len(changes)})
}

func (s *HTTPServer) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	deleted, err := s.service.Sweep(r.Context(), "manual")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.daemon.Status())
}

func timeframeParam(w http.ResponseWriter, r *http.Request) (calendar.Timeframe, bool) {
	raw := r.URL.Query().Get("timeframe")
	if raw == "" {
		return calendar.TimeframeAll, true
	}
	tf := calendar.Timeframe(raw)
	if !tf.Valid() {
		http.Error(w, "unknown timeframe", http.StatusBadRequest)
		return "", false
	}
	return tf, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", logfields.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if ferrors.GetCategory(err) == ferrors.CategoryNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
