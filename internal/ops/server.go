// Package ops exposes the engine's operational HTTP surface: liveness,
// Prometheus metrics and read-only run history.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/remedystack/remedy-engine/internal/config"
	"github.com/remedystack/remedy-engine/internal/history"
)

// Server wraps the HTTP listener and lifecycle helpers.
type Server struct {
	cfg        config.OpsConfig
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// NewServer constructs a server bound to the configured address. store may
// be nil; the history endpoints then answer 404.
func NewServer(cfg config.OpsConfig, store *history.Store, registry *prometheus.Registry, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	var handler http.Handler
	if registry != nil {
		handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	} else {
		handler = promhttp.Handler()
	}
	mux.Handle("/metrics", handler)

	runs := &runsHandler{store: store, logger: logger}
	mux.Handle("/api/v1/runs", runs)
	mux.Handle("/api/v1/runs/", runs)

	return &Server{
		cfg:        cfg,
		httpServer: &http.Server{Handler: mux},
		listener:   lis,
		logger:     logger,
	}, nil
}

// Start serves requests until Shutdown is invoked.
func (s *Server) Start() error {
	if s.httpServer == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown attempts a graceful shutdown, falling back to Close after the
// configured timeout.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, closing", slog.Any("error", err))
		s.httpServer.Close()
	}
}

// Address exposes the bound listener address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GracefulTimeout returns the configured graceful timeout duration.
func (s *Server) GracefulTimeout() time.Duration {
	return s.cfg.GracefulTimeout
}

type runsHandler struct {
	store  *history.Store
	logger *slog.Logger
}

func (h *runsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.store == nil {
		http.Error(w, "run history disabled", http.StatusNotFound)
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/api/v1/runs")
	runID = strings.Trim(runID, "/")
	if runID == "" {
		h.list(w, r)
		return
	}
	h.get(w, r, runID)
}

func (h *runsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	summaries, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("list runs failed", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"runs": summaries})
}

func (h *runsHandler) get(w http.ResponseWriter, r *http.Request, runID string) {
	report, err := h.store.GetReport(r.Context(), runID)
	if errors.Is(err, history.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("load run failed", slog.String("run_id", runID), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, report)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
