// Package api serves backtest results over HTTP for dashboards and scripts.
// Read-only: every endpoint is a GET backed by the storage layer.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/storage"
	"github.com/jhyeon-dev/coinwatch/internal/types"
)

// Default and maximum page sizes for list endpoints.
const (
	DefaultRunsLimit   = 50
	DefaultTradesLimit = 200
	MaxLimit           = 1000
)

// Server exposes stored backtest runs over a REST API.
type Server struct {
	storage    storage.Storage
	logger     *logger.Logger
	httpServer *http.Server
}

// NewServer creates a report server listening on addr once started.
func NewServer(addr string, store storage.Storage, log *logger.Logger) *Server {
	s := &Server{
		storage: store,
		logger:  log,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/runs", s.handleListRuns).Methods("GET")
	router.HandleFunc("/api/runs/{id}", s.handleGetRun).Methods("GET")
	router.HandleFunc("/api/runs/{id}/trades", s.handleListTrades).Methods("GET")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called. Blocks; returns nil on clean
// shutdown.
func (s *Server) Start() error {
	s.logger.Info("report API listening", zap.String("addr", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, DefaultRunsLimit)

	runs, err := s.storage.ListBacktestRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []types.BacktestRun{}
	}

	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := s.storage.GetBacktestRun(r.Context(), runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if run.IsNone() {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}

	s.writeJSON(w, http.StatusOK, run.Unwrap())
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := s.storage.GetBacktestRun(r.Context(), runID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if run.IsNone() {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}

	trades, err := s.storage.ListBacktestTrades(r.Context(), runID, parseLimit(r, DefaultTradesLimit))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if trades == nil {
		trades = []types.Trade{}
	}

	s.writeJSON(w, http.StatusOK, trades)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > MaxLimit {
		return MaxLimit
	}

	return limit
}
