// Package httpserver exposes Manager.Apply over HTTP for the "serve"
// command: a single POST /apply endpoint plus health and metrics
// endpoints, with the same signal-driven graceful shutdown shape the
// rest of the module's collaborators use for their servers.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/policyai/core/events"
	"github.com/policyai/core/llm"
	"github.com/policyai/core/metrics"
	"github.com/policyai/core/policy"
)

// Config configures Server.
type Config struct {
	ListenAddr     string
	MetricsAddr    string
	ApplyTimeout   time.Duration
	FailOnConflict bool
	ShutdownGrace  time.Duration
}

// Server serves apply requests against one Manager/Completer pair.
type Server struct {
	cfg       Config
	manager   *policy.Manager
	client    llm.Completer
	collector *metrics.Collector
	sink      events.Sink
	logger    *slog.Logger

	httpServer    *http.Server
	metricsServer *http.Server

	mu        sync.Mutex
	isRunning bool
}

// NewServer builds a Server. collector and sink may be metrics.NewCollector
// with enabled=false and events.Noop{} respectively, so serve's config
// flags decide whether they actually record anything.
func NewServer(cfg Config, manager *policy.Manager, client llm.Completer, collector *metrics.Collector, sink events.Sink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, manager: manager, client: client, collector: collector, sink: sink, logger: logger}
}

type applyRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}
	if req.Input == "" {
		http.Error(w, "input is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ApplyTimeout)
	defer cancel()

	start := time.Now()
	report, err := s.manager.Apply(ctx, s.client, req.Input, policy.ApplyOptions{FailOnConflict: s.cfg.FailOnConflict})
	typeName := s.manager.TypeRef().Name

	var applyErr *policy.ApplyError
	if err != nil {
		if errors.As(err, &applyErr) {
			s.collector.RecordApplyError(string(applyErr.Kind))
			http.Error(w, applyErr.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.logger.Error("apply failed", "error", err)
		http.Error(w, "apply failed", http.StatusBadGateway)
		return
	}

	s.collector.RecordApply(typeName, time.Since(start), len(report.Conflicts))
	if err := s.sink.Applied(ctx, typeName, report.MatchedRules, len(report.Conflicts)); err != nil {
		s.logger.Warn("failed to publish applied event", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start starts the apply and metrics servers and blocks until ctx is
// cancelled or an interrupt/TERM signal arrives, then shuts both down.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("httpserver: already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc("/apply", s.handleApply)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpServer = &http.Server{Addr: s.cfg.ListenAddr, Handler: mux}

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info("apply server listening", "addr", s.cfg.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("apply server: %w", err)
		}
	}()

	if s.cfg.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", s.collector.Handler())
		s.metricsServer = &http.Server{Addr: s.cfg.MetricsAddr, Handler: metricsMux}
		go func() {
			s.logger.Info("metrics server listening", "addr", s.cfg.MetricsAddr)
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		return err
	}
	return s.shutdown()
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
	defer cancel()

	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			firstErr = err
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
	return firstErr
}
