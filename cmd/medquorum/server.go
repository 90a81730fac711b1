package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/api/handlers"
	"github.com/BaSui01/medquorum/config"
	"github.com/BaSui01/medquorum/deliberation"
	"github.com/BaSui01/medquorum/internal/metrics"
	"github.com/BaSui01/medquorum/internal/telemetry"
	"github.com/BaSui01/medquorum/llm"
	"github.com/BaSui01/medquorum/llm/providers/openaicompat"
	"github.com/BaSui01/medquorum/panel"
	"github.com/BaSui01/medquorum/recovery"
	"github.com/BaSui01/medquorum/session"
)

// Server wires the engine together and owns the HTTP surfaces.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	otelProviders *telemetry.Providers
	collector     *metrics.Collector

	store        *session.Store
	orchestrator *deliberation.Orchestrator

	healthHandler *handlers.HealthHandler
	apiHandler    *handlers.DeliberationHandler

	httpServer    *http.Server
	metricsServer *http.Server
}

// NewServer creates a Server from configuration.
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:           cfg,
		logger:        logger,
		otelProviders: otelProviders,
	}
}

// Start builds the engine and launches the HTTP and metrics servers.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("medquorum", nil, s.logger)

	s.initEngine()
	s.initHandlers()

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)
	return nil
}

// initEngine builds the deliberation pipeline: provider, recovery, the
// expert panel, and the orchestrator.
func (s *Server) initEngine() {
	s.store = session.NewStore(s.logger)

	var provider llm.Provider = openaicompat.New(openaicompat.Config{
		BaseURL: s.cfg.LLM.BaseURL,
		APIKey:  s.cfg.LLM.APIKey,
		Model:   s.cfg.LLM.Model,
		Timeout: s.cfg.LLM.Timeout,
	}, s.logger)
	provider = llm.NewRateLimitedProvider(provider, s.cfg.LLM.RateLimitRPS, s.cfg.LLM.RateLimitBurst, s.logger)

	recCfg := recovery.Config{
		Timeout:     s.cfg.LLM.Timeout,
		Model:       s.cfg.LLM.Model,
		MaxTokens:   s.cfg.LLM.MaxTokens,
		Temperature: s.cfg.LLM.Temperature,
	}
	rec := recovery.New(provider, recCfg, s.collector, s.logger)

	experts := make([]panel.Expert, 0, s.cfg.Panel.Size)
	for i := 1; i <= s.cfg.Panel.Size; i++ {
		id := fmt.Sprintf("expert-%d", i)
		experts = append(experts, panel.NewLLMExpert(id, rec, s.logger))
	}

	coordCfg := panel.Config{PanelSize: s.cfg.Panel.Size, Parallel: s.cfg.Panel.Parallel}
	coordinator := panel.NewCoordinator(coordCfg, experts, s.store, s.collector, s.logger)
	supervisor := panel.NewSupervisor(rec, s.store, s.cfg.Panel.Size, s.logger)

	orchCfg := deliberation.Config{
		MaxRounds:       s.cfg.Panel.MaxRounds,
		StopOnConsensus: s.cfg.Panel.StopOnConsensus,
	}
	s.orchestrator = deliberation.New(orchCfg, s.store, coordinator, supervisor, s.collector, s.logger)
}

func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.apiHandler = handlers.NewDeliberationHandler(s.orchestrator, s.store, s.logger)
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	mux.HandleFunc("/healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	s.apiHandler.Register(mux)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		Handler:     mux,
		ReadTimeout: s.cfg.Server.ReadTimeout,
	}

	go func() {
		if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("metrics server error", zap.Error(err))
		}
	}()
	return nil
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then drains both servers
// and flushes telemetry within the configured shutdown timeout.
func (s *Server) WaitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	s.logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	if err := s.metricsServer.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics server shutdown error", zap.Error(err))
	}
	if err := s.otelProviders.Shutdown(ctx); err != nil {
		s.logger.Warn("telemetry shutdown error", zap.Error(err))
	}
}
