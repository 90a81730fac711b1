// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthCheck is one registered dependency probe.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler serves liveness and readiness endpoints.
type HealthHandler struct {
	logger *zap.Logger
	mu     sync.RWMutex
	checks []HealthCheck
}

// HealthStatus is the health endpoint response body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is one probe's outcome.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// NewHealthHandler creates a HealthHandler with no registered checks.
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{logger: logger, checks: make([]HealthCheck, 0)}
}

// RegisterCheck adds a dependency probe.
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, check)
}

// HandleHealth serves GET /health: liveness only, always 200 while the
// process responds.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// HandleReady serves GET /ready: runs every registered probe and degrades
// the status when any fails.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make([]HealthCheck, len(h.checks))
	copy(checks, h.checks)
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}
	httpStatus := http.StatusOK

	for _, check := range checks {
		start := time.Now()
		err := check.Check(ctx)
		result := CheckResult{Status: "pass", Latency: time.Since(start).String()}
		if err != nil {
			result.Status = "fail"
			result.Message = err.Error()
			status.Status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			h.logger.Warn("health check failed",
				zap.String("check", check.Name()),
				zap.Error(err))
		}
		status.Checks[check.Name()] = result
	}

	WriteJSON(w, httpStatus, status)
}

// HandleVersion serves GET /version.
func (h *HealthHandler) HandleVersion(version, buildTime, gitCommit string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"version":    version,
			"build_time": buildTime,
			"git_commit": gitCommit,
		})
	}
}
