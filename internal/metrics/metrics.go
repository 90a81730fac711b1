// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the engine's Prometheus metrics. A nil *Collector is
// valid and drops every observation, so components can run unmetered.
type Collector struct {
	sessionsStarted prometheus.Counter
	roundsTotal     *prometheus.CounterVec
	roundDuration   prometheus.Histogram

	generationRequests *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec

	recoveryContinuations *prometheus.CounterVec
	recoveryFallbacks     *prometheus.CounterVec

	consensusSignals *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers the engine metrics on reg. Passing nil uses the
// default registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.sessionsStarted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_started_total",
		Help:      "Deliberation sessions started.",
	})

	c.roundsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_total",
		Help:      "Deliberation rounds completed, by outcome.",
	}, []string{"outcome"})

	c.roundDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "round_duration_seconds",
		Help:      "Wall-clock duration of a full deliberation round.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	c.generationRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_requests_total",
		Help:      "Generation backend calls, by provider and status.",
	}, []string{"provider", "status"})

	c.generationDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "Generation backend call latency.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"provider"})

	c.recoveryContinuations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recovery_continuations_total",
		Help:      "Truncation continuation requests issued, by target contract.",
	}, []string{"target"})

	c.recoveryFallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recovery_fallbacks_total",
		Help:      "Fallback substitutions applied, by target contract.",
	}, []string{"target"})

	c.consensusSignals = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consensus_rounds_total",
		Help:      "Rounds where consensus was detected, by signal.",
	}, []string{"signal"})

	return c
}

// SessionStarted counts a new deliberation session.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsStarted.Inc()
}

// RoundCompleted records one finished round.
func (c *Collector) RoundCompleted(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.roundsTotal.WithLabelValues(outcome).Inc()
	c.roundDuration.Observe(d.Seconds())
}

// GenerationRequest records one backend call.
func (c *Collector) GenerationRequest(provider, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.generationRequests.WithLabelValues(provider, status).Inc()
	c.generationDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecoveryContinuation counts a truncation continuation request.
func (c *Collector) RecoveryContinuation(target string) {
	if c == nil {
		return
	}
	c.recoveryContinuations.WithLabelValues(target).Inc()
}

// RecoveryFallback counts a fallback substitution.
func (c *Collector) RecoveryFallback(target string) {
	if c == nil {
		return
	}
	c.recoveryFallbacks.WithLabelValues(target).Inc()
}

// ConsensusSignal counts a round where consensus was detected.
func (c *Collector) ConsensusSignal(signal string) {
	if c == nil {
		return
	}
	c.consensusSignals.WithLabelValues(signal).Inc()
}
