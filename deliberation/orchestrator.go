// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package deliberation

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/consensus"
	"github.com/BaSui01/medquorum/internal/metrics"
	"github.com/BaSui01/medquorum/panel"
	"github.com/BaSui01/medquorum/session"
	"github.com/BaSui01/medquorum/types"
)

const instrumentationName = "github.com/BaSui01/medquorum/deliberation"

// Termination reasons written to the session record.
const (
	ReasonRoundLimit = "round limit reached"
	ReasonConsensus  = "consensus reached"
)

// Config tunes the orchestrator.
type Config struct {
	// MaxRounds is the session round budget.
	MaxRounds int

	// StopOnConsensus ends the session at the first consensus round. When
	// false the session always spends its full round budget and the result
	// reports where consensus was first observed.
	StopOnConsensus bool
}

// DefaultConfig returns the standard operating policy: the full round
// budget, no early termination.
func DefaultConfig() Config {
	return Config{MaxRounds: session.DefaultMaxRounds}
}

// Result summarises a finished deliberation.
type Result struct {
	SessionID         string           `json:"session_id"`
	TotalRounds       int              `json:"total_rounds"`
	TerminationReason string           `json:"termination_reason"`
	ConsensusReached  bool             `json:"consensus_reached"`
	ConsensusRound    int              `json:"consensus_round,omitempty"`
	FinalDecision     *types.Decision  `json:"final_decision,omitempty"`
	Rounds            []*session.Round `json:"rounds,omitempty"`
}

// Orchestrator runs sessions through the round state machine.
type Orchestrator struct {
	cfg         Config
	store       *session.Store
	coordinator *panel.Coordinator
	supervisor  *panel.Supervisor
	collector   *metrics.Collector
	tracer      trace.Tracer
	logger      *zap.Logger
}

// New creates an Orchestrator. The collector may be nil.
func New(cfg Config, store *session.Store, coordinator *panel.Coordinator, supervisor *panel.Supervisor, collector *metrics.Collector, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = session.DefaultMaxRounds
	}
	return &Orchestrator{
		cfg:         cfg,
		store:       store,
		coordinator: coordinator,
		supervisor:  supervisor,
		collector:   collector,
		tracer:      otel.Tracer(instrumentationName),
		logger:      logger.With(zap.String("component", "orchestrator")),
	}
}

// StartSession registers a new session over the given case. An empty
// sessionID asks the store to generate one.
func (o *Orchestrator) StartSession(sessionID string, caseCtx types.CaseContext) (*session.Session, error) {
	sess, err := o.store.Start(sessionID, caseCtx, o.cfg.MaxRounds)
	if err != nil {
		return nil, err
	}
	o.collector.SessionStarted()
	o.logger.Info("session started",
		zap.String("session_id", sess.ID),
		zap.Int("max_rounds", sess.MaxRounds))
	return sess, nil
}

// Run deliberates the session to termination and returns the summary.
// Cancelling ctx aborts between rounds with the context's error; completed
// rounds stay recorded.
func (o *Orchestrator) Run(ctx context.Context, sessionID string) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "deliberation.run",
		trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()

	result := &Result{SessionID: sessionID}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		done, err := o.runRound(ctx, sessionID, result)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	sess, ok := o.store.Get(sessionID)
	if !ok {
		return nil, types.NewError(types.ErrSessionNotFound, "session disappeared during deliberation")
	}
	result.TotalRounds = sess.CurrentRound
	result.TerminationReason = sess.TerminationReason
	result.Rounds = sess.Rounds
	if final, ok := o.store.FinalDecision(sessionID); ok {
		result.FinalDecision = final
	}

	span.SetAttributes(
		attribute.Int("deliberation.rounds", result.TotalRounds),
		attribute.Bool("deliberation.consensus", result.ConsensusReached),
		attribute.String("deliberation.termination_reason", result.TerminationReason),
	)
	o.logger.Info("deliberation finished",
		zap.String("session_id", sessionID),
		zap.Int("total_rounds", result.TotalRounds),
		zap.Bool("consensus_reached", result.ConsensusReached),
		zap.String("termination_reason", result.TerminationReason))
	return result, nil
}

// runRound executes one full round. It reports done=true when the session
// has terminated.
func (o *Orchestrator) runRound(ctx context.Context, sessionID string, result *Result) (bool, error) {
	start := time.Now()

	round, opinions, err := o.coordinator.RunRound(ctx, sessionID)
	if err != nil {
		var engineErr *types.Error
		if errors.As(err, &engineErr) {
			switch engineErr.Code {
			case types.ErrRoundLimitReached, types.ErrSessionTerminated:
				return true, nil
			}
		}
		return false, err
	}

	ctx, span := o.tracer.Start(ctx, "deliberation.round",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("round.index", round)))
	defer span.End()

	decision, err := o.supervisor.Synthesize(ctx, sessionID, round, opinions)
	if err != nil {
		return false, err
	}

	eval := consensus.Evaluate(opinions, &decision)
	outcome := "no_consensus"
	if eval.Reached {
		outcome = "consensus"
		if eval.ByDecision {
			o.collector.ConsensusSignal("decision")
		}
		if eval.ByOverlap {
			o.collector.ConsensusSignal("overlap")
		}
		if !result.ConsensusReached {
			result.ConsensusReached = true
			result.ConsensusRound = round
		}
	}
	o.collector.RoundCompleted(outcome, time.Since(start))
	span.SetAttributes(attribute.Bool("round.consensus", eval.Reached))

	o.logger.Info("round evaluated",
		zap.String("session_id", sessionID),
		zap.Int("round", round),
		zap.Bool("consensus", eval.Reached),
		zap.Bool("by_decision", eval.ByDecision),
		zap.Bool("by_overlap", eval.ByOverlap))

	if eval.Reached && o.cfg.StopOnConsensus {
		o.store.End(sessionID, ReasonConsensus)
		return true, nil
	}
	return false, nil
}

// FinalDecision returns the most recent recorded decision for the session.
func (o *Orchestrator) FinalDecision(sessionID string) (*types.Decision, bool) {
	return o.store.FinalDecision(sessionID)
}
