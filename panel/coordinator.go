// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package panel

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/medquorum/internal/metrics"
	"github.com/BaSui01/medquorum/session"
	"github.com/BaSui01/medquorum/types"
)

// PanelSize is the fixed number of experts in a deliberation panel.
const PanelSize = 3

// Fallback list contents recorded when an expert fails outright.
var (
	expertFallbackHypotheses = []string{"needs further review"}
	expertFallbackTests      = []string{"specialist referral"}
)

// Config tunes the coordinator.
type Config struct {
	// PanelSize is the required expert count. RunRound refuses to start a
	// round with any other panel size.
	PanelSize int

	// Parallel fans the panel out concurrently. Sequential order is the
	// experts' registration order.
	Parallel bool
}

// DefaultConfig returns a Config for the standard three-expert panel.
func DefaultConfig() Config {
	return Config{PanelSize: PanelSize, Parallel: true}
}

// Coordinator opens a round, collects one opinion from every panellist, and
// records the full set atomically. A round never commits a partial panel:
// an expert that errors is represented by a conservative fallback opinion.
type Coordinator struct {
	cfg       Config
	experts   []Expert
	store     *session.Store
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewCoordinator creates a Coordinator over a fixed panel.
func NewCoordinator(cfg Config, experts []Expert, store *session.Store, collector *metrics.Collector, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PanelSize <= 0 {
		cfg.PanelSize = PanelSize
	}
	return &Coordinator{
		cfg:       cfg,
		experts:   experts,
		store:     store,
		collector: collector,
		logger:    logger.With(zap.String("component", "coordinator")),
	}
}

// RunRound opens the session's next round and collects the full panel's
// opinions. Every opinion is gathered before any is recorded, so a context
// cancellation mid-panel leaves the round's record empty rather than
// partial. The returned map is keyed by expert ID.
func (c *Coordinator) RunRound(ctx context.Context, sessionID string) (int, map[string]types.Opinion, error) {
	if len(c.experts) != c.cfg.PanelSize {
		return 0, nil, types.NewError(types.ErrPanelSizeMismatch,
			fmt.Sprintf("panel has %d experts, requires %d", len(c.experts), c.cfg.PanelSize))
	}

	round, err := c.store.BeginRound(sessionID)
	if err != nil {
		return 0, nil, err
	}

	input, err := c.buildInput(sessionID, round)
	if err != nil {
		return round, nil, err
	}

	opinions, err := c.collect(ctx, input)
	if err != nil {
		return round, nil, err
	}

	for _, expert := range c.experts {
		op := opinions[expert.ID()]
		if recErr := c.store.RecordOpinion(sessionID, expert.ID(), op); recErr != nil {
			return round, nil, recErr
		}
	}

	c.logger.Info("panel round collected",
		zap.String("session_id", sessionID),
		zap.Int("round", round),
		zap.Int("panel_size", len(opinions)))
	return round, opinions, nil
}

// buildInput snapshots the session and assembles the expert view: the case
// context plus, from round two on, the previous round's full opinion set and
// synthesis rationale.
func (c *Coordinator) buildInput(sessionID string, round int) (*CaseInput, error) {
	sess, ok := c.store.Get(sessionID)
	if !ok {
		return nil, types.NewError(types.ErrSessionNotFound, fmt.Sprintf("session %s not found", sessionID))
	}

	input := &CaseInput{
		Context: &sess.Context,
		Round:   round,
	}
	if round > 1 {
		prior, err := c.store.Round(sessionID, round-1)
		if err != nil {
			return nil, err
		}
		input.PriorOpinions = prior.Opinions
		if prior.Decision != nil {
			input.PriorRationale = prior.Decision.Rationale
		}
	}
	return input, nil
}

func (c *Coordinator) collect(ctx context.Context, input *CaseInput) (map[string]types.Opinion, error) {
	opinions := make(map[string]types.Opinion, len(c.experts))

	if !c.cfg.Parallel {
		for _, expert := range c.experts {
			opinions[expert.ID()] = c.opine(ctx, expert, input)
		}
		return opinions, ctx.Err()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, expert := range c.experts {
		expert := expert
		g.Go(func() error {
			op := c.opine(gctx, expert, input)
			mu.Lock()
			opinions[expert.ID()] = op
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return opinions, ctx.Err()
}

// opine wraps one expert call, substituting the fallback opinion when the
// expert errors or returns an invalid contract.
func (c *Coordinator) opine(ctx context.Context, expert Expert, input *CaseInput) types.Opinion {
	op, err := expert.Opine(ctx, input)
	if err == nil {
		err = op.Validate()
	}
	if err != nil {
		c.logger.Warn("expert failed, recording fallback opinion",
			zap.String("expert_id", expert.ID()),
			zap.Int("round", input.Round),
			zap.Error(err))
		c.collector.RecoveryFallback("opinion")
		return types.Opinion{
			ExpertID:      expert.ID(),
			Round:         input.Round,
			Hypotheses:    append([]string(nil), expertFallbackHypotheses...),
			Tests:         append([]string(nil), expertFallbackTests...),
			Justification: fmt.Sprintf("expert unavailable: %v", err),
		}
	}
	return op
}
