// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package panel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/llm"
	"github.com/BaSui01/medquorum/recovery"
	"github.com/BaSui01/medquorum/session"
	"github.com/BaSui01/medquorum/types"
)

// Supervisor synthesises a collected round into a decision contract and
// records it, closing the round. Like the experts it degrades to a fallback
// rather than failing: the only errors it returns are session-state ones.
type Supervisor struct {
	recoverer *recovery.Recoverer
	store     *session.Store
	panelSize int
	logger    *zap.Logger
}

// NewSupervisor creates a Supervisor for a panel of the given size.
func NewSupervisor(recoverer *recovery.Recoverer, store *session.Store, panelSize int, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if panelSize <= 0 {
		panelSize = PanelSize
	}
	return &Supervisor{
		recoverer: recoverer,
		store:     store,
		panelSize: panelSize,
		logger:    logger.With(zap.String("component", "supervisor")),
	}
}

// Synthesize produces and records the decision for an open round from the
// panel's opinions. The recorded decision is returned.
func (s *Supervisor) Synthesize(ctx context.Context, sessionID string, round int, opinions map[string]types.Opinion) (types.Decision, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(synthesisPrompt, s.panelSize, s.panelSize, s.panelSize, types.MaxListItems)},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Round %d panel opinions:\n\n%s", round, renderPanelOpinions(opinions))},
	}

	decision := s.recoverer.Decision(ctx, round, messages)
	if err := s.store.RecordDecision(sessionID, decision); err != nil {
		return types.Decision{}, err
	}

	s.logger.Info("round synthesised",
		zap.String("session_id", sessionID),
		zap.Int("round", round),
		zap.Bool("declared_consensus", decision.TerminationReason != ""))
	return decision, nil
}
