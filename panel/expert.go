// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package panel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/llm"
	"github.com/BaSui01/medquorum/recovery"
	"github.com/BaSui01/medquorum/types"
)

// CaseInput is everything an expert sees when forming a round opinion.
// PriorOpinions covers the full panel of the previous round, the reading
// expert's own included; prompt rendering excludes the expert's own entry
// from its colleague view.
type CaseInput struct {
	Context        *types.CaseContext
	Round          int
	PriorOpinions  map[string]types.Opinion
	PriorRationale string
}

// Expert produces one structured opinion per round.
type Expert interface {
	// ID returns the stable panel identifier.
	ID() string

	// Opine forms the expert's opinion for the round described by input.
	Opine(ctx context.Context, input *CaseInput) (types.Opinion, error)
}

// LLMExpert backs an Expert with a generation backend through the recovery
// pipeline, so Opine degrades to a fallback opinion rather than an error.
type LLMExpert struct {
	id        string
	recoverer *recovery.Recoverer
	logger    *zap.Logger
}

// NewLLMExpert creates an expert with the given panel identifier.
func NewLLMExpert(id string, recoverer *recovery.Recoverer, logger *zap.Logger) *LLMExpert {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMExpert{
		id:        id,
		recoverer: recoverer,
		logger:    logger.With(zap.String("component", "expert"), zap.String("expert_id", id)),
	}
}

// ID implements Expert.
func (e *LLMExpert) ID() string { return e.id }

// Opine implements Expert. The first round analyses the case cold; later
// rounds critique colleague opinions and revise. The recovery pipeline
// guarantees a valid opinion, so the error is always nil.
func (e *LLMExpert) Opine(ctx context.Context, input *CaseInput) (types.Opinion, error) {
	messages := e.buildMessages(input)
	opinion := e.recoverer.Opinion(ctx, e.id, input.Round, messages)
	e.logger.Debug("opinion formed",
		zap.Int("round", input.Round),
		zap.Int("hypotheses", len(opinion.Hypotheses)),
		zap.Int("tests", len(opinion.Tests)))
	return opinion, nil
}

func (e *LLMExpert) buildMessages(input *CaseInput) []llm.Message {
	if input.Round <= 1 || len(input.PriorOpinions) == 0 {
		return []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf(expertAnalysisPrompt, e.id, types.MaxListItems)},
			{Role: llm.RoleUser, Content: renderCase(input.Context)},
		}
	}

	user := renderCase(input.Context) + "\n" + renderColleagueOpinions(e.id, input.PriorOpinions)
	if input.PriorRationale != "" {
		user += "\nPrior round synthesis rationale:\n" + input.PriorRationale + "\n"
	}
	return []llm.Message{
		{Role: llm.RoleSystem, Content: fmt.Sprintf(expertCritiquePrompt, e.id, input.Round, types.MaxListItems)},
		{Role: llm.RoleUser, Content: user},
	}
}
