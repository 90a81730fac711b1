// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package deliberation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/panel"
	"github.com/BaSui01/medquorum/recovery"
	"github.com/BaSui01/medquorum/session"
	"github.com/BaSui01/medquorum/testutil/mocks"
	"github.com/BaSui01/medquorum/types"
)

const noConsensusReply = `**Integrated Hypothesis**
Main Candidates:
- Myocarditis

**Priority Tests**
Immediately Needed:
- Troponin level

**Consensus Status**
Consensus Reached: No
Consensus Rationale: The panel remains split on etiology.
`

const consensusReply = `**Integrated Hypothesis**
Main Candidates:
- Acute pericarditis

**Priority Tests**
Immediately Needed:
- ECG

**Consensus Status**
Clear consensus among the panel.
Consensus Rationale: All experts converged on pericarditis.
`

// scriptedExpert emits a fixed opinion series, one entry per round.
type scriptedExpert struct {
	id       string
	opinions []types.Opinion
	calls    int
}

func (s *scriptedExpert) ID() string { return s.id }

func (s *scriptedExpert) Opine(ctx context.Context, input *panel.CaseInput) (types.Opinion, error) {
	op := s.opinions[len(s.opinions)-1]
	if s.calls < len(s.opinions) {
		op = s.opinions[s.calls]
	}
	s.calls++
	op.ExpertID = s.id
	op.Round = input.Round
	return op, nil
}

func divergentExperts() []panel.Expert {
	return []panel.Expert{
		&scriptedExpert{id: "expert-1", opinions: []types.Opinion{{Hypotheses: []string{"pericarditis"}, Tests: []string{"ECG"}}}},
		&scriptedExpert{id: "expert-2", opinions: []types.Opinion{{Hypotheses: []string{"embolism"}, Tests: []string{"CT angiogram"}}}},
		&scriptedExpert{id: "expert-3", opinions: []types.Opinion{{Hypotheses: []string{"costochondritis"}, Tests: []string{"physical exam"}}}},
	}
}

func overlappingExperts() []panel.Expert {
	return []panel.Expert{
		&scriptedExpert{id: "expert-1", opinions: []types.Opinion{{Hypotheses: []string{"Pericarditis"}, Tests: []string{"ECG"}}}},
		&scriptedExpert{id: "expert-2", opinions: []types.Opinion{{Hypotheses: []string{"pericarditis"}, Tests: []string{"ecg"}}}},
		&scriptedExpert{id: "expert-3", opinions: []types.Opinion{{Hypotheses: []string{"embolism"}, Tests: []string{"CT angiogram"}}}},
	}
}

func testCase() types.CaseContext {
	return types.CaseContext{
		Symptoms: types.Symptoms{MainSymptoms: []string{"chest pain"}, OnsetTime: "2 days ago"},
	}
}

func newOrchestrator(t *testing.T, cfg Config, experts []panel.Expert, supervisorReplies ...mocks.ScriptedReply) (*Orchestrator, string) {
	t.Helper()

	store := session.NewStore(zap.NewNop())
	provider := mocks.NewMockProvider().
		WithDefault(mocks.ScriptedReply{Content: noConsensusReply, FinishReason: "stop"}).
		WithScript(supervisorReplies...)

	recCfg := recovery.DefaultConfig()
	recCfg.Timeout = 2 * time.Second
	rec := recovery.New(provider, recCfg, nil, zap.NewNop())

	coordCfg := panel.DefaultConfig()
	coordCfg.Parallel = false
	coord := panel.NewCoordinator(coordCfg, experts, store, nil, zap.NewNop())
	sup := panel.NewSupervisor(rec, store, panel.PanelSize, zap.NewNop())

	o := New(cfg, store, coord, sup, nil, zap.NewNop())
	sess, err := o.StartSession("", testCase())
	require.NoError(t, err)
	return o, sess.ID
}

func TestRunStopsAtFirstConsensusRound(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxRounds = 5
	cfg.StopOnConsensus = true

	o, sessionID := newOrchestrator(t, cfg, divergentExperts(),
		mocks.ScriptedReply{Content: noConsensusReply, FinishReason: "stop"},
		mocks.ScriptedReply{Content: consensusReply, FinishReason: "stop"},
	)

	result, err := o.Run(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRounds)
	assert.Equal(t, ReasonConsensus, result.TerminationReason)
	assert.True(t, result.ConsensusReached)
	assert.Equal(t, 2, result.ConsensusRound)
	require.NotNil(t, result.FinalDecision)
	assert.Equal(t, []string{"Acute pericarditis"}, result.FinalDecision.Hypotheses)
}

func TestRunExhaustsBudgetByDefault(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxRounds = 3

	o, sessionID := newOrchestrator(t, cfg, divergentExperts(),
		mocks.ScriptedReply{Content: noConsensusReply, FinishReason: "stop"},
		mocks.ScriptedReply{Content: consensusReply, FinishReason: "stop"},
		mocks.ScriptedReply{Content: noConsensusReply, FinishReason: "stop"},
	)

	result, err := o.Run(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRounds)
	assert.Equal(t, ReasonRoundLimit, result.TerminationReason)
	// Consensus in round two is reported even though the run continued.
	assert.True(t, result.ConsensusReached)
	assert.Equal(t, 2, result.ConsensusRound)
	require.Len(t, result.Rounds, 3)
	for _, round := range result.Rounds {
		assert.Len(t, round.Opinions, 3)
		assert.NotNil(t, round.Decision)
	}
}

func TestRunDetectsOpinionOverlapConsensus(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxRounds = 5
	cfg.StopOnConsensus = true

	// The synthesis never declares consensus; two of three experts still
	// share a normalized hypothesis and test.
	o, sessionID := newOrchestrator(t, cfg, overlappingExperts())

	result, err := o.Run(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalRounds)
	assert.True(t, result.ConsensusReached)
	assert.Equal(t, ReasonConsensus, result.TerminationReason)
}

func TestRunNoConsensusEver(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxRounds = 2
	cfg.StopOnConsensus = true

	o, sessionID := newOrchestrator(t, cfg, divergentExperts())

	result, err := o.Run(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRounds)
	assert.False(t, result.ConsensusReached)
	assert.Zero(t, result.ConsensusRound)
	assert.Equal(t, ReasonRoundLimit, result.TerminationReason)
}

func TestRunUnknownSession(t *testing.T) {
	t.Parallel()

	o, _ := newOrchestrator(t, DefaultConfig(), divergentExperts())

	_, err := o.Run(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))
}

func TestRunHonoursCancellation(t *testing.T) {
	t.Parallel()

	o, sessionID := newOrchestrator(t, DefaultConfig(), divergentExperts())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Run(ctx, sessionID)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFinalDecisionAccessor(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxRounds = 1

	o, sessionID := newOrchestrator(t, cfg, divergentExperts())

	_, err := o.Run(context.Background(), sessionID)
	require.NoError(t, err)

	final, ok := o.FinalDecision(sessionID)
	require.True(t, ok)
	assert.Equal(t, []string{"Myocarditis"}, final.Hypotheses)
}
