package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/medquorum/types"
)

func testCase() types.CaseContext {
	return types.CaseContext{
		Symptoms: types.Symptoms{MainSymptoms: []string{"cough"}, RawInput: "coughing"},
	}
}

func testOpinion() types.Opinion {
	return types.Opinion{
		Hypotheses:    []string{"pneumonia"},
		Tests:         []string{"chest x-ray"},
		Justification: "productive cough with fever",
	}
}

func testDecision() types.Decision {
	return types.Decision{
		Hypotheses: []string{"pneumonia"},
		Tests:      []string{"chest x-ray"},
		Rationale:  "panel review",
	}
}

func TestStartIdempotent(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	first, err := store.Start("s1", testCase(), 3)
	require.NoError(t, err)

	_, err = store.BeginRound("s1")
	require.NoError(t, err)
	require.NoError(t, store.RecordOpinion("s1", "expert_1", testOpinion()))

	second, err := store.Start("s1", types.CaseContext{FreeText: "different"}, 9)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, second.MaxRounds, "second start must not overwrite config")
	assert.Equal(t, 1, second.CurrentRound, "second start must not reset round state")
	require.Len(t, second.Rounds, 1)
	assert.Contains(t, second.Rounds[0].Opinions, "expert_1")
}

func TestStartRejectsEmptyCase(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	_, err := store.Start("s1", types.CaseContext{}, 3)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidCase, types.GetErrorCode(err))
}

func TestStartGeneratesID(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	sess, err := store.Start("", testCase(), 0)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, DefaultMaxRounds, sess.MaxRounds)
}

func TestBeginRoundLimit(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)
	const maxRounds = 3

	_, err := store.Start("s1", testCase(), maxRounds)
	require.NoError(t, err)

	for i := 1; i <= maxRounds; i++ {
		idx, err := store.BeginRound("s1")
		require.NoError(t, err)
		assert.Equal(t, i, idx)
		require.NoError(t, store.RecordOpinion("s1", "expert_1", testOpinion()))
		require.NoError(t, store.RecordDecision("s1", testDecision()))
	}

	_, err = store.BeginRound("s1")
	require.Error(t, err)
	assert.Equal(t, types.ErrRoundLimitReached, types.GetErrorCode(err))

	sess, ok := store.Get("s1")
	require.True(t, ok)
	assert.True(t, sess.Terminated)
	assert.Equal(t, "round limit reached", sess.TerminationReason)
	assert.LessOrEqual(t, sess.CurrentRound, sess.MaxRounds)

	// Once auto-terminated, further rounds fail with the terminated code.
	_, err = store.BeginRound("s1")
	assert.Equal(t, types.ErrSessionTerminated, types.GetErrorCode(err))
}

func TestBeginRoundUnknownSession(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	_, err := store.BeginRound("missing")
	require.Error(t, err)
	assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))
}

func TestRecordRequiresOpenRound(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	_, err := store.Start("s1", testCase(), 3)
	require.NoError(t, err)

	err = store.RecordOpinion("s1", "expert_1", testOpinion())
	assert.Equal(t, types.ErrNoOpenRound, types.GetErrorCode(err))

	err = store.RecordDecision("s1", testDecision())
	assert.Equal(t, types.ErrNoOpenRound, types.GetErrorCode(err))

	_, err = store.BeginRound("s1")
	require.NoError(t, err)
	require.NoError(t, store.RecordOpinion("s1", "expert_1", testOpinion()))
	require.NoError(t, store.RecordDecision("s1", testDecision()))

	// Round closed by the decision: no further writes until the next round.
	err = store.RecordOpinion("s1", "expert_2", testOpinion())
	assert.Equal(t, types.ErrNoOpenRound, types.GetErrorCode(err))
}

func TestRecordOpinionValidationLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	_, err := store.Start("s1", testCase(), 3)
	require.NoError(t, err)
	_, err = store.BeginRound("s1")
	require.NoError(t, err)

	bad := types.Opinion{Hypotheses: nil, Tests: []string{"chest x-ray"}}
	err = store.RecordOpinion("s1", "expert_1", bad)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidOpinion, types.GetErrorCode(err))

	sess, ok := store.Get("s1")
	require.True(t, ok)
	assert.Empty(t, sess.Rounds[0].Opinions)
}

func TestRecordOpinionLastWriteWins(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	_, err := store.Start("s1", testCase(), 3)
	require.NoError(t, err)
	_, err = store.BeginRound("s1")
	require.NoError(t, err)

	require.NoError(t, store.RecordOpinion("s1", "expert_1", testOpinion()))
	updated := testOpinion()
	updated.Hypotheses = []string{"bronchitis"}
	require.NoError(t, store.RecordOpinion("s1", "expert_1", updated))

	round, err := store.Round("s1", 1)
	require.NoError(t, err)
	require.Len(t, round.Opinions, 1)
	assert.Equal(t, []string{"bronchitis"}, round.Opinions["expert_1"].Hypotheses)
	assert.Equal(t, "expert_1", round.Opinions["expert_1"].ExpertID)
	assert.Equal(t, 1, round.Opinions["expert_1"].Round)
}

func TestSnapshotsAreCopies(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	_, err := store.Start("s1", testCase(), 3)
	require.NoError(t, err)
	_, err = store.BeginRound("s1")
	require.NoError(t, err)
	require.NoError(t, store.RecordOpinion("s1", "expert_1", testOpinion()))

	round, err := store.Round("s1", 1)
	require.NoError(t, err)
	op := round.Opinions["expert_1"]
	op.Hypotheses[0] = "mutated"
	round.Opinions["injected"] = testOpinion()

	fresh, err := store.Round("s1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"pneumonia"}, fresh.Opinions["expert_1"].Hypotheses)
	assert.NotContains(t, fresh.Opinions, "injected")
}

func TestFinalDecision(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	_, err := store.Start("s1", testCase(), 3)
	require.NoError(t, err)

	_, ok := store.FinalDecision("s1")
	assert.False(t, ok)

	_, err = store.BeginRound("s1")
	require.NoError(t, err)
	require.NoError(t, store.RecordOpinion("s1", "expert_1", testOpinion()))
	require.NoError(t, store.RecordDecision("s1", testDecision()))

	d, ok := store.FinalDecision("s1")
	require.True(t, ok)
	assert.Equal(t, 1, d.Round)
	assert.Equal(t, []string{"pneumonia"}, d.Hypotheses)
}

func TestEndIsIdempotentAndTolerant(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	store.End("missing", "whatever")

	_, err := store.Start("s1", testCase(), 3)
	require.NoError(t, err)
	store.End("s1", "operator stop")
	store.End("s1", "second reason ignored")

	sess, ok := store.Get("s1")
	require.True(t, ok)
	assert.True(t, sess.Terminated)
	assert.Equal(t, "operator stop", sess.TerminationReason)
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	t.Parallel()
	store := NewStore(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			_, err := store.Start(id, testCase(), 5)
			assert.NoError(t, err)
			for r := 0; r < 5; r++ {
				_, err := store.BeginRound(id)
				assert.NoError(t, err)
				assert.NoError(t, store.RecordOpinion(id, "expert_1", testOpinion()))
				assert.NoError(t, store.RecordDecision(id, testDecision()))
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		sess, ok := store.Get(fmt.Sprintf("s%d", i))
		require.True(t, ok)
		assert.Equal(t, 5, sess.CurrentRound)
		assert.Len(t, sess.Rounds, 5)
	}
}
