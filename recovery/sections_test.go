// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package recovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOpinionFirstRound(t *testing.T) {
	t.Parallel()

	raw := `**Diagnostic Hypotheses** (in priority order)
1. Acute pericarditis
2. Myocarditis
- Pulmonary embolism

**Recommended Diagnostic Tests**
- ECG with serial tracings
- Troponin level
3) D-dimer
`

	parsed := ParseOpinion(raw)
	require.True(t, parsed.Complete())
	assert.Equal(t, []string{"Acute pericarditis", "Myocarditis", "Pulmonary embolism"}, parsed.Hypotheses)
	assert.Equal(t, []string{"ECG with serial tracings", "Troponin level", "D-dimer"}, parsed.Tests)
	assert.Empty(t, parsed.Critique)
}

func TestParseOpinionRevisionRound(t *testing.T) {
	t.Parallel()

	raw := `**Colleague Opinion Evaluation**
The second expert's emphasis on embolism is well argued.
I remain unconvinced by the infectious workup.

**Updated Diagnostic Hypotheses**
- Pulmonary embolism
- Acute pericarditis

**Updated Diagnostic Tests**
- CT pulmonary angiogram
- ECG
`

	parsed := ParseOpinion(raw)
	require.True(t, parsed.Complete())
	assert.Equal(t, []string{"Pulmonary embolism", "Acute pericarditis"}, parsed.Hypotheses)
	assert.Equal(t, []string{"CT pulmonary angiogram", "ECG"}, parsed.Tests)
	assert.Contains(t, parsed.Critique, "well argued")
	assert.Contains(t, parsed.Critique, "unconvinced")
}

func TestParseOpinionCapsLists(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("**Diagnostic Hypotheses**\n")
	for i := 0; i < 9; i++ {
		sb.WriteString("- hypothesis number ")
		sb.WriteByte(byte('a' + i))
		sb.WriteString("\n")
	}
	sb.WriteString("**Recommended Diagnostic Tests**\n- ECG\n")

	parsed := ParseOpinion(sb.String())
	assert.Len(t, parsed.Hypotheses, 5)
}

func TestParseOpinionFiltersNoise(t *testing.T) {
	t.Parallel()

	raw := `**Diagnostic Hypotheses**
- Myocarditis
- ..
-
**Recommended Diagnostic Tests**
- a
- Chest X-ray
`

	parsed := ParseOpinion(raw)
	assert.Equal(t, []string{"Myocarditis"}, parsed.Hypotheses)
	assert.Equal(t, []string{"Chest X-ray"}, parsed.Tests)
}

func TestParseOpinionEmptyInput(t *testing.T) {
	t.Parallel()

	parsed := ParseOpinion("")
	assert.False(t, parsed.Complete())
	assert.Empty(t, parsed.Hypotheses)
	assert.Empty(t, parsed.Tests)
}

func TestParseOpinionProseWithoutMarkers(t *testing.T) {
	t.Parallel()

	parsed := ParseOpinion("The findings are most consistent with a benign etiology. No sections here.")
	assert.False(t, parsed.Complete())
}

func TestParseDecisionFull(t *testing.T) {
	t.Parallel()

	raw := `**Integrated Hypothesis**
Main Candidates:
- Acute pericarditis
- Myocarditis

**Priority Tests**
Immediately Needed:
- ECG
- Echocardiogram

**Consensus Status**
Clear consensus among the panel.
Consensus Rationale: All three experts converged on pericarditis as the leading candidate.
Remaining disagreement concerns only test ordering.
`

	parsed := ParseDecision(raw)
	require.True(t, parsed.Complete())
	assert.Equal(t, []string{"Acute pericarditis", "Myocarditis"}, parsed.Hypotheses)
	assert.Equal(t, []string{"ECG", "Echocardiogram"}, parsed.Tests)
	assert.Contains(t, parsed.Rationale, "converged on pericarditis")
	assert.Contains(t, parsed.Rationale, "test ordering")
	assert.Equal(t, "expert panel reached consensus", parsed.TerminationReason)
}

func TestParseDecisionInlineCandidate(t *testing.T) {
	t.Parallel()

	raw := `**Integrated Hypothesis**
Main Candidates: Acute pericarditis
**Priority Tests**
Immediately Needed: ECG
**Consensus Status**
Consensus Reached: Yes
`

	parsed := ParseDecision(raw)
	require.True(t, parsed.Complete())
	assert.Equal(t, []string{"Acute pericarditis"}, parsed.Hypotheses)
	assert.Equal(t, []string{"ECG"}, parsed.Tests)
	assert.Equal(t, "expert panel reached consensus", parsed.TerminationReason)
}

func TestParseDecisionNoConsensus(t *testing.T) {
	t.Parallel()

	raw := `**Integrated Hypothesis**
Main Candidates:
- Myocarditis

**Priority Tests**
Immediately Needed:
- Troponin level

**Consensus Status**
Partial agreement only; the panel remains split on etiology.
Consensus Rationale: Two of three experts favour an inflammatory cause.
`

	parsed := ParseDecision(raw)
	require.True(t, parsed.Complete())
	assert.Empty(t, parsed.TerminationReason)
	assert.Contains(t, parsed.Rationale, "inflammatory cause")
}

func TestParseDecisionIgnoresItemsOutsideSubMarkers(t *testing.T) {
	t.Parallel()

	raw := `**Integrated Hypothesis**
- stray item before the marker
Main Candidates:
- Myocarditis
**Priority Tests**
Immediately Needed:
- ECG
`

	parsed := ParseDecision(raw)
	assert.Equal(t, []string{"Myocarditis"}, parsed.Hypotheses)
}

func TestDeclaresConsensusMarkers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		line string
		want bool
	}{
		{"Clear consensus among experts.", true},
		{"We have reached complete consensus on the diagnosis.", true},
		{"Consensus Reached: Yes", true},
		{"consensus reached: yes, with caveats", true},
		{"Consensus Reached: No", false},
		{"Partial consensus only.", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, declaresConsensus(tc.line), tc.line)
	}
}
