package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpinionValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opinion Opinion
		wantErr ErrorCode
	}{
		{
			name: "valid",
			opinion: Opinion{
				Hypotheses: []string{"pneumonia"},
				Tests:      []string{"chest x-ray"},
			},
		},
		{
			name:    "empty hypotheses",
			opinion: Opinion{Tests: []string{"chest x-ray"}},
			wantErr: ErrInvalidOpinion,
		},
		{
			name:    "empty tests",
			opinion: Opinion{Hypotheses: []string{"pneumonia"}},
			wantErr: ErrInvalidOpinion,
		},
		{
			name: "over cap",
			opinion: Opinion{
				Hypotheses: []string{"a", "b", "c", "d", "e", "f"},
				Tests:      []string{"chest x-ray"},
			},
			wantErr: ErrInvalidOpinion,
		},
		{
			name: "blank item",
			opinion: Opinion{
				Hypotheses: []string{"pneumonia", ""},
				Tests:      []string{"chest x-ray"},
			},
			wantErr: ErrInvalidOpinion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.opinion.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, GetErrorCode(err))
		})
	}
}

func TestDecisionValidate(t *testing.T) {
	t.Parallel()

	valid := Decision{
		Hypotheses: []string{"pneumonia"},
		Tests:      []string{"chest x-ray"},
		Rationale:  "two experts converged",
	}
	require.NoError(t, valid.Validate())

	missing := Decision{Hypotheses: []string{"pneumonia"}}
	err := missing.Validate()
	require.Error(t, err)
	assert.Equal(t, ErrInvalidDecision, GetErrorCode(err))

	var nilDecision *Decision
	assert.Error(t, nilDecision.Validate())
}

func TestCapList(t *testing.T) {
	t.Parallel()

	in := []string{"a", "b", "c", "d", "e", "f", "g"}
	out := CapList(in)
	assert.Len(t, out, MaxListItems)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, out)

	short := []string{"a"}
	assert.Equal(t, short, CapList(short))
}
