package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCase() CaseContext {
	return CaseContext{
		Demographics: Demographics{Age: "45", Gender: "female", RawInput: "45 year old woman"},
		History:      History{PastDiseases: []string{"asthma"}, RawInput: "asthma since childhood"},
		Symptoms: Symptoms{
			MainSymptoms: []string{"cough", "fever"},
			OnsetTime:    "3 days ago",
			RawInput:     "coughing for three days with fever",
		},
		Medications: Medications{Prescription: []string{"salbutamol"}, RawInput: "uses an inhaler"},
		Vitals:      map[string]string{"temp": "38.4"},
		Imaging:     ImagingFinding{Caption: "opacity in the right lower lobe"},
		FreeText:    "patient mentions recent travel",
	}
}

func TestCaseContextValidate(t *testing.T) {
	t.Parallel()

	c := sampleCase()
	require.NoError(t, c.Validate())

	empty := CaseContext{}
	err := empty.Validate()
	require.Error(t, err)
	assert.Equal(t, ErrInvalidCase, GetErrorCode(err))

	var nilCase *CaseContext
	assert.Error(t, nilCase.Validate())
}

func TestCaseContextClone(t *testing.T) {
	t.Parallel()

	c := sampleCase()
	clone := c.Clone()

	clone.Symptoms.MainSymptoms[0] = "mutated"
	clone.Vitals["temp"] = "mutated"

	assert.Equal(t, "cough", c.Symptoms.MainSymptoms[0])
	assert.Equal(t, "38.4", c.Vitals["temp"])
}

func TestCaseContextRedactForLog(t *testing.T) {
	t.Parallel()

	c := sampleCase()
	redacted := c.RedactForLog()

	assert.Empty(t, redacted.FreeText)
	assert.Empty(t, redacted.Demographics.RawInput)
	assert.Empty(t, redacted.History.RawInput)
	assert.Empty(t, redacted.Symptoms.RawInput)
	assert.Empty(t, redacted.Medications.RawInput)

	// Structured fields survive redaction.
	assert.Equal(t, []string{"cough", "fever"}, redacted.Symptoms.MainSymptoms)
	assert.Equal(t, "opacity in the right lower lobe", redacted.Imaging.Caption)

	// Original is untouched.
	assert.Equal(t, "patient mentions recent travel", c.FreeText)
}
