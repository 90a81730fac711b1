package types

// Demographics holds basic patient information captured during intake.
type Demographics struct {
	Age        string `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Residence  string `json:"residence,omitempty"`
	RawInput   string `json:"raw_input,omitempty"`
}

// History holds past medical and family history.
type History struct {
	PastDiseases  []string `json:"past_diseases,omitempty"`
	Surgeries     []string `json:"surgeries,omitempty"`
	Allergies     []string `json:"allergies,omitempty"`
	FamilyHistory []string `json:"family_history,omitempty"`
	RawInput      string   `json:"raw_input,omitempty"`
}

// Symptoms holds the current complaint.
type Symptoms struct {
	MainSymptoms       []string `json:"main_symptoms,omitempty"`
	OnsetTime          string   `json:"onset_time,omitempty"`
	Severity           string   `json:"severity,omitempty"`
	Pattern            string   `json:"pattern,omitempty"`
	AggravatingFactors []string `json:"aggravating_factors,omitempty"`
	AssociatedSymptoms []string `json:"associated_symptoms,omitempty"`
	RawInput           string   `json:"raw_input,omitempty"`
}

// Medications holds what the patient currently takes.
type Medications struct {
	Prescription   []string `json:"prescription,omitempty"`
	OverTheCounter []string `json:"over_the_counter,omitempty"`
	Supplements    []string `json:"supplements,omitempty"`
	RawInput       string   `json:"raw_input,omitempty"`
}

// ImagingFinding is the captioning tool's view of an uploaded image.
type ImagingFinding struct {
	Caption    string   `json:"caption,omitempty"`
	Findings   []string `json:"findings,omitempty"`
	Impression string   `json:"impression,omitempty"`
}

// CaseContext is the immutable snapshot of case facts assembled before
// deliberation starts. The engine never mutates it; every copy handed to an
// expert or logged is derived from the value stored at session start.
type CaseContext struct {
	Demographics Demographics      `json:"demographics"`
	History      History           `json:"history"`
	Symptoms     Symptoms          `json:"symptoms"`
	Medications  Medications       `json:"medications"`
	Vitals       map[string]string `json:"vitals,omitempty"`
	Imaging      ImagingFinding    `json:"imaging"`
	FreeText     string            `json:"free_text,omitempty"`
}

// Validate rejects case snapshots with no usable content. A session cannot
// deliberate over an entirely empty case.
func (c *CaseContext) Validate() error {
	if c == nil {
		return NewError(ErrInvalidCase, "case context is nil")
	}
	if c.Demographics == (Demographics{}) &&
		len(c.Symptoms.MainSymptoms) == 0 && c.Symptoms.RawInput == "" &&
		c.History.RawInput == "" && len(c.History.PastDiseases) == 0 &&
		c.Imaging.Caption == "" && c.FreeText == "" {
		return NewError(ErrInvalidCase, "case context has no populated fields")
	}
	return nil
}

// Clone returns a deep copy of the case context.
func (c CaseContext) Clone() CaseContext {
	out := c
	out.History.PastDiseases = cloneStrings(c.History.PastDiseases)
	out.History.Surgeries = cloneStrings(c.History.Surgeries)
	out.History.Allergies = cloneStrings(c.History.Allergies)
	out.History.FamilyHistory = cloneStrings(c.History.FamilyHistory)
	out.Symptoms.MainSymptoms = cloneStrings(c.Symptoms.MainSymptoms)
	out.Symptoms.AggravatingFactors = cloneStrings(c.Symptoms.AggravatingFactors)
	out.Symptoms.AssociatedSymptoms = cloneStrings(c.Symptoms.AssociatedSymptoms)
	out.Medications.Prescription = cloneStrings(c.Medications.Prescription)
	out.Medications.OverTheCounter = cloneStrings(c.Medications.OverTheCounter)
	out.Medications.Supplements = cloneStrings(c.Medications.Supplements)
	out.Imaging.Findings = cloneStrings(c.Imaging.Findings)
	if c.Vitals != nil {
		out.Vitals = make(map[string]string, len(c.Vitals))
		for k, v := range c.Vitals {
			out.Vitals[k] = v
		}
	}
	return out
}

// RedactForLog returns a copy safe to write to logs and telemetry. Free-text
// fields carry unstructured PHI and are stripped at every logging boundary.
func (c CaseContext) RedactForLog() CaseContext {
	out := c.Clone()
	out.FreeText = ""
	out.Demographics.RawInput = ""
	out.History.RawInput = ""
	out.Symptoms.RawInput = ""
	out.Medications.RawInput = ""
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
