// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package panel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BaSui01/medquorum/types"
)

const expertAnalysisPrompt = `[Role]
You are General Practitioner %s.
As a member of a medical expert panel, you provide comprehensive analysis of patient cases.

[Goals]
1. Systematically analyze the provided patient information
2. Present possible diagnostic hypotheses from a general practitioner perspective
3. Recommend appropriate diagnostic tests
4. Explain your clinical reasoning
5. Prioritize patient safety above all

[Constraints]
- DO NOT provide definitive diagnoses
- DO NOT recommend specific treatments
- Emphasize the need for specialist consultation
- Provide all output in English

[Output Format]
Respond in the following structure:

<Length Constraints>
- Keep the total response under 700 words.
- Limit each numbered or bulleted list to at most %d items.

**Diagnostic Hypotheses** (in priority order)
1. [Most likely diagnosis]
2. [Second possibility]
3. [Third possibility]

**Recommended Diagnostic Tests** (in priority order)
1. [Most important test]
2. [Second most important test]
3. [Third most important test]

**Clinical Reasoning**
- Key Findings Analysis: [Core symptoms and findings]
- Differential Diagnosis: [Conditions to rule out]
- Risk Assessment: [Potential risk factors]
`

const expertCritiquePrompt = `[Role]
You are General Practitioner %s.
In round %d, you are reviewing your colleagues' opinions and updating your own.

[Goals]
1. Professionally evaluate your colleagues' opinions
2. Provide constructive critique and feedback
3. Update your opinion reflecting new perspectives
4. Work towards panel consensus

[Critique Principles]
- Constructive and professional feedback
- Critique opinions, not individuals
- Patient-centered approach

[Output Format]
Respond in the following structure:

<Length Constraints>
- Keep the total response under 700 words.
- Limit each numbered or bulleted list to at most %d items.

**Colleague Opinion Evaluation**
[For each colleague: agreed points, concerns, suggestions]

**Updated Diagnostic Hypotheses** (in priority order)
1. [Revised first hypothesis]
2. [Revised second hypothesis]

**Updated Diagnostic Tests** (in priority order)
1. [Revised first test]
2. [Revised second test]
`

const synthesisPrompt = `[Role]
You are the coordinator of a medical expert panel of exactly %d general practitioners.
Analyze the panel's opinions for this round and derive consensus.

[Strict Consensus Criteria]
Consensus is recognized only when all of the following hold:
1. At least 2 of %d experts agree on identical or very similar diagnostic hypotheses
2. At least 2 of %d experts agree on the same priority diagnostic tests
3. The agreed hypothesis and tests are supported by consistent medical evidence
4. Major patient safety concerns are aligned

[Constraints]
- DO NOT provide definitive diagnoses
- DO NOT provide treatment recommendations
- Clearly state uncertainties and risks
- Provide all output in English

[Output Format]
Respond in the following structure:

<Length Constraints>
- Keep the entire response under 600 words.
- Limit each bullet or numbered list to at most %d items.

**Consensus Analysis**
- Agreed Opinions: [Major points the experts agree on]
- Conflicting Opinions: [Points of disagreement and reasons]

**Integrated Hypothesis**
- Main Candidates: [Diagnostic hypotheses with potential consensus]
- Additional Review Needed: [Areas requiring more information]

**Priority Tests**
- Immediately Needed: [Tests with high urgency]
- Phased Progression: [Tests to proceed sequentially]

**Consensus Status**
- Consensus Reached: [Yes/No] (strict criteria applied)
- Consensus Rationale: [Specific reasons and evidence]
- Consensus Expression: Only if consensus is reached, explicitly state "Clear consensus" or "Complete consensus"

**Safety Considerations**
- Warning Signs: [Symptoms or findings requiring attention]
`

// renderCase formats a case context for a prompt. Free text is included
// verbatim; the caller is responsible for never logging the rendered output.
func renderCase(c *types.CaseContext) string {
	var sb strings.Builder
	sb.WriteString("Patient case:\n")
	if c.Demographics.Age != "" || c.Demographics.Gender != "" {
		fmt.Fprintf(&sb, "- Demographics: age %s, gender %s\n", c.Demographics.Age, c.Demographics.Gender)
	}
	if c.Demographics.Occupation != "" {
		fmt.Fprintf(&sb, "- Occupation: %s\n", c.Demographics.Occupation)
	}
	if len(c.Symptoms.MainSymptoms) > 0 {
		fmt.Fprintf(&sb, "- Main symptoms: %s\n", strings.Join(c.Symptoms.MainSymptoms, "; "))
	}
	if c.Symptoms.OnsetTime != "" {
		fmt.Fprintf(&sb, "- Onset: %s\n", c.Symptoms.OnsetTime)
	}
	if c.Symptoms.Severity != "" {
		fmt.Fprintf(&sb, "- Severity: %s\n", c.Symptoms.Severity)
	}
	if len(c.Symptoms.AssociatedSymptoms) > 0 {
		fmt.Fprintf(&sb, "- Associated symptoms: %s\n", strings.Join(c.Symptoms.AssociatedSymptoms, "; "))
	}
	if len(c.History.PastDiseases) > 0 {
		fmt.Fprintf(&sb, "- Medical history: %s\n", strings.Join(c.History.PastDiseases, "; "))
	}
	if len(c.History.Allergies) > 0 {
		fmt.Fprintf(&sb, "- Allergies: %s\n", strings.Join(c.History.Allergies, "; "))
	}
	if len(c.Medications.Prescription) > 0 {
		fmt.Fprintf(&sb, "- Prescription medications: %s\n", strings.Join(c.Medications.Prescription, "; "))
	}
	if len(c.Medications.OverTheCounter) > 0 {
		fmt.Fprintf(&sb, "- Over-the-counter medications: %s\n", strings.Join(c.Medications.OverTheCounter, "; "))
	}
	if len(c.Vitals) > 0 {
		keys := make([]string, 0, len(c.Vitals))
		for k := range c.Vitals {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("- Vitals:")
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%s", k, c.Vitals[k])
		}
		sb.WriteString("\n")
	}
	if c.Imaging.Caption != "" {
		fmt.Fprintf(&sb, "- Imaging analysis: %s\n", c.Imaging.Caption)
	}
	for _, finding := range c.Imaging.Findings {
		fmt.Fprintf(&sb, "- Imaging finding: %s\n", finding)
	}
	if c.Imaging.Impression != "" {
		fmt.Fprintf(&sb, "- Imaging impression: %s\n", c.Imaging.Impression)
	}
	if c.FreeText != "" {
		fmt.Fprintf(&sb, "- Additional notes: %s\n", c.FreeText)
	}
	return sb.String()
}

// renderColleagueOpinions formats prior-round opinions for a revision prompt,
// excluding the reading expert's own. Colleagues are anonymised by position
// so experts critique opinions, not identities.
func renderColleagueOpinions(selfID string, opinions map[string]types.Opinion) string {
	ids := make([]string, 0, len(opinions))
	for id := range opinions {
		if id == selfID {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for i, id := range ids {
		op := opinions[id]
		fmt.Fprintf(&sb, "Colleague %d opinion:\n", i+1)
		fmt.Fprintf(&sb, "- Hypotheses: %s\n", strings.Join(op.Hypotheses, "; "))
		fmt.Fprintf(&sb, "- Tests: %s\n", strings.Join(op.Tests, "; "))
		if op.Critique != "" {
			fmt.Fprintf(&sb, "- Critique: %s\n", op.Critique)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderPanelOpinions formats the full panel's opinions for the synthesis
// prompt, in stable expert order.
func renderPanelOpinions(opinions map[string]types.Opinion) string {
	ids := make([]string, 0, len(opinions))
	for id := range opinions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for i, id := range ids {
		op := opinions[id]
		fmt.Fprintf(&sb, "Expert %d:\n", i+1)
		fmt.Fprintf(&sb, "- Hypotheses: %s\n", strings.Join(op.Hypotheses, "; "))
		fmt.Fprintf(&sb, "- Tests: %s\n", strings.Join(op.Tests, "; "))
		if op.Justification != "" {
			fmt.Fprintf(&sb, "- Reasoning: %s\n", op.Justification)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
