// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

// Package intake assembles the immutable case snapshot a deliberation runs
// over. Raw free-text answers are collected stage by stage and light
// heuristics lift the obvious structure out of them; the raw input is always
// kept so nothing the patient said is lost to a missed keyword.
package intake

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/medquorum/imaging"
	"github.com/BaSui01/medquorum/types"
)

// Stage identifies one intake collection step.
type Stage string

const (
	StageDemographics Stage = "demographics"
	StageHistory      Stage = "history"
	StageSymptoms     Stage = "symptoms"
	StageMedications  Stage = "medications"
	StageImaging      Stage = "imaging"
)

var agePattern = regexp.MustCompile(`\b(\d{1,3})\s*(?:[-\s]?years?[-\s]?old|y/?o)\b`)

// CaseBuilder accumulates staged intake input into a CaseContext. It is not
// safe for concurrent use; one builder serves one intake conversation.
type CaseBuilder struct {
	caseCtx   types.CaseContext
	captioner *imaging.SafeCaptioner
	collected map[Stage]bool
	logger    *zap.Logger
}

// NewCaseBuilder creates an empty builder. The captioner may be nil when the
// intake carries no image.
func NewCaseBuilder(captioner *imaging.SafeCaptioner, logger *zap.Logger) *CaseBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaseBuilder{
		captioner: captioner,
		collected: make(map[Stage]bool),
		logger:    logger.With(zap.String("component", "intake")),
	}
}

// AddDemographics records the demographics answer, lifting age and gender
// out of the raw text when present.
func (b *CaseBuilder) AddDemographics(raw string) *CaseBuilder {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return b
	}
	b.caseCtx.Demographics.RawInput = raw
	if m := agePattern.FindStringSubmatch(strings.ToLower(raw)); m != nil {
		b.caseCtx.Demographics.Age = m[1]
	}
	if gender := detectGender(raw); gender != "" {
		b.caseCtx.Demographics.Gender = gender
	}
	b.collected[StageDemographics] = true
	return b
}

// AddHistory records past medical history, splitting the answer into
// distinct conditions.
func (b *CaseBuilder) AddHistory(raw string) *CaseBuilder {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return b
	}
	b.caseCtx.History.RawInput = raw
	if !isNegativeAnswer(raw) {
		b.caseCtx.History.PastDiseases = splitList(raw)
	}
	b.collected[StageHistory] = true
	return b
}

// AddSymptoms records the current complaint.
func (b *CaseBuilder) AddSymptoms(raw string) *CaseBuilder {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return b
	}
	b.caseCtx.Symptoms.RawInput = raw
	b.caseCtx.Symptoms.MainSymptoms = splitList(raw)
	b.collected[StageSymptoms] = true
	return b
}

// AddMedications records what the patient currently takes.
func (b *CaseBuilder) AddMedications(raw string) *CaseBuilder {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return b
	}
	b.caseCtx.Medications.RawInput = raw
	if !isNegativeAnswer(raw) {
		b.caseCtx.Medications.Prescription = splitList(raw)
	}
	b.collected[StageMedications] = true
	return b
}

// AddVital records one measured vital sign.
func (b *CaseBuilder) AddVital(name, value string) *CaseBuilder {
	if name == "" || value == "" {
		return b
	}
	if b.caseCtx.Vitals == nil {
		b.caseCtx.Vitals = make(map[string]string)
	}
	b.caseCtx.Vitals[name] = value
	return b
}

// AddFreeText records additional unstructured notes.
func (b *CaseBuilder) AddFreeText(raw string) *CaseBuilder {
	b.caseCtx.FreeText = strings.TrimSpace(raw)
	return b
}

// AddImage captions the uploaded image and records the finding. The safe
// captioner guarantees a usable caption even when the backend fails.
func (b *CaseBuilder) AddImage(ctx context.Context, image []byte) *CaseBuilder {
	if b.captioner == nil {
		return b
	}
	b.caseCtx.Imaging.Caption = b.captioner.Caption(ctx, image)
	b.collected[StageImaging] = true
	return b
}

// Collected reports whether a stage has received input.
func (b *CaseBuilder) Collected(stage Stage) bool {
	return b.collected[stage]
}

// NextStage returns the first stage still awaiting input, and false once
// every required stage is collected. Imaging is optional.
func (b *CaseBuilder) NextStage() (Stage, bool) {
	for _, stage := range []Stage{StageDemographics, StageHistory, StageSymptoms, StageMedications} {
		if !b.collected[stage] {
			return stage, true
		}
	}
	return "", false
}

// Build validates and returns the finished case snapshot. The builder's own
// state is not shared with the returned value.
func (b *CaseBuilder) Build() (types.CaseContext, error) {
	if err := b.caseCtx.Validate(); err != nil {
		return types.CaseContext{}, err
	}
	out := b.caseCtx.Clone()
	b.logger.Info("case assembled", zap.Any("case", out.RedactForLog()))
	return out, nil
}

func detectGender(raw string) string {
	lower := " " + strings.ToLower(raw) + " "
	for _, kw := range []string{" female ", " woman ", " girl "} {
		if strings.Contains(lower, kw) {
			return "female"
		}
	}
	for _, kw := range []string{" male ", " man ", " boy "} {
		if strings.Contains(lower, kw) {
			return "male"
		}
	}
	return ""
}

// isNegativeAnswer recognises "none"-style answers so they produce an empty
// list instead of a single junk item.
func isNegativeAnswer(raw string) bool {
	switch strings.ToLower(strings.TrimRight(strings.TrimSpace(raw), ".!")) {
	case "none", "no", "nothing", "n/a", "na", "no known history", "no medications":
		return true
	}
	return false
}

// splitList breaks a free-text answer into distinct items on commas,
// semicolons and the word "and".
func splitList(raw string) []string {
	normalized := strings.NewReplacer(";", ",", " and ", ",").Replace(raw)
	parts := strings.Split(normalized, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(p), "."))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
