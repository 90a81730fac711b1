// Copyright (c) MedQuorum Authors.
// Licensed under the MIT License.

package recovery

import (
	"regexp"
	"strings"

	"github.com/BaSui01/medquorum/types"
)

// minItemLength filters out noise such as bare dashes or stray numbering.
const minItemLength = 3

var numberedItem = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)

// ParsedOpinion holds the fields extracted from a raw expert response.
type ParsedOpinion struct {
	Hypotheses []string
	Tests      []string
	Critique   string
}

// ParsedDecision holds the fields extracted from a raw synthesis response.
type ParsedDecision struct {
	Hypotheses        []string
	Tests             []string
	Rationale         string
	TerminationReason string
}

// Complete reports whether both required lists were extracted.
func (p ParsedOpinion) Complete() bool {
	return len(p.Hypotheses) > 0 && len(p.Tests) > 0
}

// Complete reports whether both required lists were extracted.
func (p ParsedDecision) Complete() bool {
	return len(p.Hypotheses) > 0 && len(p.Tests) > 0
}

// ParseOpinion scans raw text for the expert response sections. Headings are
// matched loosely so that both first-round and revision-round variants
// ("Diagnostic Hypotheses" and "Updated Diagnostic Hypotheses") land in the
// same field. List items under a heading may be bulleted or numbered, and
// each list is capped at types.MaxListItems.
func ParseOpinion(raw string) ParsedOpinion {
	var (
		parsed   ParsedOpinion
		critique []string
		section  = sectionNone
	)

	for _, line := range strings.Split(raw, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if isHeading(t) {
			section = classifyOpinionHeading(t)
			continue
		}

		switch section {
		case sectionHypotheses:
			if item, ok := listItem(t); ok {
				parsed.Hypotheses = appendItem(parsed.Hypotheses, item)
			}
		case sectionTests:
			if item, ok := listItem(t); ok {
				parsed.Tests = appendItem(parsed.Tests, item)
			}
		case sectionCritique:
			critique = append(critique, t)
		}
	}

	parsed.Critique = strings.Join(critique, "\n")
	return parsed
}

// ParseDecision scans raw text for the synthesis response sections. The
// hypothesis and test lists live under "Main Candidates:" and "Immediately
// Needed:" sub-markers, the rationale under "Consensus Rationale:", and the
// consensus status section is scanned for the termination markers.
func ParseDecision(raw string) ParsedDecision {
	var (
		parsed     ParsedDecision
		rationale  []string
		section    = sectionNone
		collecting bool
	)

	for _, line := range strings.Split(raw, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if isHeading(t) {
			section = classifyDecisionHeading(t)
			collecting = false
			continue
		}

		switch section {
		case sectionHypotheses:
			if rest, ok := subMarker(t, "Main Candidates:"); ok {
				collecting = true
				if item := cleanItem(rest); item != "" {
					parsed.Hypotheses = appendItem(parsed.Hypotheses, item)
				}
				continue
			}
			if !collecting {
				continue
			}
			if item, ok := listItem(t); ok {
				parsed.Hypotheses = appendItem(parsed.Hypotheses, item)
			}
		case sectionTests:
			if rest, ok := subMarker(t, "Immediately Needed:"); ok {
				collecting = true
				if item := cleanItem(rest); item != "" {
					parsed.Tests = appendItem(parsed.Tests, item)
				}
				continue
			}
			if !collecting {
				continue
			}
			if item, ok := listItem(t); ok {
				parsed.Tests = appendItem(parsed.Tests, item)
			}
		case sectionConsensus:
			if declaresConsensus(t) {
				parsed.TerminationReason = "expert panel reached consensus"
			}
			if rest, ok := subMarker(t, "Consensus Rationale:"); ok {
				collecting = true
				if rest != "" {
					rationale = append(rationale, rest)
				}
				continue
			}
			if collecting {
				rationale = append(rationale, t)
			}
		}
	}

	parsed.Rationale = strings.Join(rationale, "\n")
	return parsed
}

const (
	sectionNone = iota
	sectionHypotheses
	sectionTests
	sectionCritique
	sectionConsensus
)

func isHeading(t string) bool {
	return strings.HasPrefix(t, "**") || strings.HasPrefix(t, "#")
}

func classifyOpinionHeading(t string) int {
	lower := strings.ToLower(t)
	switch {
	case strings.Contains(lower, "hypothes"):
		return sectionHypotheses
	case strings.Contains(lower, "test"):
		return sectionTests
	case strings.Contains(lower, "evaluation"), strings.Contains(lower, "analysis"), strings.Contains(lower, "critique"):
		return sectionCritique
	default:
		return sectionNone
	}
}

func classifyDecisionHeading(t string) int {
	lower := strings.ToLower(t)
	switch {
	case strings.Contains(lower, "hypothes"):
		return sectionHypotheses
	case strings.Contains(lower, "test"):
		return sectionTests
	case strings.Contains(lower, "consensus"):
		return sectionConsensus
	default:
		return sectionNone
	}
}

// declaresConsensus reports whether a consensus status line carries one of
// the explicit agreement markers.
func declaresConsensus(t string) bool {
	lower := strings.ToLower(t)
	return strings.Contains(lower, "clear consensus") ||
		strings.Contains(lower, "complete consensus") ||
		strings.Contains(lower, "consensus reached: yes")
}

// subMarker matches a labelled sub-line such as "Main Candidates: x" and
// returns the remainder after the label.
func subMarker(t, label string) (string, bool) {
	lower := strings.ToLower(t)
	idx := strings.Index(lower, strings.ToLower(label))
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(t[idx+len(label):]), true
}

// listItem recognises bulleted ("-", "*", "•") and numbered ("1.", "2)")
// list lines and returns the cleaned item text.
func listItem(t string) (string, bool) {
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(t, prefix) {
			item := cleanItem(t[len(prefix):])
			return item, item != ""
		}
	}
	if m := numberedItem.FindStringSubmatch(t); m != nil {
		item := cleanItem(m[1])
		return item, item != ""
	}
	return "", false
}

func cleanItem(s string) string {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*"))
	if len(s) < minItemLength {
		return ""
	}
	return s
}

func appendItem(list []string, item string) []string {
	if len(list) >= types.MaxListItems {
		return list
	}
	return append(list, item)
}
