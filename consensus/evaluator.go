package consensus

import (
	"sort"
	"strings"

	"github.com/BaSui01/medquorum/types"
)

// MinPanelSize is the smallest panel whose overlap can count as consensus.
const MinPanelSize = 3

// Evaluation is the outcome of checking one round for agreement.
type Evaluation struct {
	Reached          bool     `json:"reached"`
	ByDecision       bool     `json:"by_decision"`
	ByOverlap        bool     `json:"by_overlap"`
	SharedHypotheses []string `json:"shared_hypotheses,omitempty"`
	SharedTests      []string `json:"shared_tests,omitempty"`
}

// Evaluate combines the decision-declared signal with the opinion-overlap
// heuristic. The result is advisory: the orchestrator decides whether it
// terminates the session.
func Evaluate(opinions map[string]types.Opinion, decision *types.Decision) Evaluation {
	ev := Evaluation{}

	if decision != nil && strings.TrimSpace(decision.TerminationReason) != "" {
		ev.ByDecision = true
	}

	if len(opinions) >= MinPanelSize {
		ev.SharedHypotheses = sharedItems(opinions, func(o types.Opinion) []string { return o.Hypotheses })
		ev.SharedTests = sharedItems(opinions, func(o types.Opinion) []string { return o.Tests })
		ev.ByOverlap = len(ev.SharedHypotheses) > 0 && len(ev.SharedTests) > 0
	}

	ev.Reached = ev.ByDecision || ev.ByOverlap
	return ev
}

// sharedItems returns the normalized strings produced by two or more
// distinct experts, sorted for stable output.
func sharedItems(opinions map[string]types.Opinion, pick func(types.Opinion) []string) []string {
	counts := make(map[string]int)
	for _, op := range opinions {
		seen := make(map[string]struct{})
		for _, item := range pick(op) {
			norm := Normalize(item)
			if norm == "" {
				continue
			}
			// Count each expert once per string, even if repeated.
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			counts[norm]++
		}
	}

	var shared []string
	for norm, n := range counts {
		if n >= 2 {
			shared = append(shared, norm)
		}
	}
	sort.Strings(shared)
	return shared
}

// Normalize case-folds and trims a hypothesis or test string for comparison.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
