package types

import "fmt"

// MaxListItems caps hypothesis and test lists on every stored contract.
const MaxListItems = 5

// Opinion is one expert's structured view of the case for one round.
// Hypotheses and Tests are in priority order, most likely / most important
// first. Both lists are capped at MaxListItems and are never stored empty;
// the recovery pipeline substitutes a fallback before an empty list can
// reach the session store.
type Opinion struct {
	ExpertID      string   `json:"expert_id"`
	Round         int      `json:"round"`
	Hypotheses    []string `json:"hypotheses"`
	Tests         []string `json:"tests"`
	Justification string   `json:"justification,omitempty"`
	Critique      string   `json:"critique,omitempty"`
}

// Validate enforces the opinion shape contract.
func (o *Opinion) Validate() error {
	if o == nil {
		return NewError(ErrInvalidOpinion, "opinion is nil")
	}
	if err := validateList("hypotheses", o.Hypotheses); err != nil {
		return NewError(ErrInvalidOpinion, err.Error())
	}
	if err := validateList("tests", o.Tests); err != nil {
		return NewError(ErrInvalidOpinion, err.Error())
	}
	return nil
}

// Decision is the coordinator's synthesis of a round. TerminationReason is
// non-empty only when the round should stop the session.
type Decision struct {
	Round             int      `json:"round"`
	Hypotheses        []string `json:"consensus_hypotheses"`
	Tests             []string `json:"prioritized_tests"`
	Rationale         string   `json:"rationale,omitempty"`
	TerminationReason string   `json:"termination_reason,omitempty"`
}

// Validate enforces the decision shape contract.
func (d *Decision) Validate() error {
	if d == nil {
		return NewError(ErrInvalidDecision, "decision is nil")
	}
	if err := validateList("consensus_hypotheses", d.Hypotheses); err != nil {
		return NewError(ErrInvalidDecision, err.Error())
	}
	if err := validateList("prioritized_tests", d.Tests); err != nil {
		return NewError(ErrInvalidDecision, err.Error())
	}
	return nil
}

func validateList(name string, items []string) error {
	if len(items) == 0 {
		return fmt.Errorf("%s must not be empty", name)
	}
	if len(items) > MaxListItems {
		return fmt.Errorf("%s exceeds %d items", name, MaxListItems)
	}
	for i, item := range items {
		if item == "" {
			return fmt.Errorf("%s[%d] is blank", name, i)
		}
	}
	return nil
}

// CapList truncates a list to MaxListItems, preserving priority order.
func CapList(items []string) []string {
	if len(items) > MaxListItems {
		return items[:MaxListItems]
	}
	return items
}
