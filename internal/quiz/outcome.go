// Package quiz implements the questionnaire engine: traversal of a single
// question graph to a terminal outcome.
package quiz

import "github.com/officeappout/out-run-app-sub001/internal/models"

// OutcomeKind discriminates what an answer transition produced.
type OutcomeKind string

const (
	// OutcomeContinue means a next question was resolved.
	OutcomeContinue OutcomeKind = "continue"
	// OutcomeCompleted means the questionnaire reached a terminal state,
	// with or without a result payload.
	OutcomeCompleted OutcomeKind = "completed"
	// OutcomeHandOff means the chosen answer carries a chain trigger; the
	// caller must switch questionnaires.
	OutcomeHandOff OutcomeKind = "chain_handoff"
)

// Outcome is the result of one Answer transition. Exactly one of Next,
// Result, or Trigger is set, matching Kind.
type Outcome struct {
	Kind    OutcomeKind            `json:"kind"`
	Next    *models.QuestionNode   `json:"next,omitempty"`
	Result  *models.TerminalResult `json:"result,omitempty"`
	Trigger *models.ChainTrigger   `json:"trigger,omitempty"`
}
