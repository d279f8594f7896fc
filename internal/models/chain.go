// Package models defines chain sequencing structures for multi-questionnaire
// assessments.
package models

import (
	"fmt"
	"time"
)

// StepCondition gates a chain step on an earlier step's outcome: the step
// runs only when the referenced step assigned the required program.
type StepCondition struct {
	StepIndex         int    `json:"stepIndex" bson:"stepIndex"`
	RequiredProgramID string `json:"requiredProgramId" bson:"requiredProgramId"`
}

// ChainStep is one questionnaire in a chain definition.
type ChainStep struct {
	QuestionnaireID string         `json:"questionnaireId" bson:"questionnaireId"`
	StartQuestionID string         `json:"startQuestionId,omitempty" bson:"startQuestionId,omitempty"`
	Label           string         `json:"label,omitempty" bson:"label,omitempty"`
	Condition       *StepCondition `json:"condition,omitempty" bson:"condition,omitempty"`
}

// ChainDefinition is an ordered list of questionnaire steps. The runtime step
// list may grow beyond the definition when hand-off triggers splice steps in.
type ChainDefinition struct {
	ID    string      `json:"id,omitempty" bson:"id,omitempty"`
	Steps []ChainStep `json:"steps" bson:"steps"`
}

// Validate checks a chain definition before it is started.
func (d *ChainDefinition) Validate() error {
	if len(d.Steps) == 0 {
		return fmt.Errorf("chain definition has no steps")
	}
	for i, step := range d.Steps {
		if step.QuestionnaireID == "" {
			return fmt.Errorf("chain step %d missing questionnaire id", i)
		}
		if step.Condition != nil {
			if step.Condition.StepIndex < 0 || step.Condition.StepIndex >= i {
				return fmt.Errorf("chain step %d condition references step %d, want an earlier step", i, step.Condition.StepIndex)
			}
		}
	}
	return nil
}

// ChainStepResult is the immutable per-step snapshot recorded when a step
// ends, either through a terminal answer or by being abandoned on hand-off.
type ChainStepResult struct {
	StepIndex       int               `json:"stepIndex"`
	QuestionnaireID string            `json:"questionnaireId"`
	Results         []AnswerResult    `json:"results,omitempty"`
	Answers         map[string]string `json:"answers"`
	CompletedAt     time.Time         `json:"completedAt"`
}

// ChainAggregatedResult is the merged outcome of a completed chain.
type ChainAggregatedResult struct {
	Results        []AnswerResult    `json:"results"`
	SubLevels      map[string]int    `json:"subLevels"`
	Answers        map[string]string `json:"answers"`
	StepsCompleted int               `json:"stepsCompleted"`
	TotalSteps     int               `json:"totalSteps"`
}

// ChainProgress is a 1-indexed progress snapshot for progress-bar rendering.
type ChainProgress struct {
	CurrentStep     int      `json:"currentStep"`
	TotalSteps      int      `json:"totalSteps"`
	CurrentLabel    string   `json:"currentLabel,omitempty"`
	CompletedLabels []string `json:"completedLabels"`
}

// ChainSnapshot captures the orchestrator's sequencing state for persistence
// and restart recovery. DefIndexes maps each runtime step back to its index
// in the definition (-1 for spliced steps), so step conditions keep binding
// to the authored step after splices shift runtime positions.
type ChainSnapshot struct {
	Definition  ChainDefinition   `json:"definition"`
	Steps       []ChainStep       `json:"steps"`
	DefIndexes  []int             `json:"defIndexes,omitempty"`
	Cursor      int               `json:"cursor"`
	StepResults []ChainStepResult `json:"stepResults"`
}
