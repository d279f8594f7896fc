// Package chain implements the multi-questionnaire orchestrator: it
// sequences engine instances over an ordered step list, splices new steps in
// when a hand-off trigger fires, skips steps whose conditions are not met,
// and merges every step's partial results into one aggregated outcome.
package chain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/officeappout/out-run-app-sub001/internal/content"
	"github.com/officeappout/out-run-app-sub001/internal/models"
	"github.com/officeappout/out-run-app-sub001/internal/quiz"
)

// StepOutcome is the result of completing a chain step: either the engine for
// the next eligible step, or the final aggregated result when the chain is
// done. Exactly one field is set.
type StepOutcome struct {
	Next  *quiz.Engine
	Final *models.ChainAggregatedResult
}

// Orchestrator owns a chain run: the step list, the cursor, the current
// engine, and the recorded step results. It is the sole mutator of its state
// and, like the engine, relies on the caller to serialize access.
type Orchestrator struct {
	content  content.Store
	language string
	gender   string

	definition models.ChainDefinition
	steps      []models.ChainStep
	// defIndexes is parallel to steps: the definition index each runtime
	// step came from, -1 for spliced steps. Step conditions reference
	// definition indices, which splices must not shift.
	defIndexes []int
	cursor     int
	current    *quiz.Engine
	results    []models.ChainStepResult

	// now is swappable for tests.
	now func() time.Time
}

// New creates an orchestrator over the given content store.
func New(store content.Store) *Orchestrator {
	return &Orchestrator{content: store, cursor: -1, now: time.Now}
}

// StartChain resets sequencing state and returns a freshly initialized engine
// for step 0.
func (o *Orchestrator) StartChain(ctx context.Context, def models.ChainDefinition, language, gender string) (*quiz.Engine, error) {
	if err := def.Validate(); err != nil {
		slog.Error("Orchestrator StartChain invalid definition", "error", err)
		return nil, fmt.Errorf("invalid chain definition: %w", err)
	}
	slog.Info("Orchestrator StartChain", "chainID", def.ID, "steps", len(def.Steps), "language", language, "gender", gender)

	o.language = language
	o.gender = gender
	o.definition = def
	// The runtime step list grows on splices; copy so the definition stays
	// untouched.
	o.steps = append([]models.ChainStep(nil), def.Steps...)
	o.defIndexes = make([]int, len(def.Steps))
	for i := range o.defIndexes {
		o.defIndexes[i] = i
	}
	o.cursor = 0
	o.results = nil

	engine, err := o.startStep(ctx, o.steps[0])
	if err != nil {
		return nil, err
	}
	o.current = engine
	return engine, nil
}

// CurrentEngine returns the engine driving the current step, or nil before
// StartChain.
func (o *Orchestrator) CurrentEngine() *quiz.Engine {
	return o.current
}

// HandleChainTrigger processes a hand-off outcome from the current step's
// engine: the abandoned step's partial answers are snapshotted, the target
// questionnaire is spliced in after the current position unless already
// present, and the engine for it is returned.
func (o *Orchestrator) HandleChainTrigger(ctx context.Context, trigger *models.ChainTrigger) (*quiz.Engine, error) {
	if trigger == nil || trigger.QuestionnaireID == "" {
		return nil, fmt.Errorf("chain trigger missing questionnaire id")
	}
	if o.cursor < 0 || o.current == nil {
		return nil, fmt.Errorf("chain has no active step")
	}
	slog.Info("Orchestrator HandleChainTrigger", "target", trigger.QuestionnaireID, "cursor", o.cursor)

	// A hand-off abandons the current step; its partial answers are still
	// recorded for aggregation.
	o.snapshotCurrent()

	idx := o.findStep(trigger.QuestionnaireID)
	if idx < 0 {
		// Idempotent insertion: splice immediately after the current
		// position, rebuilding the slice so no caller-held view is mutated
		// in place.
		step := models.ChainStep{
			QuestionnaireID: trigger.QuestionnaireID,
			StartQuestionID: trigger.StartQuestionID,
			Label:           trigger.QuestionnaireID,
		}
		spliced := make([]models.ChainStep, 0, len(o.steps)+1)
		spliced = append(spliced, o.steps[:o.cursor+1]...)
		spliced = append(spliced, step)
		spliced = append(spliced, o.steps[o.cursor+1:]...)
		o.steps = spliced
		indexes := make([]int, 0, len(o.defIndexes)+1)
		indexes = append(indexes, o.defIndexes[:o.cursor+1]...)
		indexes = append(indexes, -1)
		indexes = append(indexes, o.defIndexes[o.cursor+1:]...)
		o.defIndexes = indexes
		idx = o.cursor + 1
		slog.Debug("Orchestrator spliced chained step", "target", trigger.QuestionnaireID, "index", idx, "totalSteps", len(o.steps))
	} else {
		slog.Debug("Orchestrator chained step already present", "target", trigger.QuestionnaireID, "index", idx)
	}

	o.cursor = idx
	engine, err := o.startStep(ctx, o.steps[idx])
	if err != nil {
		return nil, err
	}
	o.current = engine
	return engine, nil
}

// CompleteCurrentQuestionnaire processes a normal terminal outcome from the
// current step's engine: the step is snapshotted and the first eligible later
// step is started. When none remains, the chain is complete and the
// aggregated result is returned instead.
func (o *Orchestrator) CompleteCurrentQuestionnaire(ctx context.Context) (*StepOutcome, error) {
	if o.cursor < 0 || o.current == nil {
		return nil, fmt.Errorf("chain has no active step")
	}
	slog.Debug("Orchestrator CompleteCurrentQuestionnaire", "cursor", o.cursor)
	o.snapshotCurrent()

	for i := o.cursor + 1; i < len(o.steps); i++ {
		if !o.stepEligible(o.steps[i]) {
			slog.Info("Orchestrator skipping ineligible step", "questionnaireID", o.steps[i].QuestionnaireID, "index", i)
			continue
		}
		o.cursor = i
		engine, err := o.startStep(ctx, o.steps[i])
		if err != nil {
			return nil, err
		}
		o.current = engine
		return &StepOutcome{Next: engine}, nil
	}

	o.current = nil
	o.cursor = len(o.steps)
	agg := o.AggregateResults()
	slog.Info("Orchestrator chain complete", "stepsCompleted", agg.StepsCompleted, "totalSteps", agg.TotalSteps, "results", len(agg.Results))
	return &StepOutcome{Final: &agg}, nil
}

// Completed reports whether the chain has run past its last step.
func (o *Orchestrator) Completed() bool {
	return len(o.steps) > 0 && o.cursor >= len(o.steps)
}

// ChainProgress exposes a 1-indexed progress snapshot for the caller's
// progress bar.
func (o *Orchestrator) ChainProgress() models.ChainProgress {
	prog := models.ChainProgress{
		TotalSteps:      len(o.steps),
		CompletedLabels: make([]string, 0, len(o.results)),
	}
	if o.cursor >= 0 && o.cursor < len(o.steps) {
		prog.CurrentStep = o.cursor + 1
		prog.CurrentLabel = o.stepLabel(o.steps[o.cursor])
	} else if o.cursor >= len(o.steps) {
		prog.CurrentStep = len(o.steps)
	}
	for _, r := range o.results {
		if r.StepIndex >= 0 && r.StepIndex < len(o.steps) {
			prog.CompletedLabels = append(prog.CompletedLabels, o.stepLabel(o.steps[r.StepIndex]))
		}
	}
	return prog
}

// Snapshot captures the orchestrator's sequencing state for persistence.
func (o *Orchestrator) Snapshot() models.ChainSnapshot {
	return models.ChainSnapshot{
		Definition:  o.definition,
		Steps:       append([]models.ChainStep(nil), o.steps...),
		DefIndexes:  append([]int(nil), o.defIndexes...),
		Cursor:      o.cursor,
		StepResults: append([]models.ChainStepResult(nil), o.results...),
	}
}

// Restore rebuilds an orchestrator from a persisted snapshot, resuming the
// current step's engine at currentQuestionID with its recorded answers.
func (o *Orchestrator) Restore(ctx context.Context, snap models.ChainSnapshot, language, gender, currentQuestionID string, answers map[string]string) error {
	if snap.Cursor < 0 || snap.Cursor >= len(snap.Steps) {
		return fmt.Errorf("chain snapshot cursor %d out of range", snap.Cursor)
	}
	o.language = language
	o.gender = gender
	o.definition = snap.Definition
	o.steps = append([]models.ChainStep(nil), snap.Steps...)
	o.defIndexes = append([]int(nil), snap.DefIndexes...)
	if len(o.defIndexes) != len(o.steps) {
		// Snapshot predates splice bookkeeping: without recorded splices the
		// runtime order is the definition order.
		o.defIndexes = make([]int, len(o.steps))
		for i := range o.defIndexes {
			o.defIndexes[i] = i
		}
	}
	o.cursor = snap.Cursor
	o.results = append([]models.ChainStepResult(nil), snap.StepResults...)

	step := o.steps[o.cursor]
	engine := quiz.NewEngine(o.content, language, gender)
	if err := engine.Resume(ctx, step.QuestionnaireID, currentQuestionID, answers); err != nil {
		slog.Error("Orchestrator Restore failed to resume step engine", "error", err, "questionnaireID", step.QuestionnaireID)
		return fmt.Errorf("failed to resume chain step %s: %w", step.QuestionnaireID, err)
	}
	o.current = engine
	slog.Info("Orchestrator restored", "cursor", o.cursor, "questionnaireID", step.QuestionnaireID, "recordedSteps", len(o.results))
	return nil
}

// startStep initializes a fresh engine for a step: at its named start
// question when set, else at the questionnaire's entry point.
func (o *Orchestrator) startStep(ctx context.Context, step models.ChainStep) (*quiz.Engine, error) {
	engine := quiz.NewEngine(o.content, o.language, o.gender)
	if err := engine.Initialize(ctx, step.QuestionnaireID, step.StartQuestionID); err != nil {
		slog.Error("Orchestrator failed to start step", "error", err, "questionnaireID", step.QuestionnaireID)
		return nil, fmt.Errorf("failed to start chain step %s: %w", step.QuestionnaireID, err)
	}
	slog.Debug("Orchestrator started step", "questionnaireID", step.QuestionnaireID, "cursor", o.cursor)
	return engine, nil
}

// snapshotCurrent records the current engine's results and answers as an
// immutable step result.
func (o *Orchestrator) snapshotCurrent() {
	step := o.steps[o.cursor]
	progress := o.current.Progress()
	o.results = append(o.results, models.ChainStepResult{
		StepIndex:       o.cursor,
		QuestionnaireID: step.QuestionnaireID,
		Results:         progress.Result.Results(),
		Answers:         progress.Answers,
		CompletedAt:     o.now(),
	})
	slog.Debug("Orchestrator snapshotted step", "questionnaireID", step.QuestionnaireID, "index", o.cursor, "answers", len(progress.Answers), "results", len(progress.Result.Results()))
}

// stepEligible reports whether a step may run. A step is eligible unless its
// condition references an earlier step whose recorded results do not contain
// the required program id. A referenced step that produced no recorded result
// fails the condition. Condition step indices are definition indices; they
// are resolved to runtime positions so splices cannot shift what a condition
// binds to.
func (o *Orchestrator) stepEligible(step models.ChainStep) bool {
	if step.Condition == nil {
		return true
	}
	runtimeIdx := o.runtimeIndexOf(step.Condition.StepIndex)
	if runtimeIdx < 0 {
		return false
	}
	for _, r := range o.results {
		if r.StepIndex != runtimeIdx {
			continue
		}
		for _, res := range r.Results {
			if res.ProgramID == step.Condition.RequiredProgramID {
				return true
			}
		}
	}
	return false
}

// runtimeIndexOf returns the runtime position of a definition step, or -1.
func (o *Orchestrator) runtimeIndexOf(defIndex int) int {
	for i, d := range o.defIndexes {
		if d == defIndex {
			return i
		}
	}
	return -1
}

// findStep returns the index of the step with the given questionnaire id, or -1.
func (o *Orchestrator) findStep(questionnaireID string) int {
	for i, s := range o.steps {
		if s.QuestionnaireID == questionnaireID {
			return i
		}
	}
	return -1
}

func (o *Orchestrator) stepLabel(step models.ChainStep) string {
	if step.Label != "" {
		return step.Label
	}
	return step.QuestionnaireID
}
