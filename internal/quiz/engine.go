// Package quiz implements the questionnaire engine.
//
// An Engine owns traversal of one question graph: it loads a node, applies
// an answer, resolves the successor through the rule cascade, and detects
// terminal conditions. One engine drives one questionnaire run; resuming a
// finished run requires a new instance.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/officeappout/out-run-app-sub001/internal/content"
	"github.com/officeappout/out-run-app-sub001/internal/models"
)

var (
	// ErrNoActiveQuestion indicates Answer was called while the engine holds
	// no current question (never initialized, or already terminal).
	ErrNoActiveQuestion = errors.New("quiz: no active question")

	// ErrInvalidAnswer indicates the submitted answer id is not present on
	// the current question, a caller/content desync.
	ErrInvalidAnswer = errors.New("quiz: answer not on current question")
)

// Engine drives a single questionnaire. It is not safe for concurrent use;
// the caller serializes interaction, matching the one-user-one-flow ownership
// model.
type Engine struct {
	content   content.Store
	language  string
	gender    string
	partition string

	current  *models.QuestionNode
	progress models.QuestionnaireProgress
}

// NewEngine creates an uninitialized engine over the given content store.
func NewEngine(store content.Store, language, gender string) *Engine {
	return &Engine{
		content:  store,
		language: language,
		gender:   gender,
		progress: models.QuestionnaireProgress{Answers: make(map[string]string)},
	}
}

// Initialize loads the engine's starting node: the partition's entry question
// or, when startQuestionID is set, that specific node. A missing node is
// fatal; there is no retry path.
func (e *Engine) Initialize(ctx context.Context, partition, startQuestionID string) error {
	slog.Debug("Engine Initialize", "partition", partition, "startQuestionID", startQuestionID, "language", e.language, "gender", e.gender)

	var node *models.QuestionNode
	var err error
	if startQuestionID != "" {
		node, err = e.content.GetQuestionWithAnswers(ctx, startQuestionID, e.language, e.gender)
	} else {
		node, err = e.content.GetFirstQuestion(ctx, partition, e.language, e.gender)
	}
	if err != nil {
		slog.Error("Engine Initialize failed to load start question", "error", err, "partition", partition, "startQuestionID", startQuestionID)
		return fmt.Errorf("failed to load start question: %w", err)
	}
	if err := node.Validate(); err != nil {
		slog.Error("Engine Initialize loaded invalid node", "error", err, "questionID", node.ID)
		return fmt.Errorf("invalid start question: %w", err)
	}

	e.partition = partition
	e.current = node
	e.progress = models.QuestionnaireProgress{Answers: make(map[string]string)}
	slog.Debug("Engine Initialize succeeded", "questionID", node.ID)
	return nil
}

// Resume rebuilds an engine mid-run: previously recorded answers are
// replayed into progress and traversal continues at currentQuestionID. Used
// by restart recovery.
func (e *Engine) Resume(ctx context.Context, partition, currentQuestionID string, answers map[string]string) error {
	if err := e.Initialize(ctx, partition, currentQuestionID); err != nil {
		return err
	}
	for q, a := range answers {
		e.progress.Answers[q] = a
	}
	slog.Debug("Engine Resume succeeded", "questionID", currentQuestionID, "answers", len(answers))
	return nil
}

// CurrentQuestion returns the active node, or nil when the engine is
// uninitialized or terminal. Pure accessor.
func (e *Engine) CurrentQuestion() *models.QuestionNode {
	return e.current
}

// Answer applies the chosen answer to the current question and resolves the
// transition: terminal payload first, then chain trigger, then routing.
func (e *Engine) Answer(ctx context.Context, answerID string) (*Outcome, error) {
	if e.current == nil {
		slog.Warn("Engine Answer called with no active question", "answerID", answerID)
		return nil, ErrNoActiveQuestion
	}

	opt := e.current.FindAnswer(answerID)
	if opt == nil {
		slog.Warn("Engine Answer invalid answer id", "questionID", e.current.ID, "answerID", answerID)
		return nil, fmt.Errorf("answer %s on question %s: %w", answerID, e.current.ID, ErrInvalidAnswer)
	}

	questionID := e.current.ID
	e.progress.Answers[questionID] = answerID
	slog.Debug("Engine recorded answer", "questionID", questionID, "answerID", answerID, "total", len(e.progress.Answers))

	// Terminal payload takes precedence over everything: a result
	// assignment is an endpoint of the assessment even when routing
	// metadata is also present.
	if opt.HasTerminalPayload() {
		result := models.NewTerminalResult(opt)
		e.progress.ResultReached = true
		e.progress.Result = result
		e.current = nil
		slog.Info("Engine reached terminal result", "questionID", questionID, "answerID", answerID, "programID", result.AssignedProgramID, "levelID", result.AssignedLevelID)
		return &Outcome{Kind: OutcomeCompleted, Result: result}, nil
	}

	// Hand-off: the engine does not know how to load another questionnaire;
	// it surfaces the trigger for the orchestrator.
	if opt.ChainTrigger != nil {
		e.current = nil
		slog.Info("Engine hand-off to chained questionnaire", "questionID", questionID, "answerID", answerID, "target", opt.ChainTrigger.QuestionnaireID)
		return &Outcome{Kind: OutcomeHandOff, Trigger: opt.ChainTrigger}, nil
	}

	nextID := resolveNextQuestionID(opt, e.progress.Answers)
	if nextID == "" {
		// No matching rule, no static edge, no payload: an implicit
		// terminal without result. Kept silent to preserve content
		// semantics, but loud in logs for authoring review.
		e.progress.ResultReached = true
		e.progress.Result = &models.TerminalResult{}
		e.current = nil
		slog.Warn("Engine implicit terminal without result", "questionID", questionID, "answerID", answerID)
		return &Outcome{Kind: OutcomeCompleted, Result: e.progress.Result}, nil
	}

	node, err := e.content.GetQuestionWithAnswers(ctx, nextID, e.language, e.gender)
	if err != nil {
		slog.Error("Engine failed to load next question", "error", err, "questionID", questionID, "nextID", nextID)
		return nil, fmt.Errorf("failed to load next question %s: %w", nextID, err)
	}
	e.current = node
	slog.Debug("Engine advanced", "from", questionID, "to", nextID)
	return &Outcome{Kind: OutcomeContinue, Next: node}, nil
}

// AllAnswers returns a copy of the recorded answer map.
func (e *Engine) AllAnswers() map[string]string {
	out := make(map[string]string, len(e.progress.Answers))
	for q, a := range e.progress.Answers {
		out[q] = a
	}
	return out
}

// Progress returns a snapshot of the engine's running state.
func (e *Engine) Progress() models.QuestionnaireProgress {
	snap := e.progress
	snap.Answers = e.AllAnswers()
	return snap
}

// Partition returns the partition the engine was initialized with.
func (e *Engine) Partition() string {
	return e.partition
}

// Reset clears all engine state, returning it to uninitialized.
func (e *Engine) Reset() {
	slog.Debug("Engine Reset", "partition", e.partition)
	e.current = nil
	e.partition = ""
	e.progress = models.QuestionnaireProgress{Answers: make(map[string]string)}
}
