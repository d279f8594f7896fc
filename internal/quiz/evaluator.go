// Package quiz implements the questionnaire engine.
//
// This file implements the conditional-route rule cascade. Stored conditions
// carry a string discriminator; they are converted to a closed set of typed
// conditions before evaluation so an unknown type can never route.
package quiz

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

// condition is one evaluatable routing rule, checked against the full map of
// recorded answers.
type condition interface {
	evaluate(answers map[string]string) bool
}

// answerEquals matches when the recorded answer id for a question equals the
// expected value exactly.
type answerEquals struct {
	questionID string
	value      string
}

func (c answerEquals) evaluate(answers map[string]string) bool {
	return answers[c.questionID] == c.value
}

// answerIncludes matches when the recorded answer id for a question contains
// the expected value as a substring.
type answerIncludes struct {
	questionID string
	value      string
}

func (c answerIncludes) evaluate(answers map[string]string) bool {
	recorded, ok := answers[c.questionID]
	return ok && strings.Contains(recorded, c.value)
}

// answerCountGTE matches when the total number of recorded answers is at
// least the threshold. Counts include the answer recorded in the transition
// currently being resolved.
type answerCountGTE struct {
	min int
}

func (c answerCountGTE) evaluate(answers map[string]string) bool {
	return len(answers) >= c.min
}

// buildCondition converts a stored condition into its typed form.
func buildCondition(rc models.RouteCondition) (condition, error) {
	switch rc.Type {
	case models.ConditionAnswerEquals:
		return answerEquals{questionID: rc.QuestionID, value: rc.Value}, nil
	case models.ConditionAnswerIncludes:
		return answerIncludes{questionID: rc.QuestionID, value: rc.Value}, nil
	case models.ConditionAnswerCountGTE:
		min, err := strconv.Atoi(rc.Value)
		if err != nil {
			return nil, fmt.Errorf("answer_count_gte value %q is not an integer: %w", rc.Value, err)
		}
		return answerCountGTE{min: min}, nil
	default:
		return nil, fmt.Errorf("unknown condition type %q", rc.Type)
	}
}

// resolveNextQuestionID computes the successor for a chosen answer: the first
// matching conditional route in list order, falling back to the static
// successor. Returns "" when no successor is resolvable.
func resolveNextQuestionID(opt *models.AnswerOption, answers map[string]string) string {
	for i, route := range opt.ConditionalRoutes {
		cond, err := buildCondition(route.Condition)
		if err != nil {
			// A malformed rule never routes; later rules still apply.
			slog.Warn("skipping malformed conditional route", "error", err, "answerID", opt.ID, "route", i)
			continue
		}
		if cond.evaluate(answers) {
			slog.Debug("conditional route matched", "answerID", opt.ID, "route", i, "target", route.TargetQuestionID)
			return route.TargetQuestionID
		}
	}
	return opt.NextQuestionID
}
