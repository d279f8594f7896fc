package quiz

import (
	"testing"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

func TestResolveNextQuestionID_FirstMatchWins(t *testing.T) {
	opt := &models.AnswerOption{
		ID:             "a1",
		NextQuestionID: "q_static",
		ConditionalRoutes: []models.ConditionalRoute{
			{
				Condition:        models.RouteCondition{Type: models.ConditionAnswerEquals, QuestionID: "q0", Value: "nope"},
				TargetQuestionID: "q_first",
			},
			{
				Condition:        models.RouteCondition{Type: models.ConditionAnswerEquals, QuestionID: "q0", Value: "yes"},
				TargetQuestionID: "q_second",
			},
			{
				Condition:        models.RouteCondition{Type: models.ConditionAnswerCountGTE, Value: "1"},
				TargetQuestionID: "q_third",
			},
		},
	}
	answers := map[string]string{"q0": "yes"}

	// Both the second and third rules match; the second wins by list order.
	if got := resolveNextQuestionID(opt, answers); got != "q_second" {
		t.Errorf("expected first matching rule q_second, got %q", got)
	}
}

func TestResolveNextQuestionID_StaticFallback(t *testing.T) {
	opt := &models.AnswerOption{
		ID:             "a1",
		NextQuestionID: "q_static",
		ConditionalRoutes: []models.ConditionalRoute{
			{
				Condition:        models.RouteCondition{Type: models.ConditionAnswerEquals, QuestionID: "q0", Value: "other"},
				TargetQuestionID: "q_override",
			},
		},
	}
	if got := resolveNextQuestionID(opt, map[string]string{"q0": "yes"}); got != "q_static" {
		t.Errorf("expected static fallback, got %q", got)
	}
	if got := resolveNextQuestionID(&models.AnswerOption{ID: "a2"}, nil); got != "" {
		t.Errorf("expected empty successor, got %q", got)
	}
}

func TestAnswerIncludes(t *testing.T) {
	cond := answerIncludes{questionID: "q1", value: "bench"}
	if !cond.evaluate(map[string]string{"q1": "a_bench_press"}) {
		t.Error("substring match should satisfy answer_includes")
	}
	if cond.evaluate(map[string]string{"q1": "a_squat"}) {
		t.Error("non-substring should not satisfy answer_includes")
	}
	if cond.evaluate(map[string]string{}) {
		t.Error("missing answer should not satisfy answer_includes")
	}
}

func TestAnswerCountGTE_CountsRecordedAnswers(t *testing.T) {
	cond := answerCountGTE{min: 2}
	if cond.evaluate(map[string]string{"q1": "a"}) {
		t.Error("one answer should not satisfy threshold 2")
	}
	if !cond.evaluate(map[string]string{"q1": "a", "q2": "b"}) {
		t.Error("two answers should satisfy threshold 2")
	}
}

func TestBuildCondition_Errors(t *testing.T) {
	if _, err := buildCondition(models.RouteCondition{Type: "answer_magic"}); err == nil {
		t.Error("unknown condition type should fail")
	}
	if _, err := buildCondition(models.RouteCondition{Type: models.ConditionAnswerCountGTE, Value: "many"}); err == nil {
		t.Error("non-integer count threshold should fail")
	}
}

func TestResolveNextQuestionID_MalformedRuleSkipped(t *testing.T) {
	opt := &models.AnswerOption{
		ID:             "a1",
		NextQuestionID: "q_static",
		ConditionalRoutes: []models.ConditionalRoute{
			{
				Condition:        models.RouteCondition{Type: "bogus"},
				TargetQuestionID: "q_bad",
			},
			{
				Condition:        models.RouteCondition{Type: models.ConditionAnswerCountGTE, Value: "1"},
				TargetQuestionID: "q_good",
			},
		},
	}
	if got := resolveNextQuestionID(opt, map[string]string{"q0": "x"}); got != "q_good" {
		t.Errorf("malformed rule should be skipped, later rules still apply; got %q", got)
	}
}
