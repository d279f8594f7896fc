package chain

import (
	"testing"
	"time"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

// orchestratorWithResults builds an orchestrator with pre-recorded step
// results, bypassing traversal to exercise aggregation directly.
func orchestratorWithResults(steps []models.ChainStep, results []models.ChainStepResult) *Orchestrator {
	o := New(nil)
	o.steps = steps
	o.results = results
	o.now = func() time.Time { return time.Unix(0, 0) }
	return o
}

func TestAggregateResults_HigherSubLevelWins(t *testing.T) {
	steps := []models.ChainStep{{QuestionnaireID: "push_quiz"}, {QuestionnaireID: "pull_quiz"}}
	lower := models.ChainStepResult{
		StepIndex:       0,
		QuestionnaireID: "push_quiz",
		Results:         []models.AnswerResult{{ProgramID: "p1", SubLevels: map[string]int{"upper_body": 3, "core": 2}}},
		Answers:         map[string]string{},
	}
	higher := models.ChainStepResult{
		StepIndex:       1,
		QuestionnaireID: "pull_quiz",
		Results:         []models.AnswerResult{{ProgramID: "p2", SubLevels: map[string]int{"upper_body": 5}}},
		Answers:         map[string]string{},
	}

	// Both orders must yield the same merged level.
	for name, results := range map[string][]models.ChainStepResult{
		"lower first":  {lower, higher},
		"higher first": {higher, lower},
	} {
		agg := orchestratorWithResults(steps, results).AggregateResults()
		if agg.SubLevels["upper_body"] != 5 {
			t.Errorf("%s: upper_body should merge to 5, got %d", name, agg.SubLevels["upper_body"])
		}
		if agg.SubLevels["core"] != 2 {
			t.Errorf("%s: core should carry over, got %d", name, agg.SubLevels["core"])
		}
		if len(agg.Results) != 2 {
			t.Errorf("%s: results should be the union, got %d", name, len(agg.Results))
		}
	}
}

func TestAggregateResults_AnswersNamespacedByQuestionnaire(t *testing.T) {
	steps := []models.ChainStep{{QuestionnaireID: "push_quiz"}, {QuestionnaireID: "pull_quiz"}}
	results := []models.ChainStepResult{
		{StepIndex: 0, QuestionnaireID: "push_quiz", Answers: map[string]string{"q1": "a_push"}},
		{StepIndex: 1, QuestionnaireID: "pull_quiz", Answers: map[string]string{"q1": "a_pull"}},
	}
	agg := orchestratorWithResults(steps, results).AggregateResults()

	if agg.Answers["push_quiz__q1"] != "a_push" || agg.Answers["pull_quiz__q1"] != "a_pull" {
		t.Errorf("identically named questions must not collide: %+v", agg.Answers)
	}
	if len(agg.Answers) != 2 {
		t.Errorf("expected 2 namespaced answers, got %d", len(agg.Answers))
	}
}

func TestAggregateResults_CountsAndEmptyChain(t *testing.T) {
	agg := orchestratorWithResults(nil, nil).AggregateResults()
	if agg.StepsCompleted != 0 || agg.TotalSteps != 0 || len(agg.Results) != 0 {
		t.Errorf("empty chain should aggregate to zero values: %+v", agg)
	}

	steps := []models.ChainStep{{QuestionnaireID: "a"}, {QuestionnaireID: "b"}, {QuestionnaireID: "c"}}
	results := []models.ChainStepResult{
		{StepIndex: 0, QuestionnaireID: "a", Answers: map[string]string{}},
		{StepIndex: 2, QuestionnaireID: "c", Answers: map[string]string{}},
	}
	agg = orchestratorWithResults(steps, results).AggregateResults()
	if agg.StepsCompleted != 2 || agg.TotalSteps != 3 {
		t.Errorf("expected 2/3, got %d/%d", agg.StepsCompleted, agg.TotalSteps)
	}
}

func TestMergeSubLevels(t *testing.T) {
	dst := map[string]int{"upper_body": 3}
	mergeSubLevels(dst, map[string]int{"upper_body": 1, "lower_body": 4})
	if dst["upper_body"] != 3 {
		t.Errorf("lower level must not overwrite higher, got %d", dst["upper_body"])
	}
	if dst["lower_body"] != 4 {
		t.Errorf("new region must be added, got %d", dst["lower_body"])
	}
}
