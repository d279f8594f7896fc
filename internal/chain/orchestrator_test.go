package chain

import (
	"context"
	"testing"

	"github.com/officeappout/out-run-app-sub001/internal/content"
	"github.com/officeappout/out-run-app-sub001/internal/models"
	"github.com/officeappout/out-run-app-sub001/internal/quiz"
)

// singleQuestionQuiz builds a one-question quiz whose answers all terminate.
func singleQuestionQuiz(id string, answers ...content.AnswerDoc) content.QuestionDoc {
	return content.QuestionDoc{
		ID:        "q_" + id,
		Partition: id,
		Kind:      models.QuestionKindChoice,
		Entry:     true,
		Text:      "Question for " + id,
		Answers:   answers,
	}
}

// chainStore seeds quizzes A, B, C plus push/pull/mobility quizzes used by
// the splice and aggregation tests.
func chainStore() *content.InMemoryStore {
	s := content.NewInMemoryStore()
	s.Seed(
		singleQuestionQuiz("quiz_a",
			content.AnswerDoc{ID: "a_program_x", Text: "X path", AssignedResults: []models.AnswerResult{
				{ProgramID: "X", LevelID: "lvl_1", SubLevels: map[string]int{"upper_body": 3}},
			}},
			content.AnswerDoc{ID: "a_program_y", Text: "Y path", AssignedResults: []models.AnswerResult{
				{ProgramID: "Y", LevelID: "lvl_2", SubLevels: map[string]int{"upper_body": 3}},
			}},
		),
		singleQuestionQuiz("quiz_b",
			content.AnswerDoc{ID: "b_done", Text: "Done", AssignedResults: []models.AnswerResult{
				{ProgramID: "B", LevelID: "lvl_1", SubLevels: map[string]int{"lower_body": 2}},
			}},
		),
		singleQuestionQuiz("quiz_c",
			content.AnswerDoc{ID: "c_done", Text: "Done", AssignedResults: []models.AnswerResult{
				{ProgramID: "C", LevelID: "lvl_1", SubLevels: map[string]int{"upper_body": 5}},
			}},
		),
		content.QuestionDoc{
			ID:        "q1",
			Partition: "push_quiz",
			Kind:      models.QuestionKindChoice,
			Entry:     true,
			Text:      "Push?",
			Answers: []content.AnswerDoc{
				{ID: "a_handoff", Text: "Hurts", ChainTrigger: &models.ChainTrigger{QuestionnaireID: "mobility_quiz"}},
				{ID: "a_push_done", Text: "Strong", AssignedResults: []models.AnswerResult{
					{ProgramID: "p_push", LevelID: "lvl_3", SubLevels: map[string]int{"upper_body": 3}},
				}},
			},
		},
		// pull_quiz reuses the question id q1 on purpose: aggregation must
		// keep both answers apart through namespacing.
		content.QuestionDoc{
			ID:        "q1_pull",
			Partition: "pull_quiz",
			Kind:      models.QuestionKindChoice,
			Entry:     true,
			Text:      "Pull?",
			Answers: []content.AnswerDoc{
				{ID: "a_pull_done", Text: "Strong", AssignedResults: []models.AnswerResult{
					{ProgramID: "p_pull", LevelID: "lvl_2", SubLevels: map[string]int{"upper_body": 5}},
				}},
			},
		},
		singleQuestionQuiz("mobility_quiz",
			content.AnswerDoc{ID: "m_done", Text: "Done", AssignedResults: []models.AnswerResult{
				{ProgramID: "p_mobility", LevelID: "lvl_1", SubLevels: map[string]int{"shoulders": 1}},
			}},
		),
	)
	return s
}

func answerStep(t *testing.T, engine *quiz.Engine, answerID string) *quiz.Outcome {
	t.Helper()
	out, err := engine.Answer(context.Background(), answerID)
	if err != nil {
		t.Fatalf("answer %s failed: %v", answerID, err)
	}
	return out
}

func TestOrchestrator_StartChain_Validation(t *testing.T) {
	o := New(chainStore())
	if _, err := o.StartChain(context.Background(), models.ChainDefinition{}, "", ""); err == nil {
		t.Error("empty chain definition should fail")
	}
	if _, err := o.StartChain(context.Background(), models.ChainDefinition{
		Steps: []models.ChainStep{{QuestionnaireID: "no_such_quiz"}},
	}, "", ""); err == nil {
		t.Error("unknown questionnaire id should fail to start")
	}
}

// The end-to-end example from the product design: step A assigns program Y,
// step B requires X from step 0 and is skipped, step C runs; the final
// aggregation reports 2 of 3 steps completed.
func TestOrchestrator_ConditionalStepSkipped(t *testing.T) {
	ctx := context.Background()
	o := New(chainStore())
	def := models.ChainDefinition{Steps: []models.ChainStep{
		{QuestionnaireID: "quiz_a", Label: "A"},
		{QuestionnaireID: "quiz_b", Label: "B", Condition: &models.StepCondition{StepIndex: 0, RequiredProgramID: "X"}},
		{QuestionnaireID: "quiz_c", Label: "C"},
	}}

	engine, err := o.StartChain(ctx, def, "en", "")
	if err != nil {
		t.Fatalf("start chain failed: %v", err)
	}
	if engine.CurrentQuestion().ID != "q_quiz_a" {
		t.Fatalf("expected step 0 engine, got question %s", engine.CurrentQuestion().ID)
	}

	out := answerStep(t, engine, "a_program_y")
	if out.Kind != quiz.OutcomeCompleted {
		t.Fatalf("expected completed step, got %s", out.Kind)
	}
	step, err := o.CompleteCurrentQuestionnaire(ctx)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if step.Next == nil {
		t.Fatal("chain should continue past the skipped step")
	}
	if got := step.Next.CurrentQuestion().ID; got != "q_quiz_c" {
		t.Fatalf("step B must be skipped; expected quiz_c, got %s", got)
	}

	answerStep(t, step.Next, "c_done")
	final, err := o.CompleteCurrentQuestionnaire(ctx)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if final.Final == nil {
		t.Fatal("chain should be complete")
	}
	if final.Final.StepsCompleted != 2 || final.Final.TotalSteps != 3 {
		t.Errorf("expected 2/3 steps, got %d/%d", final.Final.StepsCompleted, final.Final.TotalSteps)
	}
	// The skipped step must be absent from recorded results.
	for _, key := range []string{"quiz_b__q_quiz_b"} {
		if _, ok := final.Final.Answers[key]; ok {
			t.Errorf("skipped step leaked into results: %s", key)
		}
	}
	for _, res := range final.Final.Results {
		if res.ProgramID == "B" {
			t.Error("skipped step leaked a result")
		}
	}
}

func TestOrchestrator_ConditionalStepExecutedWhenSatisfied(t *testing.T) {
	ctx := context.Background()
	o := New(chainStore())
	def := models.ChainDefinition{Steps: []models.ChainStep{
		{QuestionnaireID: "quiz_a", Label: "A"},
		{QuestionnaireID: "quiz_b", Label: "B", Condition: &models.StepCondition{StepIndex: 0, RequiredProgramID: "X"}},
	}}

	engine, err := o.StartChain(ctx, def, "en", "")
	if err != nil {
		t.Fatalf("start chain failed: %v", err)
	}
	answerStep(t, engine, "a_program_x")
	step, err := o.CompleteCurrentQuestionnaire(ctx)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if step.Next == nil || step.Next.CurrentQuestion().ID != "q_quiz_b" {
		t.Fatalf("step B should run when step 0 assigned X, got %+v", step)
	}
}

func TestOrchestrator_HandleChainTrigger_SpliceAndIdempotence(t *testing.T) {
	ctx := context.Background()
	o := New(chainStore())
	def := models.ChainDefinition{Steps: []models.ChainStep{
		{QuestionnaireID: "push_quiz", Label: "Push"},
		{QuestionnaireID: "pull_quiz", Label: "Pull"},
	}}

	engine, err := o.StartChain(ctx, def, "en", "")
	if err != nil {
		t.Fatalf("start chain failed: %v", err)
	}

	out := answerStep(t, engine, "a_handoff")
	if out.Kind != quiz.OutcomeHandOff {
		t.Fatalf("expected hand-off outcome, got %s", out.Kind)
	}

	next, err := o.HandleChainTrigger(ctx, out.Trigger)
	if err != nil {
		t.Fatalf("hand-off failed: %v", err)
	}
	if next.CurrentQuestion().ID != "q_mobility_quiz" {
		t.Fatalf("expected spliced mobility step, got %s", next.CurrentQuestion().ID)
	}
	prog := o.ChainProgress()
	if prog.TotalSteps != 3 {
		t.Errorf("splice should grow the chain to 3 steps, got %d", prog.TotalSteps)
	}
	if prog.CurrentStep != 2 {
		t.Errorf("cursor should advance to the spliced step, got %d", prog.CurrentStep)
	}

	// The same trigger firing again must not duplicate the step.
	if _, err := o.HandleChainTrigger(ctx, &models.ChainTrigger{QuestionnaireID: "mobility_quiz"}); err != nil {
		t.Fatalf("repeat hand-off failed: %v", err)
	}
	if got := o.ChainProgress().TotalSteps; got != 3 {
		t.Errorf("repeat trigger must not splice again, got %d steps", got)
	}

	// The abandoned step's partial answers survive into aggregation.
	answerStep(t, o.CurrentEngine(), "m_done")
	step, err := o.CompleteCurrentQuestionnaire(ctx)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if step.Next == nil || step.Next.CurrentQuestion().ID != "q1_pull" {
		t.Fatalf("chain should continue to pull_quiz, got %+v", step)
	}
	answerStep(t, step.Next, "a_pull_done")
	final, err := o.CompleteCurrentQuestionnaire(ctx)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if final.Final == nil {
		t.Fatal("chain should be complete")
	}
	if got := final.Final.Answers["push_quiz__q1"]; got != "a_handoff" {
		t.Errorf("abandoned step answers must be aggregated, got %q", got)
	}
}

// A splice before a conditioned step shifts runtime indices; the condition
// must keep binding to the authored step, not to whatever now occupies its
// runtime slot.
func TestOrchestrator_ConditionBindsToDefinitionStepAcrossSplice(t *testing.T) {
	ctx := context.Background()

	runChain := func(t *testing.T, requiredProgramID string) *StepOutcome {
		t.Helper()
		o := New(chainStore())
		def := models.ChainDefinition{Steps: []models.ChainStep{
			{QuestionnaireID: "push_quiz", Label: "Push"},
			{QuestionnaireID: "pull_quiz", Label: "Pull"},
			{QuestionnaireID: "quiz_b", Label: "B", Condition: &models.StepCondition{StepIndex: 1, RequiredProgramID: requiredProgramID}},
		}}
		engine, err := o.StartChain(ctx, def, "en", "")
		if err != nil {
			t.Fatalf("start chain failed: %v", err)
		}

		// Hand-off splices mobility_quiz into the runtime slot the
		// condition's step index would name.
		out := answerStep(t, engine, "a_handoff")
		next, err := o.HandleChainTrigger(ctx, out.Trigger)
		if err != nil {
			t.Fatalf("hand-off failed: %v", err)
		}
		answerStep(t, next, "m_done")
		step, err := o.CompleteCurrentQuestionnaire(ctx)
		if err != nil {
			t.Fatalf("complete failed: %v", err)
		}
		if step.Next == nil || step.Next.CurrentQuestion().ID != "q1_pull" {
			t.Fatalf("chain should continue to pull_quiz, got %+v", step)
		}
		answerStep(t, step.Next, "a_pull_done")
		step, err = o.CompleteCurrentQuestionnaire(ctx)
		if err != nil {
			t.Fatalf("complete failed: %v", err)
		}
		return step
	}

	// Requiring the spliced step's program must not satisfy a condition on
	// definition step 1.
	final := runChain(t, "p_mobility")
	if final.Final == nil {
		t.Fatal("conditioned step should be skipped and the chain complete")
	}
	for _, res := range final.Final.Results {
		if res.ProgramID == "B" {
			t.Error("conditioned step ran against the spliced step's result")
		}
	}

	// Requiring the authored step's program still runs the conditioned step.
	step := runChain(t, "p_pull")
	if step.Next == nil || step.Next.CurrentQuestion().ID != "q_quiz_b" {
		t.Fatalf("conditioned step should run when pull_quiz assigned p_pull, got %+v", step)
	}
}

func TestOrchestrator_TriggerWithoutActiveStep(t *testing.T) {
	o := New(chainStore())
	if _, err := o.HandleChainTrigger(context.Background(), &models.ChainTrigger{QuestionnaireID: "mobility_quiz"}); err == nil {
		t.Error("hand-off before StartChain should fail")
	}
	if _, err := o.CompleteCurrentQuestionnaire(context.Background()); err == nil {
		t.Error("completion before StartChain should fail")
	}
}

func TestOrchestrator_ChainProgressLabels(t *testing.T) {
	ctx := context.Background()
	o := New(chainStore())
	def := models.ChainDefinition{Steps: []models.ChainStep{
		{QuestionnaireID: "quiz_a", Label: "Upper body"},
		{QuestionnaireID: "quiz_c"},
	}}
	engine, err := o.StartChain(ctx, def, "en", "")
	if err != nil {
		t.Fatalf("start chain failed: %v", err)
	}

	prog := o.ChainProgress()
	if prog.CurrentStep != 1 || prog.TotalSteps != 2 || prog.CurrentLabel != "Upper body" {
		t.Errorf("unexpected initial progress: %+v", prog)
	}

	answerStep(t, engine, "a_program_x")
	if _, err := o.CompleteCurrentQuestionnaire(ctx); err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	prog = o.ChainProgress()
	if prog.CurrentStep != 2 {
		t.Errorf("expected step 2, got %d", prog.CurrentStep)
	}
	// Unlabeled steps fall back to the questionnaire id.
	if prog.CurrentLabel != "quiz_c" {
		t.Errorf("expected fallback label quiz_c, got %q", prog.CurrentLabel)
	}
	if len(prog.CompletedLabels) != 1 || prog.CompletedLabels[0] != "Upper body" {
		t.Errorf("unexpected completed labels: %+v", prog.CompletedLabels)
	}
}

func TestOrchestrator_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	o := New(chainStore())
	def := models.ChainDefinition{Steps: []models.ChainStep{
		{QuestionnaireID: "quiz_a", Label: "A"},
		{QuestionnaireID: "quiz_c", Label: "C"},
	}}
	engine, err := o.StartChain(ctx, def, "en", "")
	if err != nil {
		t.Fatalf("start chain failed: %v", err)
	}
	answerStep(t, engine, "a_program_x")
	if _, err := o.CompleteCurrentQuestionnaire(ctx); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	snap := o.Snapshot()
	restored := New(chainStore())
	if err := restored.Restore(ctx, snap, "en", "", "q_quiz_c", nil); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if restored.CurrentEngine().CurrentQuestion().ID != "q_quiz_c" {
		t.Fatalf("restored engine at wrong question: %s", restored.CurrentEngine().CurrentQuestion().ID)
	}
	answerStep(t, restored.CurrentEngine(), "c_done")
	final, err := restored.CompleteCurrentQuestionnaire(ctx)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if final.Final == nil || final.Final.StepsCompleted != 2 {
		t.Fatalf("restored chain should finish with both steps recorded, got %+v", final)
	}
}
