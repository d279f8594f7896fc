package models

import "testing"

func TestAnswerOption_HasTerminalPayload(t *testing.T) {
	cases := []struct {
		name string
		opt  AnswerOption
		want bool
	}{
		{"plain routing answer", AnswerOption{ID: "a1", NextQuestionID: "q2"}, false},
		{"assigned level id", AnswerOption{ID: "a1", AssignedLevelID: "lvl_2"}, true},
		{"assigned level name", AnswerOption{ID: "a1", AssignedLevel: "Intermediate"}, true},
		{"assigned results", AnswerOption{ID: "a1", AssignedResults: []AnswerResult{{ProgramID: "p1"}}}, true},
		{"chain trigger only", AnswerOption{ID: "a1", ChainTrigger: &ChainTrigger{QuestionnaireID: "pull_quiz"}}, false},
	}
	for _, tc := range cases {
		if got := tc.opt.HasTerminalPayload(); got != tc.want {
			t.Errorf("%s: HasTerminalPayload() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNewTerminalResult_DerivesLegacyFieldsFromFirstResult(t *testing.T) {
	opt := &AnswerOption{
		ID:              "a1",
		AssignedLevel:   "stale",
		AssignedLevelID: "stale_id",
		AssignedResults: []AnswerResult{
			{ProgramID: "p_push", LevelID: "lvl_3", Level: "Advanced", SubLevels: map[string]int{"upper_body": 3}},
			{ProgramID: "p_core", LevelID: "lvl_1", Level: "Beginner"},
		},
	}
	res := NewTerminalResult(opt)
	if res.AssignedProgramID != "p_push" || res.AssignedLevelID != "lvl_3" || res.AssignedLevel != "Advanced" {
		t.Errorf("legacy fields not derived from first result: %+v", res)
	}
	if len(res.AssignedResults) != 2 {
		t.Errorf("assigned results should pass through unchanged, got %d entries", len(res.AssignedResults))
	}
}

func TestNewTerminalResult_LegacyFieldsUsedWhenNoResults(t *testing.T) {
	opt := &AnswerOption{ID: "a1", AssignedLevelID: "lvl_2", AssignedProgramID: "p1", AssignedLevel: "Intermediate"}
	res := NewTerminalResult(opt)
	if res.AssignedLevelID != "lvl_2" || res.AssignedProgramID != "p1" {
		t.Errorf("legacy fields should be used directly: %+v", res)
	}
	flat := res.Results()
	if len(flat) != 1 || flat[0].ProgramID != "p1" || flat[0].LevelID != "lvl_2" {
		t.Errorf("Results() should synthesize one entry from legacy fields, got %+v", flat)
	}
}

func TestTerminalResult_Empty(t *testing.T) {
	var nilRes *TerminalResult
	if !nilRes.Empty() {
		t.Error("nil result should be empty")
	}
	if !(&TerminalResult{}).Empty() {
		t.Error("zero result should be empty")
	}
	if (&TerminalResult{AssignedProgramID: "p1"}).Empty() {
		t.Error("result with program should not be empty")
	}
}

func TestChainDefinition_Validate(t *testing.T) {
	if err := (&ChainDefinition{}).Validate(); err == nil {
		t.Error("empty definition should fail validation")
	}
	def := &ChainDefinition{Steps: []ChainStep{
		{QuestionnaireID: "a"},
		{QuestionnaireID: "b", Condition: &StepCondition{StepIndex: 1, RequiredProgramID: "p"}},
	}}
	if err := def.Validate(); err == nil {
		t.Error("condition referencing itself or later should fail validation")
	}
	def.Steps[1].Condition.StepIndex = 0
	if err := def.Validate(); err != nil {
		t.Errorf("valid definition rejected: %v", err)
	}
}

func TestNamespacedAnswerKey_RoundTrip(t *testing.T) {
	key := NamespacedAnswerKey("push_quiz", "q1")
	if key != "push_quiz__q1" {
		t.Errorf("unexpected key %q", key)
	}
	qn, q, ok := SplitNamespacedAnswerKey(key)
	if !ok || qn != "push_quiz" || q != "q1" {
		t.Errorf("split mismatch: %q %q %v", qn, q, ok)
	}
	if _, _, ok := SplitNamespacedAnswerKey("plain"); ok {
		t.Error("key without namespace should report ok=false")
	}
}
