// Package models defines the questionnaire data model shared across the
// engine, orchestrator, content store, and API layers.
package models

import (
	"fmt"
	"strings"
)

// QuestionKind discriminates how a question is answered.
type QuestionKind string

const (
	// QuestionKindChoice is a tap-to-select question with a fixed answer list.
	QuestionKindChoice QuestionKind = "choice"
	// QuestionKindInput is a free-form input question.
	QuestionKindInput QuestionKind = "input"
)

// ConditionType discriminates conditional-route conditions.
type ConditionType string

const (
	// ConditionAnswerEquals matches when the stored answer id for a question
	// equals the condition value exactly.
	ConditionAnswerEquals ConditionType = "answer_equals"
	// ConditionAnswerIncludes matches when the stored answer id for a question
	// contains the condition value as a substring.
	ConditionAnswerIncludes ConditionType = "answer_includes"
	// ConditionAnswerCountGTE matches when the total number of recorded
	// answers is at least the condition value. The value carries the
	// threshold in decimal string form; questionId is ignored.
	ConditionAnswerCountGTE ConditionType = "answer_count_gte"
)

// RouteCondition is the stored form of a conditional-route condition, as it
// appears in content documents.
type RouteCondition struct {
	Type       ConditionType `json:"type" bson:"type"`
	QuestionID string        `json:"questionId,omitempty" bson:"questionId,omitempty"`
	Value      string        `json:"value" bson:"value"`
}

// ConditionalRoute pairs a condition with an override successor. Routes are
// evaluated in list order; the first satisfied condition wins.
type ConditionalRoute struct {
	Condition        RouteCondition `json:"condition" bson:"condition"`
	TargetQuestionID string         `json:"targetQuestionId" bson:"targetQuestionId"`
}

// ChainTrigger instructs the caller to abandon the current question graph and
// start a different questionnaire. The engine surfaces it unchanged; only the
// chain orchestrator acts on it.
type ChainTrigger struct {
	QuestionnaireID string `json:"questionnaireId" bson:"questionnaireId"`
	StartQuestionID string `json:"startQuestionId,omitempty" bson:"startQuestionId,omitempty"`
}

// AnswerResult is one program assignment produced by a terminal answer:
// program, level, and the per-body-region sub-level map assessed for it.
type AnswerResult struct {
	ProgramID string         `json:"programId" bson:"programId"`
	LevelID   string         `json:"levelId,omitempty" bson:"levelId,omitempty"`
	Level     string         `json:"level,omitempty" bson:"level,omitempty"`
	SubLevels map[string]int `json:"subLevels,omitempty" bson:"subLevels,omitempty"`
}

// AnswerOption is one selectable answer with its routing metadata and
// optional terminal payload.
type AnswerOption struct {
	ID   string `json:"id" bson:"id"`
	Text string `json:"text" bson:"text"`

	// Routing metadata, evaluated only when no terminal payload is present.
	NextQuestionID    string             `json:"nextQuestionId,omitempty" bson:"nextQuestionId,omitempty"`
	ConditionalRoutes []ConditionalRoute `json:"conditionalRoutes,omitempty" bson:"conditionalRoutes,omitempty"`
	ChainTrigger      *ChainTrigger      `json:"chainTrigger,omitempty" bson:"chainTrigger,omitempty"`

	// Terminal payload fields. Presence of any of these ends the
	// questionnaire regardless of routing metadata.
	AssignedLevel          string         `json:"assignedLevel,omitempty" bson:"assignedLevel,omitempty"`
	AssignedLevelID        string         `json:"assignedLevelId,omitempty" bson:"assignedLevelId,omitempty"`
	AssignedProgramID      string         `json:"assignedProgramId,omitempty" bson:"assignedProgramId,omitempty"`
	AssignedResults        []AnswerResult `json:"assignedResults,omitempty" bson:"assignedResults,omitempty"`
	MasterProgramSubLevels map[string]int `json:"masterProgramSubLevels,omitempty" bson:"masterProgramSubLevels,omitempty"`
}

// HasTerminalPayload reports whether choosing this answer ends the
// questionnaire with a result.
func (a *AnswerOption) HasTerminalPayload() bool {
	return len(a.AssignedResults) > 0 || a.AssignedLevelID != "" || a.AssignedLevel != ""
}

// QuestionNode is an immutable snapshot of one question with its answers,
// already resolved to the active language and gender variant. Nodes are
// constructed fresh on each load and never mutated.
type QuestionNode struct {
	ID        string         `json:"id" bson:"id"`
	Text      string         `json:"text" bson:"text"`
	Kind      QuestionKind   `json:"kind" bson:"kind"`
	Partition string         `json:"partition" bson:"partition"`
	Answers   []AnswerOption `json:"answers" bson:"answers"`
}

// FindAnswer returns the answer option with the given id, or nil.
func (q *QuestionNode) FindAnswer(answerID string) *AnswerOption {
	for i := range q.Answers {
		if q.Answers[i].ID == answerID {
			return &q.Answers[i]
		}
	}
	return nil
}

// Validate checks structural integrity of a node before it is served.
func (q *QuestionNode) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("question node missing id")
	}
	if q.Kind == QuestionKindChoice && len(q.Answers) == 0 {
		return fmt.Errorf("choice question %s has no answers", q.ID)
	}
	return nil
}

// TerminalResult is the payload of a terminal outcome. When AssignedResults
// is non-empty it is canonical and the singular fields mirror its first
// element for backward display compatibility.
type TerminalResult struct {
	AssignedResults        []AnswerResult `json:"assignedResults,omitempty"`
	AssignedLevel          string         `json:"assignedLevel,omitempty"`
	AssignedLevelID        string         `json:"assignedLevelId,omitempty"`
	AssignedProgramID      string         `json:"assignedProgramId,omitempty"`
	MasterProgramSubLevels map[string]int `json:"masterProgramSubLevels,omitempty"`
}

// NewTerminalResult builds the terminal payload for a chosen answer,
// deriving legacy singular fields from assignedResults when present.
func NewTerminalResult(a *AnswerOption) *TerminalResult {
	res := &TerminalResult{
		AssignedResults:        a.AssignedResults,
		AssignedLevel:          a.AssignedLevel,
		AssignedLevelID:        a.AssignedLevelID,
		AssignedProgramID:      a.AssignedProgramID,
		MasterProgramSubLevels: a.MasterProgramSubLevels,
	}
	if len(a.AssignedResults) > 0 {
		first := a.AssignedResults[0]
		res.AssignedProgramID = first.ProgramID
		res.AssignedLevelID = first.LevelID
		res.AssignedLevel = first.Level
	}
	return res
}

// Results flattens the payload into AnswerResult entries: the canonical list
// when present, otherwise a single entry synthesized from the legacy fields.
func (r *TerminalResult) Results() []AnswerResult {
	if r == nil {
		return nil
	}
	if len(r.AssignedResults) > 0 {
		return r.AssignedResults
	}
	if r.AssignedProgramID == "" && r.AssignedLevelID == "" && r.AssignedLevel == "" {
		return nil
	}
	return []AnswerResult{{
		ProgramID: r.AssignedProgramID,
		LevelID:   r.AssignedLevelID,
		Level:     r.AssignedLevel,
		SubLevels: r.MasterProgramSubLevels,
	}}
}

// Empty reports whether the payload carries no assignment at all, the shape
// produced by an implicit terminal without result.
func (r *TerminalResult) Empty() bool {
	return r == nil || len(r.Results()) == 0
}

// QuestionnaireProgress is the engine's running state: one answer per visited
// question, completion flags, and the terminal payload once set. Owned
// exclusively by one engine instance.
type QuestionnaireProgress struct {
	Answers       map[string]string `json:"answers"`
	ResultReached bool              `json:"resultReached"`
	FlowComplete  bool              `json:"flowComplete"`
	Result        *TerminalResult   `json:"result,omitempty"`
}

// NamespacedAnswerKey builds the collision-free key used when answers from
// multiple questionnaires are merged into one map.
func NamespacedAnswerKey(questionnaireID, questionID string) string {
	return questionnaireID + "__" + questionID
}

// SplitNamespacedAnswerKey is the inverse of NamespacedAnswerKey. The second
// return is false when the key carries no namespace.
func SplitNamespacedAnswerKey(key string) (questionnaireID, questionID string, ok bool) {
	idx := strings.Index(key, "__")
	if idx < 0 {
		return "", key, false
	}
	return key[:idx], key[idx+2:], true
}
