// Package chain implements the multi-questionnaire orchestrator.
//
// This file implements result aggregation across recorded chain steps.
package chain

import (
	"log/slog"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

// AggregateResults merges every recorded step, in step order, into one
// outcome: the union of assigned results, a per-region sub-level map where
// the higher level wins on conflict, and an answer map namespaced by
// questionnaire id so identical question ids from different questionnaires
// never collide.
func (o *Orchestrator) AggregateResults() models.ChainAggregatedResult {
	agg := models.ChainAggregatedResult{
		Results:        make([]models.AnswerResult, 0),
		SubLevels:      make(map[string]int),
		Answers:        make(map[string]string),
		StepsCompleted: len(o.results),
		TotalSteps:     len(o.steps),
	}
	for _, step := range o.results {
		agg.Results = append(agg.Results, step.Results...)
		for _, res := range step.Results {
			mergeSubLevels(agg.SubLevels, res.SubLevels)
		}
		for questionID, answerID := range step.Answers {
			agg.Answers[models.NamespacedAnswerKey(step.QuestionnaireID, questionID)] = answerID
		}
	}
	slog.Debug("Aggregated chain results", "steps", len(o.results), "results", len(agg.Results), "regions", len(agg.SubLevels), "answers", len(agg.Answers))
	return agg
}

// mergeSubLevels folds src into dst keeping the higher level per region. Two
// steps may independently assess the same region; the stronger assessment
// stands.
func mergeSubLevels(dst map[string]int, src map[string]int) {
	for region, level := range src {
		if existing, ok := dst[region]; !ok || level > existing {
			dst[region] = level
		}
	}
}
