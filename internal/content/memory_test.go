package content

import (
	"context"
	"errors"
	"testing"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

func seedStore() *InMemoryStore {
	s := NewInMemoryStore()
	s.Seed(
		QuestionDoc{
			ID:        "q1",
			Partition: "onboarding",
			Kind:      models.QuestionKindChoice,
			Entry:     true,
			Text:      "How often do you train?",
			Translations: map[string]string{
				"de":        "Wie oft trainierst du?",
				"de_female": "Wie oft trainierst du? (f)",
			},
			Answers: []AnswerDoc{
				{
					ID:             "a_daily",
					Text:           "Daily",
					Translations:   map[string]string{"de": "Täglich"},
					NextQuestionID: "q2",
				},
			},
		},
		QuestionDoc{ID: "q2", Partition: "onboarding", Kind: models.QuestionKindInput, Text: "Your weight?"},
	)
	return s
}

func TestInMemoryStore_GetFirstQuestion(t *testing.T) {
	s := seedStore()
	ctx := context.Background()

	node, err := s.GetFirstQuestion(ctx, "onboarding", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.ID != "q1" {
		t.Errorf("expected entry question q1, got %s", node.ID)
	}
	if len(node.Answers) != 1 || node.Answers[0].ID != "a_daily" {
		t.Errorf("entry node should carry resolved answers, got %+v", node.Answers)
	}

	_, err = s.GetFirstQuestion(ctx, "no_such_partition", "", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing partition should return ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_LocalizationFallback(t *testing.T) {
	s := seedStore()
	ctx := context.Background()

	// Gender variant takes precedence.
	node, err := s.GetQuestionWithAnswers(ctx, "q1", "de", "female")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node.Text != "Wie oft trainierst du? (f)" {
		t.Errorf("expected gendered variant, got %q", node.Text)
	}

	// No gender variant: plain language.
	node, _ = s.GetQuestionWithAnswers(ctx, "q1", "de", "male")
	if node.Text != "Wie oft trainierst du?" {
		t.Errorf("expected language fallback, got %q", node.Text)
	}
	if node.Answers[0].Text != "Täglich" {
		t.Errorf("answer text should localize too, got %q", node.Answers[0].Text)
	}

	// Unknown language: base text.
	node, _ = s.GetQuestionWithAnswers(ctx, "q1", "fr", "")
	if node.Text != "How often do you train?" {
		t.Errorf("expected base text fallback, got %q", node.Text)
	}
}

func TestInMemoryStore_GetQuestionOmitsAnswers(t *testing.T) {
	s := seedStore()
	node, err := s.GetQuestion(context.Background(), "q1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(node.Answers) != 0 {
		t.Errorf("GetQuestion should not resolve answers, got %d", len(node.Answers))
	}

	_, err = s.GetQuestion(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing question should return ErrNotFound, got %v", err)
	}
}

func TestInMemoryStore_PutAndDelete(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.PutQuestion(ctx, QuestionDoc{}); err == nil {
		t.Error("PutQuestion without id should fail")
	}
	if err := s.PutQuestion(ctx, QuestionDoc{ID: "q9", Partition: "p", Kind: models.QuestionKindInput, Text: "t"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.GetQuestion(ctx, "q9"); err != nil {
		t.Fatalf("stored question not readable: %v", err)
	}
	if err := s.DeleteQuestion(ctx, "q9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.GetQuestion(ctx, "q9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted question should be gone, got %v", err)
	}
}
