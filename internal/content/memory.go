// Package content provides storage backends for questionnaire content.
//
// This file implements an in-memory store used by tests and the seed tool.
package content

import (
	"context"
	"fmt"
	"sync"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

// InMemoryStore is a map-backed content store. It implements both Store and
// Writer and is safe for concurrent use.
type InMemoryStore struct {
	mu        sync.RWMutex
	questions map[string]QuestionDoc
}

// NewInMemoryStore creates an empty in-memory content store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{questions: make(map[string]QuestionDoc)}
}

// Seed loads a batch of question documents, replacing any existing ids.
func (s *InMemoryStore) Seed(docs ...QuestionDoc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.questions[d.ID] = d
	}
}

// GetFirstQuestion returns the entry node of a partition.
func (s *InMemoryStore) GetFirstQuestion(ctx context.Context, partition, language, gender string) (*models.QuestionNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.questions {
		if d.Partition == partition && d.Entry {
			return d.Resolve(language, gender, true), nil
		}
	}
	return nil, fmt.Errorf("entry question for partition %s: %w", partition, ErrNotFound)
}

// GetQuestion returns a node by id without answers.
func (s *InMemoryStore) GetQuestion(ctx context.Context, questionID string) (*models.QuestionNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.questions[questionID]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	return d.Resolve("", "", false), nil
}

// GetQuestionWithAnswers returns a resolved node by id with its answers.
func (s *InMemoryStore) GetQuestionWithAnswers(ctx context.Context, questionID, language, gender string) (*models.QuestionNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.questions[questionID]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	return d.Resolve(language, gender, true), nil
}

// PutQuestion stores or replaces a question document.
func (s *InMemoryStore) PutQuestion(ctx context.Context, doc QuestionDoc) error {
	if doc.ID == "" {
		return fmt.Errorf("question document missing id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[doc.ID] = doc
	return nil
}

// DeleteQuestion removes a question document.
func (s *InMemoryStore) DeleteQuestion(ctx context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.questions, questionID)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
