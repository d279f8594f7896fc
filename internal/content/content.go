// Package content provides read access to authored questionnaire content.
//
// It defines the Store interface consumed by the questionnaire engine and
// backends for MongoDB, SQLite, and an in-memory map, plus an optional Redis
// read-through cache. Backends return fully resolved question nodes: display
// text is already localized to the requested language and gender variant.
package content

import (
	"context"
	"errors"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

// ErrNotFound indicates the requested question or partition entry point is
// absent from the content store. Callers treat it as fatal for the current
// flow; a missing question is a content authoring defect, not a transient
// fault.
var ErrNotFound = errors.New("content: question not found")

// Store is the read API over questionnaire content.
type Store interface {
	// GetFirstQuestion returns the entry node of a partition, resolved to
	// the given language/gender variant, with its answers.
	GetFirstQuestion(ctx context.Context, partition, language, gender string) (*models.QuestionNode, error)

	// GetQuestion returns a node by id without resolving its answers.
	GetQuestion(ctx context.Context, questionID string) (*models.QuestionNode, error)

	// GetQuestionWithAnswers returns a node by id with its answers, resolved
	// to the given language/gender variant.
	GetQuestionWithAnswers(ctx context.Context, questionID, language, gender string) (*models.QuestionNode, error)

	// Close releases backend resources.
	Close() error
}

// Writer is implemented by backends that support content authoring. The
// admin API degrades gracefully when the configured backend is read-only.
type Writer interface {
	PutQuestion(ctx context.Context, doc QuestionDoc) error
	DeleteQuestion(ctx context.Context, questionID string) error
}

// QuestionDoc is the stored form of a question: base text plus localized
// variants keyed by "lang" or "lang_gender".
type QuestionDoc struct {
	ID           string              `json:"id" bson:"_id"`
	Partition    string              `json:"partition" bson:"partition"`
	Kind         models.QuestionKind `json:"kind" bson:"kind"`
	Entry        bool                `json:"entry" bson:"entry"`
	Text         string              `json:"text" bson:"text"`
	Translations map[string]string   `json:"translations,omitempty" bson:"translations,omitempty"`
	Answers      []AnswerDoc         `json:"answers,omitempty" bson:"answers,omitempty"`
}

// AnswerDoc is the stored form of an answer option, carrying the routing and
// terminal-payload fields verbatim.
type AnswerDoc struct {
	ID           string            `json:"id" bson:"id"`
	Text         string            `json:"text" bson:"text"`
	Translations map[string]string `json:"translations,omitempty" bson:"translations,omitempty"`

	NextQuestionID    string                    `json:"nextQuestionId,omitempty" bson:"nextQuestionId,omitempty"`
	ConditionalRoutes []models.ConditionalRoute `json:"conditionalRoutes,omitempty" bson:"conditionalRoutes,omitempty"`
	ChainTrigger      *models.ChainTrigger      `json:"chainTrigger,omitempty" bson:"chainTrigger,omitempty"`

	AssignedLevel          string                `json:"assignedLevel,omitempty" bson:"assignedLevel,omitempty"`
	AssignedLevelID        string                `json:"assignedLevelId,omitempty" bson:"assignedLevelId,omitempty"`
	AssignedProgramID      string                `json:"assignedProgramId,omitempty" bson:"assignedProgramId,omitempty"`
	AssignedResults        []models.AnswerResult `json:"assignedResults,omitempty" bson:"assignedResults,omitempty"`
	MasterProgramSubLevels map[string]int        `json:"masterProgramSubLevels,omitempty" bson:"masterProgramSubLevels,omitempty"`
}

// localizedText resolves a translation map against a language/gender pair,
// falling back from "lang_gender" to "lang" to the base text.
func localizedText(base string, translations map[string]string, language, gender string) string {
	if len(translations) == 0 || language == "" {
		return base
	}
	if gender != "" {
		if txt, ok := translations[language+"_"+gender]; ok && txt != "" {
			return txt
		}
	}
	if txt, ok := translations[language]; ok && txt != "" {
		return txt
	}
	return base
}

// Resolve converts a stored question document into the immutable node served
// to the engine, localizing question and answer text.
func (d *QuestionDoc) Resolve(language, gender string, withAnswers bool) *models.QuestionNode {
	node := &models.QuestionNode{
		ID:        d.ID,
		Text:      localizedText(d.Text, d.Translations, language, gender),
		Kind:      d.Kind,
		Partition: d.Partition,
	}
	if !withAnswers {
		return node
	}
	node.Answers = make([]models.AnswerOption, 0, len(d.Answers))
	for _, a := range d.Answers {
		node.Answers = append(node.Answers, models.AnswerOption{
			ID:                     a.ID,
			Text:                   localizedText(a.Text, a.Translations, language, gender),
			NextQuestionID:         a.NextQuestionID,
			ConditionalRoutes:      a.ConditionalRoutes,
			ChainTrigger:           a.ChainTrigger,
			AssignedLevel:          a.AssignedLevel,
			AssignedLevelID:        a.AssignedLevelID,
			AssignedProgramID:      a.AssignedProgramID,
			AssignedResults:        a.AssignedResults,
			MasterProgramSubLevels: a.MasterProgramSubLevels,
		})
	}
	return node
}

// Opts holds configuration for content store backends.
type Opts struct {
	// URI is the backend connection string: a MongoDB URI or an SQLite file
	// path depending on the backend.
	URI string
	// Database is the MongoDB database name.
	Database string
}

// Option configures a content store backend.
type Option func(*Opts)

// WithURI sets the backend connection string.
func WithURI(uri string) Option {
	return func(o *Opts) { o.URI = uri }
}

// WithDatabase sets the MongoDB database name.
func WithDatabase(name string) Option {
	return func(o *Opts) { o.Database = name }
}
