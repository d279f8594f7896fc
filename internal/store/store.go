// Package store provides persistence for questionnaire sessions and
// completed assessment profiles.
//
// It defines the Store interface with SQLite, PostgreSQL, and in-memory
// backends. Session records carry enough state to resume an interrupted flow
// after a restart; profile records hold the final program assignment of a
// completed flow.
package store

import (
	"errors"
	"strings"
	"time"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

// ErrSessionNotFound indicates the requested session id is not persisted.
var ErrSessionNotFound = errors.New("store: session not found")

// Session status values.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusAbandoned = "abandoned"
)

// Session kind values.
const (
	SessionKindQuiz  = "quiz"
	SessionKindChain = "chain"
)

// SessionRecord is the persisted state of one questionnaire or chain session.
type SessionRecord struct {
	ID                string                `json:"id"`
	Kind              string                `json:"kind"`
	Partition         string                `json:"partition"`
	QuestionnaireID   string                `json:"questionnaireId"`
	CurrentQuestionID string                `json:"currentQuestionId,omitempty"`
	Answers           map[string]string     `json:"answers,omitempty"`
	Chain             *models.ChainSnapshot `json:"chain,omitempty"`
	Language          string                `json:"language,omitempty"`
	Gender            string                `json:"gender,omitempty"`
	Status            string                `json:"status"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// ProfileRecord is the outcome of a completed flow: the program assignment
// handed to the training plan.
type ProfileRecord struct {
	SessionID   string                `json:"sessionId"`
	ProgramID   string                `json:"programId,omitempty"`
	LevelID     string                `json:"levelId,omitempty"`
	Level       string                `json:"level,omitempty"`
	SubLevels   map[string]int        `json:"subLevels,omitempty"`
	Results     []models.AnswerResult `json:"results,omitempty"`
	CompletedAt time.Time             `json:"completedAt"`
}

// Store persists sessions and profiles.
type Store interface {
	SaveSession(rec SessionRecord) error
	GetSession(id string) (*SessionRecord, error)
	ListActiveSessions() ([]SessionRecord, error)
	DeleteSession(id string) error

	SaveProfile(rec ProfileRecord) error
	GetProfile(sessionID string) (*ProfileRecord, error)

	Close() error
}

// Opts holds configuration for store backends.
type Opts struct {
	// DSN is the backend connection string: an SQLite file path or a
	// PostgreSQL connection string.
	DSN string
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the backend connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN as "postgres" or "sqlite". PostgreSQL DSNs
// use URL or key=value form; everything else is treated as an SQLite file
// path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}
