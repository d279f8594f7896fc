// Package content provides storage backends for questionnaire content.
//
// This file implements an SQLite-backed store for local development and the
// seed tool.
package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a content store backed by an SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) an SQLite content database.
// The URI option is the database file path.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.URI == "" {
		slog.Error("content SQLiteStore DSN not set")
		return nil, fmt.Errorf("content database DSN not set")
	}

	dir := filepath.Dir(cfg.URI)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create content database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create content database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.URI)
	if err != nil {
		slog.Error("Failed to open content SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Content SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run content migrations", "error", err)
		return nil, fmt.Errorf("failed to run content migrations: %w", err)
	}
	slog.Debug("Content SQLite store ready", "path", cfg.URI)

	return &SQLiteStore{db: db}, nil
}

// GetFirstQuestion returns the entry node of a partition.
func (s *SQLiteStore) GetFirstQuestion(ctx context.Context, partition, language, gender string) (*models.QuestionNode, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, partition, kind, entry, text, translations_json, answers_json FROM questions WHERE partition = ? AND entry = 1 LIMIT 1`,
		partition)
	doc, err := scanQuestionDoc(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entry question for partition %s: %w", partition, ErrNotFound)
		}
		slog.Error("content SQLiteStore GetFirstQuestion failed", "error", err, "partition", partition)
		return nil, fmt.Errorf("failed to query entry question for %s: %w", partition, err)
	}
	return doc.Resolve(language, gender, true), nil
}

// GetQuestion returns a node by id without answers.
func (s *SQLiteStore) GetQuestion(ctx context.Context, questionID string) (*models.QuestionNode, error) {
	doc, err := s.findByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return doc.Resolve("", "", false), nil
}

// GetQuestionWithAnswers returns a resolved node by id with its answers.
func (s *SQLiteStore) GetQuestionWithAnswers(ctx context.Context, questionID, language, gender string) (*models.QuestionNode, error) {
	doc, err := s.findByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return doc.Resolve(language, gender, true), nil
}

func (s *SQLiteStore) findByID(ctx context.Context, questionID string) (*QuestionDoc, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, partition, kind, entry, text, translations_json, answers_json FROM questions WHERE id = ?`,
		questionID)
	doc, err := scanQuestionDoc(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("question %s: %w", questionID, ErrNotFound)
		}
		slog.Error("content SQLiteStore question query failed", "error", err, "questionID", questionID)
		return nil, fmt.Errorf("failed to query question %s: %w", questionID, err)
	}
	return doc, nil
}

// PutQuestion stores or replaces a question document.
func (s *SQLiteStore) PutQuestion(ctx context.Context, doc QuestionDoc) error {
	if doc.ID == "" {
		return fmt.Errorf("question document missing id")
	}
	translations, err := json.Marshal(doc.Translations)
	if err != nil {
		return fmt.Errorf("failed to encode translations for %s: %w", doc.ID, err)
	}
	answers, err := json.Marshal(doc.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers for %s: %w", doc.ID, err)
	}
	entry := 0
	if doc.Entry {
		entry = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (id, partition, kind, entry, text, translations_json, answers_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET partition=excluded.partition, kind=excluded.kind, entry=excluded.entry,
		   text=excluded.text, translations_json=excluded.translations_json, answers_json=excluded.answers_json`,
		doc.ID, doc.Partition, string(doc.Kind), entry, doc.Text, string(translations), string(answers))
	if err != nil {
		slog.Error("content SQLiteStore PutQuestion failed", "error", err, "questionID", doc.ID)
		return fmt.Errorf("failed to upsert question %s: %w", doc.ID, err)
	}
	slog.Debug("content SQLiteStore PutQuestion succeeded", "questionID", doc.ID)
	return nil
}

// DeleteQuestion removes a question document.
func (s *SQLiteStore) DeleteQuestion(ctx context.Context, questionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE id = ?`, questionID)
	if err != nil {
		slog.Error("content SQLiteStore DeleteQuestion failed", "error", err, "questionID", questionID)
		return fmt.Errorf("failed to delete question %s: %w", questionID, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuestionDoc(row rowScanner) (*QuestionDoc, error) {
	var doc QuestionDoc
	var entry int
	var translations, answers sql.NullString
	if err := row.Scan(&doc.ID, &doc.Partition, (*string)(&doc.Kind), &entry, &doc.Text, &translations, &answers); err != nil {
		return nil, err
	}
	doc.Entry = entry != 0
	if translations.Valid && translations.String != "" {
		if err := json.Unmarshal([]byte(translations.String), &doc.Translations); err != nil {
			return nil, fmt.Errorf("failed to decode translations for %s: %w", doc.ID, err)
		}
	}
	if answers.Valid && answers.String != "" {
		if err := json.Unmarshal([]byte(answers.String), &doc.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode answers for %s: %w", doc.ID, err)
		}
	}
	return &doc, nil
}
