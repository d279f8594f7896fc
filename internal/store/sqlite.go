// Package store provides persistence backends for sessions and profiles.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a session store backed by an SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN (a file path).
// The containing directory is created if it does not exist.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite session store ready", "path", cfg.DSN)

	return &SQLiteStore{db: db}, nil
}

// SaveSession stores or replaces a session record.
func (s *SQLiteStore) SaveSession(rec SessionRecord) error {
	row, err := encodeSessionRow(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, kind, partition, questionnaire_id, current_question_id, answers_json, chain_json, language, gender, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET kind=excluded.kind, partition=excluded.partition,
		   questionnaire_id=excluded.questionnaire_id, current_question_id=excluded.current_question_id,
		   answers_json=excluded.answers_json, chain_json=excluded.chain_json,
		   language=excluded.language, gender=excluded.gender, status=excluded.status, updated_at=excluded.updated_at`,
		rec.ID, rec.Kind, rec.Partition, rec.QuestionnaireID, rec.CurrentQuestionID,
		row.answersJSON, row.chainJSON, rec.Language, rec.Gender, rec.Status, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "sessionID", rec.ID)
		return fmt.Errorf("failed to save session %s: %w", rec.ID, err)
	}
	slog.Debug("SQLiteStore SaveSession succeeded", "sessionID", rec.ID, "status", rec.Status)
	return nil
}

// GetSession returns a session record by id.
func (s *SQLiteStore) GetSession(id string) (*SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, kind, partition, questionnaire_id, current_question_id, answers_json, chain_json, language, gender, status, created_at, updated_at
		 FROM sessions WHERE id = ?`, id)
	rec, err := scanSessionRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		slog.Error("SQLiteStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	return rec, nil
}

// ListActiveSessions returns every session with active status.
func (s *SQLiteStore) ListActiveSessions() ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, partition, questionnaire_id, current_question_id, answers_json, chain_json, language, gender, status, created_at, updated_at
		 FROM sessions WHERE status = ?`, SessionStatusActive)
	if err != nil {
		slog.Error("SQLiteStore ListActiveSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSessionRecord(rows.Scan)
		if err != nil {
			slog.Error("SQLiteStore ListActiveSessions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("SQLiteStore ListActiveSessions succeeded", "count", len(out))
	return out, nil
}

// DeleteSession removes a session record.
func (s *SQLiteStore) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		slog.Error("SQLiteStore DeleteSession failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// SaveProfile stores or replaces a profile record.
func (s *SQLiteStore) SaveProfile(rec ProfileRecord) error {
	subLevels, err := encodeJSON(rec.SubLevels)
	if err != nil {
		return err
	}
	results, err := encodeJSON(rec.Results)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO profiles (session_id, program_id, level_id, level, sub_levels_json, results_json, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET program_id=excluded.program_id, level_id=excluded.level_id,
		   level=excluded.level, sub_levels_json=excluded.sub_levels_json, results_json=excluded.results_json,
		   completed_at=excluded.completed_at`,
		rec.SessionID, rec.ProgramID, rec.LevelID, rec.Level, subLevels, results, rec.CompletedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveProfile failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to save profile for %s: %w", rec.SessionID, err)
	}
	slog.Debug("SQLiteStore SaveProfile succeeded", "sessionID", rec.SessionID, "programID", rec.ProgramID)
	return nil
}

// GetProfile returns the profile saved for a session, or nil.
func (s *SQLiteStore) GetProfile(sessionID string) (*ProfileRecord, error) {
	row := s.db.QueryRow(
		`SELECT session_id, program_id, level_id, level, sub_levels_json, results_json, completed_at
		 FROM profiles WHERE session_id = ?`, sessionID)
	rec, err := scanProfileRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Error("SQLiteStore GetProfile failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", sessionID, err)
	}
	return rec, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
