// Package store provides persistence backends for sessions and profiles.
//
// This file implements the PostgreSQL-backed store used in production.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a session store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store with the given DSN.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open PostgreSQL connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("PostgreSQL ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgreSQL session store ready")

	return &PostgresStore{db: db}, nil
}

// SaveSession stores or replaces a session record.
func (s *PostgresStore) SaveSession(rec SessionRecord) error {
	row, err := encodeSessionRow(rec)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, kind, partition, questionnaire_id, current_question_id, answers_json, chain_json, language, gender, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET kind=EXCLUDED.kind, partition=EXCLUDED.partition,
		   questionnaire_id=EXCLUDED.questionnaire_id, current_question_id=EXCLUDED.current_question_id,
		   answers_json=EXCLUDED.answers_json, chain_json=EXCLUDED.chain_json,
		   language=EXCLUDED.language, gender=EXCLUDED.gender, status=EXCLUDED.status, updated_at=EXCLUDED.updated_at`,
		rec.ID, rec.Kind, rec.Partition, rec.QuestionnaireID, rec.CurrentQuestionID,
		row.answersJSON, row.chainJSON, rec.Language, rec.Gender, rec.Status, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "sessionID", rec.ID)
		return fmt.Errorf("failed to save session %s: %w", rec.ID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "sessionID", rec.ID, "status", rec.Status)
	return nil
}

// GetSession returns a session record by id.
func (s *PostgresStore) GetSession(id string) (*SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, kind, partition, questionnaire_id, current_question_id, answers_json, chain_json, language, gender, status, created_at, updated_at
		 FROM sessions WHERE id = $1`, id)
	rec, err := scanSessionRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", id, ErrSessionNotFound)
		}
		slog.Error("PostgresStore GetSession failed", "error", err, "sessionID", id)
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	return rec, nil
}

// ListActiveSessions returns every session with active status.
func (s *PostgresStore) ListActiveSessions() ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, kind, partition, questionnaire_id, current_question_id, answers_json, chain_json, language, gender, status, created_at, updated_at
		 FROM sessions WHERE status = $1`, SessionStatusActive)
	if err != nil {
		slog.Error("PostgresStore ListActiveSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSessionRecord(rows.Scan)
		if err != nil {
			slog.Error("PostgresStore ListActiveSessions scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	slog.Debug("PostgresStore ListActiveSessions succeeded", "count", len(out))
	return out, nil
}

// DeleteSession removes a session record.
func (s *PostgresStore) DeleteSession(id string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "sessionID", id)
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// SaveProfile stores or replaces a profile record.
func (s *PostgresStore) SaveProfile(rec ProfileRecord) error {
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id) DO UPDATE SET program_id=EXCLUDED.program_id, level_id=EXCLUDED.level_id,
		   level=EXCLUDED.level, sub_levels_json=EXCLUDED.sub_levels_json, results_json=EXCLUDED.results_json,
		   completed_at=EXCLUDED.completed_at`,
		rec.SessionID, rec.ProgramID, rec.LevelID, rec.Level, subLevels, results, rec.CompletedAt)
	if err != nil {
		slog.Error("PostgresStore SaveProfile failed", "error", err, "sessionID", rec.SessionID)
		return fmt.Errorf("failed to save profile for %s: %w", rec.SessionID, err)
	}
	return nil
}

// GetProfile returns the profile saved for a session, or nil.
func (s *PostgresStore) GetProfile(sessionID string) (*ProfileRecord, error) {
	row := s.db.QueryRow(
		`SELECT session_id, program_id, level_id, level, sub_levels_json, results_json, completed_at
		 FROM profiles WHERE session_id = $1`, sessionID)
	rec, err := scanProfileRecord(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		slog.Error("PostgresStore GetProfile failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query profile for %s: %w", sessionID, err)
	}
	return rec, nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
