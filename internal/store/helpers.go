// Package store provides persistence backends for sessions and profiles.
//
// This file holds the row encoding helpers shared by the SQL backends: maps
// and nested structures are stored as JSON text columns.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/officeappout/out-run-app-sub001/internal/models"
)

// encodeJSON marshals v, returning an empty string for nil values so the
// column stays NULL-ish rather than holding "null".
func encodeJSON(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode json column: %w", err)
	}
	return string(data), nil
}

func decodeJSON(col sql.NullString, v interface{}) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), v); err != nil {
		return fmt.Errorf("failed to decode json column: %w", err)
	}
	return nil
}

type sessionRow struct {
	answersJSON string
	chainJSON   string
}

// encodeSessionRow prepares the JSON columns of a session record.
func encodeSessionRow(rec SessionRecord) (sessionRow, error) {
	var row sessionRow
	var err error
	if len(rec.Answers) > 0 {
		if row.answersJSON, err = encodeJSON(rec.Answers); err != nil {
			return row, err
		}
	}
	if rec.Chain != nil {
		if row.chainJSON, err = encodeJSON(rec.Chain); err != nil {
			return row, err
		}
	}
	return row, nil
}

// scanSessionRecord scans one sessions row.
func scanSessionRecord(scan func(dest ...interface{}) error) (*SessionRecord, error) {
	var rec SessionRecord
	var questionnaireID, currentQuestionID, language, gender sql.NullString
	var answersJSON, chainJSON sql.NullString
	err := scan(&rec.ID, &rec.Kind, &rec.Partition, &questionnaireID, &currentQuestionID,
		&answersJSON, &chainJSON, &language, &gender, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.QuestionnaireID = questionnaireID.String
	rec.CurrentQuestionID = currentQuestionID.String
	rec.Language = language.String
	rec.Gender = gender.String
	if err := decodeJSON(answersJSON, &rec.Answers); err != nil {
		return nil, err
	}
	if chainJSON.Valid && chainJSON.String != "" {
		var snap models.ChainSnapshot
		if err := decodeJSON(chainJSON, &snap); err != nil {
			return nil, err
		}
		rec.Chain = &snap
	}
	return &rec, nil
}

// scanProfileRecord scans one profiles row.
func scanProfileRecord(scan func(dest ...interface{}) error) (*ProfileRecord, error) {
	var rec ProfileRecord
	var programID, levelID, level sql.NullString
	var subLevelsJSON, resultsJSON sql.NullString
	err := scan(&rec.SessionID, &programID, &levelID, &level, &subLevelsJSON, &resultsJSON, &rec.CompletedAt)
	if err != nil {
		return nil, err
	}
	rec.ProgramID = programID.String
	rec.LevelID = levelID.String
	rec.Level = level.String
	if err := decodeJSON(subLevelsJSON, &rec.SubLevels); err != nil {
		return nil, err
	}
	if err := decodeJSON(resultsJSON, &rec.Results); err != nil {
		return nil, err
	}
	return &rec, nil
}
