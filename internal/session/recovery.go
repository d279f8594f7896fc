package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/officeappout/out-run-app-sub001/internal/chain"
	"github.com/officeappout/out-run-app-sub001/internal/quiz"
	"github.com/officeappout/out-run-app-sub001/internal/store"
)

// Recover rebuilds in-memory sessions for every active record in the store.
// It is meant to run once at startup, before the API starts accepting
// traffic. Records that cannot be rebuilt (content changed underneath the
// session, corrupt snapshot) are marked abandoned rather than failing the
// whole pass.
func (m *Manager) Recover(ctx context.Context) error {
	records, err := m.store.ListActiveSessions()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		slog.Info("no active sessions to recover")
		return nil
	}

	slog.Info("recovering active sessions", "count", len(records))
	recovered := 0
	for _, rec := range records {
		if err := m.recoverOne(ctx, rec); err != nil {
			slog.Warn("abandoning unrecoverable session", "error", err, "sessionID", rec.ID, "kind", rec.Kind)
			rec.Status = store.SessionStatusAbandoned
			rec.UpdatedAt = m.now()
			if saveErr := m.store.SaveSession(rec); saveErr != nil {
				slog.Error("failed to mark session abandoned", "error", saveErr, "sessionID", rec.ID)
			}
			continue
		}
		recovered++
	}
	slog.Info("session recovery complete", "recovered", recovered, "abandoned", len(records)-recovered)
	return nil
}

func (m *Manager) recoverOne(ctx context.Context, rec store.SessionRecord) error {
	sess := &Session{
		ID:        rec.ID,
		Kind:      rec.Kind,
		Partition: rec.Partition,
		Language:  rec.Language,
		Gender:    rec.Gender,
		CreatedAt: rec.CreatedAt,
	}

	switch rec.Kind {
	case store.SessionKindChain:
		if rec.Chain == nil {
			return errors.New("chain session without snapshot")
		}
		orch := chain.New(m.content)
		if err := orch.Restore(ctx, *rec.Chain, rec.Language, rec.Gender, rec.CurrentQuestionID, rec.Answers); err != nil {
			return err
		}
		sess.orch = orch

	case store.SessionKindQuiz:
		if rec.CurrentQuestionID == "" {
			// Active quiz with no current question means the process died
			// mid-completion; nothing left to resume.
			return errors.New("quiz session without current question")
		}
		engine := quiz.NewEngine(m.content, rec.Language, rec.Gender)
		if err := engine.Resume(ctx, rec.Partition, rec.CurrentQuestionID, rec.Answers); err != nil {
			return err
		}
		sess.engine = engine

	default:
		return errors.New("unknown session kind " + rec.Kind)
	}

	m.register(sess)
	slog.Debug("session recovered", "sessionID", rec.ID, "kind", rec.Kind, "updatedAt", rec.UpdatedAt.Format(time.RFC3339))
	return nil
}
