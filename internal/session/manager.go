// Package session owns the mapping from session ids to live questionnaire
// runs. Each session holds exactly one engine (single quiz) or orchestrator
// (chain); the manager is the only component that creates or hands them out,
// so ownership stays explicit instead of living in ambient globals. State is
// written through to the store after every transition so interrupted flows
// can be resumed after a restart.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/officeappout/out-run-app-sub001/internal/chain"
	"github.com/officeappout/out-run-app-sub001/internal/content"
	"github.com/officeappout/out-run-app-sub001/internal/models"
	"github.com/officeappout/out-run-app-sub001/internal/quiz"
	"github.com/officeappout/out-run-app-sub001/internal/store"
)

// ErrSessionNotFound indicates the session id is unknown to the manager.
var ErrSessionNotFound = errors.New("session: not found")

// Session is one live questionnaire run. The embedded mutex serializes
// transitions: engines are single-flight by contract, and HTTP callers are
// not.
type Session struct {
	mu sync.Mutex

	ID        string
	Kind      string
	Partition string
	Language  string
	Gender    string
	CreatedAt time.Time

	engine *quiz.Engine        // set for quiz sessions
	orch   *chain.Orchestrator // set for chain sessions
}

// currentEngine returns the engine driving this session right now.
func (s *Session) currentEngine() *quiz.Engine {
	if s.orch != nil {
		return s.orch.CurrentEngine()
	}
	return s.engine
}

// Transition is the outward result of one answer submission: the next
// question to render, or the terminal result of a quiz, or the aggregated
// result of a finished chain.
type Transition struct {
	SessionID    string                        `json:"sessionId"`
	Question     *models.QuestionNode          `json:"question,omitempty"`
	Result       *models.TerminalResult        `json:"result,omitempty"`
	Final        *models.ChainAggregatedResult `json:"final,omitempty"`
	StepAdvanced bool                          `json:"stepAdvanced,omitempty"`
	Completed    bool                          `json:"completed"`
}

// ProgressInfo combines engine progress with chain progress when applicable.
type ProgressInfo struct {
	Quiz  models.QuestionnaireProgress `json:"quiz"`
	Chain *models.ChainProgress        `json:"chain,omitempty"`
}

// Manager creates, resolves, and drives sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	content content.Store
	store   store.Store
	now     func() time.Time
}

// NewManager creates a session manager over the given content and session stores.
func NewManager(contentStore content.Store, sessionStore store.Store) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		content:  contentStore,
		store:    sessionStore,
		now:      time.Now,
	}
}

// StartQuiz creates a session driving a single questionnaire and returns it
// with the entry question.
func (m *Manager) StartQuiz(ctx context.Context, partition, language, gender string) (*Session, *models.QuestionNode, error) {
	engine := quiz.NewEngine(m.content, language, gender)
	if err := engine.Initialize(ctx, partition, ""); err != nil {
		return nil, nil, err
	}

	sess := &Session{
		ID:        "sess_" + uuid.NewString(),
		Kind:      store.SessionKindQuiz,
		Partition: partition,
		Language:  language,
		Gender:    gender,
		CreatedAt: m.now(),
		engine:    engine,
	}
	m.register(sess)
	if err := m.persist(sess, store.SessionStatusActive); err != nil {
		slog.Warn("failed to persist new quiz session", "error", err, "sessionID", sess.ID)
	}
	slog.Info("started quiz session", "sessionID", sess.ID, "partition", partition)
	return sess, engine.CurrentQuestion(), nil
}

// StartChain creates a session driving a chain of questionnaires and returns
// it with step 0's entry question.
func (m *Manager) StartChain(ctx context.Context, def models.ChainDefinition, language, gender string) (*Session, *models.QuestionNode, error) {
	orch := chain.New(m.content)
	engine, err := orch.StartChain(ctx, def, language, gender)
	if err != nil {
		return nil, nil, err
	}

	sess := &Session{
		ID:        "sess_" + uuid.NewString(),
		Kind:      store.SessionKindChain,
		Partition: def.Steps[0].QuestionnaireID,
		Language:  language,
		Gender:    gender,
		CreatedAt: m.now(),
		orch:      orch,
	}
	m.register(sess)
	if err := m.persist(sess, store.SessionStatusActive); err != nil {
		slog.Warn("failed to persist new chain session", "error", err, "sessionID", sess.ID)
	}
	slog.Info("started chain session", "sessionID", sess.ID, "steps", len(def.Steps))
	return sess, engine.CurrentQuestion(), nil
}

// Get resolves a live session by id.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}
	return sess, nil
}

// CurrentQuestion returns the session's active question, or nil when the
// flow is terminal.
func (m *Manager) CurrentQuestion(sessionID string) (*models.QuestionNode, error) {
	sess, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	engine := sess.currentEngine()
	if engine == nil {
		return nil, nil
	}
	return engine.CurrentQuestion(), nil
}

// Answer applies an answer to the session's current question and resolves
// the full transition, driving the orchestrator through hand-offs and step
// completions so the caller only ever sees the next question or a result.
func (m *Manager) Answer(ctx context.Context, sessionID, answerID string) (*Transition, error) {
	sess, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	engine := sess.currentEngine()
	if engine == nil {
		return nil, quiz.ErrNoActiveQuestion
	}

	out, err := engine.Answer(ctx, answerID)
	if err != nil {
		return nil, err
	}

	trans := &Transition{SessionID: sess.ID}
	switch out.Kind {
	case quiz.OutcomeContinue:
		trans.Question = out.Next

	case quiz.OutcomeHandOff:
		if sess.orch == nil {
			// A chain trigger inside a standalone quiz is a content
			// authoring defect: there is no orchestrator to hand off to.
			slog.Error("chain trigger outside a chain session", "sessionID", sess.ID, "target", out.Trigger.QuestionnaireID)
			return nil, fmt.Errorf("question graph hands off to %s but session %s is not a chain", out.Trigger.QuestionnaireID, sess.ID)
		}
		next, err := sess.orch.HandleChainTrigger(ctx, out.Trigger)
		if err != nil {
			return nil, err
		}
		trans.Question = next.CurrentQuestion()
		trans.StepAdvanced = true

	case quiz.OutcomeCompleted:
		if sess.orch == nil {
			trans.Result = out.Result
			trans.Completed = true
			m.completeQuiz(sess, out.Result)
		} else {
			step, err := sess.orch.CompleteCurrentQuestionnaire(ctx)
			if err != nil {
				return nil, err
			}
			if step.Next != nil {
				trans.Question = step.Next.CurrentQuestion()
				trans.StepAdvanced = true
			} else {
				trans.Final = step.Final
				trans.Completed = true
				m.completeChain(sess, step.Final)
			}
		}

	default:
		return nil, fmt.Errorf("unexpected outcome kind %s", out.Kind)
	}

	if !trans.Completed {
		if err := m.persist(sess, store.SessionStatusActive); err != nil {
			slog.Warn("failed to persist session progress", "error", err, "sessionID", sess.ID)
		}
	}
	return trans, nil
}

// Progress returns the session's progress snapshots.
func (m *Manager) Progress(sessionID string) (*ProgressInfo, error) {
	sess, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	info := &ProgressInfo{}
	if engine := sess.currentEngine(); engine != nil {
		info.Quiz = engine.Progress()
	}
	if sess.orch != nil {
		prog := sess.orch.ChainProgress()
		info.Chain = &prog
		// For chain sessions the flow is only complete when the whole
		// chain is, regardless of individual step results.
		info.Quiz.FlowComplete = sess.orch.Completed()
	} else {
		info.Quiz.FlowComplete = info.Quiz.ResultReached
	}
	return info, nil
}

// Profile returns the persisted outcome of a completed session, or nil.
func (m *Manager) Profile(sessionID string) (*store.ProfileRecord, error) {
	return m.store.GetProfile(sessionID)
}

// Abandon resets and forgets a session, marking it abandoned in the store.
func (m *Manager) Abandon(sessionID string) error {
	sess, err := m.Get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	if err := m.persist(sess, store.SessionStatusAbandoned); err != nil {
		slog.Warn("failed to mark session abandoned", "error", err, "sessionID", sessionID)
	}
	if sess.engine != nil {
		sess.engine.Reset()
	}
	sess.mu.Unlock()

	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	slog.Info("session abandoned", "sessionID", sessionID)
	return nil
}

func (m *Manager) register(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
}

// completeQuiz finalizes a quiz session: persist completed status and, when
// the result carries an assignment, the profile.
func (m *Manager) completeQuiz(sess *Session, result *models.TerminalResult) {
	if err := m.persist(sess, store.SessionStatusCompleted); err != nil {
		slog.Warn("failed to persist completed session", "error", err, "sessionID", sess.ID)
	}
	if result.Empty() {
		slog.Warn("quiz completed without result, no profile saved", "sessionID", sess.ID)
		return
	}
	rec := store.ProfileRecord{
		SessionID:   sess.ID,
		ProgramID:   result.AssignedProgramID,
		LevelID:     result.AssignedLevelID,
		Level:       result.AssignedLevel,
		SubLevels:   result.MasterProgramSubLevels,
		Results:     result.Results(),
		CompletedAt: m.now(),
	}
	if err := m.store.SaveProfile(rec); err != nil {
		slog.Error("failed to save profile", "error", err, "sessionID", sess.ID)
	}
}

// completeChain finalizes a chain session from its aggregated result. The
// profile's singular fields come from the first assigned result; the merged
// sub-level map is saved whole.
func (m *Manager) completeChain(sess *Session, agg *models.ChainAggregatedResult) {
	if err := m.persist(sess, store.SessionStatusCompleted); err != nil {
		slog.Warn("failed to persist completed session", "error", err, "sessionID", sess.ID)
	}
	rec := store.ProfileRecord{
		SessionID:   sess.ID,
		SubLevels:   agg.SubLevels,
		Results:     agg.Results,
		CompletedAt: m.now(),
	}
	if len(agg.Results) > 0 {
		rec.ProgramID = agg.Results[0].ProgramID
		rec.LevelID = agg.Results[0].LevelID
		rec.Level = agg.Results[0].Level
	}
	if err := m.store.SaveProfile(rec); err != nil {
		slog.Error("failed to save profile", "error", err, "sessionID", sess.ID)
	}
}

// persist writes the session's current traversal state through to the store.
func (m *Manager) persist(sess *Session, status string) error {
	rec := store.SessionRecord{
		ID:        sess.ID,
		Kind:      sess.Kind,
		Partition: sess.Partition,
		Language:  sess.Language,
		Gender:    sess.Gender,
		Status:    status,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: m.now(),
	}
	if engine := sess.currentEngine(); engine != nil {
		rec.QuestionnaireID = engine.Partition()
		rec.Answers = engine.AllAnswers()
		if q := engine.CurrentQuestion(); q != nil {
			rec.CurrentQuestionID = q.ID
		}
	}
	if sess.orch != nil {
		snap := sess.orch.Snapshot()
		rec.Chain = &snap
	}
	return m.store.SaveSession(rec)
}
