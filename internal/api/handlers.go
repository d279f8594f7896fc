// Package api provides HTTP handlers for the questionnaire endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/officeappout/out-run-app-sub001/internal/content"
	"github.com/officeappout/out-run-app-sub001/internal/models"
	"github.com/officeappout/out-run-app-sub001/internal/quiz"
	"github.com/officeappout/out-run-app-sub001/internal/session"
)

// createSessionRequest is the body of POST /api/v1/sessions. Kind selects a
// single questionnaire or a chain; exactly one of QuestionnaireID and Chain
// must be set to match.
type createSessionRequest struct {
	Kind            string                  `json:"kind"`
	QuestionnaireID string                  `json:"questionnaireId,omitempty"`
	Chain           *models.ChainDefinition `json:"chain,omitempty"`
	Language        string                  `json:"language,omitempty"`
	Gender          string                  `json:"gender,omitempty"`
}

// answerRequest is the body of POST /api/v1/sessions/{id}/answer.
type answerRequest struct {
	AnswerID string `json:"answerId"`
}

// sessionCreatedResponse is returned from session creation: the new id plus
// the entry question to render.
type sessionCreatedResponse struct {
	SessionID string               `json:"sessionId"`
	Kind      string               `json:"kind"`
	Question  *models.QuestionNode `json:"question"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	// A lookup for a non-existent id still round-trips to the backend, so a
	// clean ErrNotFound means the content store is reachable.
	if _, err := s.content.GetQuestion(r.Context(), "health_probe"); err != nil && !errors.Is(err, content.ErrNotFound) {
		slog.Error("Server.healthHandler: content store unreachable", "error", err)
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Content store unreachable"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createSessionHandler: processing request", "method", r.Method, "path", r.URL.Path)

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Kind == "" {
		req.Kind = "quiz"
	}

	var (
		sess     *session.Session
		question *models.QuestionNode
		err      error
	)
	switch req.Kind {
	case "quiz":
		if req.QuestionnaireID == "" {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: questionnaireId"))
			return
		}
		sess, question, err = s.mgr.StartQuiz(r.Context(), req.QuestionnaireID, req.Language, req.Gender)
	case "chain":
		if req.Chain == nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: chain"))
			return
		}
		sess, question, err = s.mgr.StartChain(r.Context(), *req.Chain, req.Language, req.Gender)
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unknown session kind: "+req.Kind))
		return
	}
	if err != nil {
		slog.Error("Server.createSessionHandler: failed to start session", "error", err, "kind", req.Kind)
		if errors.Is(err, content.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Questionnaire not found"))
			return
		}
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	slog.Info("Server.createSessionHandler: session created", "sessionID", sess.ID, "kind", sess.Kind)
	writeJSONResponse(w, http.StatusCreated, models.Success(sessionCreatedResponse{
		SessionID: sess.ID,
		Kind:      sess.Kind,
		Question:  question,
	}))
}

func (s *Server) currentQuestionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	question, err := s.mgr.CurrentQuestion(id)
	if err != nil {
		slog.Warn("Server.currentQuestionHandler: session lookup failed", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if question == nil {
		// Terminal session: the caller should fetch the result instead.
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Flow complete", nil))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(question))
}

func (s *Server) answerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	id := mux.Vars(r)["id"]
	slog.Debug("Server.answerHandler: processing answer", "sessionID", id)

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.answerHandler: failed to decode JSON", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.AnswerID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: answerId"))
		return
	}

	trans, err := s.mgr.Answer(r.Context(), id, req.AnswerID)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrSessionNotFound):
			writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		case errors.Is(err, quiz.ErrInvalidAnswer):
			slog.Warn("Server.answerHandler: invalid answer", "sessionID", id, "answerID", req.AnswerID)
			writeJSONResponse(w, http.StatusBadRequest, models.Error("Answer not available on the current question"))
		case errors.Is(err, quiz.ErrNoActiveQuestion):
			writeJSONResponse(w, http.StatusConflict, models.Error("Session has no active question"))
		default:
			slog.Error("Server.answerHandler: transition failed", "error", err, "sessionID", id)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process answer"))
		}
		return
	}

	slog.Info("Server.answerHandler: answer processed", "sessionID", id, "answerID", req.AnswerID, "completed", trans.Completed)
	writeJSONResponse(w, http.StatusOK, models.Success(trans))
}

func (s *Server) progressHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	info, err := s.mgr.Progress(id)
	if err != nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(info))
}

func (s *Server) resultHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	profile, err := s.mgr.Profile(id)
	if err != nil {
		slog.Error("Server.resultHandler: profile lookup failed", "error", err, "sessionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load result"))
		return
	}
	if profile == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No result for session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

func (s *Server) abandonSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.mgr.Abandon(id); err != nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	slog.Info("Server.abandonSessionHandler: session abandoned", "sessionID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session abandoned", nil))
}
