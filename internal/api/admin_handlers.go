package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/officeappout/out-run-app-sub001/internal/content"
	"github.com/officeappout/out-run-app-sub001/internal/models"
)

// writer resolves the content store's admin surface. Read-only backends
// (e.g. a cached remote store) do not implement it.
func (s *Server) writer() (content.Writer, bool) {
	w, ok := s.content.(content.Writer)
	return w, ok
}

// upsertQuestionHandler handles POST/PUT /api/v1/admin/questions.
func (s *Server) upsertQuestionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	writerStore, ok := s.writer()
	if !ok {
		writeJSONResponse(w, http.StatusNotImplemented, models.Error("Content backend is read-only"))
		return
	}

	var doc content.QuestionDoc
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		slog.Warn("Server.upsertQuestionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if doc.ID == "" || doc.Partition == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required fields: id, partition"))
		return
	}

	if err := writerStore.PutQuestion(r.Context(), doc); err != nil {
		slog.Error("Server.upsertQuestionHandler: save failed", "error", err, "questionID", doc.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save question"))
		return
	}
	slog.Info("Server.upsertQuestionHandler: question saved", "questionID", doc.ID, "partition", doc.Partition)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Question saved", nil))
}

// getQuestionHandler handles GET /api/v1/admin/questions/{id}. It returns the
// resolved node with its answers, in the base (untranslated) variant, so an
// author can inspect what the engine would serve.
func (s *Server) getQuestionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	node, err := s.content.GetQuestionWithAnswers(r.Context(), id, "", "")
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Question not found"))
			return
		}
		slog.Error("Server.getQuestionHandler: lookup failed", "error", err, "questionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load question"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(node))
}

// deleteQuestionHandler handles DELETE /api/v1/admin/questions/{id}.
func (s *Server) deleteQuestionHandler(w http.ResponseWriter, r *http.Request) {
	writerStore, ok := s.writer()
	if !ok {
		writeJSONResponse(w, http.StatusNotImplemented, models.Error("Content backend is read-only"))
		return
	}

	id := mux.Vars(r)["id"]
	if err := writerStore.DeleteQuestion(r.Context(), id); err != nil {
		if errors.Is(err, content.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Question not found"))
			return
		}
		slog.Error("Server.deleteQuestionHandler: delete failed", "error", err, "questionID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete question"))
		return
	}
	slog.Info("Server.deleteQuestionHandler: question deleted", "questionID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Question deleted", nil))
}
