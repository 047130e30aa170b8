package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docsage/docsage/internal/log"
	"github.com/docsage/docsage/internal/query"
)

// maxAskBodySize caps the /ask request body at 64KB; questions are short.
const maxAskBodySize = 64 * 1024

// Asker answers questions. Implemented by *query.Service.
type Asker interface {
	Ask(ctx context.Context, question, role string) (*query.Answer, error)
}

// AskRequest is the JSON body of POST /api/v1/ask.
type AskRequest struct {
	Question string `json:"question"`
	Role     string `json:"role,omitempty"`
}

type askHandler struct {
	svc    Asker
	logger log.Logger
}

func (h *askHandler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAskBodySize))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON with a question field", h.logger)
		return
	}

	answer, err := h.svc.Ask(r.Context(), req.Question, req.Role)
	if err != nil {
		switch {
		case errors.Is(err, query.ErrEmptyQuestion):
			writeError(w, http.StatusBadRequest, "invalid_question", "question is required", h.logger)
		case errors.Is(err, query.ErrQuestionTooShort):
			writeError(w, http.StatusBadRequest, "invalid_question", "question is too short", h.logger)
		default:
			h.logger.Error("question failed", "error", err)
			writeError(w, http.StatusInternalServerError, "query_failed", "failed to answer the question", h.logger)
		}
		return
	}

	writeJSON(w, http.StatusOK, answer, h.logger)
}
