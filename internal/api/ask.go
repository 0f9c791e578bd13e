package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lectern/lectern/internal/answer"
	"github.com/lectern/lectern/internal/history"
)

// Question length bounds, applied after trimming whitespace.
const (
	minQuestionLength = 10
	maxQuestionLength = 500
)

const maxBodyBytes = 1 << 20

// Answerer produces grounded answers. Implemented by answer.Service.
type Answerer interface {
	Answer(ctx context.Context, req answer.Request) (*answer.Result, error)
}

// HistoryStore persists exchanges and feedback. Implemented by
// history.Store.
type HistoryStore interface {
	SaveExchange(ctx context.Context, ex history.Exchange) (uuid.UUID, error)
	Messages(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]history.Message, error)
	SetFeedback(ctx context.Context, messageID uuid.UUID, feedback string) error
}

type askRequest struct {
	Question     string `json:"question"`
	SessionID    string `json:"session_id"`
	DocumentID   string `json:"document_id"`
	SelectedText string `json:"selected_text"`
}

type askResponse struct {
	Answer         string            `json:"answer"`
	Sources        []answer.Citation `json:"sources"`
	Confidence     float64           `json:"confidence"`
	MessageID      string            `json:"message_id"`
	SessionID      string            `json:"session_id"`
	ResponseTimeMS int64             `json:"response_time_ms"`
}

type askHandler struct {
	answerer Answerer
	history  HistoryStore
	logger   *slog.Logger
}

func (h *askHandler) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}

	question := strings.TrimSpace(req.Question)
	if len(question) < minQuestionLength || len(question) > maxQuestionLength {
		writeError(w, http.StatusUnprocessableEntity, "INVALID_QUESTION",
			"question must be between 10 and 500 characters")
		return
	}

	sessionID, err := sessionIDOrNew(req.SessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_SESSION", "session_id is not a valid UUID")
		return
	}

	result, err := h.answerer.Answer(r.Context(), answer.Request{
		Question:     question,
		DocumentID:   req.DocumentID,
		SelectedText: req.SelectedText,
	})
	if err != nil {
		if errors.Is(err, answer.ErrSynthesis) {
			h.logger.Error("answer synthesis failed",
				"request_id", requestIDFromContext(r.Context()),
				"error", err)
			writeError(w, http.StatusServiceUnavailable, "SYNTHESIS_FAILED",
				"The answering service is temporarily unavailable. Please try again later.")
			return
		}
		h.logger.Error("answering question failed",
			"request_id", requestIDFromContext(r.Context()),
			"error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	// Persistence is best-effort: a failed write must never withhold an
	// answer that was already produced.
	messageID := h.persistExchange(r.Context(), sessionID, question, result)

	writeJSON(w, http.StatusOK, askResponse{
		Answer:         result.Answer,
		Sources:        result.Citations,
		Confidence:     result.Confidence,
		MessageID:      messageID.String(),
		SessionID:      sessionID.String(),
		ResponseTimeMS: result.Elapsed.Milliseconds(),
	})
}

func (h *askHandler) persistExchange(ctx context.Context, sessionID uuid.UUID, question string, result *answer.Result) uuid.UUID {
	if h.history == nil {
		return uuid.New()
	}

	messageID, err := h.history.SaveExchange(ctx, history.Exchange{
		SessionID:  sessionID,
		Question:   question,
		Answer:     result.Answer,
		Sources:    result.Citations,
		Confidence: result.Confidence,
	})
	if err != nil {
		h.logger.Warn("saving exchange failed, delivering answer anyway",
			"session_id", sessionID,
			"error", err)
		return uuid.New()
	}
	return messageID
}

func sessionIDOrNew(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.New(), nil
	}
	return uuid.Parse(raw)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return nil
}
