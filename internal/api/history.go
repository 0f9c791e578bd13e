package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/lectern/lectern/internal/history"
)

type messagesResponse struct {
	Messages []history.Message `json:"messages"`
}

type feedbackRequest struct {
	MessageID string `json:"message_id"`
	Feedback  string `json:"feedback"`
}

type historyHandler struct {
	store  HistoryStore
	logger *slog.Logger
}

func (h *historyHandler) messages(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_SESSION", "session id is not a valid UUID")
		return
	}

	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	msgs, err := h.store.Messages(r.Context(), sessionID, limit, offset)
	if err != nil {
		h.logger.Error("listing messages failed",
			"request_id", requestIDFromContext(r.Context()),
			"session_id", sessionID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	if msgs == nil {
		msgs = []history.Message{}
	}

	writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
}

func (h *historyHandler) feedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}

	messageID, err := uuid.Parse(req.MessageID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "message_id is not a valid UUID")
		return
	}

	if err := h.store.SetFeedback(r.Context(), messageID, req.Feedback); err != nil {
		switch {
		case errors.Is(err, history.ErrInvalidFeedback):
			writeError(w, http.StatusUnprocessableEntity, "INVALID_FEEDBACK",
				"feedback must be one of: helpful, not_helpful, incorrect")
		case errors.Is(err, history.ErrNotFound):
			writeError(w, http.StatusNotFound, "MESSAGE_NOT_FOUND", "message not found")
		default:
			h.logger.Error("recording feedback failed",
				"request_id", requestIDFromContext(r.Context()),
				"message_id", messageID,
				"error", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
