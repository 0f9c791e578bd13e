package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lectern/lectern/internal/translate"
)

// Translator renders a document into another language. Implemented by
// translate.Service.
type Translator interface {
	Translate(ctx context.Context, documentID, language, text string) (*translate.Result, error)
}

type translateRequest struct {
	DocumentID string `json:"document_id"`
	Language   string `json:"language"`
	Text       string `json:"text"`
}

type translateResponse struct {
	DocumentID string `json:"document_id"`
	Language   string `json:"language"`
	Content    string `json:"content"`
	Cached     bool   `json:"cached"`
}

type translateHandler struct {
	translator Translator
	logger     *slog.Logger
}

func (h *translateHandler) translate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "request body is not valid JSON")
		return
	}

	result, err := h.translator.Translate(r.Context(), req.DocumentID, req.Language, req.Text)
	if err != nil {
		if errors.Is(err, translate.ErrTranslation) {
			h.logger.Error("translation failed",
				"request_id", requestIDFromContext(r.Context()),
				"document_id", req.DocumentID,
				"error", err)
			writeError(w, http.StatusServiceUnavailable, "TRANSLATION_FAILED",
				"The translation service is temporarily unavailable. Please try again later.")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "INVALID_REQUEST", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, translateResponse{
		DocumentID: req.DocumentID,
		Language:   strings.ToLower(strings.TrimSpace(req.Language)),
		Content:    result.Content,
		Cached:     result.Cached,
	})
}
