package api

import (
	"net/http"

	"github.com/slok/taskflow/internal/log"
)

type SuggestHandler struct {
	classifier Classifier
	logger     log.Logger
}

func NewSuggestHandler(classifier Classifier, logger log.Logger) *SuggestHandler {
	return &SuggestHandler{classifier: classifier, logger: logger}
}

type suggestRequest struct {
	Title string `json:"title"`
}

// Suggest handles POST /api/ai-suggest
func (h *SuggestHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	s, err := h.classifier.Classify(r.Context(), req.Title)
	if err != nil {
		h.logger.WithCtxValues(r.Context()).Errorf("could not classify title: %s", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, s)
}
