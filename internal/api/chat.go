package api

import (
	"net/http"
	"strings"

	"github.com/user/taskchat/internal/chat"
)

type chatRequest struct {
	Message             string         `json:"message"`
	ConversationHistory []chat.Message `json:"conversationHistory"`
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		jsonError(w, http.StatusBadRequest, "Message is required")
		return
	}

	result, err := h.orchestrator.Respond(r.Context(), req.Message, req.ConversationHistory, bearerToken(r))
	if err != nil {
		jsonErrorDetails(w, http.StatusInternalServerError, "Failed to process chat message", err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, result)
}
