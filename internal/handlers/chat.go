package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"medichat-backend/internal/middleware"
	"medichat-backend/internal/models"
	"medichat-backend/internal/session"
)

type ChatHandler struct {
	sessions *session.Manager
}

func NewChatHandler(sessions *session.Manager) *ChatHandler {
	return &ChatHandler{sessions: sessions}
}

// Ask handles one chat turn for the authenticated session.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	s, err := h.sessions.Get(middleware.GetSessionID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	resp, err := s.Ask(r.Context(), req.Message)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("AI_ERROR", "Failed to get AI response", r))
		return
	}

	if resp.Sources == nil {
		resp.Sources = []models.PubMedSource{}
	}
	writeJSON(w, http.StatusOK, resp)
}
