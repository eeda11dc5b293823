package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	appi18n "github.com/bancoq/bancoq/internal/i18n"
	"github.com/bancoq/bancoq/internal/model"
)

type chatRequest struct {
	Message string `json:"message"`
}

// handleChat runs one assistant turn for the session. The assistant never
// returns a transport-level error to the client; every outcome is a chat
// message.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	user := model.UserFromContext(r.Context())
	token := model.SessionTokenFromContext(r.Context())

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply := h.assistant.HandleTurn(r.Context(), user, token, req.Message)
	writeJSON(w, http.StatusOK, map[string]any{
		"type":    "chat",
		"message": reply,
	})
}

// handlePendingImage serves the staged candidate image of the session's
// pending question, if one exists.
func (h *Handler) handlePendingImage(w http.ResponseWriter, r *http.Request) {
	token := model.SessionTokenFromContext(r.Context())

	pq, err := h.store.GetPendingQuestion(token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, appi18n.T(r.Context(), "ServerError"))
		return
	}
	if pq == nil || pq.ImagePath == "" {
		writeError(w, http.StatusNotFound, appi18n.T(r.Context(), "QuestionNotFound"))
		return
	}
	http.ServeFile(w, r, pq.ImagePath)
}
