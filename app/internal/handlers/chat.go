package handlers

import (
	"context"
	"encoding/json"
	"net/http"
)

type chatRequest struct {
	Message string `json:"message"`
}

// Chat sends one message. The outbound call survives the client hanging up
// so that the token count and transcript stay consistent.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := h.ctrl.Send(context.WithoutCancel(r.Context()), req.Message)
	if err != nil {
		fail(w, err, http.StatusBadGateway)
		return
	}
	JSON(w, http.StatusOK, reply)
}
