package handlers

import (
	"encoding/json"
	"net/http"
)

type saveKeyRequest struct {
	APIKey string `json:"api_key"`
}

// GetStatus returns tokens, cost, tier and loader state.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.ctrl.Status())
}

// GetTranscript returns the visible conversation.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.ctrl.Transcript())
}

// SaveKey validates and stores the API key.
func (h *Handler) SaveKey(w http.ResponseWriter, r *http.Request) {
	var req saveKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.ctrl.SaveAPIKey(req.APIKey); err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, h.ctrl.Status())
}
