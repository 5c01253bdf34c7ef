package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/artwork"
	"github.com/marketconnect/catfart-gpt/app/internal/tone"
)

const assetCacheControl = "public, max-age=86400"

// GetTone serves the generated sound of a tier.
func (h *Handler) GetTone(w http.ResponseWriter, r *http.Request) {
	tier, err := entities.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	if !tier.Reactive() {
		Error(w, http.StatusNotFound, "tier has no sound")
		return
	}
	b, err := tone.Render(tier)
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", assetCacheControl)
	w.Write(b)
}

// GetFrame serves one generated frame of a tier.
func (h *Handler) GetFrame(w http.ResponseWriter, r *http.Request) {
	tier, err := entities.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 || index > 2 {
		Error(w, http.StatusNotFound, "frame not found")
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", assetCacheControl)
	w.Write([]byte(artwork.Frames(tier)[index]))
}
