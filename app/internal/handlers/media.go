package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/media"
)

const (
	uploadField    = "file"
	multipartSlack = 1 << 20
)

type soundResponse struct {
	Tier  entities.Tier `json:"tier"`
	Label string        `json:"label"`
}

type frameResponse struct {
	Tier     entities.Tier      `json:"tier"`
	Slot     entities.FrameSlot `json:"slot"`
	Label    string             `json:"label"`
	Complete bool               `json:"complete"`
}

// GetMedia returns the uploader labels of every tier.
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.ctrl.MediaStatus())
}

// UploadSound stores a sound override.
func (h *Handler) UploadSound(w http.ResponseWriter, r *http.Request) {
	tier, err := entities.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	up, err := h.readUpload(w, r)
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	label, err := h.ctrl.UploadSound(tier, up)
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, soundResponse{Tier: tier, Label: label})
}

// UploadFrame stores one animation frame override.
func (h *Handler) UploadFrame(w http.ResponseWriter, r *http.Request) {
	tier, err := entities.ParseTier(chi.URLParam(r, "tier"))
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	slot, err := entities.ParseFrameSlot(chi.URLParam(r, "slot"))
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	up, err := h.readUpload(w, r)
	if err != nil {
		fail(w, err, http.StatusBadRequest)
		return
	}
	label, complete, err := h.ctrl.UploadFrame(tier, slot, up)
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, frameResponse{Tier: tier, Slot: slot, Label: label, Complete: complete})
}

// ClearMedia drops every override of one kind.
func (h *Handler) ClearMedia(w http.ResponseWriter, r *http.Request) {
	kind, err := entities.ParseMediaKind(chi.URLParam(r, "kind"))
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	switch kind {
	case entities.KindSounds:
		err = h.ctrl.ClearSounds()
	case entities.KindAnimations:
		err = h.ctrl.ClearAnimations()
	}
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	JSON(w, http.StatusOK, h.ctrl.MediaStatus())
}

// GetBlob serves the bytes of an uploaded file.
func (h *Handler) GetBlob(w http.ResponseWriter, r *http.Request) {
	blob, err := h.ctrl.OpenMedia(chi.URLParam(r, "id"))
	if err != nil {
		fail(w, err, http.StatusInternalServerError)
		return
	}
	if blob.ContentType != "" {
		w.Header().Set("Content-Type", blob.ContentType)
	}
	http.ServeContent(w, r, blob.Name, blob.CreatedAt, bytes.NewReader(blob.Data))
}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (media.Upload, error) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartSlack)
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return media.Upload{}, &media.ValidationError{
				Err:  entities.ErrMediaTooLarge,
				Hint: fmt.Sprintf("File is too large (limit %d bytes)", h.maxUploadBytes),
			}
		}
		return media.Upload{}, entities.ErrEmptyUpload
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return media.Upload{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return media.Upload{
		Name:        path.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
