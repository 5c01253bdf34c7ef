// Package handlers exposes the application over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
	"github.com/marketconnect/catfart-gpt/app/internal/controller"
	"github.com/marketconnect/catfart-gpt/app/internal/conversation"
	"github.com/marketconnect/catfart-gpt/app/internal/media"
)

// Controller is the application state the handlers drive.
type Controller interface {
	Status() controller.Status
	Transcript() []entities.TranscriptEntry
	SaveAPIKey(key string) error
	Send(ctx context.Context, text string) (*conversation.Reply, error)

	MediaStatus() map[entities.Tier]media.TierStatus
	UploadSound(tier entities.Tier, up media.Upload) (string, error)
	UploadFrame(tier entities.Tier, slot entities.FrameSlot, up media.Upload) (string, bool, error)
	ClearSounds() error
	ClearAnimations() error
	OpenMedia(id string) (*entities.Blob, error)
}

// Handler serves the API, the cue feed and the page.
type Handler struct {
	ctrl           Controller
	feed           http.Handler
	page           http.Handler
	maxUploadBytes int64
}

// NewHandler creates a Handler. feed and page may be nil.
func NewHandler(ctrl Controller, feed, page http.Handler, maxUploadBytes int64) *Handler {
	return &Handler{
		ctrl:           ctrl,
		feed:           feed,
		page:           page,
		maxUploadBytes: maxUploadBytes,
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Get("/transcript", h.GetTranscript)
		r.Post("/key", h.SaveKey)
		r.Post("/chat", h.Chat)

		r.Get("/media", h.GetMedia)
		r.Post("/media/sounds/{tier}", h.UploadSound)
		r.Post("/media/animations/{tier}/{slot}", h.UploadFrame)
		r.Delete("/media/{kind}", h.ClearMedia)

		r.Get("/tones/{tier}.wav", h.GetTone)
		r.Get("/frames/{tier}/{index}.svg", h.GetFrame)
	})
	r.Get("/media/{id}", h.GetBlob)

	if h.feed != nil {
		r.Get("/ws/reaction", h.feed.ServeHTTP)
	}
	if h.page != nil {
		r.Handle("/*", h.page)
	}
	return r
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Error encoding response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// fail maps err onto a status code and a user-facing message. fallback is
// used for errors with no specific mapping.
func fail(w http.ResponseWriter, err error, fallback int) {
	var verr *media.ValidationError
	var apiErr *entities.APIError
	switch {
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if errors.Is(err, entities.ErrMediaTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		Error(w, status, verr.Hint)
	case errors.Is(err, entities.ErrEmptyMessage),
		errors.Is(err, entities.ErrMissingCredential),
		errors.Is(err, entities.ErrInvalidCredential),
		errors.Is(err, entities.ErrEmptyUpload),
		errors.Is(err, entities.ErrInvalidTier),
		errors.Is(err, entities.ErrInvalidSlot):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrBlobNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.As(err, &apiErr),
		errors.Is(err, entities.ErrMalformedResponse),
		errors.Is(err, entities.ErrMissingChoice),
		errors.Is(err, entities.ErrMissingUsage):
		Error(w, http.StatusBadGateway, conversation.ErrorMessage(err))
	default:
		if fallback >= http.StatusInternalServerError {
			slog.Error("request failed", "error", err)
		}
		Error(w, fallback, conversation.ErrorMessage(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chiMiddleware.GetReqID(r.Context()),
		)
	})
}
