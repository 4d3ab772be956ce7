// Package gymphoto — загрузка и анализ фотографий зала. Обе функции пока
// недоступны и отвечают 501.
package gymphoto

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/http/response"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/services/equipment"
)

// Handler обрабатывает /gym-photos.
type Handler struct {
	log      *slog.Logger
	photos   equipment.PhotoStore
	detector equipment.Detector
}

// New создаёт Handler.
func New(log *slog.Logger, photos equipment.PhotoStore, detector equipment.Detector) *Handler {
	return &Handler{log: log, photos: photos, detector: detector}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, equipment.ErrNotImplemented) {
		response.Fail(w, r, http.StatusNotImplemented, err.Error())
		return
	}
	h.log.Error("gym photo request failed",
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		sl.Err(err),
	)
	response.Fail(w, r, http.StatusInternalServerError, "internal error")
}

// Upload — POST /gym-photos.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.gymphoto.Upload"

	user := middlewarectx.UserFromContext(r.Context())
	if user == nil {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	url, err := h.photos.SavePhoto(r.Context(), user.ID, r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	response.Render(w, r, http.StatusCreated, response.OKWithData(map[string]string{"url": url}))
}

// Analyze — POST /gym-photos/analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.gymphoto.Analyze"

	detections, err := h.detector.Detect(r.Context(), r.Body, r.Header.Get("Content-Type"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	render.JSON(w, r, response.OKWithData(detections))
}
