// Package media реализует загрузку картинок каталога администраторами.
package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/fitcoach/internal/http/response"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/media"
	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// multipartOverhead — запас на заголовки multipart сверх размера файла.
const multipartOverhead = 1 << 20

// Uploader сохраняет картинку и возвращает её адрес.
type Uploader interface {
	Upload(ctx context.Context, kind string, r io.Reader) (string, error)
}

// Handler обрабатывает POST /admin/media/{kind} с файлом в поле file.
type Handler struct {
	log      *slog.Logger
	uploader Uploader
	maxSize  int64
}

// New создаёт Handler. maxSize — предел размера файла в байтах.
func New(log *slog.Logger, uploader Uploader, maxSize int64) *Handler {
	return &Handler{
		log:      log,
		uploader: uploader,
		maxSize:  maxSize,
	}
}

// Permission — право, нужное для загрузки картинки вида из пути запроса.
func Permission(r *http.Request) models.Permission {
	if chi.URLParam(r, "kind") == media.KindWorkouts {
		return models.PermissionManageWorkouts
	}
	return models.PermissionManageProducts
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.media.Upload"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	kind := chi.URLParam(r, "kind")
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartOverhead)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(w, r, http.StatusRequestEntityTooLarge, "image is too large")
			return
		}
		log.Info("multipart file missing", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, "multipart field file is required")
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(r.Context(), kind, file)
	switch {
	case err == nil:
		log.Info("image uploaded", slog.String("kind", kind), slog.String("url", url))
		response.Render(w, r, http.StatusCreated, response.OKWithData(map[string]string{"url": url}))
	case errors.Is(err, media.ErrInvalidKind):
		response.Fail(w, r, http.StatusBadRequest, "kind must be products or workouts")
	case errors.Is(err, media.ErrEmpty):
		response.Fail(w, r, http.StatusBadRequest, "image is empty")
	case errors.Is(err, media.ErrTooLarge):
		response.Fail(w, r, http.StatusRequestEntityTooLarge, "image is too large")
	case errors.Is(err, media.ErrUnsupportedType):
		response.Fail(w, r, http.StatusUnsupportedMediaType, "only jpeg, png and webp images are accepted")
	default:
		log.Error("failed to upload image", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not upload image")
	}
}
