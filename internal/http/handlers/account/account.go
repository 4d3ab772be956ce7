// Package account реализует HTTP-обработчики текущего пользователя: профиль и роль.
package account

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/http/request"
	"github.com/magabrotheeeer/fitcoach/internal/http/response"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// Service описывает работу с профилем.
type Service interface {
	Get(ctx context.Context, userID, email string) (*models.Profile, error)
	Update(ctx context.Context, userID, email string, upd models.ProfileUpdate) (*models.Profile, error)
}

// Handler обрабатывает /me.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// Me — профиль и роль текущего пользователя.
type Me struct {
	Profile *models.Profile  `json:"profile"`
	Role    models.AdminRole `json:"role"`
}

// Get — GET /me.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.Get"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user := middlewarectx.UserFromContext(r.Context())
	if user == nil {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.service.Get(r.Context(), user.ID, user.Email)
	if err != nil {
		log.Error("failed to load profile", slog.String("user_id", user.ID), sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not load profile")
		return
	}
	render.JSON(w, r, response.OKWithData(Me{
		Profile: p,
		Role:    middlewarectx.RoleFromContext(r.Context()),
	}))
}

// UpdateProfile — PUT /me/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.UpdateProfile"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user := middlewarectx.UserFromContext(r.Context())
	if user == nil {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	var upd models.ProfileUpdate
	if !request.DecodeJSON(w, r, log, h.validate, &upd) {
		return
	}
	p, err := h.service.Update(r.Context(), user.ID, user.Email, upd)
	if err != nil {
		log.Error("failed to update profile", slog.String("user_id", user.ID), sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not update profile")
		return
	}
	log.Info("profile updated", slog.String("user_id", user.ID))
	render.JSON(w, r, response.OKWithData(p))
}
