// Package admins реализует HTTP-обработчики управления администраторами,
// списка пользователей и ключа PIX.
package admins

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/http/request"
	"github.com/magabrotheeeer/fitcoach/internal/http/response"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/services/admin"
)

// Service описывает управление администраторами.
type Service interface {
	Admins(ctx context.Context) ([]models.Admin, error)
	Promote(ctx context.Context, userID string, superAdmin bool, perms []models.Permission) (*models.Admin, error)
	SetPermissions(ctx context.Context, adminID string, perms []models.Permission) (*models.Admin, error)
	GrantPermission(ctx context.Context, adminID string, p models.Permission) (*models.Admin, error)
	RevokePermission(ctx context.Context, adminID string, p models.Permission) (*models.Admin, error)
	Demote(ctx context.Context, adminID, actorAdminID string) error
	Users(ctx context.Context, limit, offset int) ([]models.Profile, error)
	PixKey(ctx context.Context, adminID string) (*models.PixKey, error)
	SetPixKey(ctx context.Context, adminID string, in models.PixKeyInput) (*models.PixKey, error)
}

// Handler обрабатывает запросы администрирования.
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

type promoteRequest struct {
	UserID      string   `json:"user_id" validate:"required,uuid"`
	SuperAdmin  bool     `json:"super_admin"`
	Permissions []string `json:"permissions"`
}

type permissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func parsePermissions(raw []string) ([]models.Permission, error) {
	perms := make([]models.Permission, 0, len(raw))
	for _, s := range raw {
		p, err := models.ParsePermission(s)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, admin.ErrUserNotFound):
		response.Fail(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, admin.ErrAdminNotFound):
		response.Fail(w, r, http.StatusNotFound, "admin not found")
	case errors.Is(err, admin.ErrAlreadyAdmin):
		response.Fail(w, r, http.StatusConflict, "user is already an admin")
	case errors.Is(err, admin.ErrSelfDemotion):
		response.Fail(w, r, http.StatusBadRequest, "admins cannot remove themselves")
	default:
		log.Error("admin operation failed", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "internal error")
	}
}

// Admins — GET /admin/admins.
func (h *Handler) Admins(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admins.Admins")

	list, err := h.service.Admins(r.Context())
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// Promote — POST /admin/admins.
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admins.Promote")

	var req promoteRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}
	perms, err := parsePermissions(req.Permissions)
	if err != nil {
		response.Fail(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	a, err := h.service.Promote(r.Context(), req.UserID, req.SuperAdmin, perms)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	response.Render(w, r, http.StatusCreated, response.OKWithData(a))
}

// SetPermissions — PUT /admin/admins/{id}/permissions.
func (h *Handler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admins.SetPermissions")

	adminID := chi.URLParam(r, "id")
	if uuid.Validate(adminID) != nil {
		response.Fail(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req permissionsRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}
	perms, err := parsePermissions(req.Permissions)
	if err != nil {
		response.Fail(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	a, err := h.service.SetPermissions(r.Context(), adminID, perms)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("permissions replaced", slog.String("admin_id", adminID), slog.Any("permissions", perms))
	render.JSON(w, r, response.OKWithData(a))
}

// GrantPermission — POST /admin/admins/{id}/permissions/{permission}.
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	h.changePermission(w, r, "handlers.admins.GrantPermission", h.service.GrantPermission)
}

// RevokePermission — DELETE /admin/admins/{id}/permissions/{permission}.
func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	h.changePermission(w, r, "handlers.admins.RevokePermission", h.service.RevokePermission)
}

func (h *Handler) changePermission(w http.ResponseWriter, r *http.Request, op string,
	change func(context.Context, string, models.Permission) (*models.Admin, error)) {
	log := h.logger(r, op)

	adminID := chi.URLParam(r, "id")
	if uuid.Validate(adminID) != nil {
		response.Fail(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := models.ParsePermission(chi.URLParam(r, "permission"))
	if err != nil {
		response.Fail(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	a, err := change(r.Context(), adminID, p)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("permission changed", slog.String("admin_id", adminID), slog.String("permission", string(p)))
	render.JSON(w, r, response.OKWithData(a))
}

// Demote — DELETE /admin/admins/{id}.
func (h *Handler) Demote(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admins.Demote")

	adminID := chi.URLParam(r, "id")
	if uuid.Validate(adminID) != nil {
		response.Fail(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	actor := middlewarectx.RoleFromContext(r.Context()).AdminID
	if err := h.service.Demote(r.Context(), adminID, actor); err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// Users — GET /admin/users?limit=&offset=.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admins.Users")

	limit, offset, err := request.Page(r)
	if err != nil {
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.service.Users(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// PixKey — GET /admin/pix-key. Без ключа data равно null.
func (h *Handler) PixKey(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admins.PixKey")

	adminID := middlewarectx.RoleFromContext(r.Context()).AdminID
	k, err := h.service.PixKey(r.Context(), adminID)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.Response{Status: response.StatusOK, Data: k})
}

// SetPixKey — PUT /admin/pix-key.
func (h *Handler) SetPixKey(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admins.SetPixKey")

	var in models.PixKeyInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}
	adminID := middlewarectx.RoleFromContext(r.Context()).AdminID
	k, err := h.service.SetPixKey(r.Context(), adminID, in)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("pix key saved", slog.String("admin_id", adminID), slog.String("key_type", in.KeyType))
	render.JSON(w, r, response.OKWithData(k))
}
