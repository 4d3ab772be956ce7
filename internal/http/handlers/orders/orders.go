// Package orders реализует HTTP-обработчики заказов: свои заказы пользователя,
// все заказы и смена статуса для администраторов.
package orders

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
	"github.com/magabrotheeeer/fitcoach/internal/services/order"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

// Service описывает бизнес-логику заказов.
type Service interface {
	Mine(ctx context.Context, userID string) ([]models.Order, error)
	All(ctx context.Context, status string, limit, offset int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// Handler обрабатывает запросы заказов.
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

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid cancelled refunded"`
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Mine — GET /orders.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.orders.Mine")

	user := middlewarectx.UserFromContext(r.Context())
	if user == nil {
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.service.Mine(r.Context(), user.ID)
	if err != nil {
		log.Error("failed to list orders", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not list orders")
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// All — GET /admin/orders?status=&limit=&offset=.
func (h *Handler) All(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.orders.All")

	limit, offset, err := request.Page(r)
	if err != nil {
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.service.All(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if errors.Is(err, order.ErrInvalidStatus) {
		response.Fail(w, r, http.StatusBadRequest, "invalid order status")
		return
	}
	if err != nil {
		log.Error("failed to list orders", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not list orders")
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// UpdateStatus — PUT /admin/orders/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.orders.UpdateStatus")

	orderID := chi.URLParam(r, "id")
	if uuid.Validate(orderID) != nil {
		response.Fail(w, r, http.StatusBadRequest, "invalid id")
		return
	}
	var req statusRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	err := h.service.UpdateStatus(r.Context(), orderID, req.Status)
	switch {
	case err == nil:
		render.JSON(w, r, response.OK())
	case errors.Is(err, storage.ErrNotFound):
		response.Fail(w, r, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrInvalidStatus):
		response.Fail(w, r, http.StatusBadRequest, "invalid order status")
	default:
		log.Error("failed to update order status", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not update order")
	}
}
