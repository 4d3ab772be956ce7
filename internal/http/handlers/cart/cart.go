// Package cart реализует HTTP-обработчики корзины и оформления заказа.
package cart

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
	cartsvc "github.com/magabrotheeeer/fitcoach/internal/services/cart"
)

// Service описывает бизнес-логику корзины.
type Service interface {
	View(ctx context.Context, userID string) (*models.CartView, error)
	SetItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error)
	Clear(ctx context.Context, userID string) error
	Checkout(ctx context.Context, userID string, method models.PaymentMethod) (*models.Order, error)
}

// Handler обрабатывает запросы корзины текущего пользователя.
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

type setItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=1000"`
}

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,oneof=pix card"`
}

func (h *Handler) begin(w http.ResponseWriter, r *http.Request, op string) (*slog.Logger, string, bool) {
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	user := middlewarectx.UserFromContext(r.Context())
	if user == nil {
		log.Error("user not found in context")
		response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
		return log, "", false
	}
	return log.With(slog.String("user_id", user.ID)), user.ID, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, cartsvc.ErrEmptyCart):
		response.Fail(w, r, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, cartsvc.ErrInvalidQuantity):
		response.Fail(w, r, http.StatusBadRequest, "quantity must not be negative")
	case errors.Is(err, cartsvc.ErrProductUnavailable):
		response.Fail(w, r, http.StatusNotFound, "product is unavailable")
	case errors.Is(err, cartsvc.ErrOutOfStock):
		response.Fail(w, r, http.StatusConflict, "not enough stock")
	default:
		log.Error("cart operation failed", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) renderView(w http.ResponseWriter, r *http.Request, log *slog.Logger, userID string) {
	view, err := h.service.View(r.Context(), userID)
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OKWithData(view))
}

// Get — GET /cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.cart.Get")
	if !ok {
		return
	}
	h.renderView(w, r, log, userID)
}

// SetItem — PUT /cart/items/{product_id}.
func (h *Handler) SetItem(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.cart.SetItem")
	if !ok {
		return
	}
	productID := chi.URLParam(r, "product_id")
	if uuid.Validate(productID) != nil {
		response.Fail(w, r, http.StatusBadRequest, "invalid product_id")
		return
	}
	var req setItemRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	if _, err := h.service.SetItem(r.Context(), userID, productID, req.Quantity); err != nil {
		h.fail(w, r, log, err)
		return
	}
	h.renderView(w, r, log, userID)
}

// RemoveItem — DELETE /cart/items/{product_id}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.cart.RemoveItem")
	if !ok {
		return
	}
	if _, err := h.service.RemoveItem(r.Context(), userID, chi.URLParam(r, "product_id")); err != nil {
		h.fail(w, r, log, err)
		return
	}
	h.renderView(w, r, log, userID)
}

// Clear — DELETE /cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.cart.Clear")
	if !ok {
		return
	}
	if err := h.service.Clear(r.Context(), userID); err != nil {
		h.fail(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// Checkout — POST /cart/checkout. Создаёт заказ pending и очищает корзину.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.cart.Checkout")
	if !ok {
		return
	}
	var req checkoutRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	order, err := h.service.Checkout(r.Context(), userID, models.PaymentMethod(req.PaymentMethod))
	if err != nil {
		h.fail(w, r, log, err)
		return
	}
	log.Info("order placed", slog.String("order_id", order.ID), slog.Int64("total_cents", order.TotalCents))
	response.Render(w, r, http.StatusCreated, response.OKWithData(order))
}
