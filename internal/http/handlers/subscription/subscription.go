// Package subscription реализует HTTP-обработчики тарифов и подписок администраторов.
package subscription

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/http/request"
	"github.com/magabrotheeeer/fitcoach/internal/http/response"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	subsvc "github.com/magabrotheeeer/fitcoach/internal/services/subscription"
)

// Service описывает бизнес-логику подписок.
type Service interface {
	Plans(ctx context.Context) ([]models.SubscriptionPlan, error)
	Current(ctx context.Context, adminID string) (*models.Subscription, error)
	Start(ctx context.Context, adminID, planID string) (*models.Subscription, *models.SubscriptionPlan, error)
	Cancel(ctx context.Context, adminID string) error
	List(ctx context.Context) ([]models.Subscription, error)
}

// Handler обрабатывает запросы подписок.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
	now      func() time.Time
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Status — подписка администратора и её активность на момент запроса.
type Status struct {
	Subscription *models.Subscription `json:"subscription"`
	Active       bool                 `json:"active"`
}

// Checkout — созданная подписка pending и план, который нужно оплатить.
type Checkout struct {
	Subscription  *models.Subscription     `json:"subscription"`
	Plan          *models.SubscriptionPlan `json:"plan"`
	KiwifyOrderID string                   `json:"kiwify_order_id"`
}

type startRequest struct {
	PlanID string `json:"plan_id" validate:"required,uuid"`
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Plans — GET /subscription-plans.
func (h *Handler) Plans(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.Plans")

	plans, err := h.service.Plans(r.Context())
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not list plans")
		return
	}
	render.JSON(w, r, response.OKWithData(plans))
}

// Current — GET /admin/subscription. Активность считается заново на каждый запрос.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.Current")

	adminID := middlewarectx.RoleFromContext(r.Context()).AdminID
	sub, err := h.service.Current(r.Context(), adminID)
	if err != nil {
		log.Error("failed to read subscription", slog.String("admin_id", adminID), sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not read subscription")
		return
	}
	render.JSON(w, r, response.OKWithData(Status{
		Subscription: sub,
		Active:       models.HasActiveSubscription(sub, h.now()),
	}))
}

// Start — POST /admin/subscription.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.Start")

	var req startRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}
	adminID := middlewarectx.RoleFromContext(r.Context()).AdminID
	sub, plan, err := h.service.Start(r.Context(), adminID, req.PlanID)
	if errors.Is(err, subsvc.ErrPlanNotFound) {
		response.Fail(w, r, http.StatusNotFound, "plan not found")
		return
	}
	if err != nil {
		log.Error("failed to start subscription", slog.String("admin_id", adminID), sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not start subscription")
		return
	}
	response.Render(w, r, http.StatusCreated, response.OKWithData(Checkout{
		Subscription:  sub,
		Plan:          plan,
		KiwifyOrderID: sub.KiwifyOrderID,
	}))
}

// Cancel — DELETE /admin/subscription.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.Cancel")

	adminID := middlewarectx.RoleFromContext(r.Context()).AdminID
	err := h.service.Cancel(r.Context(), adminID)
	if errors.Is(err, subsvc.ErrNoSubscription) {
		response.Fail(w, r, http.StatusNotFound, "no subscription to cancel")
		return
	}
	if err != nil {
		log.Error("failed to cancel subscription", slog.String("admin_id", adminID), sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not cancel subscription")
		return
	}
	log.Info("subscription cancelled", slog.String("admin_id", adminID))
	render.JSON(w, r, response.OK())
}

// List — GET /admin/subscriptions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.subscription.List")

	subs, err := h.service.List(r.Context())
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "could not list subscriptions")
		return
	}
	render.JSON(w, r, response.OKWithData(subs))
}
