// Package kiwifywebhook принимает уведомления Kiwify об оплате и передаёт их
// процедуре handle_kiwify_webhook без изменений.
//
// Подпись не проверяется, повторы не дедуплицируются: обработчик доверяет
// форме тела. Тело без order_id или status отклоняется до вызова процедуры.
package kiwifywebhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/metrics"
)

const maxBodyBytes = 1 << 20

// Service передаёт уведомление процедуре и возвращает её результат.
type Service interface {
	HandleKiwifyWebhook(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// Handler обрабатывает запросы на /kiwify-webhook.
type Handler struct {
	log     *slog.Logger
	service Service
	metrics *metrics.Metrics
}

// New создаёт Handler.
func New(log *slog.Logger, service Service, m *metrics.Metrics) *Handler {
	return &Handler{
		log:     log,
		service: service,
		metrics: m,
	}
}

type successResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.kiwifywebhook"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if origin := r.Header.Get("Origin"); origin != "" {
		middlewarectx.SetCORSHeaders(w, origin)
	} else {
		middlewarectx.SetCORSHeaders(w, "*")
	}

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPost:
	default:
		h.outcome("method_not_allowed")
		log.Warn("method not allowed", slog.String("method", r.Method))
		w.Header().Set("Allow", "POST, OPTIONS")
		h.fail(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.outcome("bad_request")
		log.Error("failed to read webhook body", sl.Err(err))
		h.fail(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		h.outcome("bad_request")
		log.Error("webhook body is not a JSON object", sl.Err(err))
		h.fail(w, r, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if !present(fields["order_id"]) || !present(fields["status"]) {
		h.outcome("bad_request")
		log.Warn("webhook payload without order_id or status")
		h.fail(w, r, http.StatusBadRequest, "Missing required fields: order_id and status")
		return
	}

	data, err := h.service.HandleKiwifyWebhook(r.Context(), json.RawMessage(body))
	if err != nil {
		h.outcome("rpc_error")
		log.Error("failed to handle webhook", sl.Err(err))
		h.fail(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if len(data) == 0 {
		data = json.RawMessage("null")
	}

	h.outcome("ok")
	log.Info("webhook processed", slog.Any("order_id", fields["order_id"]), slog.Any("status", fields["status"]))
	render.Status(r, http.StatusOK)
	render.JSON(w, r, successResponse{Success: true, Data: data})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}

func (h *Handler) outcome(o string) {
	h.metrics.WebhookTotal.WithLabelValues(o).Inc()
}

// present — значение задано: не null, не пустая строка, не false и не 0.
func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	default:
		return true
	}
}
