// Package metrics содержит метрики Prometheus сервиса.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — все метрики сервиса.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// WebhookTotal — исходы обработки вебхука: ok, bad_request, method_not_allowed, rpc_error.
	WebhookTotal *prometheus.CounterVec
	// GuardDecisionsTotal — решения guard-ов по типу и исходу.
	GuardDecisionsTotal *prometheus.CounterVec

	SubscriptionsExpiredTotal  prometheus.Counter
	SubscriptionRemindersTotal prometheus.Counter
	EventPublishFailuresTotal  *prometheus.CounterVec
}

// New регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitcoach_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		WebhookTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_kiwify_webhook_total",
				Help: "Kiwify webhook requests by outcome",
			},
			[]string{"outcome"},
		),
		GuardDecisionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_guard_decisions_total",
				Help: "Access guard decisions by guard and outcome",
			},
			[]string{"guard", "outcome"},
		),
		SubscriptionsExpiredTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "fitcoach_subscriptions_expired_total",
			Help: "Subscriptions marked expired by the scheduler",
		}),
		SubscriptionRemindersTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "fitcoach_subscription_reminders_total",
			Help: "Expiring subscription reminders published",
		}),
		EventPublishFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitcoach_event_publish_failures_total",
				Help: "Events that could not be published to the broker",
			},
			[]string{"routing_key"},
		),
	}
}

// Middleware считает запросы по шаблону маршрута chi.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
