package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/fitcoach/internal/guard"
	"github.com/magabrotheeeer/fitcoach/internal/http/response"
	"github.com/magabrotheeeer/fitcoach/internal/metrics"
	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// Session отдаёт роль, права и подписку. ready == false — данные ещё загружаются.
type Session interface {
	Role(ctx context.Context, userID string) (models.AdminRole, bool)
	Permissions(ctx context.Context, role models.AdminRole) (models.PermissionSet, bool)
	Subscription(ctx context.Context, role models.AdminRole) (*models.Subscription, bool)
}

// MessageLoading — ответ на запрос, для которого контекст авторизации ещё не готов.
const MessageLoading = "authorization context is still loading, please retry"

// Guards — middleware проверок доступа поверх Session.
type Guards struct {
	log     *slog.Logger
	session Session
	metrics *metrics.Metrics
}

// NewGuards создаёт Guards.
func NewGuards(log *slog.Logger, session Session, m *metrics.Metrics) *Guards {
	return &Guards{log: log, session: session, metrics: m}
}

func (g *Guards) count(name, outcome string) {
	g.metrics.GuardDecisionsTotal.WithLabelValues(name, outcome).Inc()
}

func (g *Guards) logger(r *http.Request, op string) *slog.Logger {
	return g.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func pending(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("Retry-After", "1")
	response.Fail(w, r, http.StatusServiceUnavailable, msg)
}

func (g *Guards) state(r *http.Request) guard.State {
	role := RoleFromContext(r.Context())
	return guard.State{
		User:         UserFromContext(r.Context()),
		AdminID:      role.AdminID,
		IsAdmin:      role.IsAdmin,
		IsSuperAdmin: role.IsSuperAdmin,
	}
}

// Route пускает запрос только вошедшему пользователю, а при adminOnly — администратору.
// Найденная роль кладётся в контекст для следующих проверок.
func (g *Guards) Route(adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Route"

			ctx := r.Context()
			state := guard.State{User: UserFromContext(ctx)}
			if state.User != nil {
				role, ready := g.session.Role(ctx, state.User.ID)
				state.Loading = !ready
				state.AdminID = role.AdminID
				state.IsAdmin = role.IsAdmin
				state.IsSuperAdmin = role.IsSuperAdmin
				ctx = WithRole(ctx, role)
			}

			decision := guard.Route(state, r.URL.RequestURI(), adminOnly)
			switch decision.Outcome {
			case guard.RoutePending:
				g.count("route", "pending")
				g.logger(r, op).Warn("role is still loading")
				pending(w, r, MessageLoading)
			case guard.RouteRedirect:
				g.count("route", "redirect")
				g.logger(r, op).Info("redirecting to login", slog.String("location", decision.Location))
				http.Redirect(w, r, decision.Location, http.StatusFound)
			default:
				g.count("route", "render")
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// RequirePermission пропускает администратора с правом p.
func (g *Guards) RequirePermission(p models.Permission) func(http.Handler) http.Handler {
	return g.RequirePermissionFunc(func(*http.Request) models.Permission { return p })
}

// RequirePermissionFunc — как RequirePermission, но право зависит от запроса.
func (g *Guards) RequirePermissionFunc(permission func(*http.Request) models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequirePermission"

			p := permission(r)
			state := g.state(r)
			if state.IsAdmin && !state.IsSuperAdmin {
				perms, ready := g.session.Permissions(r.Context(), RoleFromContext(r.Context()))
				state.Loading = !ready
				state.Permissions = perms
			}

			switch guard.Permission(state, p) {
			case guard.PermissionPending:
				g.count("permission", "pending")
				pending(w, r, MessageLoading)
			case guard.PermissionDenied:
				g.count("permission", "denied")
				g.logger(r, op).Info("permission denied",
					slog.String("admin_id", state.AdminID),
					slog.String("permission", string(p)),
				)
				response.Fail(w, r, http.StatusForbidden, "missing permission "+string(p))
			default:
				g.count("permission", "allowed")
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireSuperAdmin пропускает только супер-администратора.
func (g *Guards) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !RoleFromContext(r.Context()).IsSuperAdmin {
			g.count("super_admin", "denied")
			response.Fail(w, r, http.StatusForbidden, "super admin required")
			return
		}
		g.count("super_admin", "allowed")
		next.ServeHTTP(w, r)
	})
}

// RequireActiveSubscription выполняет запрос, только если у администратора
// активная подписка или он супер-администратор. message заменяет текст отказа.
func (g *Guards) RequireActiveSubscription(message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.RequireActiveSubscription"

			state := g.state(r)
			if state.IsAdmin && !state.IsSuperAdmin {
				sub, ready := g.session.Subscription(r.Context(), RoleFromContext(r.Context()))
				state.Loading = !ready
				state.Subscription = sub
			}

			n := &httpNotifier{}
			acted := guard.NewSubscriptionGuard(state, n, nil).CheckSubscriptionAndAct(func() {
				next.ServeHTTP(w, r)
			}, message)
			if acted {
				g.count("subscription", "allowed")
				return
			}

			if n.info {
				g.count("subscription", "pending")
				pending(w, r, n.message)
				return
			}
			g.count("subscription", "denied")
			g.logger(r, op).Info("inactive subscription", slog.String("admin_id", state.AdminID))
			response.Fail(w, r, http.StatusForbidden, n.message)
		})
	}
}

// httpNotifier запоминает уведомление guard-а, чтобы превратить его в ответ.
type httpNotifier struct {
	info    bool
	message string
}

func (n *httpNotifier) Info(message string) {
	n.info = true
	n.message = message
}

func (n *httpNotifier) Error(message string) {
	n.message = message
}
