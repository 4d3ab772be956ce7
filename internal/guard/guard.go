// Package guard содержит решения о доступе: маршрут, право, подписка.
// Функции не паникуют и не возвращают ошибок: недоступность данных
// выражается состоянием загрузки.
package guard

import (
	"net/url"
	"time"

	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// User — аутентифицированный пользователь.
type User struct {
	ID    string
	Email string
}

// State — снимок контекста авторизации для одного решения.
type State struct {
	// Loading — данные, нужные решению, ещё не получены.
	Loading      bool
	User         *User
	AdminID      string
	IsAdmin      bool
	IsSuperAdmin bool
	// Permissions — nil, пока права не загружены.
	Permissions  models.PermissionSet
	Subscription *models.Subscription
}

// RouteOutcome — исход проверки маршрута.
type RouteOutcome int

const (
	RoutePending RouteOutcome = iota
	RouteRedirect
	RouteRender
)

// RouteDecision — решение по маршруту. Location заполнен для RouteRedirect.
type RouteDecision struct {
	Outcome  RouteOutcome
	Location string
}

// LoginPath — страница входа.
const LoginPath = "/login"

// Route решает судьбу маршрута. При загрузке — ожидание независимо от
// пользователя и роли. Без пользователя — вход с возвратом на path.
// Для админских маршрутов без роли — вход с пометкой admin=required.
func Route(state State, path string, adminOnly bool) RouteDecision {
	if state.Loading {
		return RouteDecision{Outcome: RoutePending}
	}
	if state.User == nil {
		return RouteDecision{Outcome: RouteRedirect, Location: loginURL(path, false)}
	}
	if adminOnly && !state.IsAdmin {
		return RouteDecision{Outcome: RouteRedirect, Location: loginURL(path, true)}
	}
	return RouteDecision{Outcome: RouteRender}
}

func loginURL(path string, adminRequired bool) string {
	q := url.Values{}
	if adminRequired {
		q.Set("admin", "required")
	}
	q.Set("redirect", path)
	return LoginPath + "?" + q.Encode()
}

// PermissionDecision — исход проверки права.
type PermissionDecision int

const (
	PermissionPending PermissionDecision = iota
	PermissionDenied
	PermissionAllowed
)

// Permission проверяет право. Пока права загружаются — нейтральное ожидание.
func Permission(state State, p models.Permission) PermissionDecision {
	if state.Loading {
		return PermissionPending
	}
	if state.IsSuperAdmin {
		return PermissionAllowed
	}
	if state.IsAdmin && state.Permissions.Has(p) {
		return PermissionAllowed
	}
	return PermissionDenied
}

// Notifier показывает пользователю уведомления.
type Notifier interface {
	Info(message string)
	Error(message string)
}

// Сообщения проверки подписки по умолчанию.
const (
	MessageSubscriptionLoading  = "subscription status is still loading, please try again"
	MessageSubscriptionRequired = "an active subscription is required to perform this action"
)

// SubscriptionGuard откладывает действия администратора до подтверждения подписки.
type SubscriptionGuard struct {
	state    State
	notifier Notifier
	now      func() time.Time
}

// NewSubscriptionGuard создаёт guard. now == nil означает time.Now.
func NewSubscriptionGuard(state State, notifier Notifier, now func() time.Time) *SubscriptionGuard {
	if now == nil {
		now = time.Now
	}
	return &SubscriptionGuard{state: state, notifier: notifier, now: now}
}

// Allowed — супер-администратор или администратор с активной подпиской.
func (g *SubscriptionGuard) Allowed() bool {
	return g.state.IsSuperAdmin ||
		(g.state.IsAdmin && models.HasActiveSubscription(g.state.Subscription, g.now()))
}

// CheckSubscriptionAndAct вызывает action ровно один раз, синхронно, если доступ есть.
// При загрузке показывает информационное уведомление, при отказе — ошибку
// с message (или текстом по умолчанию). Возвращает, был ли вызван action.
func (g *SubscriptionGuard) CheckSubscriptionAndAct(action func(), message string) bool {
	if g.state.Loading {
		g.notifier.Info(MessageSubscriptionLoading)
		return false
	}
	if !g.Allowed() {
		if message == "" {
			message = MessageSubscriptionRequired
		}
		g.notifier.Error(message)
		return false
	}
	action()
	return true
}
