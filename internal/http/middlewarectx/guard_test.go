package middlewarectx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/fitcoach/internal/guard"
	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/metrics"
	"github.com/magabrotheeeer/fitcoach/internal/models"
)

type SessionMock struct {
	mock.Mock
}

func (m *SessionMock) Role(ctx context.Context, userID string) (models.AdminRole, bool) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.AdminRole), args.Bool(1)
}

func (m *SessionMock) Permissions(ctx context.Context, role models.AdminRole) (models.PermissionSet, bool) {
	args := m.Called(ctx, role)
	set, _ := args.Get(0).(models.PermissionSet)
	return set, args.Bool(1)
}

func (m *SessionMock) Subscription(ctx context.Context, role models.AdminRole) (*models.Subscription, bool) {
	args := m.Called(ctx, role)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Bool(1)
}

var (
	adminRole = models.AdminRole{AdminID: "adm-1", IsAdmin: true}
	superRole = models.AdminRole{AdminID: "adm-0", IsAdmin: true, IsSuperAdmin: true}
)

func newGuards(s *SessionMock) (*middlewarectx.Guards, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return middlewarectx.NewGuards(newNoopLogger(), s, m), m
}

func request(path string, user *guard.User, role *models.AdminRole) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	ctx := req.Context()
	if user != nil {
		ctx = middlewarectx.WithUser(ctx, user)
	}
	if role != nil {
		ctx = middlewarectx.WithRole(ctx, *role)
	}
	return req.WithContext(ctx)
}

func TestGuards_Route(t *testing.T) {
	user := &guard.User{ID: "user-1"}

	tests := []struct {
		name         string
		user         *guard.User
		adminOnly    bool
		role         models.AdminRole
		ready        bool
		wantStatus   int
		wantLocation string
		wantNext     bool
	}{
		{
			name:         "anonymous redirected to login",
			wantStatus:   http.StatusFound,
			wantLocation: "/login?redirect=%2Fapi%2Fv1%2Fadmin%2Fproducts%3Fq%3D1",
		},
		{
			name:       "role still loading",
			user:       user,
			adminOnly:  true,
			ready:      false,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:         "patient on admin route",
			user:         user,
			adminOnly:    true,
			ready:        true,
			wantStatus:   http.StatusFound,
			wantLocation: "/login?admin=required&redirect=%2Fapi%2Fv1%2Fadmin%2Fproducts%3Fq%3D1",
		},
		{
			name:       "patient on user route",
			user:       user,
			ready:      true,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "admin on admin route",
			user:       user,
			adminOnly:  true,
			role:       adminRole,
			ready:      true,
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(SessionMock)
			if tt.user != nil {
				s.On("Role", mock.Anything, tt.user.ID).Return(tt.role, tt.ready).Once()
			}
			g, _ := newGuards(s)

			var gotRole models.AdminRole
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotRole = middlewarectx.RoleFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			g.Route(tt.adminOnly)(next).ServeHTTP(rec, request("/api/v1/admin/products?q=1", tt.user, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			assert.Equal(t, tt.wantNext, called)
			if tt.wantNext {
				assert.Equal(t, tt.role, gotRole)
			}
			if tt.wantStatus == http.StatusServiceUnavailable {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
			s.AssertExpectations(t)
		})
	}
}

func TestGuards_RequirePermission(t *testing.T) {
	user := &guard.User{ID: "user-1"}

	tests := []struct {
		name       string
		role       models.AdminRole
		perms      models.PermissionSet
		ready      bool
		lookup     bool
		wantStatus int
	}{
		{name: "super admin skips lookup", role: superRole, wantStatus: http.StatusOK},
		{name: "loading", role: adminRole, ready: false, lookup: true, wantStatus: http.StatusServiceUnavailable},
		{
			name:       "granted",
			role:       adminRole,
			perms:      models.NewPermissionSet(models.PermissionManageProducts),
			ready:      true,
			lookup:     true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing",
			role:       adminRole,
			perms:      models.NewPermissionSet(models.PermissionManageOrders),
			ready:      true,
			lookup:     true,
			wantStatus: http.StatusForbidden,
		},
		{name: "not an admin", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(SessionMock)
			if tt.lookup {
				s.On("Permissions", mock.Anything, tt.role).Return(tt.perms, tt.ready).Once()
			}
			g, _ := newGuards(s)

			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			role := tt.role
			g.RequirePermission(models.PermissionManageProducts)(next).
				ServeHTTP(rec, request("/api/v1/admin/products", user, &role))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			s.AssertExpectations(t)
		})
	}
}

func TestGuards_RequireSuperAdmin(t *testing.T) {
	g, _ := newGuards(new(SessionMock))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	g.RequireSuperAdmin(next).ServeHTTP(rec, request("/api/v1/admin/admins", &guard.User{ID: "u"}, &adminRole))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	g.RequireSuperAdmin(next).ServeHTTP(rec, request("/api/v1/admin/admins", &guard.User{ID: "u"}, &superRole))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuards_RequireActiveSubscription(t *testing.T) {
	user := &guard.User{ID: "user-1"}
	future := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name       string
		role       models.AdminRole
		sub        *models.Subscription
		ready      bool
		lookup     bool
		wantStatus int
		wantCalls  int
	}{
		{name: "super admin", role: superRole, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "loading defers action", role: adminRole, lookup: true, wantStatus: http.StatusServiceUnavailable},
		{
			name:       "active",
			role:       adminRole,
			sub:        &models.Subscription{Status: models.SubscriptionActive, EndDate: &future},
			ready:      true,
			lookup:     true,
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:       "lapsed",
			role:       adminRole,
			sub:        &models.Subscription{Status: models.SubscriptionActive, EndDate: &past},
			ready:      true,
			lookup:     true,
			wantStatus: http.StatusForbidden,
		},
		{name: "no subscription", role: adminRole, ready: true, lookup: true, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(SessionMock)
			if tt.lookup {
				s.On("Subscription", mock.Anything, tt.role).Return(tt.sub, tt.ready).Once()
			}
			g, m := newGuards(s)

			calls := 0
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.WriteHeader(http.StatusOK)
			})

			rec := httptest.NewRecorder()
			role := tt.role
			g.RequireActiveSubscription("")(next).ServeHTTP(rec, request("/api/v1/admin/workouts", user, &role))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCalls, calls)
			switch tt.wantStatus {
			case http.StatusServiceUnavailable:
				assert.Contains(t, rec.Body.String(), guard.MessageSubscriptionLoading)
				assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("subscription", "pending")))
			case http.StatusForbidden:
				assert.Contains(t, rec.Body.String(), guard.MessageSubscriptionRequired)
			}
			s.AssertExpectations(t)
		})
	}
}
