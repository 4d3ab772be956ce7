package fitcoach

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fitcoach/internal/config"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/account"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/admins"
	carthandler "github.com/magabrotheeeer/fitcoach/internal/http/handlers/cart"
	cataloghandler "github.com/magabrotheeeer/fitcoach/internal/http/handlers/catalog"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/gymphoto"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/health"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/kiwifywebhook"
	mediahandler "github.com/magabrotheeeer/fitcoach/internal/http/handlers/media"
	"github.com/magabrotheeeer/fitcoach/internal/http/handlers/orders"
	subhandler "github.com/magabrotheeeer/fitcoach/internal/http/handlers/subscription"
	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/lib/jwt"
	"github.com/magabrotheeeer/fitcoach/internal/metrics"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/services/equipment"
)

type fakeSession struct {
	role  models.AdminRole
	ready bool
	perms models.PermissionSet
}

func (s fakeSession) Role(context.Context, string) (models.AdminRole, bool) {
	return s.role, s.ready
}

func (s fakeSession) Permissions(context.Context, models.AdminRole) (models.PermissionSet, bool) {
	return s.perms, true
}

func (s fakeSession) Subscription(context.Context, models.AdminRole) (*models.Subscription, bool) {
	return nil, true
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newRouter(t *testing.T, session fakeSession) (http.Handler, *jwt.MakerImpl) {
	t.Helper()
	return newRouterWithOrigins(t, session, []string{"*"})
}

func newRouterWithOrigins(t *testing.T, session fakeSession, origins []string) (http.Handler, *jwt.MakerImpl) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	maker := jwt.NewJWTMaker("test-secret", "", time.Hour)
	cfg := &config.Config{
		CORS:      config.CORS{AllowedOrigins: origins},
		RateLimit: config.RateLimit{RPS: 100, Burst: 100},
	}

	r := chi.NewRouter()
	RegisterRoutes(r, log, cfg, maker, middlewarectx.NewGuards(log, session, m), m, Handlers{
		Health:       health.New(log, okPinger{}),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Webhook:      kiwifywebhook.New(log, nil, m),
		Media:        mediahandler.New(log, nil, 1024),
		Catalog:      cataloghandler.New(log, nil),
		Cart:         carthandler.New(log, nil),
		Orders:       orders.New(log, nil),
		Account:      account.New(log, nil),
		Subscription: subhandler.New(log, nil),
		Admins:       admins.New(log, nil),
		GymPhotos:    gymphoto.New(log, equipment.Unavailable{}, equipment.Unavailable{}),
	})
	return r, maker
}

func TestRoutes(t *testing.T) {
	admin := models.AdminRole{AdminID: "adm-1", IsAdmin: true}

	tests := []struct {
		name         string
		session      fakeSession
		method       string
		path         string
		auth         bool
		header       map[string]string
		wantStatus   int
		wantLocation string
	}{
		{
			name:       "health",
			method:     http.MethodGet,
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "metrics",
			method:     http.MethodGet,
			path:       "/metrics",
			wantStatus: http.StatusOK,
		},
		{
			name:       "webhook rejects GET",
			method:     http.MethodGet,
			path:       "/kiwify-webhook",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "preflight",
			method:     http.MethodOptions,
			path:       "/api/v1/cart",
			header:     map[string]string{"Origin": "https://app.example.com", "Access-Control-Request-Method": "PUT"},
			wantStatus: http.StatusNoContent,
		},
		{
			name:         "anonymous user is sent to login",
			session:      fakeSession{ready: true},
			method:       http.MethodGet,
			path:         "/api/v1/me",
			wantStatus:   http.StatusFound,
			wantLocation: "/login?redirect=%2Fapi%2Fv1%2Fme",
		},
		{
			name:         "non admin on admin route",
			session:      fakeSession{ready: true},
			method:       http.MethodGet,
			path:         "/api/v1/admin/subscription",
			auth:         true,
			wantStatus:   http.StatusFound,
			wantLocation: "/login?admin=required&redirect=%2Fapi%2Fv1%2Fadmin%2Fsubscription",
		},
		{
			name:       "role still loading",
			session:    fakeSession{ready: false},
			method:     http.MethodGet,
			path:       "/api/v1/cart",
			auth:       true,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "gym photos are not implemented",
			session:    fakeSession{ready: true},
			method:     http.MethodPost,
			path:       "/api/v1/gym-photos/analyze",
			auth:       true,
			wantStatus: http.StatusNotImplemented,
		},
		{
			name:       "admin without permission",
			session:    fakeSession{role: admin, ready: true, perms: models.PermissionSet{}},
			method:     http.MethodPost,
			path:       "/api/v1/admin/products",
			auth:       true,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin without subscription",
			session:    fakeSession{role: admin, ready: true, perms: models.NewPermissionSet(models.PermissionManageProducts)},
			method:     http.MethodPost,
			path:       "/api/v1/admin/products",
			auth:       true,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admins list needs super admin",
			session:    fakeSession{role: admin, ready: true},
			method:     http.MethodGet,
			path:       "/api/v1/admin/admins",
			auth:       true,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, maker := newRouter(t, tt.session)
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if tt.auth {
				token, err := maker.GenerateToken("user-1", "user@example.com")
				require.NoError(t, err)
				req.Header.Set("Authorization", "Bearer "+token)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
		})
	}
}

func TestRoutes_WebhookPreflightWithRestrictedOrigins(t *testing.T) {
	router, _ := newRouterWithOrigins(t, fakeSession{ready: true}, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/kiwify-webhook", nil)
	req.Header.Set("Origin", "https://pay.kiwify.com.br")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://pay.kiwify.com.br", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
	req.Header.Set("Origin", "https://pay.kiwify.com.br")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
