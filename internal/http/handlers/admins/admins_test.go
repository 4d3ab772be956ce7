package admins

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/services/admin"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Admins(ctx context.Context) ([]models.Admin, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]models.Admin)
	return list, args.Error(1)
}

func (m *ServiceMock) Promote(ctx context.Context, userID string, superAdmin bool, perms []models.Permission) (*models.Admin, error) {
	args := m.Called(ctx, userID, superAdmin, perms)
	a, _ := args.Get(0).(*models.Admin)
	return a, args.Error(1)
}

func (m *ServiceMock) SetPermissions(ctx context.Context, adminID string, perms []models.Permission) (*models.Admin, error) {
	args := m.Called(ctx, adminID, perms)
	a, _ := args.Get(0).(*models.Admin)
	return a, args.Error(1)
}

func (m *ServiceMock) GrantPermission(ctx context.Context, adminID string, p models.Permission) (*models.Admin, error) {
	args := m.Called(ctx, adminID, p)
	a, _ := args.Get(0).(*models.Admin)
	return a, args.Error(1)
}

func (m *ServiceMock) RevokePermission(ctx context.Context, adminID string, p models.Permission) (*models.Admin, error) {
	args := m.Called(ctx, adminID, p)
	a, _ := args.Get(0).(*models.Admin)
	return a, args.Error(1)
}

func (m *ServiceMock) Demote(ctx context.Context, adminID, actorAdminID string) error {
	return m.Called(ctx, adminID, actorAdminID).Error(0)
}

func (m *ServiceMock) Users(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	args := m.Called(ctx, limit, offset)
	list, _ := args.Get(0).([]models.Profile)
	return list, args.Error(1)
}

func (m *ServiceMock) PixKey(ctx context.Context, adminID string) (*models.PixKey, error) {
	args := m.Called(ctx, adminID)
	k, _ := args.Get(0).(*models.PixKey)
	return k, args.Error(1)
}

func (m *ServiceMock) SetPixKey(ctx context.Context, adminID string, in models.PixKeyInput) (*models.PixKey, error) {
	args := m.Called(ctx, adminID, in)
	k, _ := args.Get(0).(*models.PixKey)
	return k, args.Error(1)
}

const (
	userID  = "11111111-2222-4333-8444-555555555555"
	adminID = "aaaaaaaa-bbbb-4ccc-8ddd-eeeeeeeeeeee"
	superID = "99999999-8888-4777-8666-555555555555"
)

func newRequest(method, target, body, idParam string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middlewarectx.WithRole(req.Context(), models.AdminRole{AdminID: superID, IsAdmin: true, IsSuperAdmin: true})
	if idParam != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", idParam)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func newHandler(svc *ServiceMock) *Handler {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
}

func TestPromote(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(*ServiceMock)
		wantStatus int
	}{
		{
			name: "promoted with permissions",
			body: `{"user_id":"` + userID + `","permissions":["manage_workouts","manage_products"]}`,
			setupMock: func(m *ServiceMock) {
				m.On("Promote", mock.Anything, userID, false,
					[]models.Permission{models.PermissionManageWorkouts, models.PermissionManageProducts}).
					Return(&models.Admin{ID: adminID, UserID: userID}, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "unknown permission",
			body:       `{"user_id":"` + userID + `","permissions":["manage_everything"]}`,
			setupMock:  func(*ServiceMock) {},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "already admin",
			body: `{"user_id":"` + userID + `","super_admin":true}`,
			setupMock: func(m *ServiceMock) {
				m.On("Promote", mock.Anything, userID, true, []models.Permission{}).
					Return(nil, fmt.Errorf("admin.Promote: %w", admin.ErrAlreadyAdmin)).Once()
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "no such user",
			body: `{"user_id":"` + userID + `"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Promote", mock.Anything, userID, false, []models.Permission{}).
					Return(nil, fmt.Errorf("admin.Promote: %w", admin.ErrUserNotFound)).Once()
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMock(svc)
			rec := httptest.NewRecorder()

			newHandler(svc).Promote(rec, newRequest(http.MethodPost, "/admin/admins", tt.body, ""))

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestDemote(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Demote", mock.Anything, adminID, superID).Return(nil).Once()
	svc.On("Demote", mock.Anything, superID, superID).
		Return(fmt.Errorf("admin.Demote: %w", admin.ErrSelfDemotion)).Once()
	h := newHandler(svc)

	rec := httptest.NewRecorder()
	h.Demote(rec, newRequest(http.MethodDelete, "/admin/admins/"+adminID, "", adminID))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Demote(rec, newRequest(http.MethodDelete, "/admin/admins/"+superID, "", superID))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestSetPermissions_AdminNotFound(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("SetPermissions", mock.Anything, adminID, []models.Permission{models.PermissionManageOrders}).
		Return(nil, fmt.Errorf("admin.SetPermissions: %w", admin.ErrAdminNotFound)).Once()
	rec := httptest.NewRecorder()

	newHandler(svc).SetPermissions(rec, newRequest(http.MethodPut, "/admin/admins/"+adminID+"/permissions",
		`{"permissions":["manage_orders"]}`, adminID))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertExpectations(t)
}

func TestPixKey(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("PixKey", mock.Anything, superID).Return(nil, nil).Once()
	in := models.PixKeyInput{KeyType: "email", KeyValue: "pix@example.com"}
	svc.On("SetPixKey", mock.Anything, superID, in).
		Return(&models.PixKey{AdminID: superID, KeyType: models.PixEmail, KeyValue: in.KeyValue}, nil).Once()
	h := newHandler(svc)

	rec := httptest.NewRecorder()
	h.PixKey(rec, newRequest(http.MethodGet, "/admin/pix-key", "", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","data":null}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.SetPixKey(rec, newRequest(http.MethodPut, "/admin/pix-key", `{"key_type":"email","key_value":"pix@example.com"}`, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"key_value":"pix@example.com"`)

	rec = httptest.NewRecorder()
	h.SetPixKey(rec, newRequest(http.MethodPut, "/admin/pix-key", `{"key_type":"iban","key_value":"x"}`, ""))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	svc.AssertExpectations(t)
}

func TestUsers_BadPaging(t *testing.T) {
	svc := new(ServiceMock)
	rec := httptest.NewRecorder()

	newHandler(svc).Users(rec, newRequest(http.MethodGet, "/admin/users?limit=abc", "", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func withPermissionParam(req *http.Request, perm string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	rctx.URLParams.Add("permission", perm)
	return req
}

func TestGrantRevokePermission(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("GrantPermission", mock.Anything, adminID, models.PermissionManageOrders).
		Return(&models.Admin{ID: adminID}, nil).Once()
	svc.On("RevokePermission", mock.Anything, adminID, models.PermissionManageUsers).
		Return(nil, fmt.Errorf("admin.RevokePermission: %w", admin.ErrAdminNotFound)).Once()
	h := newHandler(svc)

	rec := httptest.NewRecorder()
	h.GrantPermission(rec, withPermissionParam(
		newRequest(http.MethodPost, "/admin/admins/"+adminID+"/permissions/manage_orders", "", adminID), "manage_orders"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.RevokePermission(rec, withPermissionParam(
		newRequest(http.MethodDelete, "/admin/admins/"+adminID+"/permissions/manage_users", "", adminID), "manage_users"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.GrantPermission(rec, withPermissionParam(
		newRequest(http.MethodPost, "/admin/admins/"+adminID+"/permissions/fly", "", adminID), "fly"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	svc.AssertExpectations(t)
}
