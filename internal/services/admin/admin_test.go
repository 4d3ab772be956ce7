package admin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

type RepoMock struct {
	mock.Mock
	Repository
}

func (m *RepoMock) AdminByID(ctx context.Context, adminID string) (*models.Admin, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Admin), args.Error(1)
}

func (m *RepoMock) CreateAdmin(ctx context.Context, userID string, superAdmin bool) (string, error) {
	args := m.Called(ctx, userID, superAdmin)
	return args.String(0), args.Error(1)
}

func (m *RepoMock) DeleteAdmin(ctx context.Context, adminID string) (int, error) {
	args := m.Called(ctx, adminID)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ProfileByID(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *RepoMock) PixKeyByAdmin(ctx context.Context, adminID string) (*models.PixKey, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PixKey), args.Error(1)
}

type PermissionsMock struct{ mock.Mock }

func (m *PermissionsMock) Replace(ctx context.Context, adminID string, perms []models.Permission) error {
	return m.Called(ctx, adminID, perms).Error(0)
}

func (m *PermissionsMock) Grant(ctx context.Context, adminID string, p models.Permission) error {
	return m.Called(ctx, adminID, p).Error(0)
}

func (m *PermissionsMock) Revoke(ctx context.Context, adminID string, p models.Permission) error {
	return m.Called(ctx, adminID, p).Error(0)
}

func (m *PermissionsMock) Invalidate(ctx context.Context, adminID string) {
	m.Called(ctx, adminID)
}

type invalidator struct{ keys []string }

func (i *invalidator) Invalidate(_ context.Context, id string) { i.keys = append(i.keys, id) }

func newTestService(repo Repository, perms Permissions) (*Service, *invalidator, *invalidator) {
	roles, subs := &invalidator{}, &invalidator{}
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, perms, roles, subs), roles, subs
}

func TestPromote(t *testing.T) {
	ctx := context.Background()
	perms := []models.Permission{models.PermissionManageWorkouts}

	t.Run("with permissions", func(t *testing.T) {
		repo := new(RepoMock)
		pm := new(PermissionsMock)
		repo.On("ProfileByID", ctx, "u-1").Return(&models.Profile{ID: "u-1"}, nil)
		repo.On("CreateAdmin", ctx, "u-1", false).Return("a-1", nil)
		pm.On("Replace", ctx, "a-1", perms).Return(nil)
		repo.On("AdminByID", ctx, "a-1").Return(&models.Admin{ID: "a-1", Permissions: perms}, nil)
		svc, roles, _ := newTestService(repo, pm)

		a, err := svc.Promote(ctx, "u-1", false, perms)
		require.NoError(t, err)
		assert.Equal(t, "a-1", a.ID)
		assert.Equal(t, []string{"u-1"}, roles.keys)
		pm.AssertExpectations(t)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ProfileByID", ctx, "u-9").Return(nil, storage.ErrNotFound)
		svc, _, _ := newTestService(repo, new(PermissionsMock))

		_, err := svc.Promote(ctx, "u-9", false, nil)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("already admin", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("ProfileByID", ctx, "u-1").Return(&models.Profile{ID: "u-1"}, nil)
		repo.On("CreateAdmin", ctx, "u-1", true).Return("", storage.ErrConflict)
		svc, _, _ := newTestService(repo, new(PermissionsMock))

		_, err := svc.Promote(ctx, "u-1", true, nil)
		assert.ErrorIs(t, err, ErrAlreadyAdmin)
	})
}

func TestDemote(t *testing.T) {
	ctx := context.Background()

	t.Run("self", func(t *testing.T) {
		svc, _, _ := newTestService(new(RepoMock), new(PermissionsMock))
		assert.ErrorIs(t, svc.Demote(ctx, "a-1", "a-1"), ErrSelfDemotion)
	})

	t.Run("drops cached state", func(t *testing.T) {
		repo := new(RepoMock)
		pm := new(PermissionsMock)
		repo.On("AdminByID", ctx, "a-2").Return(&models.Admin{ID: "a-2", UserID: "u-2"}, nil)
		repo.On("DeleteAdmin", ctx, "a-2").Return(1, nil)
		pm.On("Invalidate", ctx, "a-2").Return()
		svc, roles, subs := newTestService(repo, pm)

		require.NoError(t, svc.Demote(ctx, "a-2", "a-1"))
		assert.Equal(t, []string{"u-2"}, roles.keys)
		assert.Equal(t, []string{"a-2"}, subs.keys)
		pm.AssertExpectations(t)
	})
}

func TestPixKey_MissingIsNil(t *testing.T) {
	ctx := context.Background()
	repo := new(RepoMock)
	repo.On("PixKeyByAdmin", ctx, "a-1").Return(nil, storage.ErrNotFound)
	svc, _, _ := newTestService(repo, new(PermissionsMock))

	k, err := svc.PixKey(ctx, "a-1")
	require.NoError(t, err)
	assert.Nil(t, k)
}

func TestGrantRevokePermission(t *testing.T) {
	ctx := context.Background()
	a := &models.Admin{ID: "a-1", Permissions: []models.Permission{models.PermissionManageOrders}}

	repo := new(RepoMock)
	repo.On("AdminByID", ctx, "a-1").Return(a, nil)
	perms := new(PermissionsMock)
	perms.On("Grant", ctx, "a-1", models.PermissionManageOrders).Return(nil).Once()
	perms.On("Revoke", ctx, "a-1", models.PermissionManageUsers).Return(nil).Once()
	perms.On("Grant", ctx, "missing", models.PermissionManageOrders).
		Return(fmt.Errorf("permission.Replace: %w", storage.ErrNotFound)).Once()
	svc, _, _ := newTestService(repo, perms)

	got, err := svc.GrantPermission(ctx, "a-1", models.PermissionManageOrders)
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = svc.RevokePermission(ctx, "a-1", models.PermissionManageUsers)
	require.NoError(t, err)

	_, err = svc.GrantPermission(ctx, "missing", models.PermissionManageOrders)
	assert.ErrorIs(t, err, ErrAdminNotFound)

	perms.AssertExpectations(t)
}
