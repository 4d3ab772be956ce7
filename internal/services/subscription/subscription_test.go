package subscription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fitcoach/internal/cache"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) SubscriptionByAdmin(ctx context.Context, adminID string) (*models.Subscription, error) {
	args := m.Called(ctx, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Subscription), args.Error(1)
}

func (m *RepoMock) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SubscriptionPlan), args.Error(1)
}

func (m *RepoMock) PlanByID(ctx context.Context, planID string) (*models.SubscriptionPlan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionPlan), args.Error(1)
}

func (m *RepoMock) UpsertPendingSubscription(ctx context.Context, adminID, planID, ref string) (*models.Subscription, error) {
	args := m.Called(ctx, adminID, planID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *RepoMock) CancelSubscription(ctx context.Context, adminID string) (int, error) {
	args := m.Called(ctx, adminID)
	return args.Int(0), args.Error(1)
}

func newTestService(repo Repository) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, repo, cache.NewMemory(100), time.Minute)
}

func TestCurrent_NoRowIsNil(t *testing.T) {
	ctx := context.Background()
	repo := new(RepoMock)
	repo.On("SubscriptionByAdmin", ctx, "a-1").
		Return(nil, fmt.Errorf("storage.SubscriptionByAdmin: %w", storage.ErrNotFound)).Once()
	svc := newTestService(repo)

	sub, err := svc.Current(ctx, "a-1")
	require.NoError(t, err)
	assert.Nil(t, sub)

	sub, err = svc.Current(ctx, "a-1")
	require.NoError(t, err)
	assert.Nil(t, sub)
	repo.AssertNumberOfCalls(t, "SubscriptionByAdmin", 1)
}

func TestCurrent_CachedRowIsReevaluated(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	end := now.Add(time.Hour)
	repo := new(RepoMock)
	repo.On("SubscriptionByAdmin", ctx, "a-1").Return(&models.Subscription{
		ID: "s-1", AdminID: "a-1", Status: models.SubscriptionActive, EndDate: &end,
	}, nil).Once()
	svc := newTestService(repo)

	first, err := svc.Current(ctx, "a-1")
	require.NoError(t, err)
	assert.True(t, models.HasActiveSubscription(first, now))

	cached, err := svc.Current(ctx, "a-1")
	require.NoError(t, err)
	assert.False(t, models.HasActiveSubscription(cached, now.Add(2*time.Hour)))
	repo.AssertNumberOfCalls(t, "SubscriptionByAdmin", 1)
}

func TestCurrent_Error(t *testing.T) {
	ctx := context.Background()
	repo := new(RepoMock)
	repo.On("SubscriptionByAdmin", ctx, "a-1").Return(nil, errors.New("db down"))
	svc := newTestService(repo)

	_, err := svc.Current(ctx, "a-1")
	assert.Error(t, err)
}

func TestStart(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending with order reference", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("PlanByID", ctx, "p-1").Return(&models.SubscriptionPlan{ID: "p-1", Active: true}, nil)
		repo.On("UpsertPendingSubscription", ctx, "a-1", "p-1", mock.MatchedBy(func(ref string) bool {
			return strings.HasPrefix(ref, "sub_") && len(ref) > len("sub_")
		})).Return(&models.Subscription{ID: "s-1", Status: models.SubscriptionPending}, nil)
		svc := newTestService(repo)

		sub, plan, err := svc.Start(ctx, "a-1", "p-1")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionPending, sub.Status)
		assert.Equal(t, "p-1", plan.ID)
		repo.AssertExpectations(t)
	})

	t.Run("inactive plan", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("PlanByID", ctx, "p-1").Return(&models.SubscriptionPlan{ID: "p-1"}, nil)
		svc := newTestService(repo)

		_, _, err := svc.Start(ctx, "a-1", "p-1")
		assert.ErrorIs(t, err, ErrPlanNotFound)
	})

	t.Run("missing plan", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("PlanByID", ctx, "p-9").Return(nil, storage.ErrNotFound)
		svc := newTestService(repo)

		_, _, err := svc.Start(ctx, "a-1", "p-9")
		assert.ErrorIs(t, err, ErrPlanNotFound)
	})
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing to cancel", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("CancelSubscription", ctx, "a-1").Return(0, storage.ErrNotFound)
		svc := newTestService(repo)

		assert.ErrorIs(t, svc.Cancel(ctx, "a-1"), ErrNoSubscription)
	})

	t.Run("cancel drops cached row", func(t *testing.T) {
		end := time.Now().Add(time.Hour)
		repo := new(RepoMock)
		repo.On("SubscriptionByAdmin", ctx, "a-1").Return(&models.Subscription{
			Status: models.SubscriptionActive, EndDate: &end,
		}, nil).Once()
		repo.On("CancelSubscription", ctx, "a-1").Return(1, nil)
		repo.On("SubscriptionByAdmin", ctx, "a-1").Return(&models.Subscription{
			Status: models.SubscriptionCancelled, EndDate: &end,
		}, nil).Once()
		svc := newTestService(repo)

		_, err := svc.Current(ctx, "a-1")
		require.NoError(t, err)
		require.NoError(t, svc.Cancel(ctx, "a-1"))

		sub, err := svc.Current(ctx, "a-1")
		require.NoError(t, err)
		assert.Equal(t, models.SubscriptionCancelled, sub.Status)
	})
}
