// Package profile — профиль текущего пользователя.
package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// Repository — хранилище профилей.
type Repository interface {
	EnsureProfile(ctx context.Context, userID, email string) error
	ProfileByID(ctx context.Context, userID string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (int, error)
}

// Service — профили.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создаёт Service.
func New(log *slog.Logger, repo Repository) *Service {
	return &Service{repo: repo, log: log}
}

// Get возвращает профиль, создавая его при первом обращении.
func (s *Service) Get(ctx context.Context, userID, email string) (*models.Profile, error) {
	const op = "profile.Get"

	if err := s.repo.EnsureProfile(ctx, userID, email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.repo.ProfileByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// Update изменяет имя и телефон.
func (s *Service) Update(ctx context.Context, userID, email string, upd models.ProfileUpdate) (*models.Profile, error) {
	const op = "profile.Update"

	if err := s.repo.EnsureProfile(ctx, userID, email); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.repo.UpdateProfile(ctx, userID, upd); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.repo.ProfileByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
