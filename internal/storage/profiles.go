package storage

import (
	"context"

	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// ProfileByID возвращает профиль пользователя.
func (s *Storage) ProfileByID(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "storage.ProfileByID"

	var p models.Profile
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, email, full_name, phone, created_at, updated_at FROM profiles WHERE id = $1`, userID).
		Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &p, nil
}

// EnsureProfile создаёт профиль при первом обращении пользователя, пришедшего
// из платформы аутентификации, и обновляет email при его смене.
func (s *Storage) EnsureProfile(ctx context.Context, userID, email string) error {
	const op = "storage.EnsureProfile"

	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO profiles (id, email) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, updated_at = now()
		 WHERE EXCLUDED.email <> '' AND profiles.email <> EXCLUDED.email`, userID, email)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

// UpdateProfile изменяет имя и телефон пользователя.
func (s *Storage) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (int, error) {
	const op = "storage.UpdateProfile"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE profiles SET full_name = $1, phone = $2, updated_at = now() WHERE id = $3`,
		upd.FullName, upd.Phone, userID)
	if err != nil {
		return 0, wrap(op, err)
	}
	return affected(op, res)
}

// ListProfiles возвращает пользователей с пагинацией.
func (s *Storage) ListProfiles(ctx context.Context, limit, offset int) ([]models.Profile, error) {
	const op = "storage.ListProfiles"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, email, full_name, phone, created_at, updated_at
		 FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}
