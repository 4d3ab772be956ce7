package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/fitcoach/internal/models"
)

const adminColumns = `a.id, a.user_id, p.email, a.is_super_admin, a.created_at,
	COALESCE((SELECT string_agg(ap.permission, ',' ORDER BY ap.permission)
	            FROM admin_permissions ap WHERE ap.admin_id = a.id), '')`

func scanAdmin(row scanner) (*models.Admin, error) {
	var a models.Admin
	var perms string
	if err := row.Scan(&a.ID, &a.UserID, &a.Email, &a.IsSuperAdmin, &a.CreatedAt, &perms); err != nil {
		return nil, err
	}
	a.Permissions = []models.Permission{}
	if perms != "" {
		for _, p := range strings.Split(perms, ",") {
			a.Permissions = append(a.Permissions, models.Permission(p))
		}
	}
	return &a, nil
}

// AdminByUserID возвращает администратора, связанного с пользователем.
func (s *Storage) AdminByUserID(ctx context.Context, userID string) (*models.Admin, error) {
	const op = "storage.AdminByUserID"

	query := `SELECT ` + adminColumns + `
			  FROM admins a JOIN profiles p ON p.id = a.user_id
			  WHERE a.user_id = $1`
	a, err := scanAdmin(s.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return a, nil
}

// AdminByID возвращает администратора по его ID.
func (s *Storage) AdminByID(ctx context.Context, adminID string) (*models.Admin, error) {
	const op = "storage.AdminByID"

	query := `SELECT ` + adminColumns + `
			  FROM admins a JOIN profiles p ON p.id = a.user_id
			  WHERE a.id = $1`
	a, err := scanAdmin(s.DB.QueryRowContext(ctx, query, adminID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return a, nil
}

// ListAdmins возвращает всех администраторов с их правами.
func (s *Storage) ListAdmins(ctx context.Context) ([]models.Admin, error) {
	const op = "storage.ListAdmins"

	query := `SELECT ` + adminColumns + `
			  FROM admins a JOIN profiles p ON p.id = a.user_id
			  ORDER BY a.created_at`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// CreateAdmin повышает пользователя до администратора и возвращает ID записи.
func (s *Storage) CreateAdmin(ctx context.Context, userID string, superAdmin bool) (string, error) {
	const op = "storage.CreateAdmin"

	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO admins (user_id, is_super_admin) VALUES ($1, $2) RETURNING id`,
		userID, superAdmin).Scan(&id)
	if err != nil {
		return "", wrap(op, err)
	}
	return id, nil
}

// DeleteAdmin снимает права администратора. Права и подписка удаляются каскадно.
func (s *Storage) DeleteAdmin(ctx context.Context, adminID string) (int, error) {
	const op = "storage.DeleteAdmin"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM admins WHERE id = $1`, adminID)
	if err != nil {
		return 0, wrap(op, err)
	}
	return affected(op, res)
}

// AdminPermissions возвращает явно выданные права администратора как строки из базы.
func (s *Storage) AdminPermissions(ctx context.Context, adminID string) ([]string, error) {
	const op = "storage.AdminPermissions"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT permission FROM admin_permissions WHERE admin_id = $1 ORDER BY permission`, adminID)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	perms := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, wrap(op, err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return perms, nil
}

// ReplaceAdminPermissions заменяет набор прав администратора в одной транзакции.
func (s *Storage) ReplaceAdminPermissions(ctx context.Context, adminID string, perms []models.Permission) error {
	const op = "storage.ReplaceAdminPermissions"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return wrap(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM admins WHERE id = $1)`, adminID).Scan(&exists); err != nil {
		return wrap(op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM admin_permissions WHERE admin_id = $1`, adminID); err != nil {
		return wrap(op, err)
	}
	for _, p := range perms {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO admin_permissions (admin_id, permission) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			adminID, string(p)); err != nil {
			return wrap(op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap(op, err)
	}
	return nil
}
