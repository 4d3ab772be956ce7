package storage

import (
	"context"

	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// PixKeyByAdmin возвращает ключ PIX администратора.
func (s *Storage) PixKeyByAdmin(ctx context.Context, adminID string) (*models.PixKey, error) {
	const op = "storage.PixKeyByAdmin"

	var k models.PixKey
	err := s.DB.QueryRowContext(ctx,
		`SELECT admin_id, key_type, key_value, updated_at FROM pix_keys WHERE admin_id = $1`, adminID).
		Scan(&k.AdminID, &k.KeyType, &k.KeyValue, &k.UpdatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &k, nil
}

// UpsertPixKey сохраняет ключ PIX администратора.
func (s *Storage) UpsertPixKey(ctx context.Context, adminID string, keyType models.PixKeyType, value string) (*models.PixKey, error) {
	const op = "storage.UpsertPixKey"

	var k models.PixKey
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO pix_keys (admin_id, key_type, key_value) VALUES ($1, $2, $3)
		 ON CONFLICT (admin_id) DO UPDATE
		 SET key_type = EXCLUDED.key_type, key_value = EXCLUDED.key_value, updated_at = now()
		 RETURNING admin_id, key_type, key_value, updated_at`,
		adminID, string(keyType), value).
		Scan(&k.AdminID, &k.KeyType, &k.KeyValue, &k.UpdatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &k, nil
}
