package storage

import (
	"context"
	"encoding/json"
)

// IsAdmin вызывает хранимую процедуру is_admin(user_id).
func (s *Storage) IsAdmin(ctx context.Context, userID string) (bool, error) {
	const op = "storage.IsAdmin"

	var ok bool
	if err := s.DB.QueryRowContext(ctx, `SELECT is_admin($1)`, userID).Scan(&ok); err != nil {
		return false, wrap(op, err)
	}
	return ok, nil
}

// HandleKiwifyWebhook передаёт payload процедуре handle_kiwify_webhook без изменений
// и возвращает её результат.
func (s *Storage) HandleKiwifyWebhook(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	const op = "storage.HandleKiwifyWebhook"

	var result []byte
	if err := s.DB.QueryRowContext(ctx, `SELECT handle_kiwify_webhook($1::jsonb)`, string(payload)).Scan(&result); err != nil {
		return nil, wrap(op, err)
	}
	return json.RawMessage(result), nil
}
