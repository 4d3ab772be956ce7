// Package models содержит доменные структуры сервиса: профили, администраторов,
// права, подписки, каталог, корзину и заказы.
package models

import "time"

// Profile — учётная запись пользователя (пациента или администратора).
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileUpdate используется для приёма изменений профиля из JSON-запроса.
type ProfileUpdate struct {
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

// Admin — пользователь, получивший доступ к админке.
type Admin struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id"`
	Email        string       `json:"email"`
	IsSuperAdmin bool         `json:"is_super_admin"`
	Permissions  []Permission `json:"permissions"`
	CreatedAt    time.Time    `json:"created_at"`
}

// AdminRole — производная от удалённой проверки is_admin.
// Нулевое значение означает «не администратор».
type AdminRole struct {
	AdminID      string `json:"admin_id,omitempty"`
	IsAdmin      bool   `json:"is_admin"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}
