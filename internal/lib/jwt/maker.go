// Package jwt реализует выпуск и проверку JWT токенов сессии.
//
// Токены выпускает платформа аутентификации; сервис только проверяет подпись
// общим секретом и достаёт из claims идентификатор и email пользователя.
// GenerateToken нужен тестам и локальной разработке.
package jwt

import (
	"time"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	// GenerateToken выпускает токен для пользователя с заданным email.
	GenerateToken(userID, email string) (string, error)
	// ParseToken проверяет токен и возвращает его claims.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует Maker с использованием секретного ключа HS256.
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	issuer    string        // Ожидаемый iss, пустой — не проверяется.
	tokenTTL  time.Duration // Время жизни выпускаемых токенов.
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа, издателя и TTL.
func NewJWTMaker(secretKey, issuer string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		issuer:    issuer,
		tokenTTL:  ttl,
	}
}
