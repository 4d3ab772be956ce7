// Package equipment — распознавание оборудования спортзала по фотографиям.
// Распознавание не реализовано: сервис честно сообщает об этом вместо
// выдачи выдуманных результатов.
package equipment

import (
	"context"
	"errors"
	"io"
)

// ErrNotImplemented — функция ещё не доступна.
var ErrNotImplemented = errors.New("gym equipment recognition is not implemented")

// Detection — найденный на фото тренажёр.
type Detection struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Detector распознаёт оборудование на изображении.
type Detector interface {
	Detect(ctx context.Context, image io.Reader, contentType string) ([]Detection, error)
}

// PhotoStore сохраняет фотографии зала пользователя.
type PhotoStore interface {
	SavePhoto(ctx context.Context, userID string, image io.Reader, contentType string) (string, error)
}

// Unavailable реализует Detector и PhotoStore и всегда возвращает ErrNotImplemented.
type Unavailable struct{}

// Detect возвращает ErrNotImplemented.
func (Unavailable) Detect(context.Context, io.Reader, string) ([]Detection, error) {
	return nil, ErrNotImplemented
}

// SavePhoto возвращает ErrNotImplemented.
func (Unavailable) SavePhoto(context.Context, string, io.Reader, string) (string, error) {
	return "", ErrNotImplemented
}
