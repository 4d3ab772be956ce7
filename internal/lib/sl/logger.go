package sl

import (
	"io"
	"log/slog"

	"github.com/magabrotheeeer/fitcoach/internal/config"
)

// New создаёт логгер для окружения env: текстовый debug локально,
// JSON с уровнем debug на dev и info на prod.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case config.EnvProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
