// Package request разбирает тела и параметры HTTP-запросов и отвечает
// клиенту при ошибке разбора.
package request

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/fitcoach/internal/http/response"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
)

// DecodeJSON читает JSON в v и проверяет его validate. При ошибке пишет
// ответ и возвращает false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, v any) bool {
	err := render.DecodeJSON(r.Body, v)
	if errors.Is(err, io.EOF) {
		log.Error("request body is empty")
		response.Fail(w, r, http.StatusBadRequest, "empty request")
		return false
	}
	if err != nil {
		log.Error("failed to decode request", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			log.Info("validation failed", sl.Err(err))
			response.Render(w, r, http.StatusUnprocessableEntity, response.ValidationError(verrs))
			return false
		}
		log.Error("failed to validate request", sl.Err(err))
		response.Fail(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// Page читает limit и offset из строки запроса. Отсутствующий параметр — 0.
func Page(r *http.Request) (limit, offset int, err error) {
	if limit, err = intParam(r, "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = intParam(r, "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("query parameter " + name + " must be a non-negative integer")
	}
	return n, nil
}
