// Package catalog реализует HTTP-обработчики каталога: публичное чтение
// категорий, тренировок и товаров и их изменение администраторами.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/fitcoach/internal/http/middlewarectx"
	"github.com/magabrotheeeer/fitcoach/internal/http/request"
	"github.com/magabrotheeeer/fitcoach/internal/http/response"
	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

// Service описывает бизнес-логику каталога.
type Service interface {
	Categories(ctx context.Context, kind string) ([]models.Category, error)
	CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id string, in models.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) error

	Workouts(ctx context.Context, f models.WorkoutFilter) ([]models.Workout, error)
	Workout(ctx context.Context, id string, includeDrafts bool) (*models.Workout, error)
	CreateWorkout(ctx context.Context, adminID string, in models.WorkoutInput) (*models.Workout, error)
	UpdateWorkout(ctx context.Context, id string, in models.WorkoutInput) (*models.Workout, error)
	DeleteWorkout(ctx context.Context, id string) error

	CreateExercise(ctx context.Context, workoutID string, in models.ExerciseInput) (*models.Exercise, error)
	UpdateExercise(ctx context.Context, id string, in models.ExerciseInput) (*models.Exercise, error)
	DeleteExercise(ctx context.Context, id string) error

	Products(ctx context.Context, categoryID string) ([]models.Product, error)
	Product(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, in models.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// Handler обрабатывает запросы каталога.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// id читает параметр пути name. Невалидный UUID — 400.
func id(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := chi.URLParam(r, name)
	if err := uuid.Validate(v); err != nil {
		response.Fail(w, r, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return v, true
}

// fail переводит ошибку сервиса в HTTP-ответ.
func fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, what string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Info(what+" not found", sl.Err(err))
		response.Fail(w, r, http.StatusNotFound, what+" not found")
	case errors.Is(err, storage.ErrConflict):
		log.Info(what+" conflicts with existing data", sl.Err(err))
		response.Fail(w, r, http.StatusConflict, what+" conflicts with existing data")
	default:
		log.Error("failed to process "+what, sl.Err(err))
		response.Fail(w, r, http.StatusInternalServerError, "internal error")
	}
}

func ok(w http.ResponseWriter, r *http.Request, status int, data any) {
	response.Render(w, r, status, response.OKWithData(data))
}

// Categories — GET /categories?kind=.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.Categories"
	log := h.logger(r, op)

	kind := r.URL.Query().Get("kind")
	switch models.CategoryKind(kind) {
	case "", models.CategoryWorkout, models.CategoryProduct:
	default:
		response.Fail(w, r, http.StatusBadRequest, "kind must be workout or product")
		return
	}

	list, err := h.service.Categories(r.Context(), kind)
	if err != nil {
		fail(w, r, log, err, "categories")
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// CreateCategory — POST /admin/categories.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.CreateCategory"
	log := h.logger(r, op)

	var in models.CategoryInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}
	c, err := h.service.CreateCategory(r.Context(), in)
	if err != nil {
		fail(w, r, log, err, "category")
		return
	}
	log.Info("category created", slog.String("id", c.ID))
	ok(w, r, http.StatusCreated, c)
}

// UpdateCategory — PUT /admin/categories/{id}.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.UpdateCategory"
	log := h.logger(r, op)

	categoryID, valid := id(w, r, "id")
	if !valid {
		return
	}
	var in models.CategoryInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}
	c, err := h.service.UpdateCategory(r.Context(), categoryID, in)
	if err != nil {
		fail(w, r, log, err, "category")
		return
	}
	ok(w, r, http.StatusOK, c)
}

// DeleteCategory — DELETE /admin/categories/{id}.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.DeleteCategory"
	log := h.logger(r, op)

	categoryID, valid := id(w, r, "id")
	if !valid {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), categoryID); err != nil {
		fail(w, r, log, err, "category")
		return
	}
	log.Info("category deleted", slog.String("id", categoryID))
	render.JSON(w, r, response.OK())
}

func (h *Handler) workoutFilter(w http.ResponseWriter, r *http.Request) (models.WorkoutFilter, bool) {
	q := r.URL.Query()
	limit, offset, err := request.Page(r)
	if err != nil {
		response.Fail(w, r, http.StatusBadRequest, err.Error())
		return models.WorkoutFilter{}, false
	}
	f := models.WorkoutFilter{
		CategoryID: q.Get("category_id"),
		Level:      models.WorkoutLevel(q.Get("level")),
		Search:     q.Get("q"),
		Limit:      limit,
		Offset:     offset,
	}
	if f.CategoryID != "" && uuid.Validate(f.CategoryID) != nil {
		response.Fail(w, r, http.StatusBadRequest, "invalid category_id")
		return models.WorkoutFilter{}, false
	}
	switch f.Level {
	case "", models.LevelBeginner, models.LevelIntermediate, models.LevelAdvanced:
	default:
		response.Fail(w, r, http.StatusBadRequest, "level must be beginner, intermediate or advanced")
		return models.WorkoutFilter{}, false
	}
	return f, true
}

// Workouts — GET /workouts, только опубликованные.
func (h *Handler) Workouts(w http.ResponseWriter, r *http.Request) {
	h.workouts(w, r, true)
}

// AdminWorkouts — GET /admin/workouts, вместе с черновиками.
func (h *Handler) AdminWorkouts(w http.ResponseWriter, r *http.Request) {
	h.workouts(w, r, false)
}

func (h *Handler) workouts(w http.ResponseWriter, r *http.Request, onlyPublished bool) {
	const op = "handlers.catalog.Workouts"
	log := h.logger(r, op)

	f, valid := h.workoutFilter(w, r)
	if !valid {
		return
	}
	f.OnlyPublished = onlyPublished

	list, err := h.service.Workouts(r.Context(), f)
	if err != nil {
		fail(w, r, log, err, "workouts")
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// Workout — GET /workouts/{id}.
func (h *Handler) Workout(w http.ResponseWriter, r *http.Request) {
	h.workout(w, r, false)
}

// AdminWorkout — GET /admin/workouts/{id}, черновики тоже.
func (h *Handler) AdminWorkout(w http.ResponseWriter, r *http.Request) {
	h.workout(w, r, true)
}

func (h *Handler) workout(w http.ResponseWriter, r *http.Request, includeDrafts bool) {
	const op = "handlers.catalog.Workout"
	log := h.logger(r, op)

	workoutID, valid := id(w, r, "id")
	if !valid {
		return
	}
	wo, err := h.service.Workout(r.Context(), workoutID, includeDrafts)
	if err != nil {
		fail(w, r, log, err, "workout")
		return
	}
	render.JSON(w, r, response.OKWithData(wo))
}

// CreateWorkout — POST /admin/workouts. Автор — текущий администратор.
func (h *Handler) CreateWorkout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.CreateWorkout"
	log := h.logger(r, op)

	var in models.WorkoutInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}
	adminID := middlewarectx.RoleFromContext(r.Context()).AdminID
	wo, err := h.service.CreateWorkout(r.Context(), adminID, in)
	if err != nil {
		fail(w, r, log, err, "workout")
		return
	}
	log.Info("workout created", slog.String("id", wo.ID), slog.String("admin_id", adminID))
	ok(w, r, http.StatusCreated, wo)
}

// UpdateWorkout — PUT /admin/workouts/{id}.
func (h *Handler) UpdateWorkout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.UpdateWorkout"
	log := h.logger(r, op)

	workoutID, valid := id(w, r, "id")
	if !valid {
		return
	}
	var in models.WorkoutInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}
	wo, err := h.service.UpdateWorkout(r.Context(), workoutID, in)
	if err != nil {
		fail(w, r, log, err, "workout")
		return
	}
	ok(w, r, http.StatusOK, wo)
}

// DeleteWorkout — DELETE /admin/workouts/{id}.
func (h *Handler) DeleteWorkout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.DeleteWorkout"
	log := h.logger(r, op)

	workoutID, valid := id(w, r, "id")
	if !valid {
		return
	}
	if err := h.service.DeleteWorkout(r.Context(), workoutID); err != nil {
		fail(w, r, log, err, "workout")
		return
	}
	log.Info("workout deleted", slog.String("id", workoutID))
	render.JSON(w, r, response.OK())
}

// CreateExercise — POST /admin/workouts/{id}/exercises.
func (h *Handler) CreateExercise(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.CreateExercise"
	log := h.logger(r, op)

	workoutID, valid := id(w, r, "id")
	if !valid {
		return
	}
	var in models.ExerciseInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}
	e, err := h.service.CreateExercise(r.Context(), workoutID, in)
	if err != nil {
		fail(w, r, log, err, "exercise")
		return
	}
	ok(w, r, http.StatusCreated, e)
}

// UpdateExercise — PUT /admin/exercises/{id}.
func (h *Handler) UpdateExercise(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.UpdateExercise"
	log := h.logger(r, op)

	exerciseID, valid := id(w, r, "id")
	if !valid {
		return
	}
	var in models.ExerciseInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}
	e, err := h.service.UpdateExercise(r.Context(), exerciseID, in)
	if err != nil {
		fail(w, r, log, err, "exercise")
		return
	}
	ok(w, r, http.StatusOK, e)
}

// DeleteExercise — DELETE /admin/exercises/{id}.
func (h *Handler) DeleteExercise(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.DeleteExercise"
	log := h.logger(r, op)

	exerciseID, valid := id(w, r, "id")
	if !valid {
		return
	}
	if err := h.service.DeleteExercise(r.Context(), exerciseID); err != nil {
		fail(w, r, log, err, "exercise")
		return
	}
	render.JSON(w, r, response.OK())
}

// Products — GET /products?category_id=, только активные.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.Products"
	log := h.logger(r, op)

	categoryID := r.URL.Query().Get("category_id")
	if categoryID != "" && uuid.Validate(categoryID) != nil {
		response.Fail(w, r, http.StatusBadRequest, "invalid category_id")
		return
	}
	list, err := h.service.Products(r.Context(), categoryID)
	if err != nil {
		fail(w, r, log, err, "products")
		return
	}
	render.JSON(w, r, response.OKWithData(list))
}

// Product — GET /products/{id}. Неактивный товар не показывается.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.Product"
	log := h.logger(r, op)

	productID, valid := id(w, r, "id")
	if !valid {
		return
	}
	p, err := h.service.Product(r.Context(), productID)
	if err != nil {
		fail(w, r, log, err, "product")
		return
	}
	if !p.Active {
		response.Fail(w, r, http.StatusNotFound, "product not found")
		return
	}
	render.JSON(w, r, response.OKWithData(p))
}

// CreateProduct — POST /admin/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.CreateProduct"
	log := h.logger(r, op)

	var in models.ProductInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}
	p, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		fail(w, r, log, err, "product")
		return
	}
	log.Info("product created", slog.String("id", p.ID))
	ok(w, r, http.StatusCreated, p)
}

// UpdateProduct — PUT /admin/products/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.UpdateProduct"
	log := h.logger(r, op)

	productID, valid := id(w, r, "id")
	if !valid {
		return
	}
	var in models.ProductInput
	if !request.DecodeJSON(w, r, log, h.validate, &in) {
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), productID, in)
	if err != nil {
		fail(w, r, log, err, "product")
		return
	}
	ok(w, r, http.StatusOK, p)
}

// DeleteProduct — DELETE /admin/products/{id}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.DeleteProduct"
	log := h.logger(r, op)

	productID, valid := id(w, r, "id")
	if !valid {
		return
	}
	if err := h.service.DeleteProduct(r.Context(), productID); err != nil {
		fail(w, r, log, err, "product")
		return
	}
	log.Info("product deleted", slog.String("id", productID))
	render.JSON(w, r, response.OK())
}
