// Package catalog реализует каталог: категории, тренировки с упражнениями и товары.
// Чтение кешируется, каждое изменение сбрасывает затронутые ключи.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/fitcoach/internal/lib/sl"
	"github.com/magabrotheeeer/fitcoach/internal/models"
	"github.com/magabrotheeeer/fitcoach/internal/storage"
)

// Ограничения пагинации списка тренировок.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Repository — хранилище каталога.
type Repository interface {
	ListCategories(ctx context.Context, kind string) ([]models.Category, error)
	CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id string, in models.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id string) (int, error)

	ListWorkouts(ctx context.Context, f models.WorkoutFilter) ([]models.Workout, error)
	WorkoutByID(ctx context.Context, id string) (*models.Workout, error)
	CreateWorkout(ctx context.Context, createdBy string, in models.WorkoutInput) (*models.Workout, error)
	UpdateWorkout(ctx context.Context, id string, in models.WorkoutInput) (*models.Workout, error)
	DeleteWorkout(ctx context.Context, id string) (int, error)

	CreateExercise(ctx context.Context, workoutID string, in models.ExerciseInput) (*models.Exercise, error)
	UpdateExercise(ctx context.Context, id string, in models.ExerciseInput) (*models.Exercise, error)
	DeleteExercise(ctx context.Context, id string) (string, error)

	ListProducts(ctx context.Context, categoryID string, onlyActive bool) ([]models.Product, error)
	ProductByID(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, in models.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) (int, error)
}

// Cache — кеш чтений каталога.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Service — каталог с кешированием.
type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

// New создаёт Service.
func New(log *slog.Logger, repo Repository, cache Cache, ttl time.Duration) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
	}
}

func categoriesKey(kind string) string { return "catalog:categories:" + kind }
func workoutKey(id string) string { return "catalog:workout:" + id }
func productKey(id string) string { return "catalog:product:" + id }
func productsKey(categoryID string) string { return "catalog:products:" + categoryID }

// cached читает key из кеша, а при промахе вызывает load и сохраняет результат.
func cached[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	var v T
	found, err := s.cache.Get(ctx, key, &v)
	if err != nil {
		s.log.Warn("catalog cache read failed", slog.String("key", key), sl.Err(err))
	}
	if found {
		return v, nil
	}
	v, err = load()
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.log.Warn("catalog cache write failed", slog.String("key", key), sl.Err(err))
	}
	return v, nil
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.log.Warn("catalog cache invalidate failed", slog.Any("keys", keys), sl.Err(err))
	}
}

// NormalizeFilter приводит пагинацию к допустимым значениям.
func NormalizeFilter(f models.WorkoutFilter) models.WorkoutFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// Categories возвращает категории вида kind ("" — все).
func (s *Service) Categories(ctx context.Context, kind string) ([]models.Category, error) {
	const op = "catalog.Categories"

	list, err := cached(ctx, s, categoriesKey(kind), func() ([]models.Category, error) {
		return s.repo.ListCategories(ctx, kind)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

func (s *Service) invalidateCategories(ctx context.Context) {
	s.invalidate(ctx,
		categoriesKey(""),
		categoriesKey(string(models.CategoryWorkout)),
		categoriesKey(string(models.CategoryProduct)))
}

// CreateCategory создаёт категорию.
func (s *Service) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	const op = "catalog.CreateCategory"

	c, err := s.repo.CreateCategory(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateCategories(ctx)
	return c, nil
}

// UpdateCategory изменяет категорию.
func (s *Service) UpdateCategory(ctx context.Context, id string, in models.CategoryInput) (*models.Category, error) {
	const op = "catalog.UpdateCategory"

	c, err := s.repo.UpdateCategory(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateCategories(ctx)
	return c, nil
}

// DeleteCategory удаляет категорию.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	const op = "catalog.DeleteCategory"

	if _, err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateCategories(ctx)
	return nil
}

// Workouts возвращает тренировки по фильтру. Списки не кешируются:
// комбинаций фильтров слишком много для точечной инвалидации.
func (s *Service) Workouts(ctx context.Context, f models.WorkoutFilter) ([]models.Workout, error) {
	const op = "catalog.Workouts"

	list, err := s.repo.ListWorkouts(ctx, NormalizeFilter(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Workout возвращает тренировку с упражнениями. Черновики видны только при includeDrafts.
func (s *Service) Workout(ctx context.Context, id string, includeDrafts bool) (*models.Workout, error) {
	const op = "catalog.Workout"

	w, err := cached(ctx, s, workoutKey(id), func() (*models.Workout, error) {
		return s.repo.WorkoutByID(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !w.Published && !includeDrafts {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return w, nil
}

// CreateWorkout создаёт тренировку от имени администратора adminID.
func (s *Service) CreateWorkout(ctx context.Context, adminID string, in models.WorkoutInput) (*models.Workout, error) {
	const op = "catalog.CreateWorkout"

	w, err := s.repo.CreateWorkout(ctx, adminID, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

// UpdateWorkout изменяет тренировку.
func (s *Service) UpdateWorkout(ctx context.Context, id string, in models.WorkoutInput) (*models.Workout, error) {
	const op = "catalog.UpdateWorkout"

	w, err := s.repo.UpdateWorkout(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, workoutKey(id))
	return w, nil
}

// DeleteWorkout удаляет тренировку.
func (s *Service) DeleteWorkout(ctx context.Context, id string) error {
	const op = "catalog.DeleteWorkout"

	if _, err := s.repo.DeleteWorkout(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, workoutKey(id))
	return nil
}

// CreateExercise добавляет упражнение в тренировку.
func (s *Service) CreateExercise(ctx context.Context, workoutID string, in models.ExerciseInput) (*models.Exercise, error) {
	const op = "catalog.CreateExercise"

	e, err := s.repo.CreateExercise(ctx, workoutID, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, workoutKey(workoutID))
	return e, nil
}

// UpdateExercise изменяет упражнение.
func (s *Service) UpdateExercise(ctx context.Context, id string, in models.ExerciseInput) (*models.Exercise, error) {
	const op = "catalog.UpdateExercise"

	e, err := s.repo.UpdateExercise(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, workoutKey(e.WorkoutID))
	return e, nil
}

// DeleteExercise удаляет упражнение.
func (s *Service) DeleteExercise(ctx context.Context, id string) error {
	const op = "catalog.DeleteExercise"

	workoutID, err := s.repo.DeleteExercise(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, workoutKey(workoutID))
	return nil
}

// Products возвращает активные товары категории ("" — все).
func (s *Service) Products(ctx context.Context, categoryID string) ([]models.Product, error) {
	const op = "catalog.Products"

	list, err := cached(ctx, s, productsKey(categoryID), func() ([]models.Product, error) {
		return s.repo.ListProducts(ctx, categoryID, true)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Product возвращает товар независимо от активности.
func (s *Service) Product(ctx context.Context, id string) (*models.Product, error) {
	const op = "catalog.Product"

	p, err := cached(ctx, s, productKey(id), func() (*models.Product, error) {
		return s.repo.ProductByID(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *Service) invalidateProduct(ctx context.Context, id string, categoryIDs ...string) {
	keys := []string{productKey(id), productsKey("")}
	for _, c := range categoryIDs {
		keys = append(keys, productsKey(c))
	}
	s.invalidate(ctx, keys...)
}

// CreateProduct создаёт товар.
func (s *Service) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	const op = "catalog.CreateProduct"

	p, err := s.repo.CreateProduct(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateProduct(ctx, p.ID, p.CategoryID)
	return p, nil
}

// UpdateProduct изменяет товар. Сбрасываются списки старой и новой категории.
func (s *Service) UpdateProduct(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	const op = "catalog.UpdateProduct"

	old, err := s.repo.ProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := s.repo.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateProduct(ctx, id, old.CategoryID, p.CategoryID)
	return p, nil
}

// DeleteProduct удаляет товар. Товар из заказов удалить нельзя: ErrConflict.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	const op = "catalog.DeleteProduct"

	old, err := s.repo.ProductByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.repo.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateProduct(ctx, id, old.CategoryID)
	return nil
}

// InvalidateProducts сбрасывает кеш товаров после изменения остатков при оформлении заказа.
func (s *Service) InvalidateProducts(ctx context.Context, ids ...string) {
	for _, id := range ids {
		s.invalidate(ctx, productKey(id))
	}
}

// IsNotFound сообщает, что запись каталога не найдена.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
