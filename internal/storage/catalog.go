package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/fitcoach/internal/models"
)

// ListCategories возвращает категории. Пустой kind означает все категории.
func (s *Storage) ListCategories(ctx context.Context, kind string) ([]models.Category, error) {
	const op = "storage.ListCategories"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, name, kind, created_at FROM categories
		 WHERE ($1 = '' OR kind = $1) ORDER BY kind, name`, kind)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind, &c.CreatedAt); err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// CreateCategory создаёт категорию.
func (s *Storage) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	const op = "storage.CreateCategory"

	var c models.Category
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO categories (name, kind) VALUES ($1, $2) RETURNING id, name, kind, created_at`,
		in.Name, in.Kind).Scan(&c.ID, &c.Name, &c.Kind, &c.CreatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &c, nil
}

// UpdateCategory переименовывает категорию или меняет её тип.
func (s *Storage) UpdateCategory(ctx context.Context, id string, in models.CategoryInput) (*models.Category, error) {
	const op = "storage.UpdateCategory"

	var c models.Category
	err := s.DB.QueryRowContext(ctx,
		`UPDATE categories SET name = $1, kind = $2 WHERE id = $3 RETURNING id, name, kind, created_at`,
		in.Name, in.Kind, id).Scan(&c.ID, &c.Name, &c.Kind, &c.CreatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &c, nil
}

// DeleteCategory удаляет категорию. Категория с тренировками или товарами даёт ErrConflict.
func (s *Storage) DeleteCategory(ctx context.Context, id string) (int, error) {
	const op = "storage.DeleteCategory"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return affected(op, res)
}

const workoutColumns = `id, category_id, title, description, level, duration_minutes,
	COALESCE(created_by::text, ''), published, created_at, updated_at`

func scanWorkout(row scanner) (*models.Workout, error) {
	var w models.Workout
	if err := row.Scan(&w.ID, &w.CategoryID, &w.Title, &w.Description, &w.Level, &w.DurationMinutes,
		&w.CreatedBy, &w.Published, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWorkouts возвращает тренировки по фильтру.
func (s *Storage) ListWorkouts(ctx context.Context, f models.WorkoutFilter) ([]models.Workout, error) {
	const op = "storage.ListWorkouts"

	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CategoryID != "" {
		add("category_id = $%d", f.CategoryID)
	}
	if f.Level != "" {
		add("level = $%d", string(f.Level))
	}
	if f.Search != "" {
		add("title ILIKE '%%' || $%d::text || '%%'", f.Search)
	}
	if f.OnlyPublished {
		where = append(where, "published")
	}

	query := `SELECT ` + workoutColumns + ` FROM workouts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.Workout{}
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// WorkoutByID возвращает тренировку вместе с упражнениями.
func (s *Storage) WorkoutByID(ctx context.Context, id string) (*models.Workout, error) {
	const op = "storage.WorkoutByID"

	w, err := scanWorkout(s.DB.QueryRowContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, workout_id, name, sets, reps, rest_seconds, video_url, position
		 FROM exercises WHERE workout_id = $1 ORDER BY position, name`, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	w.Exercises = []models.Exercise{}
	for rows.Next() {
		var e models.Exercise
		if err := rows.Scan(&e.ID, &e.WorkoutID, &e.Name, &e.Sets, &e.Reps, &e.RestSeconds, &e.VideoURL, &e.Position); err != nil {
			return nil, wrap(op, err)
		}
		w.Exercises = append(w.Exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return w, nil
}

// CreateWorkout создаёт тренировку от имени администратора.
func (s *Storage) CreateWorkout(ctx context.Context, createdBy string, in models.WorkoutInput) (*models.Workout, error) {
	const op = "storage.CreateWorkout"

	var author sql.NullString
	if createdBy != "" {
		author = sql.NullString{String: createdBy, Valid: true}
	}
	w, err := scanWorkout(s.DB.QueryRowContext(ctx,
		`INSERT INTO workouts (category_id, title, description, level, duration_minutes, created_by, published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+workoutColumns,
		in.CategoryID, in.Title, in.Description, in.Level, in.DurationMinutes, author, in.Published))
	if err != nil {
		return nil, wrap(op, err)
	}
	return w, nil
}

// UpdateWorkout изменяет тренировку.
func (s *Storage) UpdateWorkout(ctx context.Context, id string, in models.WorkoutInput) (*models.Workout, error) {
	const op = "storage.UpdateWorkout"

	w, err := scanWorkout(s.DB.QueryRowContext(ctx,
		`UPDATE workouts
		 SET category_id = $1, title = $2, description = $3, level = $4,
		     duration_minutes = $5, published = $6, updated_at = now()
		 WHERE id = $7
		 RETURNING `+workoutColumns,
		in.CategoryID, in.Title, in.Description, in.Level, in.DurationMinutes, in.Published, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return w, nil
}

// DeleteWorkout удаляет тренировку вместе с упражнениями.
func (s *Storage) DeleteWorkout(ctx context.Context, id string) (int, error) {
	const op = "storage.DeleteWorkout"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM workouts WHERE id = $1`, id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return affected(op, res)
}

// CreateExercise добавляет упражнение в тренировку.
func (s *Storage) CreateExercise(ctx context.Context, workoutID string, in models.ExerciseInput) (*models.Exercise, error) {
	const op = "storage.CreateExercise"

	var e models.Exercise
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO exercises (workout_id, name, sets, reps, rest_seconds, video_url, position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, workout_id, name, sets, reps, rest_seconds, video_url, position`,
		workoutID, in.Name, in.Sets, in.Reps, in.RestSeconds, in.VideoURL, in.Position).
		Scan(&e.ID, &e.WorkoutID, &e.Name, &e.Sets, &e.Reps, &e.RestSeconds, &e.VideoURL, &e.Position)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &e, nil
}

// UpdateExercise изменяет упражнение.
func (s *Storage) UpdateExercise(ctx context.Context, id string, in models.ExerciseInput) (*models.Exercise, error) {
	const op = "storage.UpdateExercise"

	var e models.Exercise
	err := s.DB.QueryRowContext(ctx,
		`UPDATE exercises
		 SET name = $1, sets = $2, reps = $3, rest_seconds = $4, video_url = $5, position = $6
		 WHERE id = $7
		 RETURNING id, workout_id, name, sets, reps, rest_seconds, video_url, position`,
		in.Name, in.Sets, in.Reps, in.RestSeconds, in.VideoURL, in.Position, id).
		Scan(&e.ID, &e.WorkoutID, &e.Name, &e.Sets, &e.Reps, &e.RestSeconds, &e.VideoURL, &e.Position)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &e, nil
}

// DeleteExercise удаляет упражнение и возвращает ID его тренировки.
func (s *Storage) DeleteExercise(ctx context.Context, id string) (string, error) {
	const op = "storage.DeleteExercise"

	var workoutID string
	err := s.DB.QueryRowContext(ctx,
		`DELETE FROM exercises WHERE id = $1 RETURNING workout_id`, id).Scan(&workoutID)
	if err != nil {
		return "", wrap(op, err)
	}
	return workoutID, nil
}

const productColumns = `id, category_id, name, description, price_cents, image_url, stock, active, created_at, updated_at`

func scanProduct(row scanner) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Description, &p.PriceCents, &p.ImageURL,
		&p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts возвращает товары категории или все товары, если categoryID пуст.
func (s *Storage) ListProducts(ctx context.Context, categoryID string, onlyActive bool) ([]models.Product, error) {
	const op = "storage.ListProducts"

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE ($1 = '' OR category_id::text = $1) AND (NOT $2 OR active)
		 ORDER BY name`, categoryID, onlyActive)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return result, nil
}

// ProductByID возвращает товар по ID.
func (s *Storage) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	const op = "storage.ProductByID"

	p, err := scanProduct(s.DB.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// CreateProduct создаёт товар.
func (s *Storage) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	const op = "storage.CreateProduct"

	p, err := scanProduct(s.DB.QueryRowContext(ctx,
		`INSERT INTO products (category_id, name, description, price_cents, image_url, stock, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+productColumns,
		in.CategoryID, in.Name, in.Description, in.PriceCents, in.ImageURL, in.Stock, in.Active))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// UpdateProduct изменяет товар.
func (s *Storage) UpdateProduct(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	const op = "storage.UpdateProduct"

	p, err := scanProduct(s.DB.QueryRowContext(ctx,
		`UPDATE products
		 SET category_id = $1, name = $2, description = $3, price_cents = $4,
		     image_url = $5, stock = $6, active = $7, updated_at = now()
		 WHERE id = $8
		 RETURNING `+productColumns,
		in.CategoryID, in.Name, in.Description, in.PriceCents, in.ImageURL, in.Stock, in.Active, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// DeleteProduct удаляет товар. Товар из оформленных заказов даёт ErrConflict.
func (s *Storage) DeleteProduct(ctx context.Context, id string) (int, error) {
	const op = "storage.DeleteProduct"

	res, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return affected(op, res)
}
